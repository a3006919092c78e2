package i18n

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseFallsBackToDefault(t *testing.T) {
	require.Equal(t, LocaleCzech, Parse("cs"))
	require.Equal(t, LocaleEnglish, Parse("EN"))
	require.Equal(t, DefaultLocale, Parse("de"))
	require.Equal(t, DefaultLocale, Parse(""))
}

func TestValid(t *testing.T) {
	require.True(t, Valid("cs"))
	require.True(t, Valid("en"))
	require.False(t, Valid("sk"))
	require.False(t, Valid(""))
}

func TestFormatAmount(t *testing.T) {
	amount := decimal.NewFromInt(25000)

	cs := LocaleCzech.FormatAmount(amount)
	require.Contains(t, cs, "Kč")
	require.Contains(t, cs, "25")

	en := LocaleEnglish.FormatAmount(amount)
	require.Contains(t, en, "CZK")
	require.Contains(t, en, "25,000")
}

func TestFormatDate(t *testing.T) {
	date := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "15.3.2026", LocaleCzech.FormatDate(date))
	require.Equal(t, "Mar 15, 2026", LocaleEnglish.FormatDate(date))
}

func TestCatalogLookups(t *testing.T) {
	require.Equal(t, "Oznámení o dlužné částce", LocaleCzech.T("mail.debt_notification.subject"))
	require.Equal(t, "Debt notification", LocaleEnglish.T("mail.debt_notification.subject"))
	// unknown keys stay visible
	require.Equal(t, "missing.key", LocaleCzech.T("missing.key"))
}
