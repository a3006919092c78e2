// Package i18n provides the two application locales and localized formatting
// of currency amounts and dates for pages and notification emails.
package i18n

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Locale is one of the supported UI languages.
type Locale string

const (
	LocaleCzech   Locale = "cs"
	LocaleEnglish Locale = "en"

	// DefaultLocale is used when the request carries no usable locale.
	DefaultLocale = LocaleCzech
)

// Supported lists all locales in routing order.
var Supported = []Locale{LocaleCzech, LocaleEnglish}

// Parse normalises a path segment into a supported locale. Unknown values fall
// back to the default, mirroring the routing behaviour for bad prefixes.
func Parse(value string) Locale {
	switch Locale(strings.ToLower(strings.TrimSpace(value))) {
	case LocaleCzech:
		return LocaleCzech
	case LocaleEnglish:
		return LocaleEnglish
	default:
		return DefaultLocale
	}
}

// Valid reports whether the value names a supported locale exactly.
func Valid(value string) bool {
	v := Locale(strings.ToLower(strings.TrimSpace(value)))
	return v == LocaleCzech || v == LocaleEnglish
}

func (l Locale) tag() language.Tag {
	if l == LocaleEnglish {
		return language.English
	}
	return language.Czech
}

// FormatAmount renders a CZK amount with locale-appropriate digit grouping,
// e.g. "25 000,00 Kč" (cs) or "CZK 25,000.00" (en).
func (l Locale) FormatAmount(amount decimal.Decimal) string {
	p := message.NewPrinter(l.tag())
	formatted := p.Sprintf("%v", number.Decimal(amount.InexactFloat64(),
		number.MinFractionDigits(2), number.MaxFractionDigits(2)))

	if l == LocaleEnglish {
		return "CZK " + formatted
	}
	return formatted + " Kč"
}

// FormatDate renders a calendar date in the locale's conventional short form.
func (l Locale) FormatDate(t time.Time) string {
	if l == LocaleEnglish {
		return t.Format("Jan 2, 2006")
	}
	return t.Format("2.1.2006")
}

// T resolves a catalog key for the locale. Missing keys return the key itself
// so untranslated strings stay visible in development.
func (l Locale) T(key string) string {
	if entry, ok := catalog[key]; ok {
		if l == LocaleEnglish {
			return entry.en
		}
		return entry.cs
	}
	return key
}

type entry struct {
	cs string
	en string
}

var catalog = map[string]entry{
	"mail.debt_notification.subject": {
		cs: "Oznámení o dlužné částce",
		en: "Debt notification",
	},
	"mail.debt_notification.greeting": {
		cs: "Dobrý den,",
		en: "Hello,",
	},
	"mail.debt_notification.intro": {
		cs: "evidujeme u Vás dlužnou částku. Podrobnosti naleznete níže a na odkazu na konci zprávy.",
		en: "we have a debt registered against your name. Details are below and on the link at the end of this message.",
	},
	"mail.debt_notification.amount": {
		cs: "Dlužná částka",
		en: "Amount due",
	},
	"mail.debt_notification.due_date": {
		cs: "Datum splatnosti",
		en: "Due date",
	},
	"mail.debt_notification.link": {
		cs: "Stav pohledávky můžete sledovat zde",
		en: "You can track the debt status here",
	},
	"mail.debt_notification.signature": {
		cs: "S pozdravem,\nDlužírna",
		en: "Kind regards,\nDluzirna",
	},
	"page.homepage.title": {
		cs: "Dlužírna — evidence pohledávek",
		en: "Dluzirna — debt register",
	},
}
