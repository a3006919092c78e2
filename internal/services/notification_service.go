package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dluzirna/dluzirna/internal/i18n"
	"github.com/dluzirna/dluzirna/internal/models"
	"github.com/dluzirna/dluzirna/pkg/mail"
	"github.com/dluzirna/dluzirna/pkg/metrics"
)

// DebtNotifier dispatches the notification email for one debt. Split out as
// an interface so the debt service can be tested with a stub transport.
type DebtNotifier interface {
	NotifyDebt(ctx context.Context, debt *models.Debt, locale i18n.Locale) error
}

// NotificationService composes and sends localized debt notification emails.
type NotificationService struct {
	mailer  mail.Mailer
	baseURL string
}

// NewNotificationService constructs a NotificationService. baseURL is the
// externally visible origin used to build public debt links.
func NewNotificationService(mailer mail.Mailer, baseURL string) (*NotificationService, error) {
	if mailer == nil {
		return nil, errors.New("notification service: mailer is required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("notification service: base url is required")
	}
	return &NotificationService{mailer: mailer, baseURL: baseURL}, nil
}

// PublicDebtURL builds the locale-prefixed token link for a debt.
func (s *NotificationService) PublicDebtURL(debt *models.Debt, locale i18n.Locale) string {
	return fmt.Sprintf("%s/%s/pohledavky/%s", s.baseURL, locale, debt.Token)
}

// NotifyDebt sends one email to the debt's customer address with the public
// token link and localized amount and due date.
func (s *NotificationService) NotifyDebt(ctx context.Context, debt *models.Debt, locale i18n.Locale) error {
	if debt == nil {
		return errors.New("notification service: debt is required")
	}

	msg := mail.Message{
		To:      debt.CustomerEmail,
		Subject: i18n.LocaleCzech.T("mail.debt_notification.subject") + " / " + i18n.LocaleEnglish.T("mail.debt_notification.subject"),
		Body:    s.composeBody(debt, locale),
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		metrics.NotificationsSent.WithLabelValues("failed").Inc()
		return fmt.Errorf("notification service: send to %s: %w", debt.CustomerEmail, err)
	}

	metrics.NotificationsSent.WithLabelValues("sent").Inc()
	return nil
}

func (s *NotificationService) composeBody(debt *models.Debt, locale i18n.Locale) string {
	var b strings.Builder

	b.WriteString(locale.T("mail.debt_notification.greeting"))
	b.WriteString("\n\n")
	b.WriteString(locale.T("mail.debt_notification.intro"))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%s: %s\n", locale.T("mail.debt_notification.amount"), locale.FormatAmount(debt.Amount))
	fmt.Fprintf(&b, "%s: %s\n", locale.T("mail.debt_notification.due_date"), locale.FormatDate(debt.DueDate))

	if description := strings.TrimSpace(debt.Description); description != "" {
		b.WriteString("\n")
		b.WriteString(description)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "%s:\n%s\n", locale.T("mail.debt_notification.link"), s.PublicDebtURL(debt, locale))
	b.WriteString("\n")
	b.WriteString(locale.T("mail.debt_notification.signature"))
	b.WriteString("\n")

	return b.String()
}
