package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"
)

// ErrDisabled signals that SMTP delivery is turned off via configuration.
var ErrDisabled = errors.New("mail: delivery disabled")

// Message represents an outbound email.
type Message struct {
	From    string
	ReplyTo string
	To      string
	Subject string
	Body    string
}

// Mailer sends email messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Settings capture the runtime configuration of the SMTP mailer.
type Settings struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	ReplyTo  string
	UseTLS   bool
	Timeout  time.Duration
}

type client interface {
	Mail(string) error
	Rcpt(string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
	StartTLS(*tls.Config) error
	Auth(smtp.Auth) error
	Extension(string) (bool, string)
}

type dialFunc func(ctx context.Context, cfg Settings) (net.Conn, client, error)

type smtpMailer struct {
	cfg  Settings
	dial dialFunc
}

// NewSMTPMailer builds a Mailer backed by a plain SMTP client.
func NewSMTPMailer(cfg Settings) (Mailer, error) {
	if cfg.Enabled {
		if strings.TrimSpace(cfg.Host) == "" {
			return nil, errors.New("mail: host is required when enabled")
		}
		if cfg.Port == 0 {
			return nil, errors.New("mail: port is required when enabled")
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &smtpMailer{cfg: cfg, dial: dialSMTP}, nil
}

func (m *smtpMailer) Send(ctx context.Context, msg Message) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = m.cfg.From
	}
	if from == "" {
		return errors.New("mail: sender address is required")
	}
	if _, err := mail.ParseAddress(from); err != nil {
		return fmt.Errorf("mail: invalid from address: %w", err)
	}

	rcpt := strings.TrimSpace(msg.To)
	if rcpt == "" {
		return errors.New("mail: recipient is required")
	}
	if _, err := mail.ParseAddress(rcpt); err != nil {
		return fmt.Errorf("mail: invalid recipient address %q: %w", rcpt, err)
	}

	conn, cl, err := m.dial(ctx, m.cfg)
	if err != nil {
		return err
	}
	defer conn.Close()
	defer cl.Close()

	if strings.TrimSpace(m.cfg.Username) != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := cl.Auth(auth); err != nil {
			return fmt.Errorf("mail: auth: %w", err)
		}
	}

	if err := cl.Mail(from); err != nil {
		return fmt.Errorf("mail: mail from: %w", err)
	}
	if err := cl.Rcpt(rcpt); err != nil {
		return fmt.Errorf("mail: rcpt to %s: %w", rcpt, err)
	}

	wc, err := cl.Data()
	if err != nil {
		return fmt.Errorf("mail: data command: %w", err)
	}

	replyTo := strings.TrimSpace(msg.ReplyTo)
	if replyTo == "" {
		replyTo = m.cfg.ReplyTo
	}

	if _, err := io.WriteString(wc, format(from, rcpt, replyTo, msg.Subject, msg.Body)); err != nil {
		_ = wc.Close()
		return fmt.Errorf("mail: write body: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("mail: close data writer: %w", err)
	}

	return cl.Quit()
}

func dialSMTP(ctx context.Context, cfg Settings) (net.Conn, client, error) {
	address := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dialer := &net.Dialer{Timeout: cfg.Timeout}

	var (
		conn net.Conn
		err  error
	)
	if cfg.UseTLS {
		conn, err = tls.DialWithDialer(dialer, "tcp", address, &tls.Config{ServerName: cfg.Host})
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", address)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("mail: dial %s: %w", address, err)
	}

	cl, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("mail: new client: %w", err)
	}

	if !cfg.UseTLS {
		if ok, _ := cl.Extension("STARTTLS"); ok {
			if err := cl.StartTLS(&tls.Config{ServerName: cfg.Host}); err != nil {
				_ = cl.Close()
				_ = conn.Close()
				return nil, nil, fmt.Errorf("mail: start tls: %w", err)
			}
		}
	}

	return conn, cl, nil
}

func format(from, to, replyTo, subject, body string) string {
	headers := []string{
		"From: " + from,
		"To: " + to,
	}
	if replyTo != "" {
		headers = append(headers, "Reply-To: "+replyTo)
	}
	headers = append(headers,
		"Subject: "+escapeHeader(subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
	)
	return strings.Join(headers, "\r\n") + body
}

func escapeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return value
}
