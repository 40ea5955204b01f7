package mailer

import (
	"context"
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail/v2"

	"github.com/noah-isme/complaint-desk-api/pkg/config"
)

// Message is a single outbound e-mail.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type dialer interface {
	DialAndSend(m ...*mail.Message) error
}

// SMTPMailer sends HTML mail through an SMTP relay with mandatory STARTTLS.
type SMTPMailer struct {
	from   string
	dialer dialer
}

// NewSMTP builds an SMTP mailer from notification settings.
func NewSMTP(cfg config.NotificationConfig) (*SMTPMailer, error) {
	if cfg.SMTPHost == "" || cfg.From == "" {
		return nil, fmt.Errorf("smtp not configured (SMTP_HOST/SMTP_FROM)")
	}
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	d := mail.NewDialer(cfg.SMTPHost, port, cfg.SMTPUser, cfg.SMTPPassword)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         cfg.SMTPHost,
		InsecureSkipVerify: cfg.SkipTLSVerify, //nolint:gosec // opt-in for dev relays
	}
	return &SMTPMailer{from: cfg.From, dialer: d}, nil
}

// Send delivers msg. Messages without recipients are dropped silently.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	out := mail.NewMessage()
	out.SetHeader("From", m.from)
	out.SetHeader("To", msg.To...)
	out.SetHeader("Subject", msg.Subject)
	out.SetBody("text/html", msg.HTML)

	if err := m.dialer.DialAndSend(out); err != nil {
		return fmt.Errorf("send mail %q: %w", msg.Subject, err)
	}
	return nil
}

// Noop discards every message.
type Noop struct{}

// Send implements Sender.
func (Noop) Send(context.Context, Message) error { return nil }
