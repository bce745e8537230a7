// Package notify delivers device confirmation emails.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/Anvoria/walletauth/internal/config"
	mail "github.com/go-mail/mail"
)

// Sender sends one email with an HTML body and a plain text alternative
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// SMTPSender sends mail through an SMTP relay
type SMTPSender struct {
	host     string
	port     int
	from     string
	user     string
	password string
	tlsMode  string // auto, ssl, none
}

// NewSMTPSender creates a sender from the smtp section of the config
func NewSMTPSender(cfg *config.SMTPConfig) *SMTPSender {
	mode := cfg.TLSMode
	if mode == "" {
		mode = "auto"
	}
	return &SMTPSender{
		host:     cfg.Host,
		port:     cfg.Port,
		from:     cfg.From,
		user:     cfg.User,
		password: cfg.Password,
		tlsMode:  mode,
	}
}

// Send delivers the message. The dial is not cancellable; ctx is only checked before it starts.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)

	if textBody != "" {
		m.SetBody("text/plain", textBody)
	}
	if htmlBody != "" {
		if textBody == "" {
			m.SetBody("text/html", htmlBody)
		} else {
			m.AddAlternative("text/html", htmlBody)
		}
	}

	d := mail.NewDialer(s.host, s.port, s.user, s.password)
	d.TLSConfig = &tls.Config{ServerName: s.host}

	switch s.tlsMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.StartTLSPolicy = mail.NoStartTLS
	}

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	slog.Debug("Email sent", "to", to, "subject", subject)
	return nil
}

// LogSender writes emails to the log instead of sending them
type LogSender struct{}

// Send logs the plain text body
func (LogSender) Send(_ context.Context, to, subject, _, textBody string) error {
	slog.Info("Email not sent, smtp is not configured", "to", to, "subject", subject, "body", textBody)
	return nil
}
