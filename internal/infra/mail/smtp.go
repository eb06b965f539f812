package mail

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/sifan077/MailPulse/config"
	"gopkg.in/gomail.v2"
)

const implicitTLSPort = 465

// SMTPSender dials the configured relay for every message.
type SMTPSender struct {
	host string
	send func(msgs ...*gomail.Message) error
}

// NewSMTPSender returns a gomail-backed sender.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{host: cfg.Host, send: newDialer(cfg).DialAndSend}
}

// newDialer uses implicit TLS on port 465; other ports upgrade with STARTTLS
// whenever the relay offers it. SkipVerify only disables certificate checks.
func newDialer(cfg config.SMTPConfig) *gomail.Dialer {
	port := cfg.Port
	if port == 0 {
		port = 587
	}

	dialer := gomail.NewDialer(cfg.Host, port, cfg.Username, cfg.Password)
	dialer.SSL = port == implicitTLSPort
	if cfg.SkipVerify {
		dialer.TLSConfig = &tls.Config{ServerName: cfg.Host, InsecureSkipVerify: true}
	}
	return dialer
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if s.host == "" {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)

	if err := s.send(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}
