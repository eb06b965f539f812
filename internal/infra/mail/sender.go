// Package mail delivers composed tracking emails through SMTP or Amazon SES.
package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/sifan077/MailPulse/config"
)

var (
	// ErrNotConfigured is returned when no transport credentials were provided.
	ErrNotConfigured = errors.New("mail sender is not configured")
)

// Message is a single outgoing HTML email.
type Message struct {
	From     string
	To       string
	Subject  string
	HTMLBody string
}

// Sender delivers one message. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New builds the sender selected by cfg.Provider.
func New(ctx context.Context, cfg config.MailConfig) (Sender, error) {
	switch cfg.Provider {
	case "", "smtp":
		return NewSMTPSender(cfg.SMTP), nil
	case "ses":
		return NewSESSender(ctx, cfg.SES)
	default:
		return nil, fmt.Errorf("mail: unknown provider %q", cfg.Provider)
	}
}

// FromAddress picks the envelope sender: the configured address, else the SMTP login.
func FromAddress(cfg config.MailConfig) string {
	if cfg.From != "" {
		return cfg.From
	}
	return cfg.SMTP.Username
}
