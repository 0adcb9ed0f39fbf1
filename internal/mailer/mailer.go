// Package mailer delivers invitation emails through a configurable transport.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/staff-management/internal"
)

type Kind string

const (
	KindInvitation       Kind = "invitation"
	KindInvitationResend Kind = "invitation_resend"
)

// Message is what the issuer hands over for delivery: recipient, template kind and
// the data the template needs.
type Message struct {
	To            string
	Kind          Kind
	RecipientName string
	Code          string
	AcceptURL     string
	ExpiresAt     time.Time
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New builds the sender selected by cfg.Provider.
func New(ctx context.Context, cfg internal.MailerConfig, logger *slog.Logger) (Sender, error) {
	renderer, err := NewRenderer(cfg.TemplatePath)
	if err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case "", "log":
		return NewLogSender(renderer, logger), nil
	case "http":
		return NewHTTPClient(HTTPConfig{
			APIURL:  cfg.APIURL,
			APIKey:  cfg.APIKey,
			From:    cfg.From,
			Timeout: cfg.Timeout,
		}, renderer, logger), nil
	case "ses":
		return NewSESSender(ctx, SESConfig{
			Region:    cfg.AWSRegion,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
			From:      cfg.From,
		}, renderer, logger)
	default:
		return nil, fmt.Errorf("unknown mailer provider %q", cfg.Provider)
	}
}
