package mailer

import (
	"context"
	"log/slog"
)

// LogSender renders the message and writes it to the log instead of sending it.
// Used in development when no mail transport is configured.
type LogSender struct {
	renderer *Renderer
	logger   *slog.Logger
}

func NewLogSender(renderer *Renderer, logger *slog.Logger) *LogSender {
	return &LogSender{renderer: renderer, logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	rendered, err := s.renderer.Render(msg)
	if err != nil {
		return err
	}
	link, _ := AcceptLink(msg.AcceptURL, msg.Code)
	s.logger.Info("invitation email (log transport)", "to", msg.To, "kind", msg.Kind, "subject", rendered.Subject)
	s.logger.Debug("invitation link", "to", msg.To, "link", link)
	return nil
}
