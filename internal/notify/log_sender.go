package notify

import (
	"context"
	"log/slog"
)

// LogSender stands in for Postmark in development: it logs the message and succeeds.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "email not sent (postmark disabled)",
		"recipient", msg.To,
		"subject", msg.Subject,
		"tag", msg.Tag,
		"body_bytes", len(msg.HTMLBody),
	)
	return nil
}
