package transport

import (
	"context"
	"log/slog"
)

// LogSender writes messages to the structured log instead of delivering
// them. It is the default backend for local development.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, message Message) error {
	s.logger.InfoContext(ctx, "Message send (log backend)",
		"to", message.To,
		"channel", message.Channel,
		"subject", message.Subject,
		"body", message.Body)

	return nil
}
