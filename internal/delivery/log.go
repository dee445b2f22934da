package delivery

import (
	"context"
	"log/slog"
)

// Log writes outbound messages to the logger instead of a messaging API.
// Useful for local runs and dry runs.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Name() string { return "log" }

func (l *Log) Send(ctx context.Context, recipient, body string) error {
	l.logger.Info("outbound message", "to", recipient, "body", body)
	return nil
}
