package events

import (
	"context"
	"log/slog"
)

// LoggingPublisher writes events to the structured log. It stands in for the
// broker publisher in environments without one; downstream consumers tail the
// log stream instead.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, eventType string, payload []byte) error {
	p.logger.InfoContext(ctx, "published event", "event_type", eventType, "payload", string(payload))
	return nil
}
