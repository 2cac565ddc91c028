package messaging

import (
	"context"
	"log/slog"
	"time"
)

// Noop logs what would have been published. It backs the "none" driver.
type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (*Noop) Close() error { return nil }

func (*Noop) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := validate(ctx, destination); err != nil {
		return PublishResult{}, err
	}

	slog.DebugContext(ctx, "messaging disabled, event not published", "topic", destination, "bytes", len(msg.Body))
	return PublishResult{Topic: destination, Timestamp: time.Now()}, nil
}
