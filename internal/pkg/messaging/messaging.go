package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrUnsupported is returned when the selected broker cannot honor a message option.
	ErrUnsupported = errors.New("messaging: unsupported operation")
	// ErrDestinationRequired is returned when Publish gets an empty topic or subject.
	ErrDestinationRequired = errors.New("messaging: destination is required")
	// ErrClosed is returned by Publish after Close.
	ErrClosed = errors.New("messaging: publisher is closed")
)

// Publisher publishes messages to a destination (topic or subject).
type Publisher interface {
	io.Closer
	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

// OutgoingMessage is a broker-agnostic message.
type OutgoingMessage struct {
	Body []byte
	// Key selects the Kafka partition and the Pub/Sub ordering key.
	Key []byte
	// Headers map to NATS and Kafka headers and to Pub/Sub attributes. NSQ drops them.
	Headers map[string]string
	// Delay defers delivery. Only NSQ supports it.
	Delay time.Duration
}

// PublishResult carries what the broker reported back.
type PublishResult struct {
	MessageID string
	Topic     string
	Timestamp time.Time
}

func validate(ctx context.Context, destination string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if destination == "" {
		return ErrDestinationRequired
	}
	return nil
}
