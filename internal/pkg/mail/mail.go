package mail

import (
	"context"
	"io"
	"log/slog"
)

// Message represents an email payload.
type Message struct {
	// From overrides the configured sender when set.
	From     string
	To       []string
	Cc       []string
	Bcc      []string
	Subject  string
	TextBody string
	HTMLBody string
}

func (m Message) recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	out = append(out, m.To...)
	out = append(out, m.Cc...)
	return append(out, m.Bcc...)
}

// Mail abstracts an email provider.
type Mail interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}

// Log is a Mail that only logs what would have been sent. Bodies are omitted.
type Log struct{}

func NewLog() *Log { return &Log{} }

func (*Log) Send(ctx context.Context, msg Message) error {
	if len(msg.recipients()) == 0 {
		return ErrSMTPNoRecipients
	}
	slog.InfoContext(ctx, "mail delivery skipped, no smtp relay configured", "to", msg.To, "subject", msg.Subject)
	return nil
}

func (*Log) Close() error { return nil }
