package mail

import (
	"context"
	"io"
	"log/slog"
)

// Message is a provider-agnostic email.
type Message struct {
	// From overrides the sender configured on the implementation.
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

// Mail sends messages through some provider.
type Mail interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}

// Log is a Mail that only logs what would have been sent.
type Log struct{}

// NewLog returns a logging Mail.
func NewLog() *Log { return &Log{} }

// Send logs the envelope only. Bodies can carry one-time codes, so only their
// sizes are recorded. It never fails.
func (*Log) Send(ctx context.Context, msg Message) error {
	slog.InfoContext(ctx, "mail not delivered, log driver active",
		"to", msg.To,
		"subject", msg.Subject,
		"text_bytes", len(msg.TextBody),
		"html_bytes", len(msg.HTMLBody),
	)
	return nil
}

// Close is a no-op.
func (*Log) Close() error { return nil }
