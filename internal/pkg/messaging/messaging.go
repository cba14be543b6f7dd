package messaging

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrTopicRequired is returned when the topic is empty.
	ErrTopicRequired = errors.New("pkgmessage: topic is required")
	// ErrHandlerRequired is returned when Consume is called with a nil handler.
	ErrHandlerRequired = errors.New("pkgmessage: handler is required")
	// ErrGroupRequired is returned when a driver needs a consumer group (Kafka group, NSQ channel).
	ErrGroupRequired = errors.New("pkgmessage: consumer group is required")
)

// Messaging publishes and consumes messages.
type Messaging interface {
	io.Closer

	// Publish sends msg to topic and returns once the broker accepted it.
	Publish(ctx context.Context, topic string, msg OutgoingMessage) error
	// Consume blocks, delivering messages of topic to handler until ctx is done.
	Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes a received message.
type Handler func(ctx context.Context, msg Message) error

// OutgoingMessage is a message to publish.
type OutgoingMessage struct {
	// Key is used by Kafka for partitioning; ignored elsewhere.
	Key     []byte
	Body    []byte
	Headers map[string]string
}

// Message is a received message.
type Message struct {
	ID      string
	Topic   string
	Body    []byte
	Headers map[string]string
}

// Header returns the value of a header or "".
func (m Message) Header(key string) string {
	return m.Headers[key]
}

func validateConsume(ctx context.Context, topic string, handler Handler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	return nil
}
