package messaging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
)

const memoryBuffer = 64

// ErrNoSubscriber is returned by the memory broker when nothing consumes the
// topic, so the message would be lost.
var ErrNoSubscriber = errors.New("messaging: no subscriber for topic")

// Memory is an in-process broker. Each consumer group of a topic receives every
// message once; members of a group share its queue. Failed messages are
// redelivered up to memoryMaxAttempts times.
type Memory struct {
	mu     sync.RWMutex
	groups map[string]map[string]chan memoryDelivery
	seq    atomic.Uint64
	closed bool
}

type memoryDelivery struct {
	msg      Message
	attempts int
}

const memoryMaxAttempts = 3

// NewMemory returns an empty in-process broker.
func NewMemory() *Memory {
	return &Memory{groups: map[string]map[string]chan memoryDelivery{}}
}

// Close stops accepting publishes.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Publish enqueues msg for every group subscribed to topic. With no group
// subscribed it fails with ErrNoSubscriber instead of dropping the message.
func (m *Memory) Publish(ctx context.Context, topic string, msg OutgoingMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if topic == "" {
		return ErrTopicRequired
	}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return io.ErrClosedPipe
	}
	queues := make([]chan memoryDelivery, 0, len(m.groups[topic]))
	for _, ch := range m.groups[topic] {
		queues = append(queues, ch)
	}
	m.mu.RUnlock()

	if len(queues) == 0 {
		return fmt.Errorf("%w: %q", ErrNoSubscriber, topic)
	}

	headers := make(map[string]string, len(msg.Headers))
	for k, v := range msg.Headers {
		headers[k] = v
	}
	d := memoryDelivery{msg: Message{
		ID:      strconv.FormatUint(m.seq.Add(1), 10),
		Topic:   topic,
		Body:    append([]byte(nil), msg.Body...),
		Headers: headers,
	}}

	for _, ch := range queues {
		select {
		case ch <- d:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *Memory) queue(topic, group string) chan memoryDelivery {
	m.mu.Lock()
	defer m.mu.Unlock()

	byGroup, ok := m.groups[topic]
	if !ok {
		byGroup = map[string]chan memoryDelivery{}
		m.groups[topic] = byGroup
	}
	ch, ok := byGroup[group]
	if !ok {
		ch = make(chan memoryDelivery, memoryBuffer)
		byGroup[group] = ch
	}
	return ch
}

// Consume delivers messages of topic until ctx is done.
func (m *Memory) Consume(ctx context.Context, topic string, handler Handler, opts ...ConsumeOption) error {
	if err := validateConsume(ctx, topic, handler); err != nil {
		return err
	}

	co := newConsumeOptions(opts...)
	ch := m.queue(topic, co.group)

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case d := <-ch:
					err := safeHandle(ctx, DriverMemory, handler, d.msg)
					if err == nil {
						continue
					}
					d.attempts++
					if d.attempts >= memoryMaxAttempts {
						slog.WarnContext(ctx, "memory handler failed, message dropped", "topic", topic, "id", d.msg.ID, "error", err)
						continue
					}
					select {
					case ch <- d:
					default:
						slog.WarnContext(ctx, "memory queue full, message dropped", "topic", topic, "id", d.msg.ID)
					}
				}
			}
		})
	}

	wg.Wait()
	return ctx.Err()
}

// Subscribed reports whether a consumer group is registered for topic.
func (m *Memory) Subscribed(topic string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.groups[topic]) > 0
}
