package bus

import (
	"log/slog"
	"reflect"
	"sync"

	"github.com/cskr/pubsub"
)

const defaultCapacity = 128

type Subscription chan any

type MessageBus interface {
	Publish(topic string, msg any)
	Subscribe(topics ...string) Subscription
	Close()
}

type Option func(*PubSubBus)

// WithCapacity sets the buffer size of every subscription channel.
func WithCapacity(n int) Option {
	return func(b *PubSubBus) {
		if n > 0 {
			b.capacity = n
		}
	}
}

type PubSubBus struct {
	ps       *pubsub.PubSub
	logger   *slog.Logger
	capacity int

	// mu guards closed; Publish holds it shared so Close cannot shut the
	// pubsub loop down under a pending send.
	mu     sync.RWMutex
	closed bool
}

func New(logger *slog.Logger, opts ...Option) *PubSubBus {
	if logger == nil {
		logger = slog.Default()
	}
	b := &PubSubBus{
		logger:   logger,
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.ps = pubsub.New(b.capacity)

	return b
}

// Publish is a no-op once the bus is closed.
func (b *PubSubBus) Publish(topic string, msg any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		b.logger.Debug("publish dropped: bus closed", "topic", topic, "payload_type", payloadType(msg))
		return
	}
	b.logger.Debug("publish", "topic", topic, "payload_type", payloadType(msg))
	b.ps.Pub(msg, topic)
}

// Subscribe returns an already closed subscription once the bus is closed.
func (b *PubSubBus) Subscribe(topics ...string) Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		ch := make(Subscription)
		close(ch)
		return ch
	}
	ch := b.ps.Sub(topics...)
	b.logger.Debug("subscribe", "topics", topics)
	return ch
}

// Close closes every subscription after the messages already published
// reach them. It is safe to call more than once.
func (b *PubSubBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.ps.Shutdown()
}

func payloadType(v any) string {
	if v == nil {
		return "<nil>"
	}
	return reflect.TypeOf(v).String()
}
