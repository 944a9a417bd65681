package fleet

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// subscriberBuffer is the per-subscriber channel depth; a subscriber that
// falls further behind than this loses events (at-most-once delivery).
const subscriberBuffer = 64

// Broadcaster fans state-change events out to subscribed consumers. The
// in-process implementation is channel based; outward transports (Redis
// pub/sub, WebSocket gateways, pollers) wrap it.
type Broadcaster interface {
	// Publish delivers the event to every current subscriber of the event's
	// topics. It never blocks on slow subscribers.
	Publish(ctx context.Context, ev Event)

	// Subscribe registers a consumer on a topic and returns the delivery
	// channel plus a cancel function. Events published before Subscribe
	// returns are not delivered.
	Subscribe(topic string) (<-chan Event, func())

	// Close tears down all subscriptions.
	Close()
}

type subscriber struct {
	id int
	ch chan Event
}

// Bus is the in-process Broadcaster.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]subscriber
	nextID int
	closed bool
	logger zerolog.Logger
}

// NewBus creates the in-process broadcast bus
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		subs:   make(map[string][]subscriber),
		logger: logger.With().Str("component", "bus").Logger(),
	}
}

// Publish delivers ev to all subscribers of ev.Topics(). Full subscriber
// buffers are skipped rather than blocked on.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, topic := range ev.Topics() {
		for _, sub := range b.subs[topic] {
			select {
			case sub.ch <- ev:
			default:
				busEventsDropped.WithLabelValues(string(ev.Type)).Inc()
				b.logger.Debug().
					Str("topic", topic).
					Str("event", string(ev.Type)).
					Int("subscriber", sub.id).
					Msg("dropping event for slow subscriber")
			}
		}
	}
	busEventsPublished.WithLabelValues(string(ev.Type)).Inc()
}

// Subscribe registers a consumer on the given topic
func (b *Bus) Subscribe(topic string) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := subscriber{id: b.nextID, ch: make(chan Event, subscriberBuffer)}
	b.nextID++
	b.subs[topic] = append(b.subs[topic], sub)

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[topic]
		for i, s := range list {
			if s.id == sub.id {
				b.subs[topic] = append(list[:i], list[i+1:]...)
				close(s.ch)
				return
			}
		}
	}

	return sub.ch, cancel
}

// Close tears down every subscription; subsequent publishes are no-ops
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for topic, list := range b.subs {
		for _, s := range list {
			close(s.ch)
		}
		delete(b.subs, topic)
	}
}
