package fleet

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisBus mirrors every published event onto Redis pub/sub channels so
// consumers outside the process (device gateways, dashboards) can subscribe
// without holding a connection to this server. In-process subscriptions keep
// going through the wrapped bus; Redis delivery inherits the same
// at-most-once, non-durable contract.
type RedisBus struct {
	inner  Broadcaster
	rc     *redis.Client
	prefix string
	logger zerolog.Logger
}

// NewRedisBus wraps inner with a Redis pub/sub mirror. Channel names are
// prefix + topic, e.g. "screenfleet:fleet".
func NewRedisBus(inner Broadcaster, rc *redis.Client, prefix string, logger zerolog.Logger) *RedisBus {
	return &RedisBus{
		inner:  inner,
		rc:     rc,
		prefix: prefix,
		logger: logger.With().Str("component", "redis_bus").Logger(),
	}
}

// Publish delivers in-process first, then mirrors to Redis. Redis failures
// are logged and swallowed: the transport is best effort and must not stall
// the hot path.
func (b *RedisBus) Publish(ctx context.Context, ev Event) {
	b.inner.Publish(ctx, ev)

	payload, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error().Err(err).Str("event", string(ev.Type)).Msg("failed to encode event")
		return
	}
	for _, topic := range ev.Topics() {
		if err := b.rc.Publish(ctx, b.prefix+topic, payload).Err(); err != nil {
			b.logger.Warn().Err(err).Str("channel", b.prefix+topic).Msg("redis publish failed")
		}
	}
}

// Subscribe registers an in-process consumer
func (b *RedisBus) Subscribe(topic string) (<-chan Event, func()) {
	return b.inner.Subscribe(topic)
}

// Close tears down the in-process bus; the Redis client is owned by the caller
func (b *RedisBus) Close() {
	b.inner.Close()
}
