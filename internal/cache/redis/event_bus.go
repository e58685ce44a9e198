// Package redis implements the event bus on Redis Pub/Sub using go-redis/v9.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/crossarb/crossarb/internal/domain"
)

// Config holds connection parameters for the event bus.
type Config struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
}

// EventBus implements domain.EventBus on Redis Pub/Sub. Lifecycle
// transitions of tracked opportunities are published for external consumers
// (alerting, dashboards); delivery is fire-and-forget.
type EventBus struct {
	rdb *redis.Client
}

// NewEventBus connects to Redis, verifies the connection, and returns the
// bus.
func NewEventBus(ctx context.Context, cfg Config) (*EventBus, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &EventBus{rdb: rdb}, nil
}

// Publish sends a raw byte payload to a Redis Pub/Sub channel.
func (b *EventBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", channel, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (b *EventBus) Close() error {
	return b.rdb.Close()
}

// Compile-time interface check.
var _ domain.EventBus = (*EventBus)(nil)
