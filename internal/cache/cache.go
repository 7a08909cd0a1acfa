// Package cache provides an optional response cache in front of the
// analytics queries. The Redis implementation is used when configured; a
// disabled cache satisfies the same interface so callers never branch.
package cache

import (
	"context"
	"time"
)

// Cache stores serialized query responses under string keys with a TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Invalidate(ctx context.Context, keys ...string) error
	Close() error
}

// Disabled is a Cache that never hits and never stores.
type Disabled struct{}

// NewDisabled returns a no-op cache.
func NewDisabled() Disabled {
	return Disabled{}
}

// Get always misses.
func (Disabled) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set discards the value.
func (Disabled) Set(ctx context.Context, key string, value []byte) error {
	return nil
}

// Invalidate does nothing.
func (Disabled) Invalidate(ctx context.Context, keys ...string) error {
	return nil
}

// Close does nothing.
func (Disabled) Close() error {
	return nil
}

var _ Cache = Disabled{}

// TTLOrDefault clamps a configured TTL, falling back to one minute.
func TTLOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return time.Minute
	}
	return ttl
}
