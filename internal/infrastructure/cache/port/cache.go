package port

import (
	"context"
	"time"
)

// Cache is the shared counter store behind fixed-window rate limiting.
// Implementations must be concurrency-safe and context-aware. The port is
// deliberately narrow: the counter operations the limiter needs plus a
// health check.
type Cache interface {
	// Incr atomically increments the integer value at key, creating it at 1
	// if absent, and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)

	// Expire sets a TTL on an existing key. It returns false if the key does
	// not exist.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Ping verifies connectivity with the cache backend.
	Ping(ctx context.Context) error

	// Close releases any resources held by the cache.
	Close() error
}
