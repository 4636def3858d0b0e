package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/burkjackson/RecoveryBridge-sub001/internal/infrastructure/cache/port"
)

// FixedWindow is a fixed-window counter keyed by actor id, backed by the
// shared cache so every service instance sees the same counters.
type FixedWindow struct {
	cache  port.Cache
	prefix string
	window time.Duration
	max    int64
}

// New constructs a limiter allowing max events per window under the given
// key prefix.
func New(cache port.Cache, prefix string, window time.Duration, max int64) *FixedWindow {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &FixedWindow{cache: cache, prefix: prefix, window: window, max: max}
}

// Allow records one event for key and reports whether it fits in the current
// window. Errors indicate the counter store is unreachable; the caller decides
// whether to fail open.
func (f *FixedWindow) Allow(ctx context.Context, key string, now time.Time) (bool, error) {
	bucket := now.Unix() / int64(f.window/time.Second)
	counter := fmt.Sprintf("%s:%s:%d", f.prefix, key, bucket)

	n, err := f.cache.Incr(ctx, counter)
	if err != nil {
		return false, err
	}
	if n == 1 {
		// First event in the window owns setting the TTL. The extra second
		// covers clock skew between instances.
		if _, err := f.cache.Expire(ctx, counter, f.window+time.Second); err != nil {
			return false, err
		}
	}
	return n <= f.max, nil
}
