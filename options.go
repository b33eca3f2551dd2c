package cache

import (
	"time"

	"go.uber.org/zap"
)

const (
	DefaultTTL           = 5 * time.Minute
	DefaultSweepInterval = time.Minute
)

type Option[K comparable, V any] func(c *cache[K, V])

// WithTTL sets how long an entry stays live after Set.
// Zero or negative values expire entries immediately.
func WithTTL[K comparable, V any](ttl time.Duration) Option[K, V] {
	return func(c *cache[K, V]) {
		c.ttl = ttl
	}
}

// WithSweepInterval sets the cadence of the background sweep.
// Non-positive values keep DefaultSweepInterval.
func WithSweepInterval[K comparable, V any](interval time.Duration) Option[K, V] {
	return func(c *cache[K, V]) {
		if interval <= 0 {
			return
		}
		c.sweepInterval = interval
	}
}

// WithOnExpired registers a callback for entries evicted because they
// expired. It is not called for Remove or Clear.
func WithOnExpired[K comparable, V any](onExpired func(K, V)) Option[K, V] {
	return func(c *cache[K, V]) {
		c.onExpired = onExpired
	}
}

func WithLogger[K comparable, V any](logger *zap.Logger) Option[K, V] {
	return func(c *cache[K, V]) {
		if logger == nil {
			return
		}
		c.logger = logger
	}
}

func withClock[K comparable, V any](now func() time.Time) Option[K, V] {
	return func(c *cache[K, V]) {
		c.now = now
	}
}
