package resolver

import (
	"time"

	"go.uber.org/zap"
)

const DefaultMaxLifetime = 5 * time.Minute

type Option func(r *Resolver)

// WithMaxLifetime sets the age after which a resolved url is looked up again.
func WithMaxLifetime(d time.Duration) Option {
	return func(r *Resolver) {
		r.maxLifetime = d
	}
}

// WithSweepInterval sets how often stale urls are dropped from memory.
func WithSweepInterval(d time.Duration) Option {
	return func(r *Resolver) {
		r.sweepInterval = d
	}
}

// WithCoalescing controls whether concurrent lookups for the same identity
// share one call to the locator. Enabled by default; when disabled every
// caller that finds the url stale performs its own lookup and the last
// one to finish wins.
func WithCoalescing(b bool) Option {
	return func(r *Resolver) {
		r.coalesce = b
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l == nil {
			return
		}
		r.logger = l
	}
}
