package cache

import "time"

type entry[V any] struct {
	value     V
	createdAt time.Time
}

func newEntry[V any](value V, createdAt time.Time) *entry[V] {
	return &entry[V]{
		value:     value,
		createdAt: createdAt,
	}
}

// isExpired reports whether the entry outlived ttl at now.
// A non-positive ttl expires every entry immediately.
func (e *entry[V]) isExpired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return true
	}
	return now.Sub(e.createdAt) > ttl
}
