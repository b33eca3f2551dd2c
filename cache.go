package cache

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/maps"
)

type Cache[K comparable, V any] interface {
	// Reports whether a live entry exists for key.
	//
	// The entry is evaluated first, so an expired entry is removed.
	Has(key K) bool

	// Inserts or overwrites the entry for key and resets its age.
	//
	// Starts the background sweep if it is not already running.
	Set(key K, value V)

	// Returns the value for key, or ErrCacheMiss when no live entry exists.
	//
	// Get does not load missing values; check with Has first or handle ErrCacheMiss.
	Get(key K) (V, error)

	// Returns the value for key and whether a live entry was found.
	GetIfPresent(key K) (V, bool)

	// Removes the entry for key, if any.
	Remove(key K)

	// Removes all entries and cancels the pending sweep.
	Clear()

	// Returns the number of stored entries, including expired entries
	// that have not been evaluated yet.
	Size() int

	// Evaluates every entry and returns the keys of the live ones.
	Keys() []K

	// Evaluates every entry and calls fn for each live one.
	//
	// fn must not call back into the cache.
	ForEach(fn func(K, V))
}

type cache[K comparable, V any] struct {
	mu            sync.Mutex
	data          map[K]*entry[V]
	ttl           time.Duration
	sweepInterval time.Duration
	sweeper       *sweeper
	onExpired     func(K, V)
	now           func() time.Time
	logger        *zap.Logger
}

// NewCache creates an expiring cache. Entries live for DefaultTTL and are
// swept every DefaultSweepInterval while the cache holds any.
func NewCache[K comparable, V any](options ...Option[K, V]) Cache[K, V] {
	c := &cache[K, V]{
		data:          make(map[K]*entry[V]),
		ttl:           DefaultTTL,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
		logger:        zap.NewNop(),
	}
	for _, option := range options {
		option(c)
	}
	c.sweeper = newSweeper(c.sweepInterval)
	return c
}

func (c *cache[K, V]) Has(key K) bool {
	c.mu.Lock()
	_, found, expired := c.evaluate(key)
	c.mu.Unlock()

	c.notifyExpired(expired)
	return found
}

func (c *cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = newEntry(value, c.now())
	c.sweeper.schedule(c.sweep)
}

func (c *cache[K, V]) Get(key K) (V, error) {
	value, found := c.GetIfPresent(key)
	if !found {
		return value, ErrCacheMiss
	}
	return value, nil
}

func (c *cache[K, V]) GetIfPresent(key K) (V, bool) {
	c.mu.Lock()
	e, found, expired := c.evaluate(key)
	c.mu.Unlock()

	c.notifyExpired(expired)
	if !found {
		var empty V
		return empty, false
	}
	return e.value, true
}

func (c *cache[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, found := c.data[key]; !found {
		return
	}
	c.delete(key)
}

func (c *cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data = make(map[K]*entry[V])
	c.sweeper.cancel()
}

func (c *cache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func (c *cache[K, V]) Keys() []K {
	c.mu.Lock()
	expired := c.evictExpired()
	keys := maps.Keys(c.data)
	c.mu.Unlock()

	c.notifyExpired(expired)
	return keys
}

func (c *cache[K, V]) ForEach(fn func(K, V)) {
	c.mu.Lock()
	expired := c.evictExpired()
	live := make(map[K]V, len(c.data))
	for key, e := range c.data {
		live[key] = e.value
	}
	c.mu.Unlock()

	c.notifyExpired(expired)
	for key, value := range live {
		fn(key, value)
	}
}

/*
 * @Internal
 */

type expiredEntry[K comparable, V any] struct {
	key   K
	value V
}

// evaluate removes the entry for key if it expired. Must hold c.mu.
func (c *cache[K, V]) evaluate(key K) (*entry[V], bool, []expiredEntry[K, V]) {
	e, found := c.data[key]
	if !found {
		return nil, false, nil
	}
	if e.isExpired(c.ttl, c.now()) {
		c.delete(key)
		return nil, false, []expiredEntry[K, V]{{key, e.value}}
	}
	return e, true, nil
}

// evictExpired removes every expired entry. Must hold c.mu.
func (c *cache[K, V]) evictExpired() []expiredEntry[K, V] {
	var expired []expiredEntry[K, V]
	now := c.now()
	for key, e := range c.data {
		if e.isExpired(c.ttl, now) {
			delete(c.data, key)
			expired = append(expired, expiredEntry[K, V]{key, e.value})
		}
	}
	if len(c.data) == 0 {
		c.sweeper.cancel()
	}
	return expired
}

// delete removes key and cancels the sweep once the cache is empty. Must hold c.mu.
func (c *cache[K, V]) delete(key K) {
	delete(c.data, key)
	if len(c.data) == 0 {
		c.sweeper.cancel()
	}
}

func (c *cache[K, V]) sweep(gen uint64) {
	c.mu.Lock()
	if !c.sweeper.fired(gen) {
		c.mu.Unlock()
		return
	}
	expired := c.evictExpired()
	remaining := len(c.data)
	if remaining > 0 {
		c.sweeper.schedule(c.sweep)
	}
	c.mu.Unlock()

	if len(expired) > 0 {
		c.logger.Debug("cache sweep evicted expired entries",
			zap.Int("evicted", len(expired)),
			zap.Int("remaining", remaining),
		)
	}
	c.notifyExpired(expired)
}

func (c *cache[K, V]) notifyExpired(expired []expiredEntry[K, V]) {
	if c.onExpired == nil {
		return
	}
	for _, e := range expired {
		c.onExpired(e.key, e.value)
	}
}
