package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createCache(options ...Option[string, int]) *cache[string, int] {
	return NewCache(options...).(*cache[string, int])
}

// fakeClock is advanced by hand so expiration can be tested without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (c *cache[K, V]) sweepPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweeper.pending()
}

func Test_Core(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		c := createCache()

		assert.Zero(t, c.Size())
		assert.False(t, c.Has("foo"))
		assert.False(t, c.sweepPending())
	})
	t.Run("set and get", func(t *testing.T) {
		c := createCache()
		defer c.Clear()

		c.Set("foo", 42)

		assert.True(t, c.Has("foo"))
		v, err := c.Get("foo")
		assert.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.Equal(t, 1, c.Size())
	})
	t.Run("set overwrites", func(t *testing.T) {
		c := createCache()
		defer c.Clear()

		c.Set("foo", 1)
		c.Set("foo", 2)

		v, err := c.Get("foo")
		assert.NoError(t, err)
		assert.Equal(t, 2, v)
		assert.Equal(t, 1, c.Size())
	})
	t.Run("get miss", func(t *testing.T) {
		c := createCache()

		v, err := c.Get("nonexistent")

		assert.Zero(t, v)
		assert.ErrorIs(t, err, ErrCacheMiss)
		assert.Contains(t, err.Error(), "Has")
	})
	t.Run("get if present", func(t *testing.T) {
		c := createCache()
		defer c.Clear()

		c.Set("foo", 100)
		v, found := c.GetIfPresent("foo")
		assert.Equal(t, 100, v)
		assert.True(t, found)

		v, found = c.GetIfPresent("bar")
		assert.Zero(t, v)
		assert.False(t, found)
	})
	t.Run("remove", func(t *testing.T) {
		c := createCache()

		c.Set("foo", 100)
		c.Remove("foo")

		assert.False(t, c.Has("foo"))
		assert.NotPanics(t, func() {
			c.Remove("foo")
		})
		assert.Zero(t, c.Size())
	})
	t.Run("remove absent", func(t *testing.T) {
		c := createCache()
		c.Remove("foo")
		assert.Zero(t, c.Size())
	})
	t.Run("clear", func(t *testing.T) {
		c := createCache()
		keys := []string{"a", "b", "c", "d"}
		for i, key := range keys {
			c.Set(key, i)
		}
		assert.Equal(t, len(keys), c.Size())

		c.Clear()

		assert.Zero(t, c.Size())
		for _, key := range keys {
			assert.False(t, c.Has(key))
		}
		assert.False(t, c.sweepPending())
	})
	t.Run("keys", func(t *testing.T) {
		c := createCache()
		defer c.Clear()

		c.Set("a", 1)
		c.Set("b", 2)

		assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())
	})
	t.Run("forEach", func(t *testing.T) {
		c := createCache()
		defer c.Clear()

		for i := 0; i < 3; i++ {
			c.Set(fmt.Sprint(i), i+1)
		}

		seen := 0
		c.ForEach(func(key string, value int) {
			assert.Equal(t, fmt.Sprint(value-1), key)
			seen++
		})
		assert.Equal(t, 3, seen)
	})
}

func Test_Expiration(t *testing.T) {
	const ttl = time.Second

	t.Run("expires after ttl", func(t *testing.T) {
		clock := newFakeClock()
		c := createCache(WithTTL[string, int](ttl), withClock[string, int](clock.Now))
		defer c.Clear()

		c.Set("foo", 42)
		clock.Advance(ttl + time.Millisecond)

		assert.False(t, c.Has("foo"))
		_, err := c.Get("foo")
		assert.ErrorIs(t, err, ErrCacheMiss)
	})
	t.Run("live at exactly ttl", func(t *testing.T) {
		clock := newFakeClock()
		c := createCache(WithTTL[string, int](ttl), withClock[string, int](clock.Now))
		defer c.Clear()

		c.Set("foo", 42)
		clock.Advance(ttl)

		assert.True(t, c.Has("foo"))
	})
	t.Run("set resets age", func(t *testing.T) {
		clock := newFakeClock()
		c := createCache(WithTTL[string, int](ttl), withClock[string, int](clock.Now))
		defer c.Clear()

		c.Set("foo", 1)
		clock.Advance(ttl * 6 / 10)
		c.Set("foo", 2)
		clock.Advance(ttl * 6 / 10)

		assert.True(t, c.Has("foo"))
		v, err := c.Get("foo")
		assert.NoError(t, err)
		assert.Equal(t, 2, v)
	})
	t.Run("get does not refresh age", func(t *testing.T) {
		clock := newFakeClock()
		c := createCache(WithTTL[string, int](ttl), withClock[string, int](clock.Now))
		defer c.Clear()

		c.Set("foo", 1)
		clock.Advance(ttl * 6 / 10)
		_, err := c.Get("foo")
		require.NoError(t, err)
		clock.Advance(ttl * 6 / 10)

		assert.False(t, c.Has("foo"))
	})
	t.Run("size counts unevaluated entries", func(t *testing.T) {
		clock := newFakeClock()
		c := createCache(WithTTL[string, int](ttl), withClock[string, int](clock.Now))
		defer c.Clear()

		c.Set("foo", 1)
		clock.Advance(2 * ttl)

		assert.Equal(t, 1, c.Size())
		_, err := c.Get("foo")
		assert.ErrorIs(t, err, ErrCacheMiss)
		assert.Zero(t, c.Size())
	})
	t.Run("keys skip expired", func(t *testing.T) {
		clock := newFakeClock()
		c := createCache(WithTTL[string, int](ttl), withClock[string, int](clock.Now))
		defer c.Clear()

		c.Set("a", 1)
		clock.Advance(2 * ttl)
		c.Set("b", 2)
		c.Set("c", 3)

		assert.ElementsMatch(t, []string{"b", "c"}, c.Keys())
		assert.Equal(t, 2, c.Size())
	})
	t.Run("non positive ttl", func(t *testing.T) {
		for _, d := range []time.Duration{0, -time.Millisecond, -time.Hour} {
			c := createCache(WithTTL[string, int](d))

			c.Set("foo", 1)

			assert.False(t, c.Has("foo"), "ttl %v", d)
			assert.False(t, c.sweepPending(), "ttl %v", d)
		}
	})
	t.Run("onExpired", func(t *testing.T) {
		clock := newFakeClock()
		var expired []string
		c := createCache(
			WithTTL[string, int](ttl),
			withClock[string, int](clock.Now),
			WithOnExpired(func(key string, value int) {
				expired = append(expired, fmt.Sprintf("%s=%d", key, value))
			}),
		)
		defer c.Clear()

		c.Set("foo", 1)
		c.Set("bar", 2)
		c.Remove("bar")
		clock.Advance(2 * ttl)

		assert.False(t, c.Has("foo"))
		assert.Equal(t, []string{"foo=1"}, expired)
	})
	t.Run("end to end", func(t *testing.T) {
		c := createCache(WithTTL[string, int](time.Second))
		defer c.Clear()

		c.Set("x", 42)
		v, err := c.Get("x")
		assert.NoError(t, err)
		assert.Equal(t, 42, v)

		<-time.After(time.Millisecond * 1100)

		assert.False(t, c.Has("x"))
	})
}

func Test_Sweep(t *testing.T) {
	t.Run("set starts sweep", func(t *testing.T) {
		c := createCache()
		defer c.Clear()

		assert.False(t, c.sweepPending())
		c.Set("foo", 1)
		assert.True(t, c.sweepPending())
	})
	t.Run("remove last entry stops sweep", func(t *testing.T) {
		c := createCache()

		c.Set("foo", 1)
		c.Set("bar", 2)
		c.Remove("foo")
		assert.True(t, c.sweepPending())

		c.Remove("bar")
		assert.False(t, c.sweepPending())
	})
	t.Run("lazy expiry of last entry stops sweep", func(t *testing.T) {
		clock := newFakeClock()
		c := createCache(WithTTL[string, int](time.Second), withClock[string, int](clock.Now))

		c.Set("foo", 1)
		clock.Advance(2 * time.Second)

		assert.False(t, c.Has("foo"))
		assert.False(t, c.sweepPending())
	})
	t.Run("sweep evicts unread entries", func(t *testing.T) {
		ttl := time.Millisecond * 10
		interval := time.Millisecond * 5

		var wg sync.WaitGroup
		wg.Add(1)

		c := createCache(
			WithTTL[string, int](ttl),
			WithSweepInterval[string, int](interval),
			WithOnExpired(func(key string, value int) {
				assert.Equal(t, "foo", key)
				assert.Equal(t, 100, value)
				wg.Done()
			}),
		)

		c.Set("foo", 100)

		wg.Wait()

		assert.Zero(t, c.Size())
		assert.False(t, c.sweepPending())
	})
	t.Run("sweep keeps live entries and reschedules", func(t *testing.T) {
		c := createCache(
			WithTTL[string, int](time.Minute),
			WithSweepInterval[string, int](time.Millisecond*5),
		)
		defer c.Clear()

		c.Set("foo", 1)

		<-time.After(time.Millisecond * 30)

		assert.Equal(t, 1, c.Size())
		assert.True(t, c.sweepPending())
	})
	t.Run("clear cancels sweep", func(t *testing.T) {
		var expiredCount int
		var mu sync.Mutex
		c := createCache(
			WithTTL[string, int](time.Millisecond*5),
			WithSweepInterval[string, int](time.Millisecond*10),
			WithOnExpired(func(string, int) {
				mu.Lock()
				expiredCount++
				mu.Unlock()
			}),
		)

		c.Set("foo", 1)
		c.Clear()

		<-time.After(time.Millisecond * 30)

		mu.Lock()
		defer mu.Unlock()
		assert.Zero(t, expiredCount)
		assert.False(t, c.sweepPending())
	})
	t.Run("default sweep interval", func(t *testing.T) {
		c := createCache(WithSweepInterval[string, int](0))
		assert.Equal(t, DefaultSweepInterval, c.sweepInterval)
		assert.Equal(t, DefaultTTL, c.ttl)
	})
}

func Test_Concurrency(t *testing.T) {
	c := createCache(
		WithTTL[string, int](time.Millisecond*2),
		WithSweepInterval[string, int](time.Millisecond),
	)
	defer c.Clear()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for n := 0; n < 500; n++ {
				key := fmt.Sprint(n % 16)
				c.Set(key, n)
				c.Has(key)
				c.GetIfPresent(key)
				if n%7 == i {
					c.Remove(key)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Size(), 16)
}
