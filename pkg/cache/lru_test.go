package cache_test

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/flagkit/pkg/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func TestCache_Basic(t *testing.T) {
	t.Parallel()

	t.Run("set and get", func(t *testing.T) {
		t.Parallel()
		c := cache.New[string, int](3, time.Minute)
		c.Set("a", 1)
		c.Set("b", 2)

		v, ok := c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, 1, v)
		assert.Equal(t, 2, c.Len())
	})

	t.Run("miss", func(t *testing.T) {
		t.Parallel()
		c := cache.New[string, int](3, time.Minute)
		v, ok := c.Get("missing")
		assert.False(t, ok)
		assert.Zero(t, v)
	})

	t.Run("overwrite", func(t *testing.T) {
		t.Parallel()
		c := cache.New[string, int](3, time.Minute)
		c.Set("a", 1)
		c.Set("a", 2)
		v, _ := c.Get("a")
		assert.Equal(t, 2, v)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("remove", func(t *testing.T) {
		t.Parallel()
		c := cache.New[string, int](3, time.Minute)
		c.Set("a", 1)
		assert.True(t, c.Remove("a"))
		assert.False(t, c.Remove("a"))
		_, ok := c.Get("a")
		assert.False(t, ok)
	})

	t.Run("invalid capacity panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { cache.New[string, int](0, time.Minute) })
	})
}

func TestCache_Eviction(t *testing.T) {
	t.Parallel()

	var evicted []string
	c := cache.New[string, int](2, 0, cache.WithEvictCallback(func(k string, _ int) {
		evicted = append(evicted, k)
	}))

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry is evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, []string{"b"}, evicted)
}

func TestCache_TTL(t *testing.T) {
	t.Parallel()

	clock := newClock()
	c := cache.New[string, string](10, 5*time.Minute, cache.WithClock[string, string](clock.Now))

	c.Set("flag", "on")
	c.SetWithTTL("short", "x", time.Second)
	c.SetWithTTL("forever", "y", 0)

	clock.Advance(2 * time.Second)
	_, ok := c.Get("short")
	assert.False(t, ok)
	v, ok := c.Get("flag")
	assert.True(t, ok)
	assert.Equal(t, "on", v)

	clock.Advance(5 * time.Minute)
	_, ok = c.Get("flag")
	assert.False(t, ok)
	_, ok = c.Get("forever")
	assert.True(t, ok)
}

func TestCache_Purge(t *testing.T) {
	t.Parallel()

	clock := newClock()
	c := cache.New[string, int](10, time.Minute, cache.WithClock[string, int](clock.Now))
	c.Set("a", 1)
	c.Set("b", 2)
	c.SetWithTTL("c", 3, time.Hour)

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 2, c.Purge())
	assert.Equal(t, 1, c.Len())
}

func TestCache_RemoveFunc(t *testing.T) {
	t.Parallel()

	c := cache.New[string, int](10, time.Minute)
	c.Set("flag:t1:f1:DEV", 1)
	c.Set("flag:t1:f1:PROD", 2)
	c.Set("flag:t2:f1:PROD", 3)

	n := c.RemoveFunc(func(k string) bool { return strings.HasPrefix(k, "flag:t1:") })
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, c.Len())
}

func TestCache_Clear(t *testing.T) {
	t.Parallel()

	evicted := 0
	c := cache.New[int, int](10, time.Minute, cache.WithEvictCallback(func(int, int) { evicted++ }))
	for i := range 5 {
		c.Set(i, i)
	}
	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 5, evicted)
}

func TestCache_SetIf(t *testing.T) {
	t.Parallel()

	clock := newClock()
	c := cache.New[string, int](3, time.Minute, cache.WithClock[string, int](clock.Now))
	higher := func(v int) func(int, bool) bool {
		return func(current int, found bool) bool { return !found || current < v }
	}

	assert.True(t, c.SetIf("a", 2, higher(2)))
	assert.False(t, c.SetIf("a", 1, higher(1)))
	v, _ := c.Get("a")
	assert.Equal(t, 2, v)

	assert.True(t, c.SetIf("a", 3, higher(3)))
	v, _ = c.Get("a")
	assert.Equal(t, 3, v)

	// an expired entry counts as absent
	clock.Advance(time.Minute)
	var seen bool
	assert.True(t, c.SetIf("a", 1, func(_ int, found bool) bool {
		seen = found
		return true
	}))
	assert.False(t, seen)
	v, _ = c.Get("a")
	assert.Equal(t, 1, v)
}

func TestCache_Concurrent(t *testing.T) {
	t.Parallel()

	c := cache.New[int, int](100, time.Minute)
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 1000 {
				c.Set(g*1000+i, i)
				c.Get(i)
				if i%10 == 0 {
					c.Remove(g*1000 + i)
				}
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 100)
}
