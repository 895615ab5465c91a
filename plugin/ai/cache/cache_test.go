package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache[V any](capacity int, ttl time.Duration) (*LRU[V], *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 10, 3, 10, 0, 0, 0, time.UTC)}
	c := New[V](capacity, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRU_BasicOperations(t *testing.T) {
	c, _ := newTestCache[string](100, time.Minute)

	t.Run("SetAndGet", func(t *testing.T) {
		c.Set("calendars:alice", "Work", 0)
		v, ok := c.Get("calendars:alice")
		assert.True(t, ok)
		assert.Equal(t, "Work", v)
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		v, ok := c.Get("nonexistent")
		assert.False(t, ok)
		assert.Empty(t, v)
	})

	t.Run("UpdateExisting", func(t *testing.T) {
		c.Set("k", "original", 0)
		c.Set("k", "updated", 0)
		v, ok := c.Get("k")
		assert.True(t, ok)
		assert.Equal(t, "updated", v)
	})
}

func TestLRU_Expiration(t *testing.T) {
	c, clock := newTestCache[int](100, time.Minute)

	c.Set("short", 1, 10*time.Second)
	c.Set("default", 2, 0)

	clock.advance(10 * time.Second)
	_, ok := c.Get("short")
	assert.False(t, ok, "entry expires exactly at its TTL")

	v, ok := c.Get("default")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	clock.advance(time.Minute)
	_, ok = c.Get("default")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestLRU_Eviction(t *testing.T) {
	c, _ := newTestCache[int](3, time.Minute)

	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Set("c", 3, 0)
	_, _ = c.Get("a") // a becomes most recently used
	c.Set("d", 4, 0)

	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry is evicted")
	for _, k := range []string{"a", "c", "d"} {
		_, ok := c.Get(k)
		assert.True(t, ok, k)
	}
	assert.Equal(t, 3, c.Len())
}

func TestLRU_Invalidate(t *testing.T) {
	c, _ := newTestCache[int](100, time.Minute)
	c.Set("calendars:alice", 1, 0)
	c.Set("object:alice:1", 2, 0)
	c.Set("object:alice:2", 3, 0)
	c.Set("object:bob:1", 4, 0)

	assert.Equal(t, 2, c.Invalidate("object:alice:*"))
	assert.Equal(t, 1, c.Invalidate("calendars:alice"))
	assert.Equal(t, 0, c.Invalidate("calendars:alice"))

	_, ok := c.Get("object:bob:1")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestLRU_CleanupExpired(t *testing.T) {
	c, clock := newTestCache[int](100, time.Minute)
	c.Set("old", 1, time.Second)
	c.Set("new", 2, time.Hour)

	clock.advance(time.Minute)
	assert.Equal(t, 1, c.CleanupExpired())
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestLRU_Defaults(t *testing.T) {
	c := New[int](0, 0)
	assert.Equal(t, DefaultCapacity, c.capacity)
	assert.Equal(t, DefaultTTL, c.defaultTTL)
}

func TestLRU_Concurrent(t *testing.T) {
	c := New[int](50, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (i*100+j)%80)
				c.Set(key, j, 0)
				c.Get(key)
				if j%25 == 0 {
					c.Invalidate("k1*")
				}
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 50)
}
