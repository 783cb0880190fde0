package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSimpleCache_SetGet(t *testing.T) {
	c := NewSimpleCache[string, int64]()

	c.Set("u-1", 3, 0)
	v, ok := c.Get("u-1")
	require.True(t, ok)
	require.EqualValues(t, 3, v)

	_, ok = c.Get("u-2")
	require.False(t, ok)
}

func TestSimpleCache_TTLExpiry(t *testing.T) {
	c := NewSimpleCache[string, int64]()

	old := now
	defer func() { now = old }()

	base := time.Now()
	now = func() time.Time { return base }
	c.Set("u-1", 7, 10*time.Second)

	now = func() time.Time { return base.Add(5 * time.Second) }
	require.True(t, c.Has("u-1"))

	now = func() time.Time { return base.Add(11 * time.Second) }
	_, ok := c.Get("u-1")
	require.False(t, ok)
	require.False(t, c.Has("u-1"))
}

func TestSimpleCache_DeleteAndClear(t *testing.T) {
	c := NewSimpleCache[string, int64]()
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)

	c.Delete("a")
	require.False(t, c.Has("a"))
	require.Equal(t, 1, c.Len())

	c.Clear()
	require.Equal(t, 0, c.Len())
}

func TestSimpleCache_PurgeExpired(t *testing.T) {
	c := NewSimpleCache[string, int64]()

	old := now
	defer func() { now = old }()

	base := time.Now()
	now = func() time.Time { return base }
	c.Set("stale", 1, time.Second)
	c.Set("fresh", 2, 0)

	now = func() time.Time { return base.Add(2 * time.Second) }
	c.PurgeExpired()

	require.False(t, c.Has("stale"))
	require.True(t, c.Has("fresh"))
	require.Equal(t, 1, c.Len())
}

func TestSimpleCache_ConcurrentAccess(t *testing.T) {
	c := NewSimpleCache[int, int]()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set(i, i, 0)
			c.Get(i)
			c.Has(i)
			c.Len()
		}(i)
	}
	wg.Wait()

	require.Equal(t, 20, c.Len())
}
