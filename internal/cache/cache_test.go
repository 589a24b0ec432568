package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetSet(t *testing.T) {
	c := New[string, int](4)

	c.Set("a", 1)
	c.Set("b", 2)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestCache_NeverExceedsCapacity(t *testing.T) {
	c := New[int, int](50)

	for i := 0; i < 500; i++ {
		c.Set(i, i)
		assert.LessOrEqual(t, c.Len(), 50)
	}
	assert.Equal(t, 50, c.Len())
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New[string, int](3)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// Touch "a" so "b" becomes the oldest.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("d", 4)

	_, ok = c.Get("b")
	assert.False(t, ok, "least-recently-touched key should be evicted")
	for _, key := range []string{"a", "c", "d"} {
		_, ok := c.Get(key)
		assert.True(t, ok, "key %s should survive", key)
	}
}

func TestCache_SetExistingPromotes(t *testing.T) {
	c := New[string, int](2)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10) // rewrite promotes, "b" is now oldest
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)
}

func TestCache_Delete(t *testing.T) {
	c := New[string, int](2)
	c.Set("a", 1)

	c.Delete("a")
	c.Delete("a") // idempotent

	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_Purge(t *testing.T) {
	c := New[int, string](8)
	for i := 0; i < 8; i++ {
		c.Set(i, fmt.Sprintf("v%d", i))
	}

	c.Purge()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get(3)
	assert.False(t, ok)
}

type fp struct {
	UpdatedAt int64
	Count     int
}

func TestLookup_FingerprintMismatchIsMiss(t *testing.T) {
	c := New[string, Fingerprinted[fp, string]](10)

	Store(c, "s1", fp{UpdatedAt: 100, Count: 2}, "stats-v1")

	v, ok := Lookup(c, "s1", fp{UpdatedAt: 100, Count: 2})
	require.True(t, ok)
	assert.Equal(t, "stats-v1", v)

	// Same key, newer inputs: stale entry must read as a miss.
	_, ok = Lookup(c, "s1", fp{UpdatedAt: 200, Count: 3})
	assert.False(t, ok)
}
