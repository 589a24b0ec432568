// Package cache provides the fixed-capacity LRU cache backing every
// derived-data cache in the engine. Entries are invalidated by fingerprint
// mismatch rather than explicit deletion: a hit whose stored fingerprint
// no longer matches is a miss.
package cache

import (
	"container/list"
	"sync"
)

// Cache is a fixed-capacity key/value cache with least-recently-used
// eviction. Get promotes, Set evicts from the back once the size exceeds
// the capacity. Safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	items    map[K]*list.Element
	order    *list.List // front = most recent
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// New creates a cache holding at most capacity entries. Capacities below 1
// fall back to 1.
func New[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &Cache[K, V]{
		capacity: capacity,
		items:    make(map[K]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the value for key and promotes it to most recently used.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*entry[K, V]).value, true
	}
	var zero V
	return zero, false
}

// Set inserts or replaces the value for key, evicting the least recently
// used entry if the cache grows past capacity.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value.(*entry[K, V]).value = value
		c.order.MoveToFront(elem)
		return
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value})

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry[K, V]).key)
		}
	}
}

// Delete removes key if present.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.Remove(elem)
		delete(c.items, key)
	}
}

// Len returns the number of entries currently held.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Purge discards every entry.
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]*list.Element, c.capacity)
	c.order.Init()
}

// Fingerprinted pairs a cached value with the fingerprint of the inputs it
// was computed from. F must be comparable so staleness is a plain !=.
type Fingerprinted[F comparable, V any] struct {
	FP    F
	Value V
}

// Lookup returns the cached value for key only if its stored fingerprint
// equals fp; a mismatch is treated as a miss.
func Lookup[K comparable, F comparable, V any](c *Cache[K, Fingerprinted[F, V]], key K, fp F) (V, bool) {
	if got, ok := c.Get(key); ok && got.FP == fp {
		return got.Value, true
	}
	var zero V
	return zero, false
}

// Store records value for key under fingerprint fp.
func Store[K comparable, F comparable, V any](c *Cache[K, Fingerprinted[F, V]], key K, fp F, value V) {
	c.Set(key, Fingerprinted[F, V]{FP: fp, Value: value})
}
