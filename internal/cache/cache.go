// Package cache provides an in-memory, time-stamped key/value cache.
package cache

import (
	"sync"
	"time"
)

// Entry is a cached value and the time it was stored.
type Entry[V any] struct {
	Value     V
	UpdatedAt time.Time
}

// Cache maps string keys to values. It is safe for concurrent use.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]
	now     func() time.Time
}

// New creates an empty cache.
func New[V any]() *Cache[V] {
	return &Cache[V]{
		entries: make(map[string]Entry[V]),
		now:     time.Now,
	}
}

// Get returns the value for key, whether it exists, and its age.
func (c *Cache[V]) Get(key string) (V, bool, time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false, 0
	}
	return entry.Value, true, c.now().Sub(entry.UpdatedAt)
}

// GetFresh returns the value for key if it is no older than maxAge.
func (c *Cache[V]) GetFresh(key string, maxAge time.Duration) (V, bool) {
	v, ok, age := c.Get(key)
	if !ok || age > maxAge {
		var zero V
		return zero, false
	}
	return v, true
}

// Set stores value under key, stamped with the current time.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry[V]{Value: value, UpdatedAt: c.now()}
}

// Size returns the number of entries.
func (c *Cache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Prune removes entries older than maxAge and returns how many were removed.
func (c *Cache[V]) Prune(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-maxAge)
	removed := 0
	for key, entry := range c.entries {
		if entry.UpdatedAt.Before(cutoff) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}
