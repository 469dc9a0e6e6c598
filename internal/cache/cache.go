// Package cache provides a generic in-memory TTL cache for catalog
// responses. Cart state is deliberately never cached here: carts resync from
// the backend after every mutation.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	staleAt time.Time
}

// Cache is a generic TTL cache safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]entry[V]
	ttl     time.Duration
	nowFunc func() time.Time // overridable in tests
}

// New creates a cache whose entries expire after ttl.
func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		entries: make(map[K]entry[V]),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// Get returns the cached value for key when present and fresh.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.nowFunc().After(e.staleAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the configured TTL.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{value: value, staleAt: c.nowFunc().Add(c.ttl)}
}

// GetOrLoad returns the cached value for key, or runs load and caches its
// result. Load errors are returned without caching, so a failed fetch is
// retried on the next call.
func (c *Cache[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}

// Invalidate drops the entry for key.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Purge drops every entry.
func (c *Cache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]entry[V])
}

// Len returns the number of stored entries, stale ones included.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
