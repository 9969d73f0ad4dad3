// Package dnscache implements the TTL-honoring LRU response cache the
// `cache` processor uses.
package dnscache

import (
	"container/list"
	"sync"
	"time"
)

// entry holds a cached value plus its LRU list position.
type entry[V any] struct {
	key       any
	value     V
	cachedAt  time.Time
	expiresAt time.Time
	elem      *list.Element
}

// TTLCache is a thread-safe, TTL-aware LRU cache, generalized over key and
// value types the same way the teacher's forwarding-resolver cache is, but
// trimmed to the single entry-type CleanDNS needs: callers decide TTL and
// expiry up front rather than the cache distinguishing positive from
// negative entries itself.
type TTLCache[K comparable, V any] struct {
	mu         sync.Mutex
	maxEntries int
	lru        *list.List
	data       map[K]*entry[V]

	hits   int
	misses int
}

// NewTTLCache creates a cache bounded to maxEntries.
func NewTTLCache[K comparable, V any](maxEntries int) *TTLCache[K, V] {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &TTLCache[K, V]{
		maxEntries: maxEntries,
		lru:        list.New(),
		data:       make(map[K]*entry[V]),
	}
}

// Get returns the cached value and the time it was inserted, evicting it
// first if expired. The LRU position is refreshed on read as well as write.
func (c *TTLCache[K, V]) Get(key K) (value V, cachedAt time.Time, found bool) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.data[key]
	if e == nil {
		c.misses++
		return value, time.Time{}, false
	}
	if !e.expiresAt.After(now) {
		c.removeLocked(key, e)
		c.misses++
		return value, time.Time{}, false
	}

	c.lru.MoveToBack(e.elem)
	c.hits++
	return e.value, e.cachedAt, true
}

// Set stores val under key with the given TTL. A non-positive TTL is a
// no-op: nothing worth caching for zero time.
func (c *TTLCache[K, V]) Set(key K, val V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing := c.data[key]; existing != nil {
		existing.value = val
		existing.cachedAt = now
		existing.expiresAt = now.Add(ttl)
		c.lru.MoveToBack(existing.elem)
		return
	}

	e := &entry[V]{key: key, value: val, cachedAt: now, expiresAt: now.Add(ttl)}
	e.elem = c.lru.PushBack(key)
	c.data[key] = e
	c.evictLocked()
}

func (c *TTLCache[K, V]) removeLocked(key K, e *entry[V]) {
	c.lru.Remove(e.elem)
	delete(c.data, key)
}

func (c *TTLCache[K, V]) evictLocked() {
	for len(c.data) > c.maxEntries {
		front := c.lru.Front()
		if front == nil {
			break
		}
		k := front.Value.(K)
		c.lru.Remove(front)
		delete(c.data, k)
	}
}

// Len returns the current number of entries. Expired entries are purged
// lazily on access, so the count can include expired ones not yet purged.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Stats returns cumulative hit/miss counters.
func (c *TTLCache[K, V]) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
