// Package daycache provides the day-keyed memoization cache shared by the
// focus predictor and the domino analyzer. Entries are keyed by (entity
// id, calendar day), expire on a TTL and are evicted LRU at capacity.
// The cache is deliberately unlocked across compute-and-set: concurrent
// identical-key computations may race and overwrite each other, which is
// fine because results are idempotent within a day.
package daycache

import (
	"sync"
	"time"
)

// DayKey builds the canonical cache key for an entity on a calendar day.
func DayKey(id string, day time.Time) string {
	return id + "|" + day.Format("2006-01-02")
}

type entry[V any] struct {
	value        V
	expiresAt    time.Time
	lastAccessed time.Time
}

// Metrics receives hit/miss observations from a cache. Implementations
// must be safe for concurrent use.
type Metrics interface {
	Hit()
	Miss()
}

// Cache is a thread-safe TTL cache with LRU eviction.
type Cache[V any] struct {
	mu         sync.RWMutex
	entries    map[string]*entry[V]
	ttl        time.Duration
	maxEntries int
	metrics    Metrics
	now        func() time.Time
}

// New creates a cache. A zero ttl defaults to 24 hours, a zero maxEntries
// to 1024.
func New[V any](ttl time.Duration, maxEntries int) *Cache[V] {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &Cache[V]{
		entries:    make(map[string]*entry[V]),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// WithMetrics attaches a hit/miss recorder and returns the cache.
func (c *Cache[V]) WithMetrics(m Metrics) *Cache[V] {
	c.metrics = m
	return c
}

// Get returns the cached value for key if present and unexpired. Expired
// entries are removed on read.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.RLock()
	e, exists := c.entries[key]
	c.mu.RUnlock()
	if !exists {
		c.miss()
		return zero, false
	}

	now := c.now()
	if now.After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		// Expired counts as a miss.
		c.miss()
		return zero, false
	}

	c.mu.Lock()
	e.lastAccessed = now
	c.mu.Unlock()
	c.hit()
	return e.value, true
}

func (c *Cache[V]) hit() {
	if c.metrics != nil {
		c.metrics.Hit()
	}
}

func (c *Cache[V]) miss() {
	if c.metrics != nil {
		c.metrics.Miss()
	}
}

// Set stores value under key, evicting the least recently used entry when
// the cache is full and key is new.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[key]; !exists {
			c.evictLRU()
		}
	}
	c.entries[key] = &entry[V]{
		value:        value,
		expiresAt:    now.Add(c.ttl),
		lastAccessed: now,
	}
}

// Delete removes key. No-op when absent.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// DeletePrefix removes every key starting with prefix. Used for manual
// invalidation of all of one entity's days.
func (c *Cache[V]) DeletePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
		}
	}
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry[V])
}

// Len returns the current entry count.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// evictLRU removes the least recently accessed entry. Caller holds the
// write lock.
func (c *Cache[V]) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	first := true
	for k, e := range c.entries {
		if first || e.lastAccessed.Before(oldestTime) {
			oldestKey = k
			oldestTime = e.lastAccessed
			first = false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
