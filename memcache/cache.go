// Package memcache is an in-process result cache with per-entry TTL, LRU
// eviction and in-flight request de-duplication. Stores are explicit
// objects with an explicit cleanup lifecycle; hosts and tests create
// isolated instances instead of sharing a singleton.
package memcache

import (
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/singleflight"
)

// DefaultCapacity bounds a store when no capacity is configured.
const DefaultCapacity = 1024

// Entry is the bookkeeping kept per cached value.
type Entry[V any] struct {
	Value      V
	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastAccess time.Time
	Hits       uint64
}

// Stats is a point-in-time snapshot of store counters.
type Stats struct {
	Len       int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Cache is a key→value store with per-entry TTL and LRU eviction.
//
// Contract:
//   - safe for concurrent use;
//   - Get never errors, a miss is (zero, false);
//   - expired entries are removed lazily on access and by the janitor;
//   - eviction is synchronous bookkeeping inline with Set, reads and
//     writes never block on it.
type Cache[V any] struct {
	mu      sync.Mutex
	entries *xsync.MapOf[string, *Entry[V]]
	// order tracks recency and capacity separately from the entries
	// themselves, so eviction never scans the whole store.
	order *simplelru.LRU[string, struct{}]

	now func() time.Time
	log *slog.Logger

	hits, misses, evictions uint64

	group singleflight.Group

	cleanupStop chan struct{}
	cleanupDone chan struct{}
}

type Option[V any] func(*Cache[V])

// WithClock replaces the time source, for TTL tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) { c.now = now }
}

func WithLogger[V any](log *slog.Logger) Option[V] {
	return func(c *Cache[V]) { c.log = log }
}

// New creates a store evicting least-recently-used entries beyond
// capacity. Non-positive capacity falls back to DefaultCapacity.
func New[V any](capacity int, opts ...Option[V]) *Cache[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	c := &Cache[V]{
		entries: xsync.NewMapOf[string, *Entry[V]](),
		now:     time.Now,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	// The callback fires only for capacity evictions: explicit removals
	// delete the entry before touching the order index.
	order, err := simplelru.NewLRU(capacity, func(key string, _ struct{}) {
		if _, loaded := c.entries.LoadAndDelete(key); loaded {
			c.evictions++
		}
	})
	if err != nil {
		panic(fmt.Sprintf("memcache: lru init: %v", err)) // capacity is validated above
	}
	c.order = order
	return c
}

// Set stores value until now+ttl, evicting the least-recently-used entry
// first when the store is at capacity. A non-positive ttl does not cache.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries.Store(key, &Entry[V]{
		Value:      value,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		LastAccess: now,
	})
	c.order.Add(key, struct{}{})
}

// Get returns the cached value for key if present and not expired. A
// stored value failing any validator is dropped and reported as a miss,
// never as an error; this guards readers against stale shapes written by
// an older writer. A hit refreshes the entry's recency.
func (c *Cache[V]) Get(key string, validators ...func(V) bool) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Load(key)
	if !ok {
		c.misses++
		return zero, false
	}
	if !c.now().Before(e.ExpiresAt) {
		c.removeLocked(key)
		c.misses++
		return zero, false
	}
	for _, valid := range validators {
		if !valid(e.Value) {
			c.removeLocked(key)
			c.misses++
			return zero, false
		}
	}

	e.LastAccess = c.now()
	e.Hits++
	c.order.Get(key) // recency touch
	c.hits++
	return e.Value, true
}

// Has reports whether key holds a live entry. Expiry semantics match Get,
// but Has does not count as an access.
func (c *Cache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Load(key)
	if !ok {
		return false
	}
	if !c.now().Before(e.ExpiresAt) {
		c.removeLocked(key)
		return false
	}
	return true
}

// Delete removes key. Idempotent.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removeLocked(key)
}

// Clear removes every entry whose key matches pattern ("*" wildcards, see
// path.Match) and returns the number removed. An empty pattern or "*"
// clears the whole store.
func (c *Cache[V]) Clear(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, key := range c.order.Keys() {
		if pattern != "" && pattern != "*" {
			if ok, err := path.Match(pattern, key); err != nil || !ok {
				continue
			}
		}
		if c.removeLocked(key) {
			removed++
		}
	}
	return removed
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Len:       c.order.Len(),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

func (c *Cache[V]) removeLocked(key string) bool {
	_, loaded := c.entries.LoadAndDelete(key)
	c.order.Remove(key)
	return loaded
}

// StartCleanup launches a janitor removing expired entries every interval.
// Starting twice is a no-op.
func (c *Cache[V]) StartCleanup(interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cleanupStop != nil {
		return
	}
	c.cleanupStop = make(chan struct{})
	c.cleanupDone = make(chan struct{})
	go c.cleanupLoop(interval, c.cleanupStop, c.cleanupDone)
}

// Stop halts the janitor and waits for it to exit. The store remains
// usable; only the background cleanup ends.
func (c *Cache[V]) Stop() {
	c.mu.Lock()
	stop, done := c.cleanupStop, c.cleanupDone
	c.cleanupStop, c.cleanupDone = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (c *Cache[V]) cleanupLoop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n := c.removeExpired(); n > 0 {
				c.log.Debug("cache janitor removed expired entries", "count", n)
			}
		}
	}
}

func (c *Cache[V]) removeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, key := range c.order.Keys() {
		if e, ok := c.entries.Load(key); ok && !now.Before(e.ExpiresAt) {
			c.removeLocked(key)
			removed++
		}
	}
	return removed
}
