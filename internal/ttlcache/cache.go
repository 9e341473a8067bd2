// Package ttlcache is an in-memory key/value cache with time-based expiry.
//
// There is no size bound and no LRU: entries leave the cache when they expire
// under the instance's Policy, when they are deleted, or when the cache is
// cleared. Expired entries are evicted lazily on Get and proactively by the
// sweeper started with Start.
package ttlcache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Events reported to an Observer.
const (
	EventHit   = "hit"
	EventMiss  = "miss"
	EventEvict = "evict"
	EventSet   = "set"
)

// Entry is a stored value and the instant it was stored.
type Entry[V any] struct {
	Value    V
	StoredAt time.Time
}

type Option func(*options)

type options struct {
	now      func() time.Time
	observer func(event string)
	logger   *slog.Logger
	name     string
}

// WithClock replaces time.Now. Used by tests to cross TTL and day boundaries.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithObserver registers a callback for hit/miss/evict/set events.
func WithObserver(fn func(event string)) Option {
	return func(o *options) { o.observer = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithName labels the cache in log lines.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// Cache is safe for concurrent use.
type Cache[V any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[V]
	policy  Policy
	opts    options
}

// New creates a cache governed by policy.
func New[V any](policy Policy, opts ...Option) *Cache[V] {
	o := options{now: time.Now, name: "cache"}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &Cache[V]{
		entries: make(map[string]Entry[V]),
		policy:  policy,
		opts:    o,
	}
}

// Policy returns the expiry policy of this cache.
func (c *Cache[V]) Policy() Policy {
	return c.policy
}

func (c *Cache[V]) emit(event string) {
	if c.opts.observer != nil {
		c.opts.observer(event)
	}
}

// Get returns the value for key. An expired entry is evicted and reported as
// a miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.emit(EventMiss)
		return zero, false
	}

	if c.policy.Expired(entry.StoredAt, c.opts.now()) {
		c.mu.Lock()
		// Re-check: a concurrent Set may have replaced the stale entry.
		if cur, still := c.entries[key]; still && cur.StoredAt.Equal(entry.StoredAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()

		c.emit(EventEvict)
		c.emit(EventMiss)
		return zero, false
	}

	c.emit(EventHit)
	return entry.Value, true
}

// Set stores value under key, stamped with the current time.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	c.entries[key] = Entry[V]{Value: value, StoredAt: c.opts.now()}
	c.mu.Unlock()
	c.emit(EventSet)
}

// Delete removes key if present.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]Entry[V])
	c.mu.Unlock()
}

// Len counts stored entries, including expired ones not yet swept.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Sweep evicts every expired entry and returns how many were removed.
func (c *Cache[V]) Sweep() int {
	now := c.opts.now()
	removed := 0

	c.mu.Lock()
	for k, e := range c.entries {
		if c.policy.Expired(e.StoredAt, now) {
			delete(c.entries, k)
			removed++
		}
	}
	c.mu.Unlock()

	for i := 0; i < removed; i++ {
		c.emit(EventEvict)
	}
	return removed
}

// Start sweeps on every tick of interval until ctx is cancelled.
// It blocks and should typically be run in a separate goroutine.
func (c *Cache[V]) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := c.Sweep(); removed > 0 {
				c.opts.logger.Debug("cache sweep", "cache", c.opts.name, "removed", removed)
			}
		case <-ctx.Done():
			c.opts.logger.Debug("cache sweeper stopped", "cache", c.opts.name)
			return
		}
	}
}
