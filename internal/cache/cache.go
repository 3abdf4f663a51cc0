// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

package cache

import (
	"sync"
	"time"
)

// entry is one cached value with its expiry.
type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Keys      int64
}

// Cache is a TTL map safe for concurrent use. Entries expire lazily
// on read and in a periodic sweep; there is no size bound, so it fits
// key spaces that are naturally small (encyclopedia ids, account and
// clan lookups), not unbounded request data.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration

	statsMu sync.Mutex
	hits    int64
	misses  int64
	evicted int64
}

// sweepInterval is how often the background sweep drops expired
// entries that were never read again.
const sweepInterval = 5 * time.Minute

// New builds a cache whose entries live for ttl. The sweep goroutine
// runs for the life of the process; callers hold caches for the same
// span.
func New(ttl time.Duration) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
	}
	go c.sweepLoop()
	return c
}

// Get returns the live value under key. Expired entries are dropped
// on the spot and count as misses.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.count(&c.misses)
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		c.count(&c.misses)
		c.count(&c.evicted)
		return nil, false
	}

	c.count(&c.hits)
	return e.value, true
}

// Set stores value under key with the cache's default TTL.
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key with an explicit lifetime,
// replacing any existing entry.
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Delete drops one entry. Missing keys are a no-op.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	_, existed := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()

	if existed {
		c.count(&c.evicted)
	}
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	dropped := int64(len(c.entries))
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	c.statsMu.Lock()
	c.evicted += dropped
	c.statsMu.Unlock()
}

// Len returns the number of entries, expired ones included until the
// next sweep.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetStats snapshots the counters.
func (c *Cache) GetStats() Stats {
	keys := int64(c.Len())

	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evicted,
		Keys:      keys,
	}
}

// HitRate returns the hit percentage, zero before any lookup.
func (c *Cache) HitRate() float64 {
	s := c.GetStats()
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

func (c *Cache) count(counter *int64) {
	c.statsMu.Lock()
	*counter++
	c.statsMu.Unlock()
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.sweep()
	}
}

func (c *Cache) sweep() {
	now := time.Now()
	var dropped int64

	c.mu.Lock()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			dropped++
		}
	}
	c.mu.Unlock()

	if dropped > 0 {
		c.statsMu.Lock()
		c.evicted += dropped
		c.statsMu.Unlock()
	}
}
