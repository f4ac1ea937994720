package application

import (
	"sync"
	"time"
)

// LookupCache stores recently resolved directory names so listing many
// sessions does not repeat the same faculty and hall lookups. Directory
// writes invalidate it.
type LookupCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]lookupCacheEntry
}

type lookupCacheEntry struct {
	name      string
	expiresAt time.Time
}

// NewLookupCache builds a cache. Non-positive ttl and maxEntries fall back to
// 30 seconds and 512 entries.
func NewLookupCache(ttl time.Duration, maxEntries int, now func() time.Time) *LookupCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 512
	}
	if now == nil {
		now = time.Now
	}
	return &LookupCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]lookupCacheEntry),
	}
}

func (c *LookupCache) Get(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return "", false
	}
	return entry.name, true
}

func (c *LookupCache) Store(key, name string) {
	if c == nil {
		return
	}
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = lookupCacheEntry{name: name, expiresAt: expiry}
}

func (c *LookupCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]lookupCacheEntry)
	c.mu.Unlock()
}

func (c *LookupCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *LookupCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *LookupCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func facultyCacheKey(id string) string { return "faculty:" + id }

func hallCacheKey(id string) string { return "hall:" + id }
