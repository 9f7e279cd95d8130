package cache

import (
	"net/http"
	"sync"
	"time"
)

// CachedResponse holds a cached proxy response.
type CachedResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	StoredAt   time.Time
}

// Age returns how long ago the response was stored.
func (r *CachedResponse) Age() time.Duration {
	return time.Since(r.StoredAt)
}

// entry wraps a cached response with expiry and insertion order tracking.
type entry struct {
	resp      *CachedResponse
	expiry    time.Time
	insertIdx int64
}

// ResponseCache caches proxy responses so identical requests inside a route's
// freshness window share one upstream round-trip.
// Keys are "method:path?query". Only successful GET responses should be cached.
// Thread-safe with sync.RWMutex.
type ResponseCache struct {
	mu         sync.RWMutex
	items      map[string]entry
	ttl        time.Duration
	maxEntries int
	nextIdx    int64
	now        func() time.Time
}

// New creates a new ResponseCache with a default TTL and max entry count.
func New(ttl time.Duration, maxEntries int) *ResponseCache {
	return &ResponseCache{
		items:      make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// MakeKey builds a cache key from the HTTP method, path and raw query.
// Query parameters are part of the key: page 1 and page 2 are distinct entries.
func MakeKey(method, path, rawQuery string) string {
	if rawQuery == "" {
		return method + ":" + path
	}
	return method + ":" + path + "?" + rawQuery
}

// Get returns a cached response if found and not expired.
func (c *ResponseCache) Get(key string) (*CachedResponse, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if c.now().After(e.expiry) {
		// Expired: remove lazily
		c.mu.Lock()
		if e2, ok2 := c.items[key]; ok2 && c.now().After(e2.expiry) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.resp, true
}

// Set stores a response with the cache's default TTL.
func (c *ResponseCache) Set(key string, resp *CachedResponse) {
	c.SetWithTTL(key, resp, c.ttl)
}

// SetWithTTL stores a response that expires after ttl. Evicts the oldest entry if at capacity.
func (c *ResponseCache) SetWithTTL(key string, resp *CachedResponse, ttl time.Duration) {
	if c.maxEntries <= 0 || ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if resp.StoredAt.IsZero() {
		resp.StoredAt = now
	}
	e := entry{
		resp:      resp,
		expiry:    now.Add(ttl),
		insertIdx: c.nextIdx,
	}
	c.nextIdx++

	// If key already exists, update in place (no capacity change)
	if _, exists := c.items[key]; exists {
		c.items[key] = e
		return
	}

	if len(c.items) >= c.maxEntries {
		c.evictOldest()
	}

	c.items[key] = e
}

// Len returns the number of stored entries, expired or not.
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// evictOldest removes the entry with the lowest insertIdx. Must be called with mu held.
func (c *ResponseCache) evictOldest() {
	var oldestKey string
	var oldestIdx int64 = -1

	for key, e := range c.items {
		if oldestIdx == -1 || e.insertIdx < oldestIdx {
			oldestIdx = e.insertIdx
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
