// Package memory provides an in-memory TTL cache for fingerprint lookups.
// This is suitable for single-node deployments; the catalog remains the
// source of truth and every cached value is revalidated against it.
package memory

import (
	"sync"
	"time"
)

// cleanupInterval controls how often expired entries are swept out.
const cleanupInterval = 60 * time.Second

// Cache maps fingerprints to canonical media IDs with a fixed TTL.
type Cache struct {
	mu      sync.RWMutex
	items   map[string]*cacheItem
	ttl     time.Duration
	stopCh  chan struct{}
	stopped bool
}

// cacheItem represents a single cached lookup.
type cacheItem struct {
	value     string
	expiresAt time.Time
	noExpiry  bool
}

// isExpired checks if the item has expired.
func (i *cacheItem) isExpired() bool {
	if i.noExpiry {
		return false
	}
	return time.Now().After(i.expiresAt)
}

// NewCache creates a new in-memory cache. A non-positive ttl disables
// expiry.
func NewCache(ttl time.Duration) *Cache {
	c := &Cache{
		items:  make(map[string]*cacheItem),
		ttl:    ttl,
		stopCh: make(chan struct{}),
	}

	// Start cleanup goroutine.
	go c.cleanupLoop()

	return c
}

// cleanupLoop periodically removes expired items.
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes expired items.
func (c *Cache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, item := range c.items {
		if item.isExpired() {
			delete(c.items, key)
		}
	}
}

// Stop stops the cleanup goroutine.
func (c *Cache) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.stopped {
		close(c.stopCh)
		c.stopped = true
	}
}

// Get retrieves a cached media ID by fingerprint.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || item.isExpired() {
		return "", false
	}
	return item.value, true
}

// Set stores a fingerprint lookup with the cache's TTL.
func (c *Cache) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item := &cacheItem{value: value}
	if c.ttl > 0 {
		item.expiresAt = time.Now().Add(c.ttl)
	} else {
		item.noExpiry = true
	}

	c.items[key] = item
}

// Delete removes a cached lookup.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

// Len returns the number of cached entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}
