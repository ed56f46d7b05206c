package main

import (
	"context"
	"sync"
	"time"
)

const (
	// eventTTL is how long a delivered log is remembered. Polling subscriptions
	// may hand out the same log more than once.
	eventTTL = time.Hour
	// cleanupInterval is how often expired entries are dropped
	cleanupInterval = 5 * time.Minute
	// maxCacheSize caps the number of remembered entries
	maxCacheSize = 10000
)

// eventCache is a bounded, thread-safe set of keys with expiry.
type eventCache struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	ttl     time.Duration
	maxSize int
	now     func() time.Time
}

func newEventCache(ttl time.Duration, maxSize int) *eventCache {
	return &eventCache{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Contains checks if the key exists and is not expired
func (c *eventCache) Contains(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	expiry, exists := c.entries[key]
	return exists && c.now().Before(expiry)
}

// Add records key and reports whether it was new.
func (c *eventCache) Add(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if expiry, exists := c.entries[key]; exists && c.now().Before(expiry) {
		return false
	}
	if len(c.entries) >= c.maxSize {
		c.cleanupExpiredLocked()
	}
	if len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}
	c.entries[key] = c.now().Add(c.ttl)
	return true
}

// run drops expired entries every interval until ctx is done.
func (c *eventCache) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			c.cleanupExpiredLocked()
			c.mu.Unlock()
		}
	}
}

// cleanupExpiredLocked must be called with the lock held
func (c *eventCache) cleanupExpiredLocked() {
	now := c.now()
	for key, expiry := range c.entries {
		if now.After(expiry) {
			delete(c.entries, key)
		}
	}
}

// evictOldestLocked drops the entry closest to expiry (must be called with lock held)
func (c *eventCache) evictOldestLocked() {
	var (
		oldest string
		expiry time.Time
	)
	for key, e := range c.entries {
		if oldest == "" || e.Before(expiry) {
			oldest, expiry = key, e
		}
	}
	delete(c.entries, oldest)
}

// Size returns the current number of entries in the cache
func (c *eventCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
