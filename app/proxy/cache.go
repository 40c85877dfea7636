package proxy

import (
	"sync"
	"time"
)

// CacheEntry lives until its expiry or until insertion-order eviction
// claims it, whichever comes first.
type CacheEntry struct {
	ExpiresAt   time.Time
	Body        []byte
	ContentType string
}

// Cache is a bounded TTL store with insertion-order (oldest-inserted)
// eviction. Expired entries are invalidated lazily on read. The clock is
// injectable for deterministic testing.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	entries map[string]CacheEntry
	order   []string
	now     func() time.Time
}

func NewCache(ttl time.Duration, maxSize int) *Cache {
	return &Cache{
		ttl:     ttl,
		maxSize: maxSize,
		entries: make(map[string]CacheEntry),
		now:     time.Now,
	}
}

func (c *Cache) Get(key string) ([]byte, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, "", false
	}
	if c.now().After(entry.ExpiresAt) {
		c.remove(key)
		return nil, "", false
	}
	return entry.Body, entry.ContentType, true
}

func (c *Cache) Set(key string, body []byte, contentType string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if c.maxSize > 0 && len(c.entries) >= c.maxSize {
			// evict the single oldest-inserted key, expired or not
			c.remove(c.order[0])
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = CacheEntry{
		ExpiresAt:   c.now().Add(c.ttl),
		Body:        body,
		ContentType: contentType,
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// remove must be called with the lock held.
func (c *Cache) remove(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
