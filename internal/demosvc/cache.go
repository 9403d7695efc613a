package demosvc

import (
	"sync"
	"time"

	"github.com/covmark/covmark"
)

// Marks instrumented into the cache lookup branches.
const (
	MarkCacheHit     = "cache_hit"
	MarkCacheMiss    = "cache_miss"
	MarkCacheExpired = "cache_expired"
)

// cacheTTL is how long computed quotients stay servable from cache.
const cacheTTL = 5 * time.Minute

// Cache is an in-memory map with TTL-based expiration. Expired entries are
// removed on access. Safe for concurrent use.
type Cache struct {
	mu   sync.Mutex
	data map[string]cacheEntry
}

// cacheEntry stores a cached value with its expiration timestamp.
type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]cacheEntry),
	}
}

// Get returns the cached value for the key if present and not expired.
// Each outcome (miss, expired, hit) records its mark, so tests can pin down
// which branch served the result.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.data[key]
	if !ok {
		covmark.Hit(MarkCacheMiss)
		return "", false
	}

	if time.Now().After(entry.expiresAt) {
		covmark.Hit(MarkCacheExpired)
		delete(c.data, key)
		return "", false
	}

	covmark.Hit(MarkCacheHit)
	return entry.value, true
}

// Set stores a value with the given TTL. The entry expires after the TTL
// elapses and is removed on the next Get.
func (c *Cache) Set(key, value string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
}
