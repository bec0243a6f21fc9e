package recurrence

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"
	"time"
)

// CacheEntry is a cached expansion result.
type CacheEntry struct {
	Occurrences []time.Time
	Capped      bool
	ExpiresAt   time.Time
	AccessedAt  time.Time
}

// ResultCache memoizes expansion results per request. Entries expire after
// a TTL; when the cache is full the least recently accessed ones go first.
type ResultCache struct {
	entries         map[string]*CacheEntry
	mutex           sync.RWMutex
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
	now             func() time.Time
}

// CacheConfig holds configuration for the result cache
type CacheConfig struct {
	TTL             time.Duration // How long entries stay valid
	MaxEntries      int           // Maximum number of entries before cleanup
	CleanupInterval time.Duration // How often to run cleanup
}

// DefaultCacheConfig provides sensible defaults for result caching
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute, // Cache results for 15 minutes
	MaxEntries:      1000,             // Keep up to 1000 cached expansions
	CleanupInterval: 5 * time.Minute,  // Cleanup every 5 minutes
}

// NewResultCache creates a cache and starts its cleanup goroutine. Close
// stops it.
func NewResultCache(config CacheConfig) *ResultCache {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCacheConfig.CleanupInterval
	}
	cache := &ResultCache{
		entries:         make(map[string]*CacheEntry),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
		stopCleanup:     make(chan struct{}),
		now:             time.Now,
	}

	go cache.cleanupLoop()

	return cache
}

// cacheKey hashes every request field that influences the result. The
// engine name and cap are part of the key since they change the output.
func cacheKey(engine string, limit int, strict bool, defaultZone string, req Request) string {
	hasher := sha256.New()
	fmt.Fprintf(hasher, "%s\x00%d\x00%t\x00%s\x00", engine, limit, strict, defaultZone)
	fmt.Fprintf(hasher, "%s\x00%s\x00%s\x00", req.RRule, req.DTStart, req.Timezone)
	if req.Range != nil {
		fmt.Fprintf(hasher, "%s\x00%s", req.Range.Start, req.Range.End)
	}
	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// Get retrieves a cached result if it exists and hasn't expired
func (c *ResultCache) Get(key string) (*CacheEntry, bool) {
	c.mutex.RLock()
	entry, exists := c.entries[key]
	c.mutex.RUnlock()

	if !exists {
		return nil, false
	}

	now := c.now()
	if now.After(entry.ExpiresAt) {
		c.mutex.Lock()
		delete(c.entries, key)
		c.mutex.Unlock()
		return nil, false
	}

	c.mutex.Lock()
	entry.AccessedAt = now
	c.mutex.Unlock()

	return entry, true
}

// Set stores a result. The slice is copied so callers may keep using
// theirs.
func (c *ResultCache) Set(key string, occurrences []time.Time, capped bool) {
	now := c.now()
	entry := &CacheEntry{
		Occurrences: append([]time.Time(nil), occurrences...),
		Capped:      capped,
		ExpiresAt:   now.Add(c.ttl),
		AccessedAt:  now,
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = entry

	if len(c.entries) > c.maxEntries {
		c.cleanup()
	}
}

// cleanup removes expired entries and oldest entries if over limit.
// Callers hold the write lock.
func (c *ResultCache) cleanup() {
	now := c.now()

	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
		}
	}

	if len(c.entries) <= c.maxEntries {
		return
	}

	type keyAccess struct {
		key        string
		accessedAt time.Time
	}
	keys := make([]keyAccess, 0, len(c.entries))
	for key, entry := range c.entries {
		keys = append(keys, keyAccess{key: key, accessedAt: entry.AccessedAt})
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].accessedAt.Before(keys[j].accessedAt)
	})

	excess := len(c.entries) - c.maxEntries
	for i := 0; i < excess && i < len(keys); i++ {
		delete(c.entries, keys[i].key)
	}
}

func (c *ResultCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			c.cleanup()
			c.mutex.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine and clears the cache. It is safe to
// call more than once.
func (c *ResultCache) Close() {
	c.closeOnce.Do(func() {
		close(c.stopCleanup)
	})
	c.mutex.Lock()
	c.entries = make(map[string]*CacheEntry)
	c.mutex.Unlock()
}

// Stats returns cache statistics
func (c *ResultCache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entryCount := len(c.entries)
	expiredCount := 0
	now := c.now()

	for _, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			expiredCount++
		}
	}

	return CacheStats{
		TotalEntries:   entryCount,
		ExpiredEntries: expiredCount,
		ActiveEntries:  entryCount - expiredCount,
	}
}

// CacheStats provides information about cache occupancy
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
}
