package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"contextrag/internal/domain"
)

// QueryCache caches retrieval results per query. Entries are stamped with
// a store generation; Invalidate bumps the generation so everything cached
// before an ingestion run is ignored.
type QueryCache struct {
	mu       sync.RWMutex
	entries  map[string]*cacheEntry
	order    []string
	maxSize  int
	ttl      time.Duration
	storeGen uint64
}

type cacheEntry struct {
	contents  []domain.Content
	timestamp time.Time
	storeGen  uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func cacheKey(query string, maxResults int) string {
	data := []byte(query)
	data = append(data, byte(maxResults>>8), byte(maxResults))
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

func (c *QueryCache) Get(query string, maxResults int) ([]domain.Content, bool) {
	c.mu.RLock()
	key := cacheKey(query, maxResults)
	entry, exists := c.entries[key]
	currentGen := c.storeGen
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if entry.storeGen != currentGen || time.Since(entry.timestamp) > c.ttl {
		c.mu.Lock()
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.mu.Unlock()
		return nil, false
	}

	return entry.contents, true
}

func (c *QueryCache) Put(query string, maxResults int, contents []domain.Content) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(query, maxResults)

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		// Evict the oldest entry
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}

	c.entries[key] = &cacheEntry{
		contents:  contents,
		timestamp: time.Now(),
		storeGen:  c.storeGen,
	}
}

// Invalidate marks all cached results stale. Called after ingestion
// replaces the store contents.
func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.storeGen++
	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
}

func (c *QueryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
