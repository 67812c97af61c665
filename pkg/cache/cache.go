// Package cache holds query results in a bounded least-recently-used cache.
package cache

import (
	"encoding/json"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/adfharrison1/go-docdb/pkg/domain"
)

// DefaultCapacity is used when a non-positive capacity is requested
const DefaultCapacity = 100

const (
	// QueryPrefix starts every query result key
	QueryPrefix = "q:"
	// DocumentPrefix starts every per-document key
	DocumentPrefix = "d:"
)

// ResultCache is a strict LRU cache: Get promotes an entry, Set at capacity
// evicts the least recently used one.
type ResultCache struct {
	lru       *lru.Cache[string, interface{}]
	capacity  int
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New creates a result cache holding at most capacity entries
func New(capacity int) *ResultCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	// lru.New only fails for a non-positive size
	c, _ := lru.New[string, interface{}](capacity)
	return &ResultCache{lru: c, capacity: capacity}
}

// Get retrieves a value and marks it most recently used
func (c *ResultCache) Get(key string) (interface{}, bool) {
	value, ok := c.lru.Get(key)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return value, true
}

// Set stores a value, evicting the least recently used entry when full
func (c *ResultCache) Set(key string, value interface{}) {
	if c.lru.Add(key, value) {
		c.evictions.Add(1)
	}
}

// Invalidate removes a single key
func (c *ResultCache) Invalidate(key string) bool {
	return c.lru.Remove(key)
}

// InvalidatePrefix removes every key starting with prefix and returns how many were removed
func (c *ResultCache) InvalidatePrefix(prefix string) int {
	removed := 0
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) && c.lru.Remove(key) {
			removed++
		}
	}
	return removed
}

// Clear removes all entries. Statistics are kept.
func (c *ResultCache) Clear() {
	c.lru.Purge()
}

// Keys returns the cached keys from least to most recently used
func (c *ResultCache) Keys() []string {
	return c.lru.Keys()
}

// Len returns the number of cached entries
func (c *ResultCache) Len() int {
	return c.lru.Len()
}

// Capacity returns the maximum number of entries
func (c *ResultCache) Capacity() int {
	return c.capacity
}

// Stats returns cache statistics. HitRate is hits/(hits+misses), 0 before any lookup.
func (c *ResultCache) Stats() domain.CacheStats {
	hits, misses := c.hits.Load(), c.misses.Load()
	rate := 0.0
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return domain.CacheStats{
		Enabled:   true,
		Size:      c.lru.Len(),
		Capacity:  c.capacity,
		Hits:      hits,
		Misses:    misses,
		Evictions: c.evictions.Load(),
		HitRate:   rate,
	}
}

// QueryKey creates a deterministic cache key from a filter and find options.
// JSON encoding sorts map keys, so filters that differ only in key order
// share a key. The boolean is false when the query cannot be encoded; such
// queries are not cached.
func QueryKey(filter map[string]interface{}, options *domain.FindOptions) (string, bool) {
	if filter == nil {
		filter = map[string]interface{}{}
	}
	keyData := struct {
		Filter  map[string]interface{} `json:"f"`
		Options *domain.FindOptions    `json:"o,omitempty"`
	}{
		Filter:  filter,
		Options: options,
	}
	data, err := json.Marshal(keyData)
	if err != nil {
		return "", false
	}
	return QueryPrefix + string(data), true
}

// DocumentKey names the cache entry of a single document read by id
func DocumentKey(id string) string {
	return DocumentPrefix + id
}
