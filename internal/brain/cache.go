// Package brain is the autonomous decision layer: observations go in,
// calibrated, optionally executed decisions come out.
package brain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/salesflow-ai/pulse/internal/model"
)

// DecisionCache memoizes high-confidence decisions per observation shape so
// repeated identical observations skip the model call. Entries expire after
// the TTL; the cache is bounded and evicts the oldest entry when full.
type DecisionCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[string]cacheEntry
	hits     int64
	misses   int64
	nowFunc  func() time.Time
}

type cacheEntry struct {
	decision model.Decision
	cachedAt time.Time
}

// NewDecisionCache creates a cache with the given TTL and capacity.
// Non-positive arguments fall back to 24 h / 1000 entries.
func NewDecisionCache(ttl time.Duration, capacity int) *DecisionCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if capacity <= 0 {
		capacity = 1000
	}
	return &DecisionCache{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]cacheEntry),
		nowFunc:  time.Now,
	}
}

// WithNow injects a clock for tests.
func (c *DecisionCache) WithNow(now func() time.Time) *DecisionCache {
	c.nowFunc = now
	return c
}

// CacheKey derives the cache key from the observation type and a stable
// hash of its data. Map keys are sorted by the JSON encoder, so equal data
// always hashes the same.
func CacheKey(obsType string, data map[string]any) string {
	encoded, err := json.Marshal(data)
	if err != nil {
		encoded = []byte(obsType)
	}
	sum := sha256.Sum256(encoded)
	return obsType + ":" + hex.EncodeToString(sum[:])
}

// Get returns a clone of the cached decision with a fresh id, or nil on
// miss. Expired entries count as misses and are dropped.
func (c *DecisionCache) Get(key string) *model.Decision {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil
	}
	if c.nowFunc().Sub(entry.cachedAt) > c.ttl {
		delete(c.entries, key)
		c.misses++
		return nil
	}

	c.hits++
	clone := entry.decision
	clone.ID = uuid.NewString()
	clone.Executed = false
	clone.Result = nil
	clone.ExecutionTimeMs = 0
	return &clone
}

// Put caches a decision template. Only very_high and high confidence
// decisions are eligible; anything else is silently dropped.
func (c *DecisionCache) Put(key string, d model.Decision) {
	if !d.Confidence.AutoExecutable() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.capacity {
		c.evictOldest()
	}
	c.entries[key] = cacheEntry{decision: d, cachedAt: c.nowFunc()}
}

// evictOldest removes the entry with the minimum cached_at. Caller holds
// the lock.
func (c *DecisionCache) evictOldest() {
	var oldestKey string
	var oldestAt time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.cachedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.cachedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// HitRate returns hits/(hits+misses), 0 before any lookup.
func (c *DecisionCache) HitRate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}

// Len returns the number of live entries.
func (c *DecisionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
