// Package cache provides the validation result cache implementations: an
// in-process TTL cache for single-node deployments and a Redis-backed cache
// for sharing verdicts across instances.
package cache

import (
	"context"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/keyforge/keyforge/internal/domain/service"
)

// MemoryCache is a TTL-bounded in-process cache mapping validation
// fingerprints to boolean verdicts. Safe for concurrent readers and writers.
// Hit/miss counters are monotonic for the process lifetime and reset only by
// Clear. The cache is bounded by entry expiry only; no max-size eviction.
type MemoryCache struct {
	store  *gocache.Cache
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewMemoryCache returns an empty MemoryCache. Expired entries are purged in
// the background every cleanup interval; between purges they are treated as
// absent on read.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		store: gocache.New(gocache.NoExpiration, 10*time.Minute),
	}
}

// Get returns the cached verdict for the fingerprint, if a live entry exists.
func (c *MemoryCache) Get(ctx context.Context, fingerprint string) (bool, bool, error) {
	val, found := c.store.Get(fingerprint)
	if !found {
		c.misses.Add(1)
		return false, false, nil
	}
	c.hits.Add(1)
	return val.(bool), true, nil
}

// Put stores a verdict under the fingerprint with the given TTL.
func (c *MemoryCache) Put(ctx context.Context, fingerprint string, result bool, ttl time.Duration) error {
	c.store.Set(fingerprint, result, ttl)
	return nil
}

// Clear empties the cache and resets the counters.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.store.Flush()
	c.hits.Store(0)
	c.misses.Store(0)
	return nil
}

// Stats reports the counters and current entry count.
func (c *MemoryCache) Stats() service.CacheStats {
	return service.CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   c.store.ItemCount(),
	}
}

var _ service.ValidationCache = (*MemoryCache)(nil)
