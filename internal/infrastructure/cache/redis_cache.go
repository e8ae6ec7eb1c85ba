package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/keyforge/keyforge/internal/domain/service"
	"github.com/keyforge/keyforge/pkg/errors"
	"github.com/keyforge/keyforge/pkg/logger"
)

const redisKeyPrefix = "keyforge:validation:"

// RedisCache shares validation verdicts across service instances. Redis
// handles TTL expiry; the hit/miss counters remain per-process. Backend
// failures surface as cache-failure errors, which the validator treats as
// non-fatal.
type RedisCache struct {
	client redis.UniversalClient
	log    logger.Logger
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewRedisCache wraps an existing Redis client.
func NewRedisCache(client redis.UniversalClient, log logger.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		log:    log.WithComponent("RedisCache"),
	}
}

// Get returns the cached verdict for the fingerprint, if a live entry exists.
func (c *RedisCache) Get(ctx context.Context, fingerprint string) (bool, bool, error) {
	val, err := c.client.Get(ctx, redisKeyPrefix+fingerprint).Result()
	if err == redis.Nil {
		c.misses.Add(1)
		return false, false, nil
	}
	if err != nil {
		return false, false, errors.ErrCacheFailure(err)
	}
	c.hits.Add(1)
	return val == "1", true, nil
}

// Put stores a verdict under the fingerprint with the given TTL.
func (c *RedisCache) Put(ctx context.Context, fingerprint string, result bool, ttl time.Duration) error {
	val := "0"
	if result {
		val = "1"
	}
	if err := c.client.Set(ctx, redisKeyPrefix+fingerprint, val, ttl).Err(); err != nil {
		return errors.ErrCacheFailure(err)
	}
	return nil
}

// Clear deletes every cached verdict and resets the counters.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return errors.ErrCacheFailure(err)
		}
	}
	if err := iter.Err(); err != nil {
		return errors.ErrCacheFailure(err)
	}
	c.hits.Store(0)
	c.misses.Store(0)
	return nil
}

// Stats reports the per-process counters and the current entry count. The
// size scan is bounded and best-effort; a backend failure reports size zero.
func (c *RedisCache) Stats() service.CacheStats {
	stats := service.CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	iter := c.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		stats.Size++
	}
	if err := iter.Err(); err != nil {
		c.log.Warn(ctx, "failed to size validation cache", logger.Fields{"error": err.Error()})
	}
	return stats
}

var _ service.ValidationCache = (*RedisCache)(nil)
