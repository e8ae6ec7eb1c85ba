package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/keyforge/keyforge/internal/infrastructure/ratelimit"
	"github.com/keyforge/keyforge/internal/interfaces/http/dto"
	"github.com/keyforge/keyforge/pkg/errors"
)

// RateLimit applies a per-client token bucket keyed by client IP. Buckets
// idle for over an hour are dropped by a background sweep.
func RateLimit(requestsPerMinute, burst int) gin.HandlerFunc {
	pool := ratelimit.NewPool(float64(burst), float64(requestsPerMinute)/60.0)

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			pool.Cleanup(time.Hour)
		}
	}()

	return func(c *gin.Context) {
		bucket := pool.GetOrCreate(c.ClientIP())
		if !bucket.Allow() {
			retryAfter := bucket.RetryAfter(1)
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
			dto.SendError(c, errors.ErrRateLimited())
			c.Abort()
			return
		}
		c.Next()
	}
}
