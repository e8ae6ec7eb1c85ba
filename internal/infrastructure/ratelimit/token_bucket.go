// Package ratelimit provides an in-process token bucket rate limiter used to
// shield the validation endpoints from request floods.
package ratelimit

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/keyforge/keyforge/pkg/constants"
)

// TokenBucket is a thread-safe token bucket with lazy refill.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	rate       float64 // tokens added per second
	lastRefill time.Time
}

// NewTokenBucket creates a full bucket. Non-positive arguments fall back to
// the service defaults.
func NewTokenBucket(capacity, rate float64) *TokenBucket {
	if capacity <= 0 {
		capacity = float64(constants.DefaultRateLimitBurst)
	}
	if rate <= 0 {
		rate = float64(constants.DefaultRateLimitPerMinute) / 60.0
	}
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		rate:       rate,
		lastRefill: time.Now(),
	}
}

// Allow consumes one token if available.
func (tb *TokenBucket) Allow() bool {
	return tb.AllowN(1)
}

// AllowN consumes n tokens if available.
func (tb *TokenBucket) AllowN(n float64) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= n {
		tb.tokens -= n
		return true
	}
	return false
}

// refill must be called with the lock held.
func (tb *TokenBucket) refill() {
	now := time.Now()
	tb.tokens += now.Sub(tb.lastRefill).Seconds() * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}

// Available reports the current token count after a refill.
func (tb *TokenBucket) Available() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return tb.tokens
}

// RetryAfter reports how long until n tokens will be available.
func (tb *TokenBucket) RetryAfter(n float64) time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= n {
		return 0
	}
	return time.Duration((n - tb.tokens) / tb.rate * float64(time.Second))
}

// Pool manages one bucket per caller with idle cleanup.
type Pool struct {
	mu       sync.RWMutex
	buckets  map[string]*poolEntry
	capacity float64
	rate     float64
}

type poolEntry struct {
	bucket *TokenBucket
	// lastUsed holds Unix nanos; atomic because it is refreshed under the
	// pool's read lock, where many goroutines may touch the same entry.
	lastUsed atomic.Int64
}

func (e *poolEntry) touch() {
	e.lastUsed.Store(time.Now().UnixNano())
}

// NewPool creates a pool whose buckets share the given capacity and rate.
func NewPool(capacity, rate float64) *Pool {
	return &Pool{
		buckets:  make(map[string]*poolEntry),
		capacity: capacity,
		rate:     rate,
	}
}

// GetOrCreate returns the bucket for key, creating it on first use.
func (p *Pool) GetOrCreate(key string) *TokenBucket {
	p.mu.RLock()
	if entry, ok := p.buckets[key]; ok {
		entry.touch()
		p.mu.RUnlock()
		return entry.bucket
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if entry, ok := p.buckets[key]; ok {
		entry.touch()
		return entry.bucket
	}
	entry := &poolEntry{bucket: NewTokenBucket(p.capacity, p.rate)}
	entry.touch()
	p.buckets[key] = entry
	return entry.bucket
}

// Cleanup drops buckets idle for longer than maxIdle and returns how many
// were removed.
func (p *Pool) Cleanup(maxIdle time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now().UnixNano()
	removed := 0
	for key, entry := range p.buckets {
		if now-entry.lastUsed.Load() > maxIdle.Nanoseconds() {
			delete(p.buckets, key)
			removed++
		}
	}
	return removed
}

// Size reports the number of tracked buckets.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.buckets)
}
