// Package backpressure throttles callers that send more work than the
// service should accept.
package backpressure

import (
	"sync"
	"time"

	"github.com/rzzdr/quant-curve-engine/pkg/utils/logger"
)

// TokenBucketLimiter allows rate operations per second with bursts up to burst
type TokenBucketLimiter struct {
	rate       float64
	burst      int
	tokens     float64
	lastUpdate time.Time
	now        func() time.Time
	mutex      sync.Mutex
}

// NewTokenBucketLimiter creates a full bucket. Non-positive settings are raised to 1.
func NewTokenBucketLimiter(rate float64, burst int) *TokenBucketLimiter {
	if rate <= 0 {
		rate = 1.0
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucketLimiter{
		rate:       rate,
		burst:      burst,
		tokens:     float64(burst),
		lastUpdate: time.Now(),
		now:        time.Now,
	}
}

// Allow checks if a single operation is allowed
func (tb *TokenBucketLimiter) Allow() bool {
	return tb.AllowN(1)
}

// AllowN takes n tokens if they are all available
func (tb *TokenBucketLimiter) AllowN(n int) bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	if tb.tokens >= float64(n) {
		tb.tokens -= float64(n)
		return true
	}
	return false
}

// RetryAfter is how long until one token is available
func (tb *TokenBucketLimiter) RetryAfter() time.Duration {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	missing := 1 - tb.tokens
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing / tb.rate * float64(time.Second))
}

func (tb *TokenBucketLimiter) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastUpdate).Seconds()
	if elapsed <= 0 {
		return
	}
	tb.tokens += elapsed * tb.rate
	if tb.tokens > float64(tb.burst) {
		tb.tokens = float64(tb.burst)
	}
	tb.lastUpdate = now
}

// Limit returns the current rate limit
func (tb *TokenBucketLimiter) Limit() float64 {
	return tb.rate
}

// Burst returns the burst capacity
func (tb *TokenBucketLimiter) Burst() int {
	return tb.burst
}

// KeyedLimiter keeps one token bucket per key, such as a client address.
// Buckets idle for longer than idleTTL are dropped on the next sweep.
type KeyedLimiter struct {
	rate      float64
	burst     int
	idleTTL   time.Duration
	limiters  map[string]*keyedEntry
	lastSweep time.Time
	now       func() time.Time
	mutex     sync.Mutex
	log       *logger.Logger
}

type keyedEntry struct {
	limiter  *TokenBucketLimiter
	lastSeen time.Time
}

// NewKeyedLimiter creates a per-key limiter
func NewKeyedLimiter(rate float64, burst int, idleTTL time.Duration) *KeyedLimiter {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	kl := &KeyedLimiter{
		rate:     rate,
		burst:    burst,
		idleTTL:  idleTTL,
		limiters: make(map[string]*keyedEntry),
		now:      time.Now,
		log:      logger.GetLogger("backpressure.keyed"),
	}
	kl.lastSweep = kl.now()
	kl.log.Debugw("Keyed rate limiter created", "rate", rate, "burst", burst)
	return kl
}

// Allow takes a token from the bucket of key. When it is refused the
// returned duration says how long to wait.
func (kl *KeyedLimiter) Allow(key string) (bool, time.Duration) {
	kl.mutex.Lock()
	now := kl.now()
	if now.Sub(kl.lastSweep) > kl.idleTTL {
		kl.sweep(now)
	}
	entry, ok := kl.limiters[key]
	if !ok {
		tb := NewTokenBucketLimiter(kl.rate, kl.burst)
		tb.now = kl.now
		tb.lastUpdate = now
		entry = &keyedEntry{limiter: tb}
		kl.limiters[key] = entry
	}
	entry.lastSeen = now
	kl.mutex.Unlock()

	if entry.limiter.Allow() {
		return true, 0
	}
	return false, entry.limiter.RetryAfter()
}

func (kl *KeyedLimiter) sweep(now time.Time) {
	for key, entry := range kl.limiters {
		if now.Sub(entry.lastSeen) > kl.idleTTL {
			delete(kl.limiters, key)
		}
	}
	kl.lastSweep = now
}

// Len returns the number of tracked keys
func (kl *KeyedLimiter) Len() int {
	kl.mutex.Lock()
	defer kl.mutex.Unlock()
	return len(kl.limiters)
}
