package api

import (
	"sync"
	"time"
)

// RateLimiter is a token bucket refilled continuously up to maxTokens per
// minute.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillRate int
	lastRefill time.Time
	now        func() time.Time
}

func NewRateLimiter(maxTokensPerMinute int) *RateLimiter {
	return newRateLimiter(maxTokensPerMinute, time.Now)
}

func newRateLimiter(maxTokensPerMinute int, now func() time.Time) *RateLimiter {
	rl := &RateLimiter{
		maxTokens:  maxTokensPerMinute,
		refillRate: maxTokensPerMinute,
		lastRefill: now(),
		now:        now,
	}
	if maxTokensPerMinute > 0 {
		rl.tokens = maxTokensPerMinute
	}
	return rl
}

// Allow takes one token if available. A limiter with no budget allows
// everything.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.maxTokens <= 0 {
		return true
	}
	rl.refillTokens(rl.now())

	if rl.tokens <= 0 {
		return false
	}
	rl.tokens--
	return true
}

func (rl *RateLimiter) refillTokens(now time.Time) {
	elapsed := now.Sub(rl.lastRefill)
	if elapsed >= time.Minute {
		rl.tokens = rl.maxTokens
		rl.lastRefill = now
		return
	}

	tokensToAdd := int(float64(rl.refillRate) * elapsed.Seconds() / 60.0)
	if tokensToAdd > 0 {
		rl.tokens = min(rl.tokens+tokensToAdd, rl.maxTokens)
		rl.lastRefill = now
	}
}

// KeyedLimiter hands out one RateLimiter per key.
type KeyedLimiter struct {
	mu       sync.Mutex
	perMin   int
	limiters map[uint]*RateLimiter
	now      func() time.Time
}

func NewKeyedLimiter(perMinute int) *KeyedLimiter {
	return &KeyedLimiter{perMin: perMinute, limiters: make(map[uint]*RateLimiter), now: time.Now}
}

func (k *KeyedLimiter) Allow(key uint) bool {
	if k == nil {
		return true
	}
	k.mu.Lock()
	rl, ok := k.limiters[key]
	if !ok {
		rl = newRateLimiter(k.perMin, k.now)
		k.limiters[key] = rl
	}
	k.mu.Unlock()
	return rl.Allow()
}
