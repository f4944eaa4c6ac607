// Package providers ships the concrete data-source adapters that make the
// oracle runnable end to end: price feeds, weather, knowledge, news, and a
// generic HTTP passthrough. The fanout/consensus/audit pipeline itself
// treats provider-specific URL/selector logic as implementation detail
// (spec §1); these adapters are that detail, each satisfying
// provider.Provider.
package providers

import (
	"sync"
	"time"
)

// tokenBucket is a small dependency-free self-throttle a provider can
// embed when it doesn't need x/time/rate's richer burst semantics.
// Grounded on the teacher's llm/tools/ratelimit.go TokenBucketLimiter,
// trimmed to the single Allow/Wait operations a provider's Fetch needs.
type tokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	tokens     float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

// newTokenBucket builds a bucket holding capacity tokens, refilled at
// refillRate tokens/sec, starting full.
func newTokenBucket(capacity float64, refillRate float64) *tokenBucket {
	return &tokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (b *tokenBucket) refillLocked() {
	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens += elapsed * b.refillRate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}

// Allow reports whether a request may proceed right now, consuming one
// token if so.
func (b *tokenBucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// WaitDuration reports how long the caller would need to wait for a
// token to become available, given the current fill level. A provider
// under rate pressure self-throttles up to its own fetch deadline, per
// spec §9, rather than blocking unconditionally.
func (b *tokenBucket) WaitDuration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	if b.tokens >= 1 {
		return 0
	}
	needed := 1 - b.tokens
	return time.Duration(needed / b.refillRate * float64(time.Second))
}
