package auth

import (
	"sync"
	"time"
)

const (
	mintRateLimit  = 10
	mintRateWindow = 15 * time.Minute
)

// RateLimiter tracks token-mint attempts per client identity within a
// sliding window, guarded by a single mutex (coarse locking, matching
// the bridge's in-memory registry idiom).
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

// NewRateLimiter builds an empty RateLimiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{attempts: map[string][]time.Time{}}
}

// Allow records an attempt for identity and reports whether it is within
// the mintRateLimit/mintRateWindow budget.
func (rl *RateLimiter) Allow(identity string) bool {
	now := time.Now()
	cutoff := now.Add(-mintRateWindow)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	kept := rl.attempts[identity][:0]
	for _, t := range rl.attempts[identity] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= mintRateLimit {
		rl.attempts[identity] = kept
		return false
	}
	rl.attempts[identity] = append(kept, now)
	return true
}
