package auth

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsWithinBudget(t *testing.T) {
	rl := NewRateLimiter()
	for i := 0; i < mintRateLimit; i++ {
		if !rl.Allow("agent-1") {
			t.Fatalf("expected attempt %d to be allowed", i+1)
		}
	}
}

func TestRateLimiterBlocksOverBudget(t *testing.T) {
	rl := NewRateLimiter()
	for i := 0; i < mintRateLimit; i++ {
		rl.Allow("agent-1")
	}
	if rl.Allow("agent-1") {
		t.Fatal("expected attempt beyond the budget to be blocked")
	}
}

func TestRateLimiterTracksIdentitiesIndependently(t *testing.T) {
	rl := NewRateLimiter()
	for i := 0; i < mintRateLimit; i++ {
		rl.Allow("agent-1")
	}
	if !rl.Allow("agent-2") {
		t.Fatal("a different identity should not be affected by agent-1's budget")
	}
}

func TestRateLimiterExpiresOldAttempts(t *testing.T) {
	rl := NewRateLimiter()
	past := time.Now().Add(-mintRateWindow - time.Minute)
	rl.attempts["agent-1"] = make([]time.Time, mintRateLimit)
	for i := range rl.attempts["agent-1"] {
		rl.attempts["agent-1"][i] = past
	}

	if !rl.Allow("agent-1") {
		t.Fatal("expired attempts should not count against the current window")
	}
}
