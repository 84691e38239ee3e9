package store

import "testing"

func TestClampTTLSubstitutesDefaultForNonPositive(t *testing.T) {
	if got := ClampTTL(0); got != defaultTTLSeconds {
		t.Errorf("ClampTTL(0) = %d, want default %d", got, defaultTTLSeconds)
	}
	if got := ClampTTL(-5); got != defaultTTLSeconds {
		t.Errorf("ClampTTL(-5) = %d, want default %d", got, defaultTTLSeconds)
	}
}

func TestClampTTLBoundsToRange(t *testing.T) {
	if got := ClampTTL(maxTTLSeconds * 2); got != maxTTLSeconds {
		t.Errorf("ClampTTL(over max) = %d, want %d", got, maxTTLSeconds)
	}
	if got := ClampTTL(5); got != 5 {
		t.Errorf("ClampTTL(5) = %d, want 5", got)
	}
}

func TestClampPriorityBoundsToZeroTen(t *testing.T) {
	cases := map[int]int{-3: 0, 0: 0, 5: 5, 10: 10, 99: 10}
	for in, want := range cases {
		if got := ClampPriority(in); got != want {
			t.Errorf("ClampPriority(%d) = %d, want %d", in, got, want)
		}
	}
}
