package store

import (
	"strings"
	"testing"
)

func TestTokenizeDropsStopwordsAndShortTokens(t *testing.T) {
	got := Tokenize("Fix the bug in the auth flow for a new user")
	want := []string{"fix", "bug", "auth", "flow", "new", "user"}

	if len(got) != len(want) {
		t.Fatalf("Tokenize() = %v, want %v", got, want)
	}
	for i, tok := range want {
		if got[i] != tok {
			t.Errorf("Tokenize()[%d] = %q, want %q", i, got[i], tok)
		}
	}
}

func TestTokenizeDeduplicates(t *testing.T) {
	got := Tokenize("retry retry retry the request request")
	if len(got) != 2 {
		t.Fatalf("expected 2 unique tokens, got %v", got)
	}
}

func TestClampBoundsScore(t *testing.T) {
	if Clamp(0) != MinScore {
		t.Errorf("Clamp(0) = %v, want %v", Clamp(0), MinScore)
	}
	if Clamp(100) != MaxScore {
		t.Errorf("Clamp(100) = %v, want %v", Clamp(100), MaxScore)
	}
	if Clamp(2.5) != 2.5 {
		t.Errorf("Clamp(2.5) = %v, want 2.5", Clamp(2.5))
	}
}

func TestScoreFromCountsIsMonotonicInSuccessRate(t *testing.T) {
	low := scoreFromCounts(1, 10)
	high := scoreFromCounts(9, 10)
	if !(high > low) {
		t.Errorf("expected higher success rate to score higher: low=%v high=%v", low, high)
	}
}

func TestScoreFromCountsRewardsUsageAtEqualRate(t *testing.T) {
	small := scoreFromCounts(5, 10)
	large := scoreFromCounts(50, 100)
	if !(large > small) {
		t.Errorf("expected equal-rate higher-usage tool to score higher: small=%v large=%v", small, large)
	}
}

func TestScoreFromCountsDefaultsWhenUnused(t *testing.T) {
	if got := scoreFromCounts(0, 0); got != 1.0 {
		t.Errorf("scoreFromCounts(0, 0) = %v, want 1.0", got)
	}
}

func TestCompatOutputFormatsOneLinePerSuggestion(t *testing.T) {
	out := CompatOutput([]RoutingSuggestion{
		{ToolName: "ripgrep", ToolType: ToolBuiltin, Score: 3.5, UsageCount: 12},
		{ToolName: "code-reviewer", ToolType: ToolAgent, Score: 1.0, UsageCount: 1},
	})

	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out)
	}
	if lines[0] != "ripgrep|builtin|3.50|12" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "code-reviewer|agent|1.00|1" {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestCompatOutputEmptyInput(t *testing.T) {
	if out := CompatOutput(nil); out != "" {
		t.Errorf("CompatOutput(nil) = %q, want empty string", out)
	}
}
