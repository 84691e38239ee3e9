package brief

import (
	"strings"
	"testing"

	"github.com/swarmdeck/core/internal/store"
)

func TestClampIntSubstitutesDefaultForNonPositive(t *testing.T) {
	if got := clampInt(0, 2000, 100, 8000); got != 2000 {
		t.Errorf("clampInt(0, ...) = %d, want 2000", got)
	}
	if got := clampInt(-5, 2000, 100, 8000); got != 2000 {
		t.Errorf("clampInt(-5, ...) = %d, want 2000", got)
	}
}

func TestClampIntBoundsToRange(t *testing.T) {
	if got := clampInt(50, 2000, 100, 8000); got != 100 {
		t.Errorf("clampInt(50, ...) = %d, want 100 (floor)", got)
	}
	if got := clampInt(99999, 2000, 100, 8000); got != 8000 {
		t.Errorf("clampInt(99999, ...) = %d, want 8000 (ceiling)", got)
	}
	if got := clampInt(500, 2000, 100, 8000); got != 500 {
		t.Errorf("clampInt(500, ...) = %d, want 500 (unchanged)", got)
	}
}

func TestFilterActiveSubtasksKeepsOnlyInFlightStatuses(t *testing.T) {
	subtasks := []*store.Subtask{
		{ID: "1", Status: store.SubtaskPending},
		{ID: "2", Status: store.SubtaskRunning},
		{ID: "3", Status: store.SubtaskPaused},
		{ID: "4", Status: store.SubtaskBlocked},
		{ID: "5", Status: store.SubtaskCompleted},
	}

	got := filterActiveSubtasks(subtasks)
	if len(got) != 3 {
		t.Fatalf("expected 3 active subtasks, got %d", len(got))
	}
	ids := map[string]bool{}
	for _, st := range got {
		ids[st.ID] = true
	}
	for _, id := range []string{"2", "3", "4"} {
		if !ids[id] {
			t.Errorf("expected subtask %q to survive the filter", id)
		}
	}
}

func TestTokenCountScalesWithLength(t *testing.T) {
	short := tokenCount("hi")
	long := tokenCount(strings.Repeat("x", 1000))
	if long <= short {
		t.Errorf("expected longer content to have a higher token count: short=%d long=%d", short, long)
	}
}

func TestApplyTokenBudgetWithinBudgetIsUnchanged(t *testing.T) {
	lines := []string{"# Header", "one short line"}
	content, truncated := applyTokenBudget(lines, 8000)
	if truncated {
		t.Error("expected no truncation when well within budget")
	}
	if content != "# Header\none short line" {
		t.Errorf("unexpected content: %q", content)
	}
}

func TestApplyTokenBudgetTruncatesAndKeepsHeaders(t *testing.T) {
	lines := []string{"# Header"}
	for i := 0; i < 50; i++ {
		lines = append(lines, strings.Repeat("word ", 20))
	}

	content, truncated := applyTokenBudget(lines, 100)
	if !truncated {
		t.Fatal("expected content over budget to be truncated")
	}
	if !strings.HasPrefix(content, "# Header") {
		t.Error("expected the header line to survive truncation")
	}
	if !strings.Contains(content, "content truncated") {
		t.Error("expected a truncation notice to be appended")
	}
}

func TestLastNonHeaderIndexSkipsHeaders(t *testing.T) {
	lines := []string{"# Title", "body one", "## Subtitle", "body two"}
	if idx := lastNonHeaderIndex(lines); idx != 3 {
		t.Errorf("lastNonHeaderIndex() = %d, want 3", idx)
	}
}

func TestLastNonHeaderIndexAllHeadersReturnsNegativeOne(t *testing.T) {
	lines := []string{"# A", "## B"}
	if idx := lastNonHeaderIndex(lines); idx != -1 {
		t.Errorf("lastNonHeaderIndex() = %d, want -1", idx)
	}
}
