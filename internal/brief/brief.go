// Package brief assembles the bounded markdown "what was I doing?"
// document handed back to an agent resuming work.
package brief

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/swarmdeck/core/internal/store"
)

const (
	defaultMaxTokens = 2000
	minMaxTokens     = 100
	maxMaxTokens     = 8000
	defaultHistory   = 10
	maxHistory       = 50
	charsPerToken    = 3.5
)

// Request parameterizes Generate.
type Request struct {
	SessionID       string
	AgentID         string
	AgentType       string
	MaxTokens       int
	HistoryLimit    int
	IncludeHistory  bool
	IncludeMessages bool
	IncludeBlocking bool
	PrependSummary  string // non-empty for the compact/restore "Previous Context Summary" section

	// RestoredActiveTasks and RestoredModifiedFiles carry the
	// active_tasks/modified_files payload of a compaction snapshot
	// through to the rendered brief; both are nil outside a
	// compact/restore call.
	RestoredActiveTasks   []map[string]any
	RestoredModifiedFiles []string
}

// Brief is the generated document plus its provenance.
type Brief struct {
	Content     string   `json:"content"`
	TokenCount  int      `json:"token_count"`
	Truncated   bool     `json:"truncated"`
	GeneratedAt string   `json:"generated_at"`
	Sources     []string `json:"sources"`
}

// clampInt bounds v to [lo, hi], substituting def when v <= 0.
func clampInt(v, def, lo, hi int) int {
	if v <= 0 {
		v = def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Generate assembles a Brief for req. It is a pure function of the
// current database snapshot: no package-level state, safe for
// concurrent callers, and performs no caching.
func Generate(ctx context.Context, s *store.Store, req Request) (*Brief, error) {
	maxTokens := clampInt(req.MaxTokens, defaultMaxTokens, minMaxTokens, maxMaxTokens)
	historyLimit := clampInt(req.HistoryLimit, defaultHistory, 1, maxHistory)

	var sources []string

	activeSubtasks, err := s.ListSubtasks(ctx, store.SubtaskFilter{AgentID: req.AgentID})
	if err != nil {
		return nil, fmt.Errorf("failed to load active subtasks: %w", err)
	}
	activeSubtasks = filterActiveSubtasks(activeSubtasks)
	sources = append(sources, "subtasks")

	var messages []*store.AgentMessage
	if req.IncludeMessages {
		messages, err = s.GetMessagesForAgent(ctx, req.AgentID, store.MessageFilter{})
		if err != nil {
			return nil, fmt.Errorf("failed to load unread messages: %w", err)
		}
		sources = append(sources, "messages")
	}

	var blockings []*store.Blocking
	if req.IncludeBlocking {
		blockings, err = s.GetBlockingsForAgent(ctx, req.AgentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load blockings: %w", err)
		}
		sources = append(sources, "blocking")
	}

	var actions []*store.Action
	if req.IncludeHistory {
		actions, err = s.ListActions(ctx, store.ActionFilter{SessionID: req.SessionID, Limit: historyLimit})
		if err != nil {
			return nil, fmt.Errorf("failed to load recent actions: %w", err)
		}
		sources = append(sources, "actions")
	}

	session, err := s.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	sources = append(sources, "session")

	var project *store.Project
	if session.ProjectID != nil {
		project, err = s.GetProject(ctx, *session.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to load project: %w", err)
		}
		sources = append(sources, "project")
	}

	if len(req.RestoredActiveTasks) > 0 || len(req.RestoredModifiedFiles) > 0 {
		sources = append(sources, "compaction")
	}

	lines := renderTemplate(req, session, project, activeSubtasks, messages, blockings, actions)

	content, truncated := applyTokenBudget(lines, maxTokens)

	return &Brief{
		Content:     content,
		TokenCount:  tokenCount(content),
		Truncated:   truncated,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Sources:     sources,
	}, nil
}

func filterActiveSubtasks(subtasks []*store.Subtask) []*store.Subtask {
	var out []*store.Subtask
	for _, st := range subtasks {
		switch st.Status {
		case store.SubtaskRunning, store.SubtaskPaused, store.SubtaskBlocked:
			out = append(out, st)
		}
	}
	return out
}

func tokenCount(content string) int {
	return int(math.Ceil(float64(len(content)) / charsPerToken))
}

// applyTokenBudget joins lines and, if over budget, drops non-header
// lines from the end until within budget, then appends a truncation
// notice. Header lines (starting with "#") are always retained.
func applyTokenBudget(lines []string, maxTokens int) (string, bool) {
	content := strings.Join(lines, "\n")
	if tokenCount(content) <= maxTokens {
		return content, false
	}

	kept := make([]string, len(lines))
	copy(kept, lines)
	truncated := false
	for tokenCount(strings.Join(kept, "\n")) > maxTokens && len(kept) > 0 {
		idx := lastNonHeaderIndex(kept)
		if idx < 0 {
			break
		}
		kept = append(kept[:idx], kept[idx+1:]...)
		truncated = true
	}
	if truncated {
		kept = append(kept, "", "_[content truncated to fit token budget]_")
	}
	return strings.Join(kept, "\n"), truncated
}

func lastNonHeaderIndex(lines []string) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if !strings.HasPrefix(lines[i], "#") {
			return i
		}
	}
	return -1
}
