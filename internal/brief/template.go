package brief

import (
	"fmt"
	"strings"

	"github.com/swarmdeck/core/internal/store"
)

// templateKind selects a rendering style by agent_type substring match.
type templateKind int

const (
	templateOrchestrator templateKind = iota
	templateDeveloper
	templateSpecialist
	templateValidator
)

func selectTemplate(agentType string) templateKind {
	lower := strings.ToLower(agentType)
	switch {
	case strings.Contains(lower, "orchestrator"), strings.Contains(lower, "tech-lead"):
		return templateOrchestrator
	case strings.Contains(lower, "developer"), strings.Contains(lower, "backend"), strings.Contains(lower, "frontend"):
		return templateDeveloper
	case strings.Contains(lower, "specialist"):
		return templateSpecialist
	default:
		return templateValidator
	}
}

func renderTemplate(req Request, session *store.Session, project *store.Project,
	subtasks []*store.Subtask, messages []*store.AgentMessage, blockings []*store.Blocking, actions []*store.Action) []string {

	var lines []string
	lines = append(lines, fmt.Sprintf("# Context Brief — %s", req.AgentID))

	if req.PrependSummary != "" {
		lines = append(lines, "", "## Previous Context Summary", req.PrependSummary)
	}

	if len(req.RestoredActiveTasks) > 0 || len(req.RestoredModifiedFiles) > 0 {
		lines = append(lines, renderRestoredSnapshot(req.RestoredActiveTasks, req.RestoredModifiedFiles)...)
	}

	lines = append(lines, "", "## Session", fmt.Sprintf("- session_id: %s", session.ID))
	if project != nil {
		lines = append(lines, fmt.Sprintf("- project: %s (%s)", project.Name, project.Path))
	}
	lines = append(lines, fmt.Sprintf("- tools used: %d (success %d, errors %d)", session.TotalToolsUsed, session.TotalSuccess, session.TotalErrors))

	switch selectTemplate(req.AgentType) {
	case templateOrchestrator:
		lines = append(lines, renderOrchestrator(subtasks)...)
	case templateDeveloper:
		lines = append(lines, renderDeveloper(subtasks, actions)...)
	case templateSpecialist:
		lines = append(lines, renderSpecialist(subtasks)...)
	default:
		lines = append(lines, renderValidator(subtasks, blockings)...)
	}

	if req.IncludeMessages {
		lines = append(lines, renderMessages(messages)...)
	}
	if req.IncludeBlocking {
		lines = append(lines, renderBlockings(blockings)...)
	}
	if req.IncludeHistory {
		lines = append(lines, renderHistory(actions)...)
	}

	return lines
}

// renderRestoredSnapshot surfaces the active_tasks/modified_files a
// compaction snapshot was saved with, which live DB state alone can't
// reconstruct (the subtasks/actions it referred to may since have moved
// on or been pruned).
func renderRestoredSnapshot(tasks []map[string]any, files []string) []string {
	lines := []string{"", "## Restored From Compaction"}
	if len(tasks) > 0 {
		lines = append(lines, "", "### Active Tasks At Save Time")
		for _, t := range tasks {
			id, _ := t["id"].(string)
			desc, _ := t["description"].(string)
			switch {
			case id != "" && desc != "":
				lines = append(lines, fmt.Sprintf("- %s: %s", id, desc))
			case id != "":
				lines = append(lines, fmt.Sprintf("- %s", id))
			default:
				lines = append(lines, fmt.Sprintf("- %v", t))
			}
		}
	}
	if len(files) > 0 {
		lines = append(lines, "", "### Modified Files At Save Time")
		for _, f := range files {
			lines = append(lines, fmt.Sprintf("- %s", f))
		}
	}
	return lines
}

func renderOrchestrator(subtasks []*store.Subtask) []string {
	lines := []string{"", "## Wave Summary", "", "Cross-agent status across active subtasks:"}
	byStatus := map[store.SubtaskStatus]int{}
	for _, st := range subtasks {
		byStatus[st.Status]++
	}
	if len(subtasks) == 0 {
		lines = append(lines, "- no active subtasks")
		return lines
	}
	for status, count := range byStatus {
		lines = append(lines, fmt.Sprintf("- %s: %d", status, count))
	}
	return lines
}

func renderDeveloper(subtasks []*store.Subtask, actions []*store.Action) []string {
	lines := []string{"", "## Current Task"}
	if len(subtasks) == 0 {
		lines = append(lines, "- no active subtask assigned")
	}
	for _, st := range subtasks {
		lines = append(lines, fmt.Sprintf("- %s (%s): %s", st.ID, st.Status, st.Description))
	}
	lines = append(lines, "", "## Recent File Edits")
	seen := map[string]struct{}{}
	count := 0
	for _, a := range actions {
		for _, fp := range a.FilePaths {
			if _, ok := seen[fp]; ok {
				continue
			}
			seen[fp] = struct{}{}
			lines = append(lines, fmt.Sprintf("- %s", fp))
			count++
		}
	}
	if count == 0 {
		lines = append(lines, "- no recent file edits recorded")
	}
	return lines
}

func renderSpecialist(subtasks []*store.Subtask) []string {
	lines := []string{"", "## Assigned Work"}
	if len(subtasks) == 0 {
		lines = append(lines, "- no active subtasks")
	}
	for _, st := range subtasks {
		lines = append(lines, fmt.Sprintf("- %s (%s): %s", st.ID, st.Status, st.Description))
	}
	return lines
}

func renderValidator(subtasks []*store.Subtask, blockings []*store.Blocking) []string {
	lines := []string{"", "## Items to Validate"}
	if len(subtasks) == 0 {
		lines = append(lines, "- no active subtasks")
	}
	for _, st := range subtasks {
		lines = append(lines, fmt.Sprintf("- %s (%s): %s", st.ID, st.Status, st.Description))
	}
	return lines
}

func renderMessages(messages []*store.AgentMessage) []string {
	lines := []string{"", "## Unread Messages"}
	if len(messages) == 0 {
		lines = append(lines, "- none")
		return lines
	}
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("- [%s] from %s: %v", m.Topic, m.FromAgent, m.Payload))
	}
	return lines
}

func renderBlockings(blockings []*store.Blocking) []string {
	lines := []string{"", "## Active Blockings"}
	if len(blockings) == 0 {
		lines = append(lines, "- none")
		return lines
	}
	for _, b := range blockings {
		lines = append(lines, fmt.Sprintf("- %s blocked by %s: %s", b.Blocked, b.Blocker, b.Reason))
	}
	return lines
}

func renderHistory(actions []*store.Action) []string {
	lines := []string{"", "## Recent Actions"}
	if len(actions) == 0 {
		lines = append(lines, "- none")
		return lines
	}
	for _, a := range actions {
		lines = append(lines, fmt.Sprintf("- %s (%s) exit=%d", a.ToolName, a.ToolType, a.ExitCode))
	}
	return lines
}
