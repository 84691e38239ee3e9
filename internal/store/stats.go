package store

import (
	"context"
	"fmt"
)

// GlobalStats backs GET /stats.
type GlobalStats struct {
	Projects       int `json:"projects"`
	Sessions       int `json:"sessions"`
	ActiveSessions int `json:"active_sessions"`
	Requests       int `json:"requests"`
	Tasks          int `json:"tasks"`
	Subtasks       int `json:"subtasks"`
	Actions        int `json:"actions"`
}

// GetGlobalStats computes coarse counts across the core tables.
func (s *Store) GetGlobalStats(ctx context.Context) (*GlobalStats, error) {
	var st GlobalStats
	err := s.Pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM projects),
			(SELECT count(*) FROM sessions),
			(SELECT count(*) FROM sessions WHERE ended_at IS NULL),
			(SELECT count(*) FROM requests),
			(SELECT count(*) FROM tasks),
			(SELECT count(*) FROM subtasks),
			(SELECT count(*) FROM actions)
	`).Scan(&st.Projects, &st.Sessions, &st.ActiveSessions, &st.Requests, &st.Tasks, &st.Subtasks, &st.Actions)
	if err != nil {
		return nil, fmt.Errorf("failed to compute global stats: %w", err)
	}
	return &st, nil
}

// ToolSummary is one row of GET /stats/tools-summary.
type ToolSummary struct {
	ToolName     string  `json:"tool_name"`
	ToolType     string  `json:"tool_type"`
	UsageCount   int     `json:"usage_count"`
	SuccessCount int     `json:"success_count"`
	AvgDuration  float64 `json:"avg_duration_ms"`
}

// GetToolsSummary aggregates actions by tool_name for GET /stats/tools-summary.
func (s *Store) GetToolsSummary(ctx context.Context) ([]ToolSummary, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT tool_name, tool_type, count(*), count(*) FILTER (WHERE exit_code = 0), COALESCE(avg(duration_ms), 0)
		FROM actions
		GROUP BY tool_name, tool_type
		ORDER BY count(*) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute tools summary: %w", err)
	}
	defer rows.Close()

	var out []ToolSummary
	for rows.Next() {
		var t ToolSummary
		if err := rows.Scan(&t.ToolName, &t.ToolType, &t.UsageCount, &t.SuccessCount, &t.AvgDuration); err != nil {
			return nil, fmt.Errorf("failed to scan tool summary: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DashboardKPIs backs GET /api/dashboard/kpis.
type DashboardKPIs struct {
	ActiveAgents    int `json:"active_agents"`
	UnreadMessages  int `json:"unread_messages"`
	RunningSubtasks int `json:"running_subtasks"`
	BlockedSubtasks int `json:"blocked_subtasks"`
	ActionsLastHour int `json:"actions_last_hour"`
}

// GetDashboardKPIs computes DashboardKPIs by querying the active_agents
// and unread_messages views plus a couple of direct aggregates.
func (s *Store) GetDashboardKPIs(ctx context.Context) (*DashboardKPIs, error) {
	var kpis DashboardKPIs
	err := s.Pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM active_agents),
			(SELECT count(*) FROM unread_messages),
			(SELECT count(*) FROM subtasks WHERE status = 'running'),
			(SELECT count(*) FROM subtasks WHERE status = 'blocked'),
			(SELECT count(*) FROM actions WHERE created_at > now() - interval '1 hour')
	`).Scan(&kpis.ActiveAgents, &kpis.UnreadMessages, &kpis.RunningSubtasks, &kpis.BlockedSubtasks, &kpis.ActionsLastHour)
	if err != nil {
		return nil, fmt.Errorf("failed to compute dashboard kpis: %w", err)
	}
	return &kpis, nil
}
