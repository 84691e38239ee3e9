package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/swarmdeck/core/internal/apierr"
)

// UpsertAgentContext creates or refreshes the live-state row for
// (projectID, agentID). agentType "compact-snapshot" is reserved for
// compact snapshots saved via SaveCompactSnapshot; callers here should
// never pass it directly.
func (s *Store) UpsertAgentContext(ctx context.Context, projectID, agentID, agentType string, roleContext map[string]any, skillsToRestore, toolsUsed []string, progressSummary string) (*AgentContext, error) {
	roleJSON, err := json.Marshal(roleContext)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal role_context: %w", err)
	}

	row := s.Pool.QueryRow(ctx, `
		INSERT INTO agent_contexts (project_id, agent_id, agent_type, role_context, skills_to_restore, tools_used, progress_summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (project_id, agent_id) DO UPDATE SET
			agent_type = EXCLUDED.agent_type,
			role_context = EXCLUDED.role_context,
			skills_to_restore = EXCLUDED.skills_to_restore,
			tools_used = EXCLUDED.tools_used,
			progress_summary = EXCLUDED.progress_summary
		RETURNING id, project_id, agent_id, agent_type, role_context, skills_to_restore, tools_used, progress_summary, last_updated
	`, projectID, agentID, agentType, roleJSON, skillsToRestore, toolsUsed, progressSummary)

	ac, scanErr := scanAgentContext(row)
	if scanErr != nil {
		if isForeignKeyViolation(scanErr) {
			return nil, apierr.NotFound("project", projectID)
		}
		return nil, scanErr
	}
	return ac, nil
}

// ListAgentContexts returns live agent-state rows (excludes compact
// snapshots) for GET /agent-contexts.
func (s *Store) ListAgentContexts(ctx context.Context, projectID string) ([]*AgentContext, error) {
	query := `
		SELECT id, project_id, agent_id, agent_type, role_context, skills_to_restore, tools_used, progress_summary, last_updated
		FROM agent_contexts WHERE agent_type <> $1
	`
	args := []any{CompactSnapshotAgentType}
	if projectID != "" {
		args = append(args, projectID)
		query += fmt.Sprintf(" AND project_id = $%d", len(args))
	}
	query += " ORDER BY last_updated DESC"

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list agent contexts: %w", err)
	}
	defer rows.Close()

	var out []*AgentContext
	for rows.Next() {
		ac, err := scanAgentContext(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ac)
	}
	return out, rows.Err()
}

// GetAgentContext returns the live-state row for agentID, used by
// GET /context/{agent_id} to answer "what was this agent doing".
func (s *Store) GetAgentContext(ctx context.Context, agentID string) (*AgentContext, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, project_id, agent_id, agent_type, role_context, skills_to_restore, tools_used, progress_summary, last_updated
		FROM agent_contexts WHERE agent_id = $1 AND agent_type <> $2
		ORDER BY last_updated DESC LIMIT 1
	`, agentID, CompactSnapshotAgentType)

	ac, err := scanAgentContext(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.NotFound("agent_context", agentID)
	}
	return ac, err
}

// AgentContextStats summarizes the live agent_contexts population for
// GET /agent-contexts/stats.
type AgentContextStats struct {
	TotalAgents   int            `json:"total_agents"`
	ByAgentType   map[string]int `json:"by_agent_type"`
	SnapshotCount int            `json:"snapshot_count"`
}

// GetAgentContextStats computes AgentContextStats.
func (s *Store) GetAgentContextStats(ctx context.Context) (*AgentContextStats, error) {
	stats := &AgentContextStats{ByAgentType: map[string]int{}}

	rows, err := s.Pool.Query(ctx, `
		SELECT agent_type, count(*) FROM agent_contexts WHERE agent_type <> $1 GROUP BY agent_type
	`, CompactSnapshotAgentType)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate agent contexts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var agentType string
		var count int
		if err := rows.Scan(&agentType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan agent context stat: %w", err)
		}
		stats.ByAgentType[agentType] = count
		stats.TotalAgents += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = s.Pool.QueryRow(ctx, `SELECT count(*) FROM agent_contexts WHERE agent_type = $1`, CompactSnapshotAgentType).
		Scan(&stats.SnapshotCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count snapshots: %w", err)
	}
	return stats, nil
}

// CompactSnapshot is the pre-compaction payload saved via SaveCompactSnapshot.
type CompactSnapshot struct {
	SessionID      string           `json:"session_id"`
	Trigger        string           `json:"trigger"`
	ContextSummary string           `json:"context_summary"`
	ActiveTasks    []map[string]any `json:"active_tasks"`
	ModifiedFiles  []string         `json:"modified_files"`
	KeyDecisions   []string         `json:"key_decisions"`
	AgentStates    []map[string]any `json:"agent_states"`
}

// SaveCompactSnapshot stores snapshot as the AgentContext row keyed by
// (projectID, "compact-snapshot:"+sessionID), agent_type="compact-snapshot",
// role_context = entire payload. Upsert guarantees exactly one current
// snapshot per session.
func (s *Store) SaveCompactSnapshot(ctx context.Context, projectID, sessionID string, snapshot CompactSnapshot) (*AgentContext, error) {
	payload, err := structToMap(snapshot)
	if err != nil {
		return nil, err
	}
	agentID := CompactSnapshotAgentPrefix + sessionID
	return s.UpsertAgentContext(ctx, projectID, agentID, CompactSnapshotAgentType, payload, nil, nil, "")
}

// GetCompactSnapshot returns the raw stored snapshot for sessionID, or
// apierr.NotFound if none has been saved.
func (s *Store) GetCompactSnapshot(ctx context.Context, sessionID string) (*AgentContext, error) {
	agentID := CompactSnapshotAgentPrefix + sessionID
	row := s.Pool.QueryRow(ctx, `
		SELECT id, project_id, agent_id, agent_type, role_context, skills_to_restore, tools_used, progress_summary, last_updated
		FROM agent_contexts WHERE agent_id = $1 AND agent_type = $2
	`, agentID, CompactSnapshotAgentType)
	ac, err := scanAgentContext(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.NotFound("compact-snapshot", sessionID)
	}
	return ac, err
}

// CompactStatus answers GET /compact/status/{sid}.
type CompactStatus struct {
	Exists         bool       `json:"exists"`
	Compacted      bool       `json:"compacted"`
	CompactedAt    *time.Time `json:"compacted_at,omitempty"`
	CompactSummary string     `json:"compact_summary,omitempty"`
	CompactAgent   string     `json:"compact_agent,omitempty"`
}

// GetCompactStatus reports whether sessionID has a snapshot and whether
// the session has been marked compacted (recorded in its metadata).
func (s *Store) GetCompactStatus(ctx context.Context, sessionID string) (*CompactStatus, error) {
	status := &CompactStatus{}

	if _, err := s.GetCompactSnapshot(ctx, sessionID); err == nil {
		status.Exists = true
	} else if !isNotFound(err) {
		return nil, err
	}

	sess, err := s.GetSession(ctx, sessionID)
	if err != nil {
		if isNotFound(err) {
			return status, nil
		}
		return nil, err
	}
	if sess.Metadata != nil {
		if compacted, ok := sess.Metadata["compacted"]; ok && compacted == "true" {
			status.Compacted = true
		}
		status.CompactSummary = sess.Metadata["compact_summary"]
		status.CompactAgent = sess.Metadata["compact_agent"]
		if ts, ok := sess.Metadata["compacted_at"]; ok {
			if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
				status.CompactedAt = &parsed
			}
		}
	}
	return status, nil
}

// MarkSessionCompacted records the compaction event in the session's
// metadata, for the restore path.
func (s *Store) MarkSessionCompacted(ctx context.Context, sessionID, agentID, compactSummary string) error {
	meta := map[string]string{
		"compacted":       "true",
		"compacted_at":    time.Now().UTC().Format(time.RFC3339),
		"compact_agent":   agentID,
		"compact_summary": compactSummary,
	}
	_, err := s.UpdateSession(ctx, sessionID, UpdateSessionPatch{Metadata: meta})
	return err
}

func isNotFound(err error) bool {
	var apiErr *apierr.Error
	return errors.As(err, &apiErr) && apiErr.Kind == apierr.KindNotFound
}

func structToMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal: %w", err)
	}
	return out, nil
}

func scanAgentContext(row rowScanner) (*AgentContext, error) {
	var ac AgentContext
	var roleJSON []byte
	if err := row.Scan(&ac.ID, &ac.ProjectID, &ac.AgentID, &ac.AgentType, &roleJSON,
		&ac.SkillsToRestore, &ac.ToolsUsed, &ac.ProgressSummary, &ac.LastUpdated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan agent context: %w", err)
	}
	if len(roleJSON) > 0 {
		_ = json.Unmarshal(roleJSON, &ac.RoleContext)
	}
	return &ac, nil
}
