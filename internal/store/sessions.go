package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/swarmdeck/core/internal/apierr"
	"github.com/swarmdeck/core/internal/notify"
)

// CreateSession inserts a new session row. Duplicate ids are rejected
// with a conflict rather than silently reused. Emits session.created on
// commit.
func (s *Store) CreateSession(ctx context.Context, id, projectID string) (*Session, error) {
	var projectIDArg any
	if projectID != "" {
		projectIDArg = projectID
	}

	var sess *Session
	txErr := s.withTx(ctx, func(ctx context.Context, tx pgx.Tx) ([]notify.Notification, error) {
		row := tx.QueryRow(ctx, `
			INSERT INTO sessions (id, project_id)
			VALUES ($1, $2)
			RETURNING id, project_id, started_at, ended_at, total_tools_used, total_success, total_errors, metadata
		`, id, projectIDArg)

		created, err := scanSession(row)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, apierr.Conflict(fmt.Sprintf("session already exists: %s", id))
			}
			if isForeignKeyViolation(err) {
				return nil, apierr.NotFound("project", projectID)
			}
			return nil, err
		}
		sess = created

		return []notify.Notification{{
			Channels: []string{notify.ChannelGlobal, notify.SessionChannel(created.ID)},
			Event:    "session.created",
			Data: map[string]any{
				"id": created.ID, "project_id": created.ProjectID, "started_at": created.StartedAt,
			},
		}}, nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return sess, nil
}

// GetSession fetches a session by id.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, project_id, started_at, ended_at, total_tools_used, total_success, total_errors, metadata
		FROM sessions WHERE id = $1
	`, id)
	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.NotFound("session", id)
	}
	return sess, err
}

// ListSessions returns sessions newest-first.
func (s *Store) ListSessions(ctx context.Context, limit, offset int) ([]*Session, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, project_id, started_at, ended_at, total_tools_used, total_success, total_errors, metadata
		FROM sessions ORDER BY started_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// UpdateSessionPatch applies a partial update. Setting endedAt is one-shot
// in spirit but not enforced here beyond "only set if provided"; callers
// decide whether to overwrite.
type UpdateSessionPatch struct {
	EndedAt  *time.Time
	Metadata map[string]string
}

// UpdateSession applies patch to session id.
func (s *Store) UpdateSession(ctx context.Context, id string, patch UpdateSessionPatch) (*Session, error) {
	var metaJSON []byte
	var err error
	if patch.Metadata != nil {
		metaJSON, err = json.Marshal(patch.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	row := s.Pool.QueryRow(ctx, `
		UPDATE sessions SET
			ended_at = COALESCE($2, ended_at),
			metadata = CASE WHEN $3::jsonb IS NOT NULL THEN metadata || $3::jsonb ELSE metadata END
		WHERE id = $1
		RETURNING id, project_id, started_at, ended_at, total_tools_used, total_success, total_errors, metadata
	`, id, patch.EndedAt, metaJSON)

	sess, scanErr := scanSession(row)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return nil, apierr.NotFound("session", id)
	}
	return sess, scanErr
}

// DeleteSession removes a session; descendant requests/tasks/subtasks/
// actions cascade.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFound("session", id)
	}
	return nil
}

// SessionStats summarizes counters across all sessions, for GET /sessions/stats.
type SessionStats struct {
	TotalSessions  int `json:"total_sessions"`
	ActiveSessions int `json:"active_sessions"`
	TotalActions   int `json:"total_actions"`
}

// GetSessionStats computes the aggregate figures backing GET /sessions/stats.
func (s *Store) GetSessionStats(ctx context.Context) (*SessionStats, error) {
	var st SessionStats
	err := s.Pool.QueryRow(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE ended_at IS NULL),
			COALESCE(SUM(total_tools_used), 0)
		FROM sessions
	`).Scan(&st.TotalSessions, &st.ActiveSessions, &st.TotalActions)
	if err != nil {
		return nil, fmt.Errorf("failed to compute session stats: %w", err)
	}
	return &st, nil
}

// ActiveSessions lists sessions with no ended_at, for GET /active-sessions.
func (s *Store) ActiveSessions(ctx context.Context) ([]*Session, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, project_id, started_at, ended_at, total_tools_used, total_success, total_errors, metadata
		FROM sessions WHERE ended_at IS NULL ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	var metaJSON []byte
	if err := row.Scan(&sess.ID, &sess.ProjectID, &sess.StartedAt, &sess.EndedAt,
		&sess.TotalToolsUsed, &sess.TotalSuccess, &sess.TotalErrors, &metaJSON); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &sess.Metadata)
	}
	return &sess, nil
}
