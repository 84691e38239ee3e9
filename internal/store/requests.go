package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/swarmdeck/core/internal/apierr"
	"github.com/swarmdeck/core/internal/notify"
)

// CreateRequest inserts a new request row under projectID/sessionID. Emits
// request.created on commit.
func (s *Store) CreateRequest(ctx context.Context, projectID, sessionID, prompt string, promptType PromptType, metadata map[string]string) (*Request, error) {
	if metadata == nil {
		metadata = map[string]string{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	var req *Request
	txErr := s.withTx(ctx, func(ctx context.Context, tx pgx.Tx) ([]notify.Notification, error) {
		row := tx.QueryRow(ctx, `
			INSERT INTO requests (project_id, session_id, prompt, prompt_type, metadata)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, project_id, session_id, prompt, prompt_type, status, metadata, created_at, updated_at, completed_at
		`, projectID, sessionID, prompt, string(promptType), metaJSON)

		r, scanErr := scanRequest(row)
		if scanErr != nil {
			if isForeignKeyViolation(scanErr) {
				return nil, apierr.Validation("unknown project_id or session_id", nil)
			}
			return nil, scanErr
		}
		req = r

		return []notify.Notification{{
			Channels: []string{notify.ChannelGlobal, notify.SessionChannel(r.SessionID)},
			Event:    "request.created",
			Data: map[string]any{
				"id": r.ID, "project_id": r.ProjectID, "session_id": r.SessionID,
				"prompt_type": string(r.PromptType), "status": string(r.Status),
			},
		}}, nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return req, nil
}

// GetRequest fetches a request by id.
func (s *Store) GetRequest(ctx context.Context, id string) (*Request, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, project_id, session_id, prompt, prompt_type, status, metadata, created_at, updated_at, completed_at
		FROM requests WHERE id = $1
	`, id)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.NotFound("request", id)
	}
	return req, err
}

// RequestFilter narrows ListRequests.
type RequestFilter struct {
	ProjectID string
	SessionID string
	Status    RequestStatus
	Limit     int
	Offset    int
}

// ListRequests returns requests matching filter, newest first.
func (s *Store) ListRequests(ctx context.Context, f RequestFilter) ([]*Request, error) {
	query := `SELECT id, project_id, session_id, prompt, prompt_type, status, metadata, created_at, updated_at, completed_at FROM requests WHERE 1=1`
	args := []any{}
	if f.ProjectID != "" {
		args = append(args, f.ProjectID)
		query += fmt.Sprintf(" AND project_id = $%d", len(args))
	}
	if f.SessionID != "" {
		args = append(args, f.SessionID)
		query += fmt.Sprintf(" AND session_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var out []*Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RequestPatch is a partial update to a request.
type RequestPatch struct {
	Status   *RequestStatus
	Metadata map[string]string
}

// PatchRequest applies patch. Terminal statuses set completed_at exactly
// once.
func (s *Store) PatchRequest(ctx context.Context, id string, patch RequestPatch) (*Request, error) {
	var metaJSON []byte
	var err error
	if patch.Metadata != nil {
		metaJSON, err = json.Marshal(patch.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
	}

	var statusArg any
	if patch.Status != nil {
		statusArg = string(*patch.Status)
	}

	row := s.Pool.QueryRow(ctx, `
		UPDATE requests SET
			status = COALESCE($2, status),
			metadata = CASE WHEN $3::jsonb IS NOT NULL THEN metadata || $3::jsonb ELSE metadata END,
			completed_at = CASE
				WHEN $2 IN ('completed', 'failed', 'cancelled') AND completed_at IS NULL THEN now()
				ELSE completed_at
			END,
			updated_at = now()
		WHERE id = $1
		RETURNING id, project_id, session_id, prompt, prompt_type, status, metadata, created_at, updated_at, completed_at
	`, id, statusArg, metaJSON)

	req, scanErr := scanRequest(row)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return nil, apierr.NotFound("request", id)
	}
	return req, scanErr
}

// DeleteRequest removes a request; descendant tasks/subtasks cascade.
func (s *Store) DeleteRequest(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFound("request", id)
	}
	return nil
}

func scanRequest(row rowScanner) (*Request, error) {
	var r Request
	var metaJSON []byte
	var promptType, status string
	if err := row.Scan(&r.ID, &r.ProjectID, &r.SessionID, &r.Prompt, &promptType, &status,
		&metaJSON, &r.CreatedAt, &r.UpdatedAt, &r.CompletedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan request: %w", err)
	}
	r.PromptType = PromptType(promptType)
	r.Status = RequestStatus(status)
	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &r.Metadata)
	}
	return &r, nil
}
