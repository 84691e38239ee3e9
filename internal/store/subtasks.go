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

// CreateSubtask inserts a new subtask. blockedBy entries must reference
// existing subtasks; violations surface as 400. Emits subtask.created on
// commit.
func (s *Store) CreateSubtask(ctx context.Context, taskID, agentType, agentID, description string, blockedBy []string) (*Subtask, error) {
	if err := s.validateBlockedBy(ctx, blockedBy); err != nil {
		return nil, err
	}

	var st *Subtask
	txErr := s.withTx(ctx, func(ctx context.Context, tx pgx.Tx) ([]notify.Notification, error) {
		row := tx.QueryRow(ctx, `
			INSERT INTO subtasks (task_id, agent_type, agent_id, description, blocked_by)
			VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5)
			RETURNING id, task_id, agent_type, agent_id, description, status, blocked_by, context_snapshot, result, started_at, completed_at, created_at, updated_at
		`, taskID, agentType, agentID, description, blockedBy)

		created, err := scanSubtask(row)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, apierr.NotFound("task", taskID)
			}
			return nil, err
		}
		st = created

		channels := []string{notify.ChannelGlobal}
		if created.AgentType != "" {
			channels = append(channels, notify.AgentChannel(created.AgentType))
		}
		return []notify.Notification{{
			Channels: channels,
			Event:    "subtask.created",
			Data:     subtaskEventData(created),
		}}, nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return st, nil
}

func (s *Store) validateBlockedBy(ctx context.Context, blockedBy []string) error {
	if len(blockedBy) == 0 {
		return nil
	}
	var count int
	err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM subtasks WHERE id = ANY($1)`, blockedBy).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to validate blocked_by: %w", err)
	}
	if count != len(uniqueStrings(blockedBy)) {
		return apierr.Validation("blocked_by references a non-existent subtask", nil)
	}
	return nil
}

func uniqueStrings(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// GetSubtask fetches a subtask by id.
func (s *Store) GetSubtask(ctx context.Context, id string) (*Subtask, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, task_id, agent_type, agent_id, description, status, blocked_by, context_snapshot, result, started_at, completed_at, created_at, updated_at
		FROM subtasks WHERE id = $1
	`, id)
	st, err := scanSubtask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.NotFound("subtask", id)
	}
	return st, err
}

// SubtaskFilter narrows ListSubtasks.
type SubtaskFilter struct {
	TaskID  string
	AgentID string
	Status  SubtaskStatus
	Limit   int
	Offset  int
}

// ListSubtasks returns subtasks matching filter.
func (s *Store) ListSubtasks(ctx context.Context, f SubtaskFilter) ([]*Subtask, error) {
	query := `SELECT id, task_id, agent_type, agent_id, description, status, blocked_by, context_snapshot, result, started_at, completed_at, created_at, updated_at FROM subtasks WHERE 1=1`
	args := []any{}
	if f.TaskID != "" {
		args = append(args, f.TaskID)
		query += fmt.Sprintf(" AND task_id = $%d", len(args))
	}
	if f.AgentID != "" {
		args = append(args, f.AgentID)
		query += fmt.Sprintf(" AND agent_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at ASC"
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subtasks: %w", err)
	}
	defer rows.Close()

	var out []*Subtask
	for rows.Next() {
		st, err := scanSubtask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// SubtaskPatch is a partial update applied by PatchSubtask.
type SubtaskPatch struct {
	Status      *SubtaskStatus
	Result      map[string]any
	ContextSnap map[string]any
}

// PatchSubtask applies patch, handling the one-shot started_at/completed_at
// side effects and the commit-coupled notifications for running/terminal
// transitions.
//
// The agent.completed broadcast fires unconditionally on completion,
// regardless of AgentType (see DESIGN.md).
func (s *Store) PatchSubtask(ctx context.Context, id string, patch SubtaskPatch) (*Subtask, error) {
	var resultJSON, snapJSON []byte
	var err error
	if patch.Result != nil {
		resultJSON, err = json.Marshal(patch.Result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
	}
	if patch.ContextSnap != nil {
		snapJSON, err = json.Marshal(patch.ContextSnap)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal context_snapshot: %w", err)
		}
	}

	var statusArg any
	if patch.Status != nil {
		statusArg = string(*patch.Status)
	}

	var out *Subtask
	txErr := s.withTx(ctx, func(ctx context.Context, tx pgx.Tx) ([]notify.Notification, error) {
		var before Subtask
		var beforeStatus string
		err := tx.QueryRow(ctx, `SELECT status, agent_type, agent_id FROM subtasks WHERE id = $1 FOR UPDATE`, id).
			Scan(&beforeStatus, &before.AgentType, &before.AgentID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apierr.NotFound("subtask", id)
			}
			return nil, fmt.Errorf("failed to lock subtask: %w", err)
		}

		row := tx.QueryRow(ctx, `
			UPDATE subtasks SET
				status = COALESCE($2, status),
				result = CASE WHEN $3::jsonb IS NOT NULL THEN $3::jsonb ELSE result END,
				context_snapshot = CASE WHEN $4::jsonb IS NOT NULL THEN $4::jsonb ELSE context_snapshot END,
				started_at = CASE
					WHEN $2 = 'running' AND started_at IS NULL THEN now()
					ELSE started_at
				END,
				completed_at = CASE
					WHEN $2 IN ('completed', 'failed') AND completed_at IS NULL THEN now()
					ELSE completed_at
				END,
				updated_at = now()
			WHERE id = $1
			RETURNING id, task_id, agent_type, agent_id, description, status, blocked_by, context_snapshot, result, started_at, completed_at, created_at, updated_at
		`, id, statusArg, resultJSON, snapJSON)

		st, err := scanSubtask(row)
		if err != nil {
			return nil, fmt.Errorf("failed to patch subtask: %w", err)
		}
		out = st

		var notifications []notify.Notification
		if patch.Status == nil || string(*patch.Status) == beforeStatus {
			return notifications, nil
		}

		agentChannel := notify.AgentChannel(st.AgentType)
		switch *patch.Status {
		case SubtaskRunning:
			notifications = append(notifications,
				notify.Notification{Channels: []string{notify.ChannelGlobal, agentChannel}, Event: "subtask.running", Data: subtaskEventData(st)},
				notify.Notification{Channels: []string{notify.ChannelGlobal}, Event: "agent.connected", Data: subtaskEventData(st)},
			)
		case SubtaskCompleted, SubtaskFailed:
			terminalEvent := "subtask.completed"
			if *patch.Status == SubtaskFailed {
				terminalEvent = "subtask.failed"
			}
			notifications = append(notifications,
				notify.Notification{Channels: []string{notify.ChannelGlobal, agentChannel}, Event: terminalEvent, Data: subtaskEventData(st)},
				notify.Notification{Channels: []string{notify.ChannelGlobal}, Event: "agent.disconnected", Data: subtaskEventData(st)},
			)

			msgPayload := map[string]any{
				"subtask_id": st.ID,
				"status":     string(*patch.Status),
				"result":     st.Result,
			}
			msgID, msgCreatedAt, msgExpiresAt, msgErr := insertAgentMessageTx(ctx, tx, "system", nil, TopicAgentCompleted, msgPayload, 5)
			if msgErr != nil {
				return nil, msgErr
			}
			notifications = append(notifications, notify.Notification{
				Channels: []string{notify.TopicChannel(string(TopicAgentCompleted)), notify.ChannelGlobal},
				Event:    "message.published",
				Data: map[string]any{
					"id":         msgID,
					"topic":      string(TopicAgentCompleted),
					"payload":    msgPayload,
					"created_at": msgCreatedAt,
					"expires_at": msgExpiresAt,
				},
			})
		}
		return notifications, nil
	})

	if txErr != nil {
		return nil, txErr
	}
	return out, nil
}

func subtaskEventData(st *Subtask) map[string]any {
	return map[string]any{
		"id":         st.ID,
		"task_id":    st.TaskID,
		"agent_type": st.AgentType,
		"agent_id":   st.AgentID,
		"status":     string(st.Status),
	}
}

// DeleteSubtask removes a subtask; descendant actions cascade.
func (s *Store) DeleteSubtask(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM subtasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subtask: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFound("subtask", id)
	}
	return nil
}

func scanSubtask(row rowScanner) (*Subtask, error) {
	var st Subtask
	var status string
	var snapJSON, resultJSON []byte
	if err := row.Scan(&st.ID, &st.TaskID, &st.AgentType, &st.AgentID, &st.Description, &status,
		&st.BlockedBy, &snapJSON, &resultJSON, &st.StartedAt, &st.CompletedAt, &st.CreatedAt, &st.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan subtask: %w", err)
	}
	st.Status = SubtaskStatus(status)
	if len(snapJSON) > 0 {
		_ = json.Unmarshal(snapJSON, &st.ContextSnapshot)
	}
	if len(resultJSON) > 0 {
		_ = json.Unmarshal(resultJSON, &st.Result)
	}
	return &st, nil
}
