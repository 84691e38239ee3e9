package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/swarmdeck/core/internal/apierr"
	"github.com/swarmdeck/core/internal/notify"
)

// CreateTask inserts a new task (wave). waveNumber < 0 means "auto
// increment within the request". Emits task.created on commit.
func (s *Store) CreateTask(ctx context.Context, requestID, name string, waveNumber int) (*Task, error) {
	var task *Task
	txErr := s.withTx(ctx, func(ctx context.Context, tx pgx.Tx) ([]notify.Notification, error) {
		var row pgx.Row
		if waveNumber < 0 {
			row = tx.QueryRow(ctx, `
				INSERT INTO tasks (request_id, name, wave_number)
				VALUES ($1, $2, COALESCE((SELECT max(wave_number) + 1 FROM tasks WHERE request_id = $1), 0))
				RETURNING id, request_id, name, wave_number, status, created_at, updated_at
			`, requestID, name)
		} else {
			row = tx.QueryRow(ctx, `
				INSERT INTO tasks (request_id, name, wave_number)
				VALUES ($1, $2, $3)
				RETURNING id, request_id, name, wave_number, status, created_at, updated_at
			`, requestID, name, waveNumber)
		}

		t, err := scanTask(row)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, apierr.NotFound("request", requestID)
			}
			return nil, err
		}
		task = t

		return []notify.Notification{{
			Channels: []string{notify.ChannelGlobal},
			Event:    "task.created",
			Data: map[string]any{
				"id": t.ID, "request_id": t.RequestID, "name": t.Name,
				"wave_number": t.WaveNumber, "status": string(t.Status),
			},
		}}, nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return task, nil
}

// GetTask fetches a task by id.
func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, request_id, name, wave_number, status, created_at, updated_at FROM tasks WHERE id = $1
	`, id)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.NotFound("task", id)
	}
	return task, err
}

// TaskFilter narrows ListTasks.
type TaskFilter struct {
	RequestID string
	Status    TaskStatus
	Limit     int
	Offset    int
}

// ListTasks returns tasks matching filter, ordered by wave_number then
// created_at.
func (s *Store) ListTasks(ctx context.Context, f TaskFilter) ([]*Task, error) {
	query := `SELECT id, request_id, name, wave_number, status, created_at, updated_at FROM tasks WHERE 1=1`
	args := []any{}
	if f.RequestID != "" {
		args = append(args, f.RequestID)
		query += fmt.Sprintf(" AND request_id = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY wave_number ASC, created_at ASC"
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var out []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// PatchTask applies a partial status update.
func (s *Store) PatchTask(ctx context.Context, id string, status TaskStatus) (*Task, error) {
	row := s.Pool.QueryRow(ctx, `
		UPDATE tasks SET status = COALESCE(NULLIF($2, ''), status), updated_at = now()
		WHERE id = $1
		RETURNING id, request_id, name, wave_number, status, created_at, updated_at
	`, id, string(status))
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.NotFound("task", id)
	}
	return task, err
}

// DeleteTask removes a task; descendant subtasks cascade.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFound("task", id)
	}
	return nil
}

func scanTask(row rowScanner) (*Task, error) {
	var t Task
	var status string
	if err := row.Scan(&t.ID, &t.RequestID, &t.Name, &t.WaveNumber, &status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	t.Status = TaskStatus(status)
	return &t, nil
}
