package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/swarmdeck/core/internal/apierr"
	"github.com/swarmdeck/core/internal/notify"
)

// compressionThreshold is the byte size above which action input/output
// blobs are gzip-compressed before storage.
const compressionThreshold = 1024

// IngestActionInput is the payload for the fire-and-forget action-ingest
// path (POST /actions).
type IngestActionInput struct {
	ProjectPath string
	SessionID   string
	SubtaskID   string
	ToolName    string
	ToolType    ToolType
	Input       string
	Output      string
	FilePaths   []string
	ExitCode    int
	DurationMs  int
	Metadata    map[string]string
}

// IngestAction atomically performs the project upsert, session upsert
// with counter increments, the action insert, keyword-score updates, and
// queues one deferred notification. It is safe for a fire-and-forget
// caller: the transaction commits before any notification publish is
// attempted.
func (s *Store) IngestAction(ctx context.Context, in IngestActionInput) (*Action, error) {
	if in.ToolName == "" {
		return nil, apierr.Validation("tool_name is required", nil)
	}
	if in.SessionID == "" {
		return nil, apierr.Validation("session_id is required", nil)
	}
	if in.ToolType == "" {
		in.ToolType = ToolBuiltin
	}

	compressedInput, err := compressIfLarge(in.Input)
	if err != nil {
		return nil, err
	}
	compressedOutput, err := compressIfLarge(in.Output)
	if err != nil {
		return nil, err
	}

	metadata := in.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	success := in.ExitCode == 0
	keywords := routingKeywords(in.ToolName, in.Input)

	var action *Action
	txErr := s.withTx(ctx, func(ctx context.Context, tx pgx.Tx) ([]notify.Notification, error) {
		var projectID *string
		if in.ProjectPath != "" {
			path := strings.TrimRight(in.ProjectPath, "/\\")
			row := tx.QueryRow(ctx, `
				INSERT INTO projects (path) VALUES ($1)
				ON CONFLICT (path) DO UPDATE SET path = projects.path
				RETURNING id
			`, path)
			var id string
			if err := row.Scan(&id); err != nil {
				return nil, fmt.Errorf("failed to upsert project: %w", err)
			}
			projectID = &id
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO sessions (id, project_id) VALUES ($1, $2)
			ON CONFLICT (id) DO NOTHING
		`, in.SessionID, projectID); err != nil {
			return nil, fmt.Errorf("failed to ensure session: %w", err)
		}

		successInc, errorInc := 0, 0
		if success {
			successInc = 1
		} else {
			errorInc = 1
		}
		if _, err := tx.Exec(ctx, `
			UPDATE sessions SET
				total_tools_used = total_tools_used + 1,
				total_success = total_success + $2,
				total_errors = total_errors + $3
			WHERE id = $1
		`, in.SessionID, successInc, errorInc); err != nil {
			return nil, fmt.Errorf("failed to increment session counters: %w", err)
		}

		var subtaskID any
		if in.SubtaskID != "" {
			subtaskID = in.SubtaskID
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO actions (subtask_id, session_id, tool_name, tool_type, input, output, file_paths, exit_code, duration_ms, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id, subtask_id, session_id, tool_name, tool_type, input, output, file_paths, exit_code, duration_ms, metadata, created_at
		`, subtaskID, in.SessionID, in.ToolName, string(in.ToolType), compressedInput, compressedOutput, in.FilePaths, in.ExitCode, in.DurationMs, metaJSON)

		a, err := scanAction(row)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, apierr.NotFound("subtask", in.SubtaskID)
			}
			return nil, err
		}
		a.InputText = in.Input
		a.OutputText = in.Output
		action = a

		if err := recordKeywordUsageTx(ctx, tx, keywords, in.ToolName, in.ToolType, success); err != nil {
			return nil, err
		}

		return []notify.Notification{{
			Channels: []string{notify.ChannelGlobal},
			Event:    "action.created",
			Data: map[string]any{
				"id": a.ID, "tool_name": a.ToolName, "tool_type": string(a.ToolType),
				"session_id": a.SessionID, "exit_code": a.ExitCode,
			},
		}}, nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return action, nil
}

// routingKeywords tokenizes tool_name + input for the implicit routing
// write. The tool name goes through the same Tokenize filters as the
// input, so it can be split into several keywords or dropped if short.
func routingKeywords(toolName, input string) []string {
	kws := Tokenize(toolName + " " + input)
	return kws
}

func compressIfLarge(text string) ([]byte, error) {
	if text == "" {
		return nil, nil
	}
	if len(text) <= compressionThreshold {
		return []byte(text), nil
	}
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write([]byte(text)); err != nil {
		return nil, fmt.Errorf("failed to compress blob: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, fmt.Errorf("failed to flush compressed blob: %w", err)
	}
	return buf.Bytes(), nil
}

func decompressBlob(blob []byte) string {
	if len(blob) < 2 || blob[0] != 0x1f || blob[1] != 0x8b {
		return string(blob)
	}
	gr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return string(blob)
	}
	defer gr.Close()
	data, err := io.ReadAll(gr)
	if err != nil {
		return string(blob)
	}
	return string(data)
}

// GetAction fetches one action by id, decompressing its blobs.
func (s *Store) GetAction(ctx context.Context, id string) (*Action, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, subtask_id, session_id, tool_name, tool_type, input, output, file_paths, exit_code, duration_ms, metadata, created_at
		FROM actions WHERE id = $1
	`, id)
	a, err := scanAction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.NotFound("action", id)
	}
	if err != nil {
		return nil, err
	}
	a.InputText = decompressBlob(a.Input)
	a.OutputText = decompressBlob(a.Output)
	return a, nil
}

// ActionFilter narrows ListActions.
type ActionFilter struct {
	SessionID string
	ToolName  string
	Limit     int
	Offset    int
}

// ListActions returns actions matching filter, newest first. Callers
// enforce a hard cap on Limit before calling in.
func (s *Store) ListActions(ctx context.Context, f ActionFilter) ([]*Action, error) {
	query := `SELECT id, subtask_id, session_id, tool_name, tool_type, input, output, file_paths, exit_code, duration_ms, metadata, created_at FROM actions WHERE 1=1`
	args := []any{}
	if f.SessionID != "" {
		args = append(args, f.SessionID)
		query += fmt.Sprintf(" AND session_id = $%d", len(args))
	}
	if f.ToolName != "" {
		args = append(args, f.ToolName)
		query += fmt.Sprintf(" AND tool_name = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}
	defer rows.Close()

	var out []*Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		a.InputText = decompressBlob(a.Input)
		a.OutputText = decompressBlob(a.Output)
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAction removes one action row.
func (s *Store) DeleteAction(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM actions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete action: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFound("action", id)
	}
	return nil
}

// DeleteActionsBySession removes every action for sessionID, returning
// the number of rows removed.
func (s *Store) DeleteActionsBySession(ctx context.Context, sessionID string) (int, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM actions WHERE session_id = $1`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete actions for session: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// HourlyActionCount is one bucket of GET /actions/hourly.
type HourlyActionCount struct {
	Hour  string `json:"hour"`
	Count int    `json:"count"`
}

// ActionsHourly buckets action counts by hour over the last 24 hours.
func (s *Store) ActionsHourly(ctx context.Context) ([]HourlyActionCount, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT date_trunc('hour', created_at) AS hour, count(*)
		FROM actions
		WHERE created_at > now() - interval '24 hours'
		GROUP BY hour ORDER BY hour ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute hourly actions: %w", err)
	}
	defer rows.Close()

	var out []HourlyActionCount
	for rows.Next() {
		var hc HourlyActionCount
		var hour time.Time
		if err := rows.Scan(&hour, &hc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan hourly bucket: %w", err)
		}
		hc.Hour = hour.UTC().Format(time.RFC3339)
		out = append(out, hc)
	}
	return out, rows.Err()
}

func scanAction(row rowScanner) (*Action, error) {
	var a Action
	var toolType string
	var metaJSON []byte
	if err := row.Scan(&a.ID, &a.SubtaskID, &a.SessionID, &a.ToolName, &toolType,
		&a.Input, &a.Output, &a.FilePaths, &a.ExitCode, &a.DurationMs, &metaJSON, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan action: %w", err)
	}
	a.ToolType = ToolType(toolType)
	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &a.Metadata)
	}
	return &a, nil
}
