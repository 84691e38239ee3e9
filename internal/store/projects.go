package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/swarmdeck/core/internal/apierr"
)

// UpsertProject creates or updates a project keyed on its trimmed path.
// On conflict, name/metadata are refreshed and updated_at advances via
// the schema trigger.
func (s *Store) UpsertProject(ctx context.Context, path, name string, metadata map[string]string) (*Project, error) {
	path = strings.TrimRight(path, "/\\")
	if path == "" {
		return nil, apierr.Validation("path is required", nil)
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	row := s.Pool.QueryRow(ctx, `
		INSERT INTO projects (path, name, metadata)
		VALUES ($1, $2, $3)
		ON CONFLICT (path) DO UPDATE SET
			name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE projects.name END,
			metadata = projects.metadata || EXCLUDED.metadata
		RETURNING id, path, name, metadata, created_at, updated_at
	`, path, name, metaJSON)

	return scanProject(row)
}

// GetProject fetches a project by id.
func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, path, name, metadata, created_at, updated_at FROM projects WHERE id = $1
	`, id)
	p, err := scanProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.NotFound("project", id)
	}
	return p, err
}

// GetProjectByPath fetches a project by its exact (already-trimmed) path.
func (s *Store) GetProjectByPath(ctx context.Context, path string) (*Project, error) {
	path = strings.TrimRight(path, "/\\")
	row := s.Pool.QueryRow(ctx, `
		SELECT id, path, name, metadata, created_at, updated_at FROM projects WHERE path = $1
	`, path)
	p, err := scanProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apierr.NotFound("project", path)
	}
	return p, err
}

// ListProjects returns all projects, newest first, bounded by limit/offset.
func (s *Store) ListProjects(ctx context.Context, limit, offset int) ([]*Project, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, path, name, metadata, created_at, updated_at
		FROM projects ORDER BY created_at DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var out []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteProject removes a project; descendant rows cascade per the
// schema's foreign keys.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFound("project", id)
	}
	return nil
}

// rowScanner is satisfied by both pgx.Row (QueryRow) and pgx.Rows (Query),
// letting the scan helpers below serve single-row and list queries alike.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	var p Project
	var metaJSON []byte
	if err := row.Scan(&p.ID, &p.Path, &p.Name, &metaJSON, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}
	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &p.Metadata)
	}
	return &p, nil
}
