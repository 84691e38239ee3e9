package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/swarmdeck/core/internal/apierr"
)

// UpsertBlocking asserts that blocked must not proceed because of blocker.
// blocker == blocked is rejected (400).
func (s *Store) UpsertBlocking(ctx context.Context, blocker, blocked, reason string) (*Blocking, error) {
	if blocker == blocked {
		return nil, apierr.Validation("blocker and blocked must differ", map[string]string{"blocker": blocker, "blocked": blocked})
	}

	row := s.Pool.QueryRow(ctx, `
		INSERT INTO blockings (blocker, blocked, reason)
		VALUES ($1, $2, NULLIF($3, ''))
		ON CONFLICT (blocker, blocked) DO UPDATE SET reason = EXCLUDED.reason
		RETURNING id, blocker, blocked, reason, created_at
	`, blocker, blocked, reason)
	return scanBlocking(row)
}

// GetBlockingsForAgent returns both directions: blockings where agentID is
// either the blocker or the blocked party.
func (s *Store) GetBlockingsForAgent(ctx context.Context, agentID string) ([]*Blocking, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, blocker, blocked, reason, created_at FROM blockings
		WHERE blocker = $1 OR blocked = $1
		ORDER BY created_at DESC
	`, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list blockings: %w", err)
	}
	defer rows.Close()

	var out []*Blocking
	for rows.Next() {
		b, err := scanBlocking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// IsBlocked reports whether (blocker, blocked) currently has an active
// blocking row.
func (s *Store) IsBlocked(ctx context.Context, blocker, blocked string) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM blockings WHERE blocker = $1 AND blocked = $2)
	`, blocker, blocked).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check blocking: %w", err)
	}
	return exists, nil
}

// DeleteBlocking removes the blocking for one (blocker, blocked) pair,
// matching POST /unblock.
func (s *Store) DeleteBlocking(ctx context.Context, blocker, blocked string) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM blockings WHERE blocker = $1 AND blocked = $2`, blocker, blocked)
	if err != nil {
		return fmt.Errorf("failed to delete blocking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apierr.NotFound("blocking", blocker+"/"+blocked)
	}
	return nil
}

// DeleteBlockingsForBlocked removes every blocking where blocked == id,
// matching DELETE /blocking/{blocked_id} when the caller does not know
// the specific blocker.
func (s *Store) DeleteBlockingsForBlocked(ctx context.Context, blocked string) (int, error) {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM blockings WHERE blocked = $1`, blocked)
	if err != nil {
		return 0, fmt.Errorf("failed to delete blockings: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanBlocking(row rowScanner) (*Blocking, error) {
	var b Blocking
	if err := row.Scan(&b.ID, &b.Blocker, &b.Blocked, &b.Reason, &b.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan blocking: %w", err)
	}
	return &b, nil
}
