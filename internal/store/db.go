package store

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/swarmdeck/core/internal/logging"
	"github.com/swarmdeck/core/internal/notify"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes in a way that needs
// re-recording in schema_migrations. It is the only migration this repo
// ships; the registry table exists so future migrations have somewhere
// to append.
const schemaVersion = 1

// Store is the shared Postgres-backed persistence layer. Both the API and
// bridge processes construct one against the same database; the API also
// supplies a notify.Publisher so that state-changing transactions emit
// their notification only after commit.
type Store struct {
	Pool     *pgxpool.Pool
	Notifier notify.Publisher
}

// Open connects to Postgres, applies the schema, and returns a ready Store.
// Notifier may be nil for read-only callers (e.g. the bridge's metrics
// aggregator, which only queries).
func Open(ctx context.Context, databaseURL string, maxConns int32, notifier notify.Publisher) (*Store, error) {
	log := logging.WithComponent("store")

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &Store{Pool: pool, Notifier: notifier}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info().Msg("store ready")
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.Pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT (version) DO NOTHING`,
		schemaVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to record schema migration: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.Pool.Close()
}

// HealthCheck reports whether the database is currently reachable, for
// the /health endpoint's degraded-service reporting.
func (s *Store) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Pool.Ping(ctx)
}

// txFunc runs inside a transaction; any notifications it wants emitted
// are appended to the returned slice, which withTx publishes only after
// the transaction successfully commits.
type txFunc func(ctx context.Context, tx pgx.Tx) ([]notify.Notification, error)

// withTx runs fn inside a transaction and, on success, publishes every
// notification fn produced. Publish errors are logged, not returned —
// a dropped notification must never roll back a committed write.
func (s *Store) withTx(ctx context.Context, fn txFunc) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	notifications, err := fn(ctx, tx)
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if s.Notifier != nil {
		log := logging.WithComponent("store")
		for _, n := range notifications {
			if err := s.Notifier.Publish(n); err != nil {
				log.Warn().Err(err).Str("event", n.Event).Msg("failed to publish notification")
			}
		}
	}
	return nil
}
