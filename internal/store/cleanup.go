package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/swarmdeck/core/internal/logging"
)

const sweepInterval = 60 * time.Second

// CleanupStats summarizes the most recent expiry sweep, for GET /cleanup/stats.
type CleanupStats struct {
	ExpiredDeleted int       `json:"expired_deleted"`
	ReadDeleted    int       `json:"read_deleted"`
	RanAt          time.Time `json:"ran_at"`
	SweepCount     int       `json:"sweep_count"`
}

// Sweeper periodically deletes expired agent_messages rows, mirroring
// the background-loop idiom the rest of this codebase uses for
// long-running work: a goroutine plus a stopCh for cooperative shutdown.
type Sweeper struct {
	store  *Store
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu    sync.Mutex
	stats CleanupStats
}

// NewSweeper builds a Sweeper bound to store. Call Start to begin
// ticking and Stop to shut it down.
func NewSweeper(store *Store) *Sweeper {
	return &Sweeper{store: store, stopCh: make(chan struct{})}
}

// Start runs the sweep loop in a background goroutine until Stop is called.
func (sw *Sweeper) Start() {
	sw.wg.Add(1)
	go func() {
		defer sw.wg.Done()
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		log := logging.WithComponent("cleanup-sweeper")
		for {
			select {
			case <-ticker.C:
				if err := sw.runSweep(); err != nil {
					log.Error().Err(err).Msg("sweep failed")
				}
			case <-sw.stopCh:
				return
			}
		}
	}()
}

// Stop signals the sweep loop to exit and waits for it to return.
func (sw *Sweeper) Stop() {
	close(sw.stopCh)
	sw.wg.Wait()
}

// RunOnce executes a single sweep synchronously, useful for tests and
// for an explicit admin-triggered sweep.
func (sw *Sweeper) RunOnce() error {
	return sw.runSweep()
}

func (sw *Sweeper) runSweep() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var expiredDeleted, readDeleted int

	tag, err := sw.store.Pool.Exec(ctx, `
		DELETE FROM agent_messages WHERE expires_at IS NOT NULL AND expires_at < now()
	`)
	if err != nil {
		return fmt.Errorf("failed to delete expired messages: %w", err)
	}
	expiredDeleted = int(tag.RowsAffected())

	tag, err = sw.store.Pool.Exec(ctx, `
		DELETE FROM agent_messages
		WHERE to_agent IS NOT NULL AND cardinality(read_by) > 0 AND created_at < now() - interval '7 days'
	`)
	if err != nil {
		return fmt.Errorf("failed to delete stale read messages: %w", err)
	}
	readDeleted = int(tag.RowsAffected())

	sw.mu.Lock()
	sw.stats = CleanupStats{
		ExpiredDeleted: expiredDeleted,
		ReadDeleted:    readDeleted,
		RanAt:          time.Now().UTC(),
		SweepCount:     sw.stats.SweepCount + 1,
	}
	sw.mu.Unlock()
	return nil
}

// Stats returns the most recently recorded sweep result.
func (sw *Sweeper) Stats() CleanupStats {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.stats
}
