// Package scheduler runs the periodic expiry sweep that moves active campaigns past their end
// date to failed (or funded).
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/tastyfund/backend/internal/models"
)

// Expirer is the slice of the campaign service the sweeper needs.
type Expirer interface {
	DueForExpiry(ctx context.Context, limit int) ([]models.Campaign, error)
	Expire(ctx context.Context, id string) (bool, error)
}

// Submitter runs jobs concurrently; *worker.Pool satisfies it.
type Submitter interface {
	Submit(f func())
}

type Sweeper struct {
	Cron    *cron.Cron
	expirer Expirer
	pool    Submitter
	batch   int
	ctx     context.Context
}

func NewSweeper(ctx context.Context, e Expirer, pool Submitter, batch int) *Sweeper {
	if batch <= 0 {
		batch = 100
	}
	return &Sweeper{
		Cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		expirer: e,
		pool:    pool,
		batch:   batch,
		ctx:     ctx,
	}
}

// Register schedules the sweep with a standard cron spec or a descriptor like "@every 1m".
func (s *Sweeper) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, func() { s.RunOnce(s.ctx) }); err != nil {
		return fmt.Errorf("register sweep: %w", err)
	}
	return nil
}

func (s *Sweeper) Start() {
	s.Cron.Start()
	slog.Info("expiry sweeper started")
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.Cron.Stop().Done()
	slog.Info("expiry sweeper stopped")
}

// RunOnce expires one batch of due campaigns. Each campaign is settled in its own
// transaction on the pool so a slow one never holds locks for the rest. It returns how many
// campaigns changed status.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	due, err := s.expirer.DueForExpiry(ctx, s.batch)
	if err != nil {
		slog.Error("sweep: list due campaigns", "err", err)
		return 0
	}
	if len(due) == 0 {
		return 0
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		changed int
	)
	for _, c := range due {
		id := c.ID
		wg.Add(1)
		s.pool.Submit(func() {
			defer wg.Done()
			ok, err := s.expirer.Expire(ctx, id)
			if err != nil {
				slog.Error("sweep: expire campaign", "campaign_id", id, "err", err)
				return
			}
			if ok {
				mu.Lock()
				changed++
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	slog.Info("sweep completed", "due", len(due), "changed", changed)
	return changed
}
