package jobs

import (
	"context"
	"time"

	"imagestudio/internal/infra"
)

// Sweeper periodically fails jobs left processing by a crashed or restarted
// API process.
type Sweeper struct {
	svc       *Service
	interval  time.Duration
	olderThan time.Duration
	logger    infra.Logger
}

func NewSweeper(svc *Service, interval, olderThan time.Duration, logger infra.Logger) *Sweeper {
	return &Sweeper{svc: svc, interval: interval, olderThan: olderThan, logger: logger}
}

// Run sweeps immediately and then on every tick until ctx is done.
func (w *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.SweepOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// SweepOnce performs a single pass and returns the number of jobs failed.
func (w *Sweeper) SweepOnce(ctx context.Context) int {
	n, err := w.svc.FailStale(ctx, w.olderThan)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("sweep stale jobs")
		}
		return 0
	}
	if n > 0 {
		w.logger.Info().Int("jobs", n).Dur("older_than", w.olderThan).Msg("failed stale jobs")
	}
	return n
}
