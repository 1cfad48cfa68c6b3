// Package cleanup runs the periodic expiry sweep that removes expired URL
// records from the store.
package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper is the part of the service the worker drives. RunCleanup never
// fails; sweep errors are logged inside and reported as zero removals.
type Sweeper interface {
	RunCleanup(ctx context.Context) int
}

// Worker triggers the expiry sweep at a fixed interval. Its lifetime is tied
// to the context passed to Run, so startup and shutdown follow the process
// lifecycle instead of a detached timer.
type Worker struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *slog.Logger
}

// New creates a cleanup worker sweeping every interval.
func New(sweeper Sweeper, interval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks, sweeping on every tick until ctx is cancelled. It always
// returns nil so a shared errgroup doesn't treat shutdown as a failure.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("starting cleanup worker", slog.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("cleanup worker stopped")
			return nil
		case <-ticker.C:
			removed := w.sweeper.RunCleanup(ctx)
			if removed > 0 {
				w.logger.Info("cleanup removed expired urls", slog.Int("count", removed))
			}
		}
	}
}
