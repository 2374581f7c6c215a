package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-data-etl/internal/observability"
)

const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 1 * time.Minute
)

// Job is one unit of scheduled work.
type Job interface {
	Run(ctx context.Context) (Result, error)
}

// Runner runs a Job immediately and then on a fixed interval until its
// context is cancelled.
type Runner struct {
	job      Job
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
}

// NewRunner creates a Runner. A nil clock uses the real clock.
func NewRunner(job Job, interval time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Runner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Runner{
		job:      job,
		interval: interval,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once at least one run has completed.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no scrape run has completed yet")
	}
	return nil
}

// Run executes the schedule until ctx is cancelled. A failed run is retried
// with exponential backoff instead of waiting a full interval. With a
// non-positive interval Run returns after the first successful run.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("runner started", "interval", r.interval)
	r.metrics.RunnerRunning.Set(1)
	defer r.metrics.RunnerRunning.Set(0)

	backoff := initialBackoff
	for {
		wait := r.interval
		res, err := r.job.Run(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Error("scheduled scrape failed", "error", err, "retry_in", backoff)
			wait = backoff
			backoff = sharedretry.NextBackoff(backoff, maxBackoff)
		} else {
			r.ready.Store(true)
			backoff = initialBackoff
			r.logger.Debug("scheduled scrape done", "processed", res.Processed, "saved", res.Saved)
			if r.interval <= 0 {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			r.logger.Info("runner stopping", "reason", ctx.Err())
			return nil
		case <-r.clock.After(wait):
		}
	}
}
