// Package janitor provides the periodic maintenance loop: promoting delayed
// jobs, reclaiming stalled ones, and purging expired credentials.
package janitor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/crmbridge/backend/internal/core"
	"github.com/crmbridge/backend/internal/domain/model"
	"github.com/crmbridge/backend/internal/service"
)

const defaultInterval = 15 * time.Second

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	Logger *slog.Logger
	Queue  core.Queue

	// Tokens enables expired credential cleanup. Optional.
	Tokens *service.TokenService

	// Interval between sweeps; defaults to 15s.
	Interval time.Duration

	// Now overrides the clock (useful for testing).
	Now func() time.Time
}

// Runner runs the maintenance sweep on a fixed interval until cancelled.
type Runner struct {
	logger   *slog.Logger
	queue    core.Queue
	tokens   *service.TokenService
	interval time.Duration
	now      func() time.Time
}

// NewRunner creates a new janitor runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Queue == nil {
		return nil, errors.New("Queue is required")
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{
		logger:   opts.Logger.With("component", "janitor"),
		queue:    opts.Queue,
		tokens:   opts.Tokens,
		interval: interval,
		now:      now,
	}, nil
}

// Run sweeps on the configured interval and runs until the context is
// cancelled. One failing sweep is logged and does not stop the loop.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting janitor", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep runs one maintenance pass over every queue plus credential cleanup.
func (r *Runner) Sweep(ctx context.Context) {
	now := r.now()
	for _, q := range model.QueueNames {
		promoted, err := r.queue.PromoteDelayed(ctx, q, now)
		if err != nil {
			r.logger.ErrorContext(ctx, "promote delayed jobs", "queue", q, "error", err)
		} else if promoted > 0 {
			r.logger.InfoContext(ctx, "delayed jobs promoted", "queue", q, "count", promoted)
		}

		requeued, err := r.queue.RequeueStalled(ctx, q, now)
		if err != nil {
			r.logger.ErrorContext(ctx, "requeue stalled jobs", "queue", q, "error", err)
		} else if requeued > 0 {
			r.logger.WarnContext(ctx, "stalled jobs reclaimed", "queue", q, "count", requeued)
		}
	}

	if r.tokens != nil {
		if _, err := r.tokens.CleanupExpired(ctx); err != nil {
			r.logger.ErrorContext(ctx, "cleanup expired credentials", "error", err)
		}
	}
}
