// Package worker provides the queue processors that drain the named queues.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crmbridge/backend/internal/core"
	"github.com/crmbridge/backend/internal/domain/model"
	"github.com/crmbridge/backend/internal/service"
)

// HandlerFunc processes a job and returns error to indicate failure (which will be retried per policy).
type HandlerFunc func(ctx context.Context, job *model.Job) error

const (
	defaultLease        = 30 * time.Second
	defaultPollInterval = time.Second
	maxResponseBytes    = 4 * 1024
)

// RunnerOptions configures the queue processor runner.
type RunnerOptions struct {
	Logger *slog.Logger
	Queue  core.Queue

	// CRMBaseURL is the upstream CRM API origin outbound calls are sent to.
	CRMBaseURL string
	HTTPClient *http.Client

	// Audit marks dispatch audit entries delivered once the upstream
	// acknowledges the call. Optional.
	Audit *service.AuditService
	// Errors captures exhausted jobs in the error log. Optional.
	Errors *service.ErrorLogService

	// Lease is the per-job processing lease; defaults to 30s.
	Lease time.Duration
	// Concurrency is the number of worker goroutines per queue; defaults to 1.
	Concurrency int
	// PollInterval is the idle wait between dequeue attempts; defaults to 1s.
	PollInterval time.Duration
	// Queues limits processing to a subset; defaults to every named queue.
	Queues []model.QueueName

	// Environment labels captured error entries.
	Environment string
}

// Runner drains the named queues with a pool of workers per queue. A handler
// error is always reported back to the broker, whose attempts/backoff policy
// decides between retry and the dead letter list.
type Runner struct {
	logger       *slog.Logger
	queue        core.Queue
	audit        *service.AuditService
	errorLog     *service.ErrorLogService
	http         *http.Client
	baseURL      string
	lease        time.Duration
	workers      int
	pollInterval time.Duration
	queues       []model.QueueName
	environment  string
	handlers     map[model.QueueName]HandlerFunc
}

// NewRunner constructs a queue processor runner with built-in handlers for
// every named queue.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Queue == nil {
		return nil, errors.New("Queue is required")
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	lease := opts.Lease
	if lease <= 0 {
		lease = defaultLease
	}
	workers := opts.Concurrency
	if workers <= 0 {
		workers = 1
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	queues := opts.Queues
	if len(queues) == 0 {
		queues = model.QueueNames
	}

	r := &Runner{
		logger:       opts.Logger.With("component", "worker"),
		queue:        opts.Queue,
		audit:        opts.Audit,
		errorLog:     opts.Errors,
		http:         hc,
		baseURL:      opts.CRMBaseURL,
		lease:        lease,
		workers:      workers,
		pollInterval: poll,
		queues:       queues,
		environment:  opts.Environment,
		handlers:     make(map[model.QueueName]HandlerFunc),
	}
	r.handlers[model.QueueOutboundCall] = r.handleOutboundCall
	r.handlers[model.QueueEmail] = r.handleEmail
	r.handlers[model.QueueNotification] = r.handleNotification
	return r, nil
}

// Run starts the worker pool and processes jobs until the context is
// cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting queue processors",
		"queues", r.queues, "workers_per_queue", r.workers, "lease", r.lease)

	g, ctx := errgroup.WithContext(ctx)
	for _, q := range r.queues {
		for range r.workers {
			g.Go(func() error {
				return r.workerLoop(ctx, q)
			})
		}
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (r *Runner) workerLoop(ctx context.Context, queue model.QueueName) error {
	for ctx.Err() == nil {
		job, err := r.queue.Dequeue(ctx, queue, r.lease)
		switch {
		case err == nil:
			r.processJob(ctx, queue, job)
		case errors.Is(err, model.ErrNoJobsAvailable):
			if !r.sleep(ctx) {
				return ctx.Err()
			}
		case errors.Is(err, context.Canceled):
			return ctx.Err()
		default:
			return fmt.Errorf("dequeue %s: %w", queue, err)
		}
	}
	return ctx.Err()
}

func (r *Runner) sleep(ctx context.Context) bool {
	t := time.NewTimer(r.pollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (r *Runner) processJob(ctx context.Context, queue model.QueueName, job *model.Job) {
	start := time.Now()
	r.logger.InfoContext(ctx, "job start",
		"queue", queue, "job_id", job.ID, "attempt", job.AttemptsMade)

	handler, ok := r.handlers[queue]
	if !ok {
		r.failJob(ctx, queue, job, start, fmt.Errorf("no handler for queue %s", queue))
		return
	}
	if err := handler(ctx, job); err != nil {
		r.failJob(ctx, queue, job, start, err)
		return
	}

	if err := r.queue.Complete(ctx, queue, job.ID); err != nil {
		r.logger.ErrorContext(ctx, "complete job error",
			"queue", queue, "job_id", job.ID, "error", err)
		return
	}
	r.logger.InfoContext(ctx, "job complete",
		"queue", queue, "job_id", job.ID, "elapsed", time.Since(start))

	if r.audit != nil && queue == model.QueueOutboundCall {
		if _, err := r.audit.MarkDelivered(ctx, []string{job.ID}); err != nil {
			r.logger.ErrorContext(ctx, "mark delivered failed",
				"job_id", job.ID, "error", err)
		}
	}
}

func (r *Runner) failJob(ctx context.Context, queue model.QueueName, job *model.Job, start time.Time, jobErr error) {
	r.logger.ErrorContext(ctx, "job failed",
		"queue", queue, "job_id", job.ID, "attempt", job.AttemptsMade,
		"elapsed", time.Since(start), "error", jobErr)

	retrying, err := r.queue.Fail(ctx, queue, job.ID, jobErr.Error())
	if err != nil {
		r.logger.ErrorContext(ctx, "fail job error",
			"queue", queue, "job_id", job.ID, "error", err)
		return
	}
	if retrying {
		return
	}

	// Attempts exhausted: the job is on the dead letter list now, capture it.
	if r.errorLog != nil {
		if _, err := r.errorLog.Record(ctx, &model.RecordErrorLogRequest{
			Type:        "job_exhausted",
			Source:      fmt.Sprintf("worker:%s", queue),
			Environment: r.environment,
			Message:     fmt.Sprintf("job %s exhausted after %d attempts: %s", job.ID, job.AttemptsMade, jobErr),
		}); err != nil {
			r.logger.ErrorContext(ctx, "record exhausted job error",
				"job_id", job.ID, "error", err)
		}
	}
}
