package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/crmbridge/backend/internal/core"
	"github.com/crmbridge/backend/internal/domain/model"
	apperrors "github.com/crmbridge/backend/internal/errors"
)

// maxDeadLetterPage bounds one dead-letter listing.
const maxDeadLetterPage = 100

// DispatchServiceOptions groups dependencies for DispatchService.
type DispatchServiceOptions struct {
	Logger *slog.Logger
	Queue  core.Queue
}

// DispatchService places jobs on the named queues and reports queue state
// and health for the monitor endpoints.
type DispatchService struct {
	logger *slog.Logger
	queue  core.Queue
}

// NewDispatchService constructs a new DispatchService.
func NewDispatchService(opts DispatchServiceOptions) (*DispatchService, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Queue == nil {
		return nil, errors.New("Queue is required")
	}
	return &DispatchService{logger: opts.Logger, queue: opts.Queue}, nil
}

// MustNewDispatchService constructs a new DispatchService and panics on error.
func MustNewDispatchService(opts DispatchServiceOptions) *DispatchService {
	svc, err := NewDispatchService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
	}
	return svc
}

// Enqueue validates and places a job, logging the assigned id so each
// dispatch is traceable end to end.
func (s *DispatchService) Enqueue(ctx context.Context, req *model.EnqueueRequest) (*model.Job, error) {
	if req == nil {
		return nil, apperrors.Validation("enqueue request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	job, err := s.queue.Enqueue(ctx, req)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "enqueue job")
	}
	s.logger.InfoContext(ctx, "job enqueued",
		"job_id", job.ID,
		"queue", job.Queue,
		"priority", job.Options.Priority,
		"delay", job.Options.Delay)
	return job, nil
}

// Stats returns per-queue counts for every named queue plus the aggregate
// across all of them.
func (s *DispatchService) Stats(ctx context.Context) ([]model.QueueStats, model.QueueCounts, error) {
	stats := make([]model.QueueStats, 0, len(model.QueueNames))
	var totals model.QueueCounts
	for _, q := range model.QueueNames {
		counts, err := s.queue.Counts(ctx, q)
		if err != nil {
			return nil, model.QueueCounts{}, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "counts for queue %s", q)
		}
		stats = append(stats, model.QueueStats{Queue: q, Counts: counts})
		totals = totals.Add(counts)
	}
	return stats, totals, nil
}

// DeadLetters lists the ids of jobs that exhausted their attempts on one
// queue, oldest first, for manual inspection.
func (s *DispatchService) DeadLetters(ctx context.Context, queueName string, limit int64) ([]string, error) {
	var queue model.QueueName
	if err := queue.UnmarshalText([]byte(queueName)); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if limit <= 0 || limit > maxDeadLetterPage {
		limit = maxDeadLetterPage
	}
	ids, err := s.queue.DeadLetters(ctx, queue, limit)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "dead letters for queue %s", queue)
	}
	return ids, nil
}

// Health classifies every named queue from its failure ratio.
func (s *DispatchService) Health(ctx context.Context) ([]model.QueueHealth, error) {
	health := make([]model.QueueHealth, 0, len(model.QueueNames))
	for _, q := range model.QueueNames {
		counts, err := s.queue.Counts(ctx, q)
		if err != nil {
			return nil, apperrors.Wrapf(err, apperrors.ErrCodeInternal, "counts for queue %s", q)
		}
		health = append(health, model.QueueHealth{
			Queue:        q,
			Status:       counts.Classify(),
			FailureRatio: counts.FailureRatio(),
			Counts:       counts,
		})
	}
	return health, nil
}

// OverallHealth folds per-queue classifications into a single status: the
// worst queue wins.
func (s *DispatchService) OverallHealth(ctx context.Context) (model.HealthStatus, []model.QueueHealth, error) {
	health, err := s.Health(ctx)
	if err != nil {
		return "", nil, err
	}
	overall := model.HealthHealthy
	for _, h := range health {
		switch h.Status {
		case model.HealthCritical:
			overall = model.HealthCritical
		case model.HealthWarning:
			if overall == model.HealthHealthy {
				overall = model.HealthWarning
			}
		}
	}
	return overall, health, nil
}
