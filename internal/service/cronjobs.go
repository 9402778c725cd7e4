package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/crmbridge/backend/internal/core"
	"github.com/crmbridge/backend/internal/domain/model"
	apperrors "github.com/crmbridge/backend/internal/errors"
)

// cronQueueTargets maps each cron job family to the queue its work lands on.
var cronQueueTargets = map[model.CronJobType]model.QueueName{
	model.CronPledge:    model.QueueOutboundCall,
	model.CronOneoff:    model.QueueOutboundCall,
	model.CronRecurring: model.QueueOutboundCall,
	model.CronHourly:    model.QueueNotification,
}

// CronJobServiceOptions groups dependencies for CronJobService.
type CronJobServiceOptions struct {
	Logger   *slog.Logger
	Repo     core.CronJobRepository
	Settings *SettingsService
	Dispatch *DispatchService

	// Now overrides the clock (useful for testing).
	Now func() time.Time
}

// CronJobService triggers the toggleable scheduled job families and records
// their run history. A disabled family is skipped, and the skip is recorded.
type CronJobService struct {
	logger   *slog.Logger
	repo     core.CronJobRepository
	settings *SettingsService
	dispatch *DispatchService
	now      func() time.Time
}

// NewCronJobService constructs a new CronJobService.
func NewCronJobService(opts CronJobServiceOptions) (*CronJobService, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Repo == nil {
		return nil, errors.New("CronJobRepository is required")
	}
	if opts.Settings == nil {
		return nil, errors.New("SettingsService is required")
	}
	if opts.Dispatch == nil {
		return nil, errors.New("DispatchService is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &CronJobService{
		logger:   opts.Logger,
		repo:     opts.Repo,
		settings: opts.Settings,
		dispatch: opts.Dispatch,
		now:      now,
	}, nil
}

// MustNewCronJobService constructs a new CronJobService and panics on error.
func MustNewCronJobService(opts CronJobServiceOptions) *CronJobService {
	svc, err := NewCronJobService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
	}
	return svc
}

// Trigger runs one cron job family if its toggle is enabled. It returns the
// recorded run; a disabled family yields a run with Success=false and a skip
// message rather than an error, so schedulers need no special casing.
func (s *CronJobService) Trigger(ctx context.Context, jobType model.CronJobType, triggeredBy string) (*model.CronJobRun, error) {
	if !jobType.Valid() {
		return nil, apperrors.Validationf("invalid cron job type: %q", jobType)
	}

	started := s.now()
	run := &model.CronJobRun{
		Type:        jobType,
		TriggeredBy: triggeredBy,
		StartedAt:   started,
	}

	if !s.settings.CronEnabled(jobType) {
		run.Message = "skipped: disabled by settings toggle"
		finished := s.now()
		run.FinishedAt = &finished
		s.logger.InfoContext(ctx, "cron job skipped", "type", jobType, "triggered_by", triggeredBy)
		return s.recordRun(ctx, run)
	}

	payload, err := json.Marshal(map[string]string{
		"cron_type":    string(jobType),
		"triggered_by": triggeredBy,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode cron payload")
	}

	job, err := s.dispatch.Enqueue(ctx, &model.EnqueueRequest{
		Queue:   cronQueueTargets[jobType],
		Payload: payload,
	})
	finished := s.now()
	run.FinishedAt = &finished
	if err != nil {
		run.Message = "enqueue failed: " + err.Error()
		if _, recErr := s.recordRun(ctx, run); recErr != nil {
			s.logger.ErrorContext(ctx, "failed to record cron run", "type", jobType, "error", recErr)
		}
		return nil, err
	}

	run.Success = true
	run.Message = "queued job " + job.ID
	s.logger.InfoContext(ctx, "cron job triggered",
		"type", jobType, "triggered_by", triggeredBy, "job_id", job.ID)
	return s.recordRun(ctx, run)
}

// States returns the current toggle view for every family.
func (s *CronJobService) States() []model.CronJobState {
	states := s.settings.CronStates()
	out := make([]model.CronJobState, 0, len(model.CronJobTypes))
	for _, t := range model.CronJobTypes {
		out = append(out, model.CronJobState{Type: t, Enabled: states[t]})
	}
	return out
}

// SetEnabled persists a family toggle.
func (s *CronJobService) SetEnabled(ctx context.Context, jobType model.CronJobType, enabled bool, updatedBy string) error {
	return s.settings.SetCronEnabled(ctx, jobType, enabled, updatedBy)
}

// History returns run history for one family, newest first.
func (s *CronJobService) History(ctx context.Context, jobType model.CronJobType, page model.Page) ([]*model.CronJobRun, error) {
	if !jobType.Valid() {
		return nil, apperrors.Validationf("invalid cron job type: %q", jobType)
	}
	runs, err := s.repo.ListRuns(ctx, jobType, page)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return runs, nil
}

func (s *CronJobService) recordRun(ctx context.Context, run *model.CronJobRun) (*model.CronJobRun, error) {
	recorded, err := s.repo.RecordRun(ctx, run)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return recorded, nil
}
