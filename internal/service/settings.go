package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/crmbridge/backend/internal/core"
	"github.com/crmbridge/backend/internal/data"
	"github.com/crmbridge/backend/internal/domain/model"
	apperrors "github.com/crmbridge/backend/internal/errors"
)

// CronSettingsCategory is the settings category holding the per-family cron
// toggles. Keys are the cron job type names, values are booleans.
const CronSettingsCategory = "cron"

// SettingsServiceOptions groups dependencies for SettingsService.
type SettingsServiceOptions struct {
	Logger *slog.Logger
	Repo   core.SettingRepository
}

// SettingsService provides typed access to system settings and keeps an
// in-memory view of the cron toggles so scheduling decisions survive a
// settings store outage.
type SettingsService struct {
	logger *slog.Logger
	repo   core.SettingRepository

	mu         sync.RWMutex
	cronStates map[model.CronJobType]bool
}

// NewSettingsService constructs a new SettingsService.
func NewSettingsService(opts SettingsServiceOptions) (*SettingsService, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Repo == nil {
		return nil, errors.New("SettingRepository is required")
	}
	return &SettingsService{
		logger:     opts.Logger,
		repo:       opts.Repo,
		cronStates: model.DefaultCronJobStates(),
	}, nil
}

// MustNewSettingsService constructs a new SettingsService and panics on error.
func MustNewSettingsService(opts SettingsServiceOptions) *SettingsService {
	svc, err := NewSettingsService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
	}
	return svc
}

// Upsert encodes and stores a setting. The value must match the declared type.
func (s *SettingsService) Upsert(ctx context.Context, req *model.UpsertSettingRequest, updatedBy string) (*model.SystemSetting, error) {
	if req == nil {
		return nil, apperrors.Validation("upsert setting request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	raw, err := model.EncodeSettingValue(req.Type, req.Value)
	if err != nil {
		return nil, apperrors.ValidationField("value", err.Error())
	}

	setting, err := s.repo.Upsert(ctx, req, raw, updatedBy)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	s.logger.InfoContext(ctx, "setting updated",
		"category", setting.Category, "key", setting.Key, "updated_by", updatedBy)

	// Keep the in-memory cron view in step with toggle writes.
	if setting.Category == CronSettingsCategory {
		var jobType model.CronJobType
		if err := jobType.UnmarshalText([]byte(setting.Key)); err == nil {
			if enabled, ok := req.Value.(bool); ok {
				s.setCronState(jobType, enabled)
			}
		}
	}
	return setting, nil
}

// Get fetches a setting and decodes its value.
func (s *SettingsService) Get(ctx context.Context, category, key string) (*model.SystemSetting, any, error) {
	setting, err := s.repo.Get(ctx, category, key)
	if err != nil {
		if errors.Is(err, data.ErrSettingNotFound) {
			return nil, nil, apperrors.NotFound("setting not found")
		}
		return nil, nil, apperrors.MapDBError(err)
	}
	value, err := setting.Value()
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "decode stored setting")
	}
	return setting, value, nil
}

// List returns settings in a category, or every setting when category is empty.
func (s *SettingsService) List(ctx context.Context, category string) ([]*model.SystemSetting, error) {
	settings, err := s.repo.List(ctx, category)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return settings, nil
}

// HydrateCronStates loads the cron toggles from the settings store into the
// in-memory view. On any failure the view keeps its previous state, which at
// boot is the all-enabled default.
func (s *SettingsService) HydrateCronStates(ctx context.Context) {
	settings, err := s.repo.List(ctx, CronSettingsCategory)
	if err != nil {
		s.logger.WarnContext(ctx, "cron toggles unavailable, keeping current state", "error", err)
		return
	}

	states := model.DefaultCronJobStates()
	for _, setting := range settings {
		var jobType model.CronJobType
		if err := jobType.UnmarshalText([]byte(setting.Key)); err != nil {
			continue
		}
		value, err := setting.Value()
		if err != nil {
			s.logger.WarnContext(ctx, "malformed cron toggle, treating as enabled",
				"key", setting.Key, "error", err)
			continue
		}
		if enabled, ok := value.(bool); ok {
			states[jobType] = enabled
		}
	}

	s.mu.Lock()
	s.cronStates = states
	s.mu.Unlock()
	s.logger.InfoContext(ctx, "cron toggles hydrated", "states", states)
}

// CronEnabled reports whether the given cron job family is enabled. Unknown
// families are disabled.
func (s *SettingsService) CronEnabled(jobType model.CronJobType) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	enabled, ok := s.cronStates[jobType]
	return ok && enabled
}

// CronStates returns a copy of the current toggle view.
func (s *SettingsService) CronStates() map[model.CronJobType]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[model.CronJobType]bool, len(s.cronStates))
	for k, v := range s.cronStates {
		out[k] = v
	}
	return out
}

// SetCronEnabled applies a cron toggle to the in-memory view first, then
// best-effort persists it. A settings-store outage does not fail the toggle;
// memory and storage reconcile at the next hydration, with storage as the
// source of truth.
func (s *SettingsService) SetCronEnabled(ctx context.Context, jobType model.CronJobType, enabled bool, updatedBy string) error {
	if !jobType.Valid() {
		return apperrors.Validationf("invalid cron job type: %q", jobType)
	}
	s.setCronState(jobType, enabled)

	if _, err := s.Upsert(ctx, &model.UpsertSettingRequest{
		Category: CronSettingsCategory,
		Key:      string(jobType),
		Type:     model.SettingBoolean,
		Value:    enabled,
	}, updatedBy); err != nil {
		s.logger.WarnContext(ctx, "cron toggle applied in memory but not persisted",
			"job_type", jobType, "enabled", enabled, "error", err)
	}
	return nil
}

func (s *SettingsService) setCronState(jobType model.CronJobType, enabled bool) {
	s.mu.Lock()
	s.cronStates[jobType] = enabled
	s.mu.Unlock()
}
