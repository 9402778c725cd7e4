package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/crmbridge/backend/internal/core"
	"github.com/crmbridge/backend/internal/data"
	"github.com/crmbridge/backend/internal/domain/model"
	apperrors "github.com/crmbridge/backend/internal/errors"
)

// ErrorLogServiceOptions groups dependencies for ErrorLogService.
type ErrorLogServiceOptions struct {
	Logger *slog.Logger
	Repo   core.ErrorLogRepository
}

// ErrorLogService provides business logic for captured application errors.
type ErrorLogService struct {
	logger *slog.Logger
	repo   core.ErrorLogRepository
}

// NewErrorLogService constructs a new ErrorLogService.
func NewErrorLogService(opts ErrorLogServiceOptions) (*ErrorLogService, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Repo == nil {
		return nil, errors.New("ErrorLogRepository is required")
	}
	return &ErrorLogService{logger: opts.Logger, repo: opts.Repo}, nil
}

// MustNewErrorLogService constructs a new ErrorLogService and panics on error.
func MustNewErrorLogService(opts ErrorLogServiceOptions) *ErrorLogService {
	svc, err := NewErrorLogService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
	}
	return svc
}

// Record persists one error entry.
func (s *ErrorLogService) Record(ctx context.Context, req *model.RecordErrorLogRequest) (*model.ErrorLog, error) {
	if req == nil {
		return nil, apperrors.Validation("record error log request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	entry, err := s.repo.Insert(ctx, req)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return entry, nil
}

// Get fetches an error entry by id.
func (s *ErrorLogService) Get(ctx context.Context, id string) (*model.ErrorLog, error) {
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrErrorLogNotFound) {
			return nil, apperrors.NotFound("error log not found")
		}
		return nil, apperrors.MapDBError(err)
	}
	return entry, nil
}

// List returns a page of error entries matching the filter.
func (s *ErrorLogService) List(ctx context.Context, filter model.ErrorLogFilter, page model.Page) (*model.ErrorLogPage, error) {
	result, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return result, nil
}

// Resolve marks an error entry resolved by the given operator.
func (s *ErrorLogService) Resolve(ctx context.Context, id, resolvedBy string) (*model.ErrorLog, error) {
	entry, err := s.repo.SetResolved(ctx, id, &resolvedBy)
	if err != nil {
		if errors.Is(err, data.ErrErrorLogNotFound) {
			return nil, apperrors.NotFound("error log not found")
		}
		return nil, apperrors.MapDBError(err)
	}
	s.logger.InfoContext(ctx, "error log resolved", "error_log_id", id, "resolved_by", resolvedBy)
	return entry, nil
}

// Reopen clears the resolved state of an error entry.
func (s *ErrorLogService) Reopen(ctx context.Context, id string) (*model.ErrorLog, error) {
	entry, err := s.repo.SetResolved(ctx, id, nil)
	if err != nil {
		if errors.Is(err, data.ErrErrorLogNotFound) {
			return nil, apperrors.NotFound("error log not found")
		}
		return nil, apperrors.MapDBError(err)
	}
	s.logger.InfoContext(ctx, "error log reopened", "error_log_id", id)
	return entry, nil
}

// BulkDelete removes the given error entries.
func (s *ErrorLogService) BulkDelete(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, apperrors.Validation("at least one id is required")
	}
	n, err := s.repo.BulkDelete(ctx, ids)
	if err != nil {
		return 0, apperrors.MapDBError(err)
	}
	s.logger.InfoContext(ctx, "error logs deleted", "requested", len(ids), "deleted", n)
	return n, nil
}
