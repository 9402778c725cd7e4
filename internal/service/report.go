package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/crmbridge/backend/internal/core"
	"github.com/crmbridge/backend/internal/data"
	"github.com/crmbridge/backend/internal/domain/model"
	apperrors "github.com/crmbridge/backend/internal/errors"
)

// ReportServiceOptions groups dependencies for ReportService.
type ReportServiceOptions struct {
	Logger *slog.Logger
	Repo   core.ReportRepository
	Audit  *AuditService
}

// ReportService builds and persists named report snapshots for the admin
// console.
type ReportService struct {
	logger *slog.Logger
	repo   core.ReportRepository
	audit  *AuditService
}

// NewReportService constructs a new ReportService.
func NewReportService(opts ReportServiceOptions) (*ReportService, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Repo == nil {
		return nil, errors.New("ReportRepository is required")
	}
	return &ReportService{logger: opts.Logger, repo: opts.Repo, audit: opts.Audit}, nil
}

// MustNewReportService constructs a new ReportService and panics on error.
func MustNewReportService(opts ReportServiceOptions) *ReportService {
	svc, err := NewReportService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
	}
	return svc
}

// Create persists a report snapshot. For the built-in "audit_activity" kind
// the data is generated from the audit trail; other kinds store the caller's
// data verbatim.
func (s *ReportService) Create(ctx context.Context, req *model.CreateReportRequest, generatedBy string) (*model.Report, error) {
	if req == nil {
		return nil, apperrors.Validation("create report request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	if req.Kind == "audit_activity" && s.audit != nil {
		var filter model.AuditLogFilter
		if len(req.Parameters) > 0 {
			if err := json.Unmarshal(req.Parameters, &filter); err != nil {
				return nil, apperrors.ValidationField("parameters", "malformed audit filter")
			}
		}
		stats, err := s.audit.Stats(ctx, filter)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(stats)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode report data")
		}
		req.Data = encoded
	}

	report, err := s.repo.Create(ctx, req, generatedBy)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	s.logger.InfoContext(ctx, "report generated",
		"report_id", report.ID, "kind", report.Kind, "generated_by", generatedBy)
	return report, nil
}

// Get fetches a report snapshot by id.
func (s *ReportService) Get(ctx context.Context, id string) (*model.Report, error) {
	report, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrReportNotFound) {
			return nil, apperrors.NotFound("report not found")
		}
		return nil, apperrors.MapDBError(err)
	}
	return report, nil
}

// List returns report snapshots, newest first.
func (s *ReportService) List(ctx context.Context, page model.Page) ([]*model.Report, error) {
	reports, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return reports, nil
}
