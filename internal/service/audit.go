package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/crmbridge/backend/internal/core"
	"github.com/crmbridge/backend/internal/domain/model"
	apperrors "github.com/crmbridge/backend/internal/errors"
)

// exportPageLimit bounds how many rows a single export fetches.
const exportPageLimit = 500

// AuditServiceOptions groups dependencies for AuditService.
type AuditServiceOptions struct {
	Logger *slog.Logger
	Repo   core.AuditLogRepository
}

// AuditService provides business logic for the outbound call audit trail.
type AuditService struct {
	logger *slog.Logger
	repo   core.AuditLogRepository
}

// NewAuditService constructs a new AuditService.
func NewAuditService(opts AuditServiceOptions) (*AuditService, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Repo == nil {
		return nil, errors.New("AuditLogRepository is required")
	}
	return &AuditService{logger: opts.Logger, repo: opts.Repo}, nil
}

// MustNewAuditService constructs a new AuditService and panics on error.
func MustNewAuditService(opts AuditServiceOptions) *AuditService {
	svc, err := NewAuditService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
	}
	return svc
}

// Record persists one audit entry.
func (s *AuditService) Record(ctx context.Context, req *model.RecordAuditLogRequest) (*model.AuditLog, error) {
	if req == nil {
		return nil, apperrors.Validation("record audit log request is required")
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

// List returns a page of audit entries matching the filter.
func (s *AuditService) List(ctx context.Context, filter model.AuditLogFilter, page model.Page) (*model.AuditLogPage, error) {
	result, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return result, nil
}

// Stats aggregates audit entries matching the filter.
func (s *AuditService) Stats(ctx context.Context, filter model.AuditLogFilter) (*model.AuditStats, error) {
	stats, err := s.repo.Stats(ctx, filter)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return stats, nil
}

// MarkDelivered flips the delivered flag for audit entries tied to the given
// job ids. Called by workers after the broker acknowledges the jobs.
func (s *AuditService) MarkDelivered(ctx context.Context, jobIDs []string) (int64, error) {
	n, err := s.repo.MarkDelivered(ctx, jobIDs)
	if err != nil {
		return 0, apperrors.MapDBError(err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "audit entries marked delivered", "count", n)
	}
	return n, nil
}

// Export renders audit entries matching the filter in the requested format.
// The format string is validated before any data is fetched, so an
// unsupported format never costs a query.
func (s *AuditService) Export(ctx context.Context, formatStr string, filter model.AuditLogFilter) ([]byte, model.ExportFormat, error) {
	format, err := model.ParseExportFormat(formatStr)
	if err != nil {
		return nil, "", apperrors.Validation(err.Error())
	}

	page, err := s.repo.List(ctx, filter, model.Page{Limit: exportPageLimit})
	if err != nil {
		return nil, "", apperrors.MapDBError(err)
	}

	var payload []byte
	switch format {
	case model.ExportJSON:
		payload, err = json.MarshalIndent(page.Items, "", "  ")
	case model.ExportCSV:
		payload, err = renderAuditCSV(page.Items)
	case model.ExportXLSX:
		payload, err = renderAuditXLSX(page.Items)
	}
	if err != nil {
		return nil, "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "render audit export")
	}

	s.logger.InfoContext(ctx, "audit export generated", "format", format, "rows", len(page.Items))
	return payload, format, nil
}

var auditExportHeader = []string{
	"id", "actor", "actor_kind", "action", "endpoint", "method",
	"status_code", "duration_ms", "job_id", "message", "delivered", "created_at",
}

func auditExportRow(e *model.AuditLog) []string {
	jobID := ""
	if e.JobID != nil {
		jobID = *e.JobID
	}
	return []string{
		e.ID, e.Actor, e.ActorKind, e.Action, e.Endpoint, e.Method,
		strconv.Itoa(e.StatusCode), strconv.FormatInt(e.DurationMS, 10),
		jobID, e.Message, strconv.FormatBool(e.Delivered),
		e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func renderAuditCSV(items []*model.AuditLog) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(auditExportHeader); err != nil {
		return nil, err
	}
	for _, e := range items {
		if err := w.Write(auditExportRow(e)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderAuditXLSX(items []*model.AuditLog) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // in-memory workbook

	const sheet = "Audit Logs"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	for col, name := range auditExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return nil, err
		}
	}
	for rowIdx, e := range items {
		for col, val := range auditExportRow(e) {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
