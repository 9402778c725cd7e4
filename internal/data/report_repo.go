package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/crmbridge/backend/internal/domain/model"
)

// ReportRepo provides database operations for persisted report snapshots.
type ReportRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewReportRepo creates a new ReportRepo instance with the given database connection.
func NewReportRepo(db *sql.DB) *ReportRepo {
	return &ReportRepo{
		DB:           db,
		timeProvider: &RealTimeProvider{},
	}
}

const reportColumns = `id, name, kind, parameters, data, generated_by, created_at`

func scanReport(row interface{ Scan(dest ...any) error }) (*model.Report, error) {
	var rep model.Report
	var params, data []byte
	if err := row.Scan(&rep.ID, &rep.Name, &rep.Kind, &params, &data, &rep.GeneratedBy, &rep.CreatedAt); err != nil {
		return nil, err
	}
	rep.Parameters = json.RawMessage(params)
	rep.Data = json.RawMessage(data)
	return &rep, nil
}

// Create persists a new report snapshot.
func (r *ReportRepo) Create(ctx context.Context, req *model.CreateReportRequest, generatedBy string) (*model.Report, error) {
	if req == nil {
		return nil, errors.New("create report request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	params := req.Parameters
	if params == nil {
		params = json.RawMessage(`{}`)
	}
	data := req.Data
	if data == nil {
		data = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO reports (id, name, kind, parameters, data, generated_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + reportColumns

	report, err := scanReport(r.DB.QueryRowContext(ctx, query,
		uuid.NewString(), req.Name, req.Kind, []byte(params), []byte(data), generatedBy, r.timeProvider.Now()))
	if err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	return report, nil
}

// GetByID fetches a report snapshot by id.
func (r *ReportRepo) GetByID(ctx context.Context, id string) (*model.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`
	report, err := scanReport(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return report, nil
}

// List returns report snapshots, newest first.
func (r *ReportRepo) List(ctx context.Context, page model.Page) ([]*model.Report, error) {
	page = page.Sanitize()

	query := `SELECT ` + reportColumns + ` FROM reports ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, query, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var reports []*model.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}
