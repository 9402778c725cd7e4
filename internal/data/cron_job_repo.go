package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/crmbridge/backend/internal/domain/model"
)

// CronJobRepo provides database operations for scheduled job run history.
type CronJobRepo struct {
	DB *sql.DB
}

// NewCronJobRepo creates a new CronJobRepo instance with the given database connection.
func NewCronJobRepo(db *sql.DB) *CronJobRepo {
	return &CronJobRepo{DB: db}
}

const cronJobRunColumns = `id, type, triggered_by, success, message, started_at, finished_at`

// RecordRun persists one scheduled job execution.
func (r *CronJobRepo) RecordRun(ctx context.Context, run *model.CronJobRun) (*model.CronJobRun, error) {
	if run == nil {
		return nil, errors.New("cron job run is required")
	}
	if !run.Type.Valid() {
		return nil, fmt.Errorf("invalid cron job type: %q", run.Type)
	}

	id := run.ID
	if id == "" {
		id = uuid.NewString()
	}

	query := `
		INSERT INTO cron_job_runs (id, type, triggered_by, success, message, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + cronJobRunColumns

	var out model.CronJobRun
	err := r.DB.QueryRowContext(ctx, query,
		id, run.Type, run.TriggeredBy, run.Success, run.Message, run.StartedAt, run.FinishedAt).
		Scan(&out.ID, &out.Type, &out.TriggeredBy, &out.Success, &out.Message, &out.StartedAt, &out.FinishedAt)
	if err != nil {
		return nil, fmt.Errorf("record cron job run: %w", err)
	}
	return &out, nil
}

// ListRuns returns run history for one job family, newest first.
func (r *CronJobRepo) ListRuns(ctx context.Context, jobType model.CronJobType, page model.Page) ([]*model.CronJobRun, error) {
	page = page.Sanitize()

	query := `SELECT ` + cronJobRunColumns + ` FROM cron_job_runs WHERE type = $1 ORDER BY started_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, jobType, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list cron job runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var runs []*model.CronJobRun
	for rows.Next() {
		var run model.CronJobRun
		if err := rows.Scan(&run.ID, &run.Type, &run.TriggeredBy, &run.Success, &run.Message, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan cron job run: %w", err)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cron job runs: %w", err)
	}
	return runs, nil
}
