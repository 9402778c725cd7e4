package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/crmbridge/backend/internal/domain/model"
)

// ErrorLogRepo provides database operations for captured application errors.
type ErrorLogRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewErrorLogRepo creates a new ErrorLogRepo instance with the given database connection.
func NewErrorLogRepo(db *sql.DB) *ErrorLogRepo {
	return &ErrorLogRepo{
		DB:           db,
		timeProvider: &RealTimeProvider{},
	}
}

// errorLogColumns defines the column list for error log SELECT queries to ensure consistent field mapping.
const errorLogColumns = `id, type, source, environment, message, resolved, resolved_by, resolved_at, created_at, updated_at`

func scanErrorLog(row interface{ Scan(dest ...any) error }) (*model.ErrorLog, error) {
	var e model.ErrorLog
	if err := row.Scan(&e.ID, &e.Type, &e.Source, &e.Environment, &e.Message,
		&e.Resolved, &e.ResolvedBy, &e.ResolvedAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// Insert records one error entry.
func (r *ErrorLogRepo) Insert(ctx context.Context, req *model.RecordErrorLogRequest) (*model.ErrorLog, error) {
	if req == nil {
		return nil, errors.New("record error log request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := r.timeProvider.Now()
	query := `
		INSERT INTO error_logs (id, type, source, environment, message, resolved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6, $6)
		RETURNING ` + errorLogColumns

	entry, err := scanErrorLog(r.DB.QueryRowContext(ctx, query,
		uuid.NewString(), req.Type, req.Source, req.Environment, req.Message, now))
	if err != nil {
		return nil, fmt.Errorf("insert error log: %w", err)
	}
	return entry, nil
}

// GetByID fetches an error entry by id.
func (r *ErrorLogRepo) GetByID(ctx context.Context, id string) (*model.ErrorLog, error) {
	query := `SELECT ` + errorLogColumns + ` FROM error_logs WHERE id = $1`
	entry, err := scanErrorLog(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrErrorLogNotFound
		}
		return nil, fmt.Errorf("get error log: %w", err)
	}
	return entry, nil
}

// List returns a page of error entries matching the filter, newest first,
// along with the total match count.
func (r *ErrorLogRepo) List(ctx context.Context, filter model.ErrorLogFilter, page model.Page) (*model.ErrorLogPage, error) {
	page = page.Sanitize()

	var conditions []string
	var args []any

	add := func(cond string, val any) {
		args = append(args, val)
		conditions = append(conditions, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}

	if filter.Type != "" {
		add("type = ?", filter.Type)
	}
	if filter.Source != "" {
		add("source = ?", filter.Source)
	}
	if filter.Environment != "" {
		add("environment = ?", filter.Environment)
	}
	if filter.Resolved != nil {
		add("resolved = ?", *filter.Resolved)
	}
	if filter.From != nil {
		add("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		add("created_at <= ?", *filter.To)
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		conditions = append(conditions, "(message ILIKE $"+n+" OR source ILIKE $"+n+")")
	}

	where := whereClause(conditions)

	var total int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM error_logs`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count error logs: %w", err)
	}

	args = append(args, page.Limit, page.Offset)
	query := fmt.Sprintf(`SELECT %s FROM error_logs%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		errorLogColumns, where, len(args)-1, len(args))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list error logs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	items := make([]*model.ErrorLog, 0, page.Limit)
	for rows.Next() {
		entry, err := scanErrorLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan error log: %w", err)
		}
		items = append(items, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list error logs: %w", err)
	}
	return &model.ErrorLogPage{Items: items, Total: total}, nil
}

// SetResolved marks an error entry resolved (resolvedBy non-nil) or reopens
// it (resolvedBy nil).
func (r *ErrorLogRepo) SetResolved(ctx context.Context, id string, resolvedBy *string) (*model.ErrorLog, error) {
	now := r.timeProvider.Now()

	var query string
	var args []any
	if resolvedBy != nil {
		query = `
			UPDATE error_logs
			SET resolved = TRUE, resolved_by = $2, resolved_at = $3, updated_at = $3
			WHERE id = $1
			RETURNING ` + errorLogColumns
		args = []any{id, *resolvedBy, now}
	} else {
		query = `
			UPDATE error_logs
			SET resolved = FALSE, resolved_by = NULL, resolved_at = NULL, updated_at = $2
			WHERE id = $1
			RETURNING ` + errorLogColumns
		args = []any{id, now}
	}

	entry, err := scanErrorLog(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrErrorLogNotFound
		}
		return nil, fmt.Errorf("set error log resolved: %w", err)
	}
	return entry, nil
}

// BulkDelete removes the given error entries and returns how many existed.
func (r *ErrorLogRepo) BulkDelete(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}

	query := fmt.Sprintf(`DELETE FROM error_logs WHERE id IN (%s)`, strings.Join(placeholders, ", "))
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("bulk delete error logs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bulk delete error logs: %w", err)
	}
	return n, nil
}
