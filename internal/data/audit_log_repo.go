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

// AuditLogRepo provides database operations for the outbound call audit trail.
type AuditLogRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewAuditLogRepo creates a new AuditLogRepo instance with the given database connection.
func NewAuditLogRepo(db *sql.DB) *AuditLogRepo {
	return &AuditLogRepo{
		DB:           db,
		timeProvider: &RealTimeProvider{},
	}
}

// auditLogColumns defines the column list for audit log SELECT queries to ensure consistent field mapping.
const auditLogColumns = `id, actor, actor_kind, action, endpoint, method, status_code, duration_ms, job_id, message, delivered, delivered_at, created_at`

// filterableAuditColumns whitelists the columns callers may match on through
// the generic column filter. Anything else is ignored rather than
// interpolated into SQL.
var filterableAuditColumns = map[string]bool{
	"actor":       true,
	"actor_kind":  true,
	"action":      true,
	"endpoint":    true,
	"method":      true,
	"status_code": true,
}

func scanAuditLog(row interface{ Scan(dest ...any) error }) (*model.AuditLog, error) {
	var a model.AuditLog
	if err := row.Scan(&a.ID, &a.Actor, &a.ActorKind, &a.Action, &a.Endpoint, &a.Method,
		&a.StatusCode, &a.DurationMS, &a.JobID, &a.Message, &a.Delivered, &a.DeliveredAt, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// buildAuditFilter translates a filter into WHERE conditions and positional args.
func buildAuditFilter(filter model.AuditLogFilter) ([]string, []any) {
	var conditions []string
	var args []any

	add := func(cond string, val any) {
		args = append(args, val)
		conditions = append(conditions, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}

	if filter.Actor != "" {
		add("actor = ?", filter.Actor)
	}
	if filter.ActorKind != "" {
		add("actor_kind = ?", filter.ActorKind)
	}
	if filter.Action != "" {
		add("action = ?", filter.Action)
	}
	if filter.Method != "" {
		add("method = ?", strings.ToUpper(filter.Method))
	}
	if filter.StatusCode != nil {
		add("status_code = ?", *filter.StatusCode)
	}
	if filter.Delivered != nil {
		add("delivered = ?", *filter.Delivered)
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
		conditions = append(conditions, "(endpoint ILIKE $"+n+" OR message ILIKE $"+n+" OR actor ILIKE $"+n+")")
	}
	for col, val := range filter.Columns {
		if !filterableAuditColumns[col] {
			continue
		}
		add(col+" = ?", val)
	}
	return conditions, args
}

func whereClause(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}

// Insert records one audit entry.
func (r *AuditLogRepo) Insert(ctx context.Context, req *model.RecordAuditLogRequest) (*model.AuditLog, error) {
	if req == nil {
		return nil, errors.New("record audit log request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO audit_logs (id, actor, actor_kind, action, endpoint, method, status_code, duration_ms, job_id, message, delivered, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE, $11)
		RETURNING ` + auditLogColumns

	row := r.DB.QueryRowContext(ctx, query,
		uuid.NewString(), req.Actor, req.ActorKind, req.Action, req.Endpoint,
		strings.ToUpper(req.Method), req.StatusCode, req.DurationMS, req.JobID, req.Message,
		r.timeProvider.Now())
	entry, err := scanAuditLog(row)
	if err != nil {
		return nil, fmt.Errorf("insert audit log: %w", err)
	}
	return entry, nil
}

// List returns a page of audit entries matching the filter, newest first,
// along with the total match count.
func (r *AuditLogRepo) List(ctx context.Context, filter model.AuditLogFilter, page model.Page) (*model.AuditLogPage, error) {
	page = page.Sanitize()
	conditions, args := buildAuditFilter(filter)
	where := whereClause(conditions)

	var total int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count audit logs: %w", err)
	}

	args = append(args, page.Limit, page.Offset)
	query := fmt.Sprintf(`SELECT %s FROM audit_logs%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		auditLogColumns, where, len(args)-1, len(args))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	items := make([]*model.AuditLog, 0, page.Limit)
	for rows.Next() {
		entry, err := scanAuditLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		items = append(items, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return &model.AuditLogPage{Items: items, Total: total}, nil
}

const statsGroupLimit = 10

// Stats aggregates audit entries matching the filter for the dashboard.
func (r *AuditLogRepo) Stats(ctx context.Context, filter model.AuditLogFilter) (*model.AuditStats, error) {
	conditions, args := buildAuditFilter(filter)
	where := whereClause(conditions)

	stats := &model.AuditStats{}
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("audit stats total: %w", err)
	}

	groupBys := []struct {
		column string
		dest   *[]model.KeyCount
	}{
		{"action", &stats.ByAction},
		{"method", &stats.ByMethod},
		{"status_code::text", &stats.ByStatus},
		{"endpoint", &stats.TopEndpoints},
		{"actor", &stats.ByActor},
	}
	for _, g := range groupBys {
		query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM audit_logs%s GROUP BY 1 ORDER BY 2 DESC LIMIT %d`,
			g.column, where, statsGroupLimit)
		counts, err := r.queryKeyCounts(ctx, query, args)
		if err != nil {
			return nil, fmt.Errorf("audit stats by %s: %w", g.column, err)
		}
		*g.dest = counts
	}

	trendQuery := `SELECT date_trunc('hour', created_at) AS hour, COUNT(*) FROM audit_logs` +
		where + ` GROUP BY 1 ORDER BY 1`
	rows, err := r.DB.QueryContext(ctx, trendQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("audit stats trend: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	for rows.Next() {
		var hc model.HourCount
		if err := rows.Scan(&hc.Hour, &hc.Count); err != nil {
			return nil, fmt.Errorf("scan audit trend: %w", err)
		}
		stats.HourlyTrend = append(stats.HourlyTrend, hc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit stats trend: %w", err)
	}
	return stats, nil
}

func (r *AuditLogRepo) queryKeyCounts(ctx context.Context, query string, args []any) ([]model.KeyCount, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var counts []model.KeyCount
	for rows.Next() {
		var kc model.KeyCount
		if err := rows.Scan(&kc.Key, &kc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, kc)
	}
	return counts, rows.Err()
}

// MarkDelivered flips the delivered flag on every audit entry carrying one of
// the given job ids. Already-delivered rows are skipped, so re-marking after
// a retry is idempotent.
func (r *AuditLogRepo) MarkDelivered(ctx context.Context, jobIDs []string) (int64, error) {
	if len(jobIDs) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(jobIDs))
	args := make([]any, 0, len(jobIDs)+1)
	args = append(args, r.timeProvider.Now())
	for i, id := range jobIDs {
		args = append(args, id)
		placeholders[i] = "$" + strconv.Itoa(len(args))
	}

	query := fmt.Sprintf(`
		UPDATE audit_logs
		SET delivered = TRUE, delivered_at = $1
		WHERE delivered = FALSE AND job_id IN (%s)`, strings.Join(placeholders, ", "))

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mark audit logs delivered: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark audit logs delivered: %w", err)
	}
	return n, nil
}
