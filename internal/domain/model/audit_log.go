package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AuditLog is one record per outbound call attempt.
type AuditLog struct {
	ID          string     `json:"id"             db:"id"`
	Actor       string     `json:"actor"          db:"actor"`
	ActorKind   string     `json:"actor_kind"     db:"actor_kind"`
	Action      string     `json:"action"         db:"action"`
	Endpoint    string     `json:"endpoint"       db:"endpoint"`
	Method      string     `json:"method"         db:"method"`
	StatusCode  int        `json:"status_code"    db:"status_code"`
	DurationMS  int64      `json:"duration_ms"    db:"duration_ms"`
	JobID       *string    `json:"job_id,omitempty" db:"job_id"`
	Message     string     `json:"message,omitempty" db:"message"`
	Delivered   bool       `json:"delivered"      db:"delivered"`
	CreatedAt   time.Time  `json:"created_at"     db:"created_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`
}

// RecordAuditLogRequest describes a new audit record.
type RecordAuditLogRequest struct {
	Actor      string  `json:"actor"`
	ActorKind  string  `json:"actor_kind"`
	Action     string  `json:"action"`
	Endpoint   string  `json:"endpoint"`
	Method     string  `json:"method"`
	StatusCode int     `json:"status_code"`
	DurationMS int64   `json:"duration_ms"`
	JobID      *string `json:"job_id,omitempty"`
	Message    string  `json:"message,omitempty"`
}

// Validate validates the RecordAuditLogRequest fields.
func (r *RecordAuditLogRequest) Validate() error {
	if r.Actor == "" {
		return errors.New("actor is required")
	}
	if r.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if r.Method == "" {
		return errors.New("method is required")
	}
	return nil
}

// AuditLogFilter shapes audit log queries. Building a filter never mutates
// records; it only produces query conditions.
type AuditLogFilter struct {
	Actor      string            `json:"actor,omitempty"`
	ActorKind  string            `json:"actor_kind,omitempty"`
	Action     string            `json:"action,omitempty"`
	Method     string            `json:"method,omitempty"`
	StatusCode *int              `json:"status_code,omitempty"`
	Delivered  *bool             `json:"delivered,omitempty"`
	From       *time.Time        `json:"from,omitempty"`
	To         *time.Time        `json:"to,omitempty"`
	Search     string            `json:"search,omitempty"`
	Columns    map[string]string `json:"columns,omitempty"`
}

// Page holds pagination bounds for list queries.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// Sanitize clamps the page bounds to safe values.
func (p Page) Sanitize() Page {
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// AuditLogPage is a page of audit records plus the total match count.
type AuditLogPage struct {
	Items []*AuditLog `json:"items"`
	Total int64       `json:"total"`
}

// KeyCount is a generic (key, count) aggregate row.
type KeyCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// HourCount is a per-hour trend row.
type HourCount struct {
	Hour  time.Time `json:"hour"`
	Count int64     `json:"count"`
}

// AuditStats aggregates audit records for the dashboard.
type AuditStats struct {
	Total        int64       `json:"total"`
	ByAction     []KeyCount  `json:"by_action"`
	ByMethod     []KeyCount  `json:"by_method"`
	ByStatus     []KeyCount  `json:"by_status"`
	HourlyTrend  []HourCount `json:"hourly_trend"`
	TopEndpoints []KeyCount  `json:"top_endpoints"`
	ByActor      []KeyCount  `json:"by_actor"`
}

// ExportFormat is one of the recognized audit export formats.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportJSON ExportFormat = "json"
	ExportXLSX ExportFormat = "xlsx"
)

// ParseExportFormat validates a requested export format. It must reject
// anything outside the three recognized values before any data is fetched.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case ExportCSV, ExportJSON, ExportXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format: %q (expected csv, json, or xlsx)", s)
	}
}

// ContentType returns the HTTP content type for the export format.
func (f ExportFormat) ContentType() string {
	switch f {
	case ExportJSON:
		return "application/json"
	case ExportXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ExportCSV:
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
