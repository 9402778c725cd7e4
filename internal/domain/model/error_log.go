package model

import (
	"errors"
	"time"
)

// ErrorLog is one application error captured for operator inspection.
type ErrorLog struct {
	ID          string     `json:"id"           db:"id"`
	Type        string     `json:"type"         db:"type"`
	Source      string     `json:"source"       db:"source"`
	Environment string     `json:"environment"  db:"environment"`
	Message     string     `json:"message"      db:"message"`
	Resolved    bool       `json:"resolved"     db:"resolved"`
	ResolvedBy  *string    `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	CreatedAt   time.Time  `json:"created_at"   db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"   db:"updated_at"`
}

// RecordErrorLogRequest describes a new error record.
type RecordErrorLogRequest struct {
	Type        string `json:"type"`
	Source      string `json:"source"`
	Environment string `json:"environment"`
	Message     string `json:"message"`
}

// Validate validates the RecordErrorLogRequest fields.
func (r *RecordErrorLogRequest) Validate() error {
	if r.Type == "" {
		return errors.New("type is required")
	}
	if r.Message == "" {
		return errors.New("message is required")
	}
	return nil
}

// ErrorLogFilter shapes error log queries.
type ErrorLogFilter struct {
	Type        string     `json:"type,omitempty"`
	Source      string     `json:"source,omitempty"`
	Environment string     `json:"environment,omitempty"`
	Resolved    *bool      `json:"resolved,omitempty"`
	From        *time.Time `json:"from,omitempty"`
	To          *time.Time `json:"to,omitempty"`
	Search      string     `json:"search,omitempty"`
}

// ErrorLogPage is a page of error records plus the total match count.
type ErrorLogPage struct {
	Items []*ErrorLog `json:"items"`
	Total int64       `json:"total"`
}
