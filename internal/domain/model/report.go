package model

import (
	"encoding/json"
	"errors"
	"time"
)

// Report is a persisted, named snapshot of aggregate data produced for the
// admin console.
type Report struct {
	ID          string          `json:"id"          db:"id"`
	Name        string          `json:"name"        db:"name"`
	Kind        string          `json:"kind"        db:"kind"`
	Parameters  json.RawMessage `json:"parameters,omitempty" db:"parameters"`
	Data        json.RawMessage `json:"data,omitempty"       db:"data"`
	GeneratedBy string          `json:"generated_by" db:"generated_by"`
	CreatedAt   time.Time       `json:"created_at"  db:"created_at"`
}

// CreateReportRequest describes a new report snapshot.
type CreateReportRequest struct {
	Name       string          `json:"name"`
	Kind       string          `json:"kind"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// Validate validates the CreateReportRequest fields.
func (r *CreateReportRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.Kind == "" {
		return errors.New("kind is required")
	}
	return nil
}
