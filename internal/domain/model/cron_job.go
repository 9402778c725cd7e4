package model

import (
	"fmt"
	"strings"
	"time"
)

// CronJobType identifies one of the toggleable scheduled job families.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type CronJobType string

const (
	CronPledge    CronJobType = "pledge"
	CronOneoff    CronJobType = "oneoff"
	CronRecurring CronJobType = "recurring"
	CronHourly    CronJobType = "hourly"
)

// CronJobTypes lists all toggleable job families in a stable order.
var CronJobTypes = []CronJobType{CronPledge, CronOneoff, CronRecurring, CronHourly}

// Valid returns true if the CronJobType is one of the known families.
func (t CronJobType) Valid() bool {
	return t == CronPledge || t == CronOneoff || t == CronRecurring || t == CronHourly
}

// UnmarshalText implements encoding.TextUnmarshaler for CronJobType.
func (t *CronJobType) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	ct := CronJobType(v)
	if ct.Valid() {
		*t = ct
		return nil
	}
	return fmt.Errorf("invalid CronJobType: %q", v)
}

// CronJobState is the toggle state for one job family.
type CronJobState struct {
	Type      CronJobType `json:"type"`
	Enabled   bool        `json:"enabled"`
	UpdatedBy string      `json:"updated_by,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// DefaultCronJobStates returns the hardcoded fallback used when the settings
// store is unavailable at boot: all families enabled.
func DefaultCronJobStates() map[CronJobType]bool {
	states := make(map[CronJobType]bool, len(CronJobTypes))
	for _, t := range CronJobTypes {
		states[t] = true
	}
	return states
}

// CronJobRun is one recorded execution of a scheduled job family.
type CronJobRun struct {
	ID          string      `json:"id"          db:"id"`
	Type        CronJobType `json:"type"        db:"type"`
	TriggeredBy string      `json:"triggered_by" db:"triggered_by"`
	Success     bool        `json:"success"     db:"success"`
	Message     string      `json:"message,omitempty" db:"message"`
	StartedAt   time.Time   `json:"started_at"  db:"started_at"`
	FinishedAt  *time.Time  `json:"finished_at,omitempty" db:"finished_at"`
}
