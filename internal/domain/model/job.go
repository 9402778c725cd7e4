// Package model defines the core data types and structures used throughout the crmbridge system.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// QueueName identifies one of the named outbound job queues.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type QueueName string

// JobState represents the current state of a job in its queue.
type JobState string

const (
	// QueueOutboundCall carries deferred CRM API calls.
	QueueOutboundCall QueueName = "outbound-call"
	// QueueEmail carries outbound email deliveries.
	QueueEmail QueueName = "email"
	// QueueNotification carries user notification deliveries.
	QueueNotification QueueName = "notification"

	// JobStateWaiting indicates a job is queued and not yet picked up.
	JobStateWaiting JobState = "waiting"
	// JobStateActive indicates a job is currently being processed.
	JobStateActive JobState = "active"
	// JobStateCompleted indicates a job finished successfully.
	JobStateCompleted JobState = "completed"
	// JobStateFailed indicates a job exhausted its attempts.
	JobStateFailed JobState = "failed"
)

// QueueNames lists every named queue in a stable order.
var QueueNames = []QueueName{QueueOutboundCall, QueueEmail, QueueNotification}

// ErrNoJobsAvailable is returned when a dequeue finds the queue empty.
var ErrNoJobsAvailable = errors.New("no jobs available")

// UnmarshalText implements encoding.TextUnmarshaler for QueueName to allow env parsing.
func (q *QueueName) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	qn := QueueName(v)
	if qn.Valid() {
		*q = qn
		return nil
	}
	return fmt.Errorf("invalid QueueName: %q", v)
}

// Valid returns true if the QueueName is one of the named queues.
func (q QueueName) Valid() bool {
	return q == QueueOutboundCall || q == QueueEmail || q == QueueNotification
}

// Valid returns true if the JobState is valid.
func (s JobState) Valid() bool {
	return s == JobStateWaiting || s == JobStateActive || s == JobStateCompleted ||
		s == JobStateFailed
}

const (
	// DefaultJobAttempts bounds automatic retries when the caller does not override.
	DefaultJobAttempts = 3
	// MaxJobAttempts caps client-supplied retry counts.
	MaxJobAttempts = 25
	// DefaultJobBackoff is the base backoff between retries.
	DefaultJobBackoff = 5 * time.Second
	// MaxJobPriority bounds the priority option.
	MaxJobPriority = 100
)

// JobOptions are the delivery options attached to a job at enqueue time.
// Zero values mean: immediate, priority 0, broker defaults for retry.
type JobOptions struct {
	Priority int           `json:"priority"`
	Delay    time.Duration `json:"delay"`
	Attempts int           `json:"attempts,omitempty"`
	Backoff  time.Duration `json:"backoff,omitempty"`
}

// Normalize fills unset retry options with broker defaults and clamps priority.
func (o JobOptions) Normalize() JobOptions {
	if o.Attempts <= 0 {
		o.Attempts = DefaultJobAttempts
	}
	if o.Attempts > MaxJobAttempts {
		o.Attempts = MaxJobAttempts
	}
	if o.Backoff <= 0 {
		o.Backoff = DefaultJobBackoff
	}
	if o.Priority < 0 {
		o.Priority = 0
	}
	if o.Priority > MaxJobPriority {
		o.Priority = MaxJobPriority
	}
	if o.Delay < 0 {
		o.Delay = 0
	}
	return o
}

// Job represents a queued unit of deferred work with its delivery metadata.
type Job struct {
	ID           string          `json:"id"`
	Queue        QueueName       `json:"queue"`
	Payload      json.RawMessage `json:"payload"`
	Options      JobOptions      `json:"options"`
	State        JobState        `json:"state"`
	AttemptsMade int             `json:"attempts_made"`
	LastError    string          `json:"last_error,omitempty"`
	EnqueuedAt   time.Time       `json:"enqueued_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
}

// EnqueueRequest describes a job to be placed on a named queue.
type EnqueueRequest struct {
	Queue   QueueName       `json:"queue"`
	Payload json.RawMessage `json:"payload"`
	Options JobOptions      `json:"options"`
}

// Validate validates the EnqueueRequest fields.
func (r *EnqueueRequest) Validate() error {
	if !r.Queue.Valid() {
		return fmt.Errorf("invalid queue name: %q", r.Queue)
	}
	if len(r.Payload) == 0 {
		return errors.New("payload is required")
	}
	if r.Options.Priority < 0 || r.Options.Priority > MaxJobPriority {
		return fmt.Errorf("priority must be between 0 and %d", MaxJobPriority)
	}
	if r.Options.Delay < 0 {
		return errors.New("delay must be >= 0")
	}
	return nil
}

// QueueCounts holds per-state job counts for one queue.
type QueueCounts struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Total returns the sum of all state counts.
func (c QueueCounts) Total() int64 {
	return c.Waiting + c.Active + c.Completed + c.Failed
}

// Add returns the per-state sum of two count sets.
func (c QueueCounts) Add(other QueueCounts) QueueCounts {
	return QueueCounts{
		Waiting:   c.Waiting + other.Waiting,
		Active:    c.Active + other.Active,
		Completed: c.Completed + other.Completed,
		Failed:    c.Failed + other.Failed,
	}
}

// FailureRatio returns failed/total, or 0 when the queue has no jobs at all.
func (c QueueCounts) FailureRatio() float64 {
	total := c.Total()
	if total == 0 {
		return 0
	}
	return float64(c.Failed) / float64(total)
}

// QueueStats pairs a queue with its counts.
type QueueStats struct {
	Queue  QueueName   `json:"queue"`
	Counts QueueCounts `json:"counts"`
}

// HealthStatus classifies a queue's health from its failure ratio.
type HealthStatus string

const (
	// HealthHealthy means the failure ratio is at or below the warning threshold.
	HealthHealthy HealthStatus = "healthy"
	// HealthWarning means the failure ratio exceeds 0.2.
	HealthWarning HealthStatus = "warning"
	// HealthCritical means the failure ratio exceeds 0.5.
	HealthCritical HealthStatus = "critical"
)

const (
	criticalFailureRatio = 0.5
	warningFailureRatio  = 0.2
)

// Classify derives a health status from per-queue counts. A queue with zero
// jobs of any kind is healthy.
func (c QueueCounts) Classify() HealthStatus {
	ratio := c.FailureRatio()
	switch {
	case ratio > criticalFailureRatio:
		return HealthCritical
	case ratio > warningFailureRatio:
		return HealthWarning
	default:
		return HealthHealthy
	}
}

// QueueHealth pairs a queue with its derived health classification.
type QueueHealth struct {
	Queue        QueueName    `json:"queue"`
	Status       HealthStatus `json:"status"`
	FailureRatio float64      `json:"failure_ratio"`
	Counts       QueueCounts  `json:"counts"`
}
