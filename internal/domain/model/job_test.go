package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueCounts_Classify(t *testing.T) {
	tests := []struct {
		name   string
		counts QueueCounts
		want   HealthStatus
	}{
		{"empty queue is healthy", QueueCounts{}, HealthHealthy},
		{"ratio 0.6 is critical", QueueCounts{Waiting: 2, Active: 1, Completed: 1, Failed: 6}, HealthCritical},
		{"ratio 0.3 is warning", QueueCounts{Waiting: 4, Completed: 3, Failed: 3}, HealthWarning},
		{"ratio 0.1 is healthy", QueueCounts{Waiting: 5, Completed: 4, Failed: 1}, HealthHealthy},
		{"ratio exactly 0.5 is warning not critical", QueueCounts{Completed: 5, Failed: 5}, HealthWarning},
		{"ratio exactly 0.2 is healthy", QueueCounts{Completed: 8, Failed: 2}, HealthHealthy},
		{"all failed is critical", QueueCounts{Failed: 1}, HealthCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.counts.Classify())
		})
	}
}

func TestQueueCounts_FailureRatio_ZeroTotal(t *testing.T) {
	assert.Zero(t, QueueCounts{}.FailureRatio())
}

func TestJobOptions_Normalize_Defaults(t *testing.T) {
	got := JobOptions{}.Normalize()

	assert.Equal(t, 0, got.Priority)
	assert.Equal(t, time.Duration(0), got.Delay)
	assert.Equal(t, DefaultJobAttempts, got.Attempts)
	assert.Equal(t, DefaultJobBackoff, got.Backoff)
}

func TestJobOptions_Normalize_ClampsPriority(t *testing.T) {
	assert.Equal(t, MaxJobPriority, JobOptions{Priority: 9999}.Normalize().Priority)
	assert.Equal(t, 0, JobOptions{Priority: -5}.Normalize().Priority)
}

func TestJobOptions_Normalize_ClampsAttempts(t *testing.T) {
	assert.Equal(t, MaxJobAttempts, JobOptions{Attempts: 100}.Normalize().Attempts)
	assert.Equal(t, MaxJobAttempts, JobOptions{Attempts: MaxJobAttempts}.Normalize().Attempts)
}

func TestEnqueueRequest_Validate(t *testing.T) {
	payload := json.RawMessage(`{"to":"x@example.com"}`)

	valid := EnqueueRequest{Queue: QueueEmail, Payload: payload}
	require.NoError(t, valid.Validate())

	badQueue := EnqueueRequest{Queue: "bulk-import", Payload: payload}
	assert.Error(t, badQueue.Validate())

	noPayload := EnqueueRequest{Queue: QueueEmail}
	assert.Error(t, noPayload.Validate())

	badPriority := EnqueueRequest{Queue: QueueEmail, Payload: payload, Options: JobOptions{Priority: 101}}
	assert.Error(t, badPriority.Validate())

	badDelay := EnqueueRequest{Queue: QueueEmail, Payload: payload, Options: JobOptions{Delay: -time.Second}}
	assert.Error(t, badDelay.Validate())
}

func TestQueueName_UnmarshalText(t *testing.T) {
	var q QueueName
	require.NoError(t, q.UnmarshalText([]byte(" Outbound-Call ")))
	assert.Equal(t, QueueOutboundCall, q)

	assert.Error(t, q.UnmarshalText([]byte("imports")))
}
