package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crmbridge/backend/internal/domain/model"
	"github.com/crmbridge/backend/internal/testutil"
)

func setupQueue(t *testing.T) (*RedisQueue, *time.Time) {
	t.Helper()
	_, client := testutil.SetupTestRedis(t)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	broker := NewRedisQueueWithClock(client, func() time.Time { return now })
	return broker, &now
}

func TestEnqueueDequeueComplete(t *testing.T) {
	broker, _ := setupQueue(t)
	ctx := context.Background()

	enqueued, err := broker.Enqueue(ctx, testutil.NewEnqueueRequest().Build())
	require.NoError(t, err)
	assert.NotEmpty(t, enqueued.ID)
	assert.Equal(t, model.JobStateWaiting, enqueued.State)
	assert.Equal(t, model.DefaultJobAttempts, enqueued.Options.Attempts, "retry defaults must be applied")
	assert.Equal(t, model.DefaultJobBackoff, enqueued.Options.Backoff)

	job, err := broker.Dequeue(ctx, model.QueueOutboundCall, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, enqueued.ID, job.ID)
	assert.Equal(t, model.JobStateActive, job.State)
	assert.Equal(t, 1, job.AttemptsMade)
	require.NotNil(t, job.StartedAt)

	require.NoError(t, broker.Complete(ctx, model.QueueOutboundCall, job.ID))

	counts, err := broker.Counts(ctx, model.QueueOutboundCall)
	require.NoError(t, err)
	assert.Equal(t, model.QueueCounts{Completed: 1}, counts)
}

func TestDequeueEmptyQueue(t *testing.T) {
	broker, _ := setupQueue(t)

	_, err := broker.Dequeue(context.Background(), model.QueueEmail, time.Minute)
	assert.ErrorIs(t, err, model.ErrNoJobsAvailable)
}

func TestDequeueHonorsPriority(t *testing.T) {
	broker, _ := setupQueue(t)
	ctx := context.Background()

	low, err := broker.Enqueue(ctx, testutil.NewEnqueueRequest().WithPriority(1).Build())
	require.NoError(t, err)
	high, err := broker.Enqueue(ctx, testutil.NewEnqueueRequest().WithPriority(50).Build())
	require.NoError(t, err)

	first, err := broker.Dequeue(ctx, model.QueueOutboundCall, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, high.ID, first.ID, "higher priority must dequeue first")

	second, err := broker.Dequeue(ctx, model.QueueOutboundCall, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, low.ID, second.ID)
}

func TestDelayedJobsPromoteWhenDue(t *testing.T) {
	broker, now := setupQueue(t)
	ctx := context.Background()

	_, err := broker.Enqueue(ctx, testutil.NewEnqueueRequest().WithDelay(time.Minute).Build())
	require.NoError(t, err)

	_, err = broker.Dequeue(ctx, model.QueueOutboundCall, time.Minute)
	assert.ErrorIs(t, err, model.ErrNoJobsAvailable, "delayed job must not be delivered early")

	promoted, err := broker.PromoteDelayed(ctx, model.QueueOutboundCall, now.Add(30*time.Second))
	require.NoError(t, err)
	assert.Zero(t, promoted)

	promoted, err = broker.PromoteDelayed(ctx, model.QueueOutboundCall, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)

	job, err := broker.Dequeue(ctx, model.QueueOutboundCall, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, model.JobStateActive, job.State)
}

func TestFailRetriesWithBackoffThenDeadLetters(t *testing.T) {
	broker, now := setupQueue(t)
	ctx := context.Background()

	_, err := broker.Enqueue(ctx, testutil.NewEnqueueRequest().
		WithQueue(model.QueueNotification).
		WithAttempts(2).
		WithBackoff(10*time.Second).
		Build())
	require.NoError(t, err)

	job, err := broker.Dequeue(ctx, model.QueueNotification, time.Minute)
	require.NoError(t, err)

	retried, err := broker.Fail(ctx, model.QueueNotification, job.ID, "crm timeout")
	require.NoError(t, err)
	assert.True(t, retried, "first failure of two attempts must retry")

	// The retry sits in the delayed set until the backoff elapses.
	promoted, err := broker.PromoteDelayed(ctx, model.QueueNotification, now.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, 1, promoted)

	job, err = broker.Dequeue(ctx, model.QueueNotification, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, job.AttemptsMade)
	assert.Equal(t, "crm timeout", job.LastError)

	retried, err = broker.Fail(ctx, model.QueueNotification, job.ID, "crm timeout again")
	require.NoError(t, err)
	assert.False(t, retried, "exhausted attempts must not retry")

	counts, err := broker.Counts(ctx, model.QueueNotification)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Failed)
	assert.Zero(t, counts.Waiting)

	dead, err := broker.DeadLetters(ctx, model.QueueNotification, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{job.ID}, dead)
}

func TestRetryBackoffDoublesAndCaps(t *testing.T) {
	base := 5 * time.Second

	assert.Equal(t, base, retryBackoff(base, 1))
	assert.Equal(t, 2*base, retryBackoff(base, 2))
	assert.Equal(t, 8*base, retryBackoff(base, 4))

	// High attempt counts must hit the ceiling instead of overflowing to a
	// negative delay that would make the retry immediately due.
	for _, attempts := range []int{32, 64, 100} {
		got := retryBackoff(base, attempts)
		assert.Equal(t, maxRetryBackoff, got, "attempt %d", attempts)
		assert.Positive(t, got)
	}

	assert.Equal(t, maxRetryBackoff, retryBackoff(2*time.Hour, 1), "oversized base is capped")
	assert.Equal(t, model.DefaultJobBackoff, retryBackoff(0, 1), "zero base falls back to the default")
}

func TestRequeueStalled(t *testing.T) {
	broker, now := setupQueue(t)
	ctx := context.Background()

	_, err := broker.Enqueue(ctx, testutil.NewEnqueueRequest().Build())
	require.NoError(t, err)

	job, err := broker.Dequeue(ctx, model.QueueOutboundCall, 30*time.Second)
	require.NoError(t, err)

	// Before the lease expires nothing moves.
	moved, err := broker.RequeueStalled(ctx, model.QueueOutboundCall, now.Add(10*time.Second))
	require.NoError(t, err)
	assert.Zero(t, moved)

	moved, err = broker.RequeueStalled(ctx, model.QueueOutboundCall, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	requeued, err := broker.Dequeue(ctx, model.QueueOutboundCall, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, job.ID, requeued.ID)
	assert.Equal(t, 2, requeued.AttemptsMade, "a reclaimed job counts as a new attempt")
}

func TestCountsSeparateQueues(t *testing.T) {
	broker, _ := setupQueue(t)
	ctx := context.Background()

	_, err := broker.Enqueue(ctx, testutil.NewEnqueueRequest().WithQueue(model.QueueEmail).Build())
	require.NoError(t, err)

	emailCounts, err := broker.Counts(ctx, model.QueueEmail)
	require.NoError(t, err)
	assert.Equal(t, int64(1), emailCounts.Waiting)

	callCounts, err := broker.Counts(ctx, model.QueueOutboundCall)
	require.NoError(t, err)
	assert.Zero(t, callCounts.Total(), "queues must not share state")
}
