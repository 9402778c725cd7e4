// Package queue implements the named job queues on Redis. Each queue keeps a
// waiting set ordered by priority, a delayed set scored by ready time, an
// active set scored by lease deadline, and counters for finished jobs.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/crmbridge/backend/internal/domain/model"
)

const (
	// DefaultLease is the visibility timeout applied when a worker does not
	// ask for a specific lease.
	DefaultLease = 30 * time.Second

	// promoteBatch bounds how many delayed or stalled jobs move per sweep.
	promoteBatch = 100

	// priorityScoreSpan separates priority bands in the waiting set so a
	// higher-priority job always sorts before a lower-priority one,
	// regardless of enqueue time.
	priorityScoreSpan float64 = 1 << 42

	// maxRetryBackoff caps the exponential backoff between reattempts so a
	// large attempt count or base never overflows the delay.
	maxRetryBackoff = time.Hour
)

// RedisQueue implements the Queue broker port on Redis.
type RedisQueue struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisQueue creates a new RedisQueue with the given Redis client.
func NewRedisQueue(client redis.UniversalClient) *RedisQueue {
	return &RedisQueue{client: client, now: time.Now}
}

// NewRedisQueueWithClock creates a RedisQueue with a custom clock (useful for testing).
func NewRedisQueueWithClock(client redis.UniversalClient, now func() time.Time) *RedisQueue {
	return &RedisQueue{client: client, now: now}
}

func waitingKey(q model.QueueName) string   { return fmt.Sprintf("queue:%s:waiting", q) }
func delayedKey(q model.QueueName) string   { return fmt.Sprintf("queue:%s:delayed", q) }
func activeKey(q model.QueueName) string    { return fmt.Sprintf("queue:%s:active", q) }
func completedKey(q model.QueueName) string { return fmt.Sprintf("queue:%s:completed", q) }
func failedKey(q model.QueueName) string    { return fmt.Sprintf("queue:%s:failed", q) }
func deadKey(q model.QueueName) string      { return fmt.Sprintf("queue:%s:dead", q) }
func jobKey(q model.QueueName, id string) string {
	return fmt.Sprintf("queue:%s:job:%s", q, id)
}

// waitingScore orders the waiting set: higher priority first, FIFO within a
// priority band.
func waitingScore(priority int, at time.Time) float64 {
	return float64(model.MaxJobPriority-priority)*priorityScoreSpan + float64(at.UnixMilli())
}

// retryBackoff doubles the base delay per completed attempt, capped at
// maxRetryBackoff so the delay never overflows or goes negative.
func retryBackoff(base time.Duration, attemptsMade int) time.Duration {
	if base <= 0 {
		base = model.DefaultJobBackoff
	}
	backoff := base
	for i := 1; i < attemptsMade; i++ {
		if backoff >= maxRetryBackoff/2 {
			return maxRetryBackoff
		}
		backoff *= 2
	}
	if backoff > maxRetryBackoff {
		backoff = maxRetryBackoff
	}
	return backoff
}

// dequeueScript atomically moves the lowest-scored waiting job into the
// active set under a lease deadline.
var dequeueScript = redis.NewScript(`
local popped = redis.call('ZPOPMIN', KEYS[1])
if #popped == 0 then
  return nil
end
redis.call('ZADD', KEYS[2], ARGV[1], popped[1])
return popped[1]
`)

func (b *RedisQueue) loadJob(ctx context.Context, queue model.QueueName, id string) (*model.Job, error) {
	raw, err := b.client.Get(ctx, jobKey(queue, id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("job %s not found on queue %s", id, queue)
		}
		return nil, fmt.Errorf("load job: %w", err)
	}
	var job model.Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

func (b *RedisQueue) storeJob(ctx context.Context, job *model.Job) error {
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	if err := b.client.Set(ctx, jobKey(job.Queue, job.ID), raw, 0).Err(); err != nil {
		return fmt.Errorf("store job %s: %w", job.ID, err)
	}
	return nil
}

// Enqueue places a job on a named queue. Delayed jobs land in the delayed
// set and are promoted once due; everything else goes straight to waiting.
func (b *RedisQueue) Enqueue(ctx context.Context, req *model.EnqueueRequest) (*model.Job, error) {
	if req == nil {
		return nil, errors.New("enqueue request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := b.now()
	job := &model.Job{
		ID:         uuid.NewString(),
		Queue:      req.Queue,
		Payload:    req.Payload,
		Options:    req.Options.Normalize(),
		State:      model.JobStateWaiting,
		EnqueuedAt: now,
	}
	if err := b.storeJob(ctx, job); err != nil {
		return nil, err
	}

	pipe := b.client.TxPipeline()
	if job.Options.Delay > 0 {
		readyAt := now.Add(job.Options.Delay)
		pipe.ZAdd(ctx, delayedKey(job.Queue), redis.Z{Score: float64(readyAt.UnixMilli()), Member: job.ID})
	} else {
		pipe.ZAdd(ctx, waitingKey(job.Queue), redis.Z{Score: waitingScore(job.Options.Priority, now), Member: job.ID})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	return job, nil
}

// Dequeue moves the next waiting job to active under a lease and returns it
// with its attempt counter already advanced.
func (b *RedisQueue) Dequeue(ctx context.Context, queue model.QueueName, lease time.Duration) (*model.Job, error) {
	if !queue.Valid() {
		return nil, fmt.Errorf("invalid queue name: %q", queue)
	}
	if lease <= 0 {
		lease = DefaultLease
	}

	now := b.now()
	deadline := now.Add(lease).UnixMilli()
	res, err := dequeueScript.Run(ctx, b.client,
		[]string{waitingKey(queue), activeKey(queue)}, deadline).Result()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrNoJobsAvailable
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue: %w", err)
	}
	id, ok := res.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected type from dequeue script: %T", res)
	}

	job, err := b.loadJob(ctx, queue, id)
	if err != nil {
		return nil, err
	}
	job.State = model.JobStateActive
	job.AttemptsMade++
	job.StartedAt = &now
	if err := b.storeJob(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Complete acknowledges an active job and drops its data.
func (b *RedisQueue) Complete(ctx context.Context, queue model.QueueName, jobID string) error {
	pipe := b.client.TxPipeline()
	pipe.ZRem(ctx, activeKey(queue), jobID)
	pipe.Del(ctx, jobKey(queue, jobID))
	pipe.Incr(ctx, completedKey(queue))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// Fail records a processing failure. Jobs with attempts remaining are
// rescheduled into the delayed set with exponential backoff; exhausted jobs
// land in the dead-letter list and count as failed.
func (b *RedisQueue) Fail(ctx context.Context, queue model.QueueName, jobID, errMsg string) (bool, error) {
	job, err := b.loadJob(ctx, queue, jobID)
	if err != nil {
		return false, err
	}
	job.LastError = errMsg

	now := b.now()
	if job.AttemptsMade < job.Options.Attempts {
		backoff := retryBackoff(job.Options.Backoff, job.AttemptsMade)
		job.State = model.JobStateWaiting
		job.StartedAt = nil
		if err := b.storeJob(ctx, job); err != nil {
			return false, err
		}

		readyAt := now.Add(backoff)
		pipe := b.client.TxPipeline()
		pipe.ZRem(ctx, activeKey(queue), jobID)
		pipe.ZAdd(ctx, delayedKey(queue), redis.Z{Score: float64(readyAt.UnixMilli()), Member: jobID})
		if _, err := pipe.Exec(ctx); err != nil {
			return false, fmt.Errorf("reschedule job: %w", err)
		}
		return true, nil
	}

	job.State = model.JobStateFailed
	job.FinishedAt = &now
	if err := b.storeJob(ctx, job); err != nil {
		return false, err
	}

	pipe := b.client.TxPipeline()
	pipe.ZRem(ctx, activeKey(queue), jobID)
	pipe.RPush(ctx, deadKey(queue), jobID)
	pipe.Incr(ctx, failedKey(queue))
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("fail job: %w", err)
	}
	return false, nil
}

// Counts returns per-state job counts for one queue. Delayed jobs count as
// waiting since they have not been attempted yet.
func (b *RedisQueue) Counts(ctx context.Context, queue model.QueueName) (model.QueueCounts, error) {
	pipe := b.client.Pipeline()
	waiting := pipe.ZCard(ctx, waitingKey(queue))
	delayed := pipe.ZCard(ctx, delayedKey(queue))
	active := pipe.ZCard(ctx, activeKey(queue))
	completed := pipe.Get(ctx, completedKey(queue))
	failed := pipe.Get(ctx, failedKey(queue))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return model.QueueCounts{}, fmt.Errorf("queue counts: %w", err)
	}

	counts := model.QueueCounts{
		Waiting: waiting.Val() + delayed.Val(),
		Active:  active.Val(),
	}
	if v, err := strconv.ParseInt(completed.Val(), 10, 64); err == nil {
		counts.Completed = v
	}
	if v, err := strconv.ParseInt(failed.Val(), 10, 64); err == nil {
		counts.Failed = v
	}
	return counts, nil
}

// PromoteDelayed moves due delayed jobs into the waiting set. It returns how
// many were promoted.
func (b *RedisQueue) PromoteDelayed(ctx context.Context, queue model.QueueName, now time.Time) (int, error) {
	return b.moveDue(ctx, queue, delayedKey(queue), now)
}

// RequeueStalled returns active jobs whose lease deadline has passed to the
// waiting set so another worker can pick them up.
func (b *RedisQueue) RequeueStalled(ctx context.Context, queue model.QueueName, now time.Time) (int, error) {
	return b.moveDue(ctx, queue, activeKey(queue), now)
}

func (b *RedisQueue) moveDue(ctx context.Context, queue model.QueueName, fromKey string, now time.Time) (int, error) {
	ids, err := b.client.ZRangeByScore(ctx, fromKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: promoteBatch,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("scan due jobs: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	moved := 0
	for _, id := range ids {
		job, err := b.loadJob(ctx, queue, id)
		if err != nil {
			// Orphaned member with no job data; drop it rather than loop forever.
			b.client.ZRem(ctx, fromKey, id)
			continue
		}
		job.State = model.JobStateWaiting
		job.StartedAt = nil
		if err := b.storeJob(ctx, job); err != nil {
			return moved, err
		}

		pipe := b.client.TxPipeline()
		pipe.ZRem(ctx, fromKey, id)
		pipe.ZAdd(ctx, waitingKey(queue), redis.Z{Score: waitingScore(job.Options.Priority, now), Member: id})
		if _, err := pipe.Exec(ctx); err != nil {
			return moved, fmt.Errorf("requeue job: %w", err)
		}
		moved++
	}
	return moved, nil
}

// DeadLetters returns the ids of jobs that exhausted their attempts, oldest first.
func (b *RedisQueue) DeadLetters(ctx context.Context, queue model.QueueName, count int64) ([]string, error) {
	ids, err := b.client.LRange(ctx, deadKey(queue), 0, count-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read dead letters: %w", err)
	}
	return ids, nil
}
