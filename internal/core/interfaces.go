// Package core provides the business logic ports for the crmbridge system.
package core

import (
	"context"
	"time"

	"github.com/crmbridge/backend/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// Queue defines the broker port for named job queues. Implementations perform
// the actual storage and delivery; the service layer only dispatches and
// observes.
type Queue interface {
	// Enqueue places a job on a named queue and returns it with an assigned id.
	Enqueue(ctx context.Context, req *model.EnqueueRequest) (*model.Job, error)
	// Dequeue moves the next waiting job to active under a lease.
	// Returns model.ErrNoJobsAvailable when the queue is empty.
	Dequeue(ctx context.Context, queue model.QueueName, lease time.Duration) (*model.Job, error)
	// Complete acknowledges an active job as successfully processed.
	Complete(ctx context.Context, queue model.QueueName, jobID string) error
	// Fail records a processing failure. When attempts remain the job is
	// rescheduled with backoff and retried=true is returned; otherwise it
	// lands in the failed state.
	Fail(ctx context.Context, queue model.QueueName, jobID, errMsg string) (bool, error)
	// Counts returns per-state job counts for one queue.
	Counts(ctx context.Context, queue model.QueueName) (model.QueueCounts, error)
	// PromoteDelayed moves due delayed jobs into the waiting state.
	PromoteDelayed(ctx context.Context, queue model.QueueName, now time.Time) (int, error)
	// RequeueStalled returns active jobs whose lease expired to waiting.
	RequeueStalled(ctx context.Context, queue model.QueueName, now time.Time) (int, error)
	// DeadLetters returns the ids of jobs that exhausted their attempts,
	// oldest first, up to count.
	DeadLetters(ctx context.Context, queue model.QueueName, count int64) ([]string, error)
}

// CacheRepository defines the interface for caching operations.
type CacheRepository interface {
	// Set stores a value in the cache with the given key and TTL.
	// If TTL is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value from the cache by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key from the cache.
	// Returns true if the key was deleted, false if it didn't exist.
	Delete(ctx context.Context, key string) (bool, error)

	// DeleteByPattern removes all keys matching a glob-style pattern
	// (wildcard suffixes such as "cache:audit:*"). Returns the number of
	// keys removed.
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)

	// Exists checks if a key exists in the cache.
	Exists(ctx context.Context, key string) (bool, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}

// UserRepository defines the interface for user account data operations.
type UserRepository interface {
	Create(ctx context.Context, req *model.CreateUserRequest, passwordHash string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, filter model.UserFilter, page model.Page) ([]*model.User, error)
	Update(ctx context.Context, id string, req *model.UpdateUserRequest) (*model.User, error)
}

// TokenRepository defines the interface for refresh token and blacklist data.
type TokenRepository interface {
	SaveRefreshToken(ctx context.Context, token *model.RefreshToken) error
	// ConsumeRefreshToken atomically revokes an unrevoked, unexpired refresh
	// token by hash and returns it. Single-use semantics are enforced by the
	// storage layer, not in-process locking.
	ConsumeRefreshToken(ctx context.Context, tokenHash string, now time.Time) (*model.RefreshToken, error)
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
	Blacklist(ctx context.Context, entry *model.BlacklistEntry) error
	// IsBlacklisted reports whether the token id has an unexpired blacklist
	// entry. Callers must treat a returned error as a denial.
	IsBlacklisted(ctx context.Context, tokenID string, now time.Time) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AuditLogRepository defines the interface for audit log data operations.
type AuditLogRepository interface {
	Insert(ctx context.Context, req *model.RecordAuditLogRequest) (*model.AuditLog, error)
	List(ctx context.Context, filter model.AuditLogFilter, page model.Page) (*model.AuditLogPage, error)
	Stats(ctx context.Context, filter model.AuditLogFilter) (*model.AuditStats, error)
	// MarkDelivered flips the delivered flag for the given job ids and
	// returns the number of rows newly flipped. Re-marking is a no-op.
	MarkDelivered(ctx context.Context, jobIDs []string) (int64, error)
}

// ErrorLogRepository defines the interface for error log data operations.
type ErrorLogRepository interface {
	Insert(ctx context.Context, req *model.RecordErrorLogRequest) (*model.ErrorLog, error)
	GetByID(ctx context.Context, id string) (*model.ErrorLog, error)
	List(ctx context.Context, filter model.ErrorLogFilter, page model.Page) (*model.ErrorLogPage, error)
	SetResolved(ctx context.Context, id string, resolvedBy *string) (*model.ErrorLog, error)
	BulkDelete(ctx context.Context, ids []string) (int64, error)
}

// SettingRepository defines the interface for system setting data operations.
type SettingRepository interface {
	Upsert(ctx context.Context, req *model.UpsertSettingRequest, rawValue, updatedBy string) (*model.SystemSetting, error)
	Get(ctx context.Context, category, key string) (*model.SystemSetting, error)
	List(ctx context.Context, category string) ([]*model.SystemSetting, error)
}

// CronJobRepository defines the interface for cron run history.
type CronJobRepository interface {
	RecordRun(ctx context.Context, run *model.CronJobRun) (*model.CronJobRun, error)
	ListRuns(ctx context.Context, jobType model.CronJobType, page model.Page) ([]*model.CronJobRun, error)
}

// ReportRepository defines the interface for persisted report snapshots.
type ReportRepository interface {
	Create(ctx context.Context, req *model.CreateReportRequest, generatedBy string) (*model.Report, error)
	GetByID(ctx context.Context, id string) (*model.Report, error)
	List(ctx context.Context, page model.Page) ([]*model.Report, error)
}
