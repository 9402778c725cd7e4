// Package mocks provides mock implementations for testing the crmbridge backend.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockAuditLogRepository(ctrl)
//	mockRepo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(entry, nil)
package mocks

// Generate mock for Queue interface from internal/core package.
// This creates MockQueue with methods for all Queue interface methods:
// Enqueue, Dequeue, Complete, Fail, Counts, PromoteDelayed, RequeueStalled
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=queue_mock.go github.com/crmbridge/backend/internal/core Queue

// Generate mock for CacheRepository interface from internal/core package.
// This creates MockCacheRepository with methods for all CacheRepository interface methods:
// Set, Get, Delete, DeleteByPattern, Exists, Health
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_repository_mock.go github.com/crmbridge/backend/internal/core CacheRepository

// Generate mock for UserRepository interface from internal/core package.
// This creates MockUserRepository with methods for all UserRepository interface methods:
// Create, GetByID, GetByEmail, List, Update
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=user_repository_mock.go github.com/crmbridge/backend/internal/core UserRepository

// Generate mock for TokenRepository interface from internal/core package.
// This creates MockTokenRepository with methods for all TokenRepository interface methods:
// SaveRefreshToken, ConsumeRefreshToken, RevokeAllForUser, Blacklist, IsBlacklisted, DeleteExpired
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=token_repository_mock.go github.com/crmbridge/backend/internal/core TokenRepository

// Generate mock for AuditLogRepository interface from internal/core package.
// This creates MockAuditLogRepository with methods for all AuditLogRepository interface methods:
// Insert, List, Stats, MarkDelivered
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=audit_log_repository_mock.go github.com/crmbridge/backend/internal/core AuditLogRepository

// Generate mock for ErrorLogRepository interface from internal/core package.
// This creates MockErrorLogRepository with methods for all ErrorLogRepository interface methods:
// Insert, GetByID, List, SetResolved, BulkDelete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=error_log_repository_mock.go github.com/crmbridge/backend/internal/core ErrorLogRepository

// Generate mock for SettingRepository interface from internal/core package.
// This creates MockSettingRepository with methods for all SettingRepository interface methods:
// Upsert, Get, List
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=setting_repository_mock.go github.com/crmbridge/backend/internal/core SettingRepository

// Generate mock for CronJobRepository interface from internal/core package.
// This creates MockCronJobRepository with methods for all CronJobRepository interface methods:
// RecordRun, ListRuns
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cron_job_repository_mock.go github.com/crmbridge/backend/internal/core CronJobRepository

// Generate mock for ReportRepository interface from internal/core package.
// This creates MockReportRepository with methods for all ReportRepository interface methods:
// Create, GetByID, List
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=report_repository_mock.go github.com/crmbridge/backend/internal/core ReportRepository
