// Package testutil provides testing utilities and helpers for the crmbridge backend.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	// Register the pgx driver for database/sql in tests.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/crmbridge/backend/internal/domain/model"
	"github.com/crmbridge/backend/internal/migrate"
)

// SetupTestRedis starts an in-process Redis server and returns a client
// connected to it. Both are torn down when the test finishes.
func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("warning: failed to close redis test client: %v", err)
		}
	})
	return mr, client
}

// TestDBConfig holds connection settings for the integration test database.
type TestDBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// DefaultTestDBConfig returns the test database configuration. Defaults to
// port 55432 (local test DB); CI sets TEST_DB_PORT explicitly.
func DefaultTestDBConfig() TestDBConfig {
	return TestDBConfig{
		Host:     getEnvOrDefault("TEST_DB_HOST", "localhost"),
		Port:     getEnvOrDefault("TEST_DB_PORT", "55432"),
		User:     getEnvOrDefault("TEST_DB_USER", "crmbridge"),
		Password: getEnvOrDefault("TEST_DB_PASSWORD", "crmbridge"),
		DBName:   getEnvOrDefault("TEST_DB_NAME", "crmbridge"),
	}
}

func testDBDSN(cfg TestDBConfig) string {
	hostPort := net.JoinHostPort(cfg.Host, cfg.Port)
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		cfg.User, cfg.Password, hostPort, cfg.DBName)
}

// SkipIfNoTestDB skips the test when the integration database is unreachable.
func SkipIfNoTestDB(t *testing.T) {
	t.Helper()

	db, err := sql.Open("pgx", testDBDSN(DefaultTestDBConfig()))
	if err != nil {
		t.Skip("Test database not available:", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			t.Logf("warning: failed to close test db: %v", cerr)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if pingErr := db.PingContext(ctx); pingErr != nil {
		t.Skip("Test database not available:", pingErr)
	}
}

// SetupTestDB connects to the integration database, applies the production
// migrations and clears prior test data. Callers should pair it with
// TeardownTestDB, or use WithTestDB.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	SkipIfNoTestDB(t)

	db, err := sql.Open("pgx", testDBDSN(DefaultTestDBConfig()))
	if err != nil {
		t.Fatal("Failed to open test database:", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Fatal("Failed to connect to test database:", err)
	}
	if err := migrate.Run(ctx, db); err != nil {
		t.Fatal("Failed to run migrations:", err)
	}
	CleanupTestDB(t, db)
	return db
}

// CleanupTestDB removes all rows the integration tests may have written,
// children before parents.
func CleanupTestDB(t *testing.T, db *sql.DB) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tables := []string{
		"cron_job_runs", "reports", "system_settings", "error_logs",
		"audit_logs", "token_blacklist", "refresh_tokens", "users",
	}
	for _, table := range tables {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("Failed to clean up table %s: %v", table, err)
		}
	}
}

// TeardownTestDB cleans up and closes the integration database connection.
func TeardownTestDB(t *testing.T, db *sql.DB) {
	t.Helper()
	if db == nil {
		return
	}
	CleanupTestDB(t, db)
	if err := db.Close(); err != nil {
		t.Fatal("Failed to close test database:", err)
	}
}

// WithTestDB sets up the integration database, runs fn, and tears down.
func WithTestDB(t *testing.T, fn func(*sql.DB)) {
	t.Helper()
	db := SetupTestDB(t)
	defer TeardownTestDB(t, db)
	fn(db)
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// EnqueueRequestBuilder provides a fluent interface for building EnqueueRequest objects for testing.
type EnqueueRequestBuilder struct {
	req *model.EnqueueRequest
}

// NewEnqueueRequest creates a new EnqueueRequestBuilder with sensible defaults.
func NewEnqueueRequest() *EnqueueRequestBuilder {
	return &EnqueueRequestBuilder{
		req: &model.EnqueueRequest{
			Queue:   model.QueueOutboundCall,
			Payload: []byte(`{"phone":"+15555550100"}`),
		},
	}
}

// WithQueue sets the target queue.
func (b *EnqueueRequestBuilder) WithQueue(queue model.QueueName) *EnqueueRequestBuilder {
	b.req.Queue = queue
	return b
}

// WithPayload sets the job payload from a string.
func (b *EnqueueRequestBuilder) WithPayload(payload string) *EnqueueRequestBuilder {
	b.req.Payload = []byte(payload)
	return b
}

// WithPriority sets the job priority.
func (b *EnqueueRequestBuilder) WithPriority(priority int) *EnqueueRequestBuilder {
	b.req.Options.Priority = priority
	return b
}

// WithDelay sets the job delay.
func (b *EnqueueRequestBuilder) WithDelay(delay time.Duration) *EnqueueRequestBuilder {
	b.req.Options.Delay = delay
	return b
}

// WithAttempts sets the maximum attempt count.
func (b *EnqueueRequestBuilder) WithAttempts(attempts int) *EnqueueRequestBuilder {
	b.req.Options.Attempts = attempts
	return b
}

// WithBackoff sets the retry backoff base.
func (b *EnqueueRequestBuilder) WithBackoff(backoff time.Duration) *EnqueueRequestBuilder {
	b.req.Options.Backoff = backoff
	return b
}

// Build returns the constructed request.
func (b *EnqueueRequestBuilder) Build() *model.EnqueueRequest {
	return b.req
}
