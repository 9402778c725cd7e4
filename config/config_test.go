package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:     "single service",
			input:    "http",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true},
		},
		{
			name:  "multiple services",
			input: "http,worker",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:   true,
				ServiceModeWorker: true,
			},
		},
		{
			name:  "all services with whitespace",
			input: " http , worker , janitor ",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:    true,
				ServiceModeWorker:  true,
				ServiceModeJanitor: true,
			},
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
		{
			name:        "only commas",
			input:       ",,",
			expectError: true,
		},
		{
			name:        "unknown service",
			input:       "http,reaper",
			expectError: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServices(tt.input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestAppConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 120, cfg.HTTP.RateLimitMax)
	assert.Equal(t, time.Minute, cfg.HTTP.RateLimitWindow)
	assert.Equal(t, "http", cfg.Services)
	assert.True(t, cfg.IsHTTPServerEnabled())
	assert.False(t, cfg.IsWorkerEnabled())
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.True(t, cfg.Postgres.RunMigrationsOnStart)
	assert.Equal(t, "localhost:6379", cfg.Redis.URI)
	assert.Equal(t, "15m", cfg.Auth.AccessTokenTTL)
	assert.Equal(t, "7d", cfg.Auth.RefreshTokenTTL)
	assert.True(t, cfg.Auth.CookieSecure)
	assert.Empty(t, cfg.Auth.APIKeys)
	assert.Equal(t, 2, cfg.Worker.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Worker.JobLease)
	assert.Equal(t, 15*time.Second, cfg.Janitor.Interval)
}

func TestAppConfigRequiresJWTSecret(t *testing.T) {
	var cfg AppConfig
	err := env.Parse(&cfg)
	assert.Error(t, err)
}

func TestSanitizeClampsValues(t *testing.T) {
	cfg := AppConfig{
		HTTP: HTTPConfig{
			RateLimitMax:    -5,
			RateLimitWindow: time.Millisecond,
			ShutdownTimeout: 0,
		},
		Worker: WorkerConfig{
			Concurrency:  0,
			JobLease:     time.Second,
			PollInterval: time.Millisecond,
		},
		Janitor: JanitorConfig{Interval: time.Second},
	}
	cfg.Sanitize()

	assert.Equal(t, 0, cfg.HTTP.RateLimitMax)
	assert.Equal(t, time.Second, cfg.HTTP.RateLimitWindow)
	assert.Equal(t, time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, 1, cfg.Worker.Concurrency)
	assert.Equal(t, 5*time.Second, cfg.Worker.JobLease)
	assert.Equal(t, 100*time.Millisecond, cfg.Worker.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.Janitor.Interval)
}

func TestDetectDevModeFromNodeEnv(t *testing.T) {
	t.Setenv("NODE_ENV", "development")

	cfg := AppConfig{}
	cfg.Sanitize()
	assert.True(t, cfg.IsDev)
}

func TestAPIKeyListUnmarshal(t *testing.T) {
	t.Run("pairs", func(t *testing.T) {
		var l APIKeyList
		require.NoError(t, l.UnmarshalText([]byte("crm-relay:s3cret; batch:other")))
		assert.Equal(t, APIKeyList{
			{Name: "crm-relay", Key: "s3cret"},
			{Name: "batch", Key: "other"},
		}, l)
	})

	t.Run("empty", func(t *testing.T) {
		var l APIKeyList
		require.NoError(t, l.UnmarshalText(nil))
		assert.Nil(t, l)
	})

	t.Run("missing key part", func(t *testing.T) {
		var l APIKeyList
		assert.Error(t, l.UnmarshalText([]byte("crm-relay")))
	})
}
