package bootstrap

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crmbridge/backend/config"
	httpx "github.com/crmbridge/backend/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Redis    redis.UniversalClient
	Logger   *slog.Logger
}

// StartHTTPServer creates and starts the HTTP server.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	apiKeys := make([]httpx.APIKey, 0, len(appCfg.Auth.APIKeys))
	for _, k := range appCfg.Auth.APIKeys {
		apiKeys = append(apiKeys, httpx.APIKey{Name: k.Name, Key: k.Key})
	}

	handler := httpx.NewRouter(httpx.RouterServices{
		Tokens:          cfg.Services.Tokens,
		Users:           cfg.Services.Users,
		Audit:           cfg.Services.Audit,
		Errors:          cfg.Services.Errors,
		Settings:        cfg.Services.Settings,
		CronJobs:        cfg.Services.CronJobs,
		Dispatch:        cfg.Services.Dispatch,
		Salesforce:      cfg.Services.Salesforce,
		Reports:         cfg.Services.Reports,
		Cache:           cfg.Services.Cache,
		CacheStore:      cfg.Services.CacheStore,
		Redis:           cfg.Redis,
		APIKeys:         apiKeys,
		CORSOrigins:     appCfg.HTTP.CORSOrigins,
		RateLimitMax:    appCfg.HTTP.RateLimitMax,
		RateLimitWindow: appCfg.HTTP.RateLimitWindow,
		CookieDomain:    appCfg.Auth.CookieDomain,
		CookieSecure:    appCfg.Auth.CookieSecure,
		Logger:          logger,
	})

	return startServer(logger, handler, appCfg.HTTP.Addr)
}

func startServer(logger *slog.Logger, handler http.Handler, addr string) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
		}
	}()

	return server
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	if err := cfg.Server.Shutdown(cfg.Context); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}
	return nil
}
