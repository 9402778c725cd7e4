package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crmbridge/backend/config"
	"github.com/crmbridge/backend/internal/adapters/janitor"
	"github.com/crmbridge/backend/internal/adapters/worker"
	"github.com/crmbridge/backend/internal/core"
	"github.com/crmbridge/backend/internal/data"
	"github.com/crmbridge/backend/internal/queue"
	"github.com/crmbridge/backend/internal/service"
)

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Tokens     *service.TokenService
	Users      *service.UserService
	Audit      *service.AuditService
	Errors     *service.ErrorLogService
	Settings   *service.SettingsService
	CronJobs   *service.CronJobService
	Dispatch   *service.DispatchService
	Salesforce *service.SalesforceService
	Reports    *service.ReportService

	Cache      *core.ResponseCacheService
	CacheStore core.CacheRepository
	Queue      core.Queue
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config *config.AppConfig
	DB     *sql.DB
	Redis  redis.UniversalClient
	Logger *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	users    *data.UserRepo
	tokens   *data.TokenRepo
	audit    *data.AuditLogRepo
	errors   *data.ErrorLogRepo
	settings *data.SettingRepo
	cronJobs *data.CronJobRepo
	reports  *data.ReportRepo
	cache    *data.RedisCacheRepo
	queue    *queue.RedisQueue
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, rdb redis.UniversalClient) *serviceRepositories {
	return &serviceRepositories{
		users:    data.NewUserRepo(db),
		tokens:   data.NewTokenRepo(db),
		audit:    data.NewAuditLogRepo(db),
		errors:   data.NewErrorLogRepo(db),
		settings: data.NewSettingRepo(db),
		cronJobs: data.NewCronJobRepo(db),
		reports:  data.NewReportRepo(db),
		cache:    data.NewRedisCacheRepo(rdb),
		queue:    queue.NewRedisQueue(rdb),
	}
}

// NewServices wires business services from repositories and configuration.
func NewServices(deps *ServiceDeps) ServiceContainer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	repos := buildRepositories(deps.DB, deps.Redis)

	cache := core.MustNewResponseCacheService(core.ResponseCacheServiceOptions{
		Logger: logger,
		Cache:  repos.cache,
	})
	tokens := service.MustNewTokenService(service.TokenServiceOptions{
		Logger:          logger,
		Users:           repos.users,
		Tokens:          repos.tokens,
		Secret:          deps.Config.Auth.JWTSecret,
		AccessTokenTTL:  deps.Config.Auth.AccessTokenTTL,
		RefreshTokenTTL: deps.Config.Auth.RefreshTokenTTL,
	})
	users := service.MustNewUserService(service.UserServiceOptions{Logger: logger, Repo: repos.users})
	audit := service.MustNewAuditService(service.AuditServiceOptions{Logger: logger, Repo: repos.audit})
	errorLog := service.MustNewErrorLogService(service.ErrorLogServiceOptions{Logger: logger, Repo: repos.errors})
	settings := service.MustNewSettingsService(service.SettingsServiceOptions{Logger: logger, Repo: repos.settings})
	dispatch := service.MustNewDispatchService(service.DispatchServiceOptions{Logger: logger, Queue: repos.queue})
	cronJobs := service.MustNewCronJobService(service.CronJobServiceOptions{
		Logger:   logger,
		Repo:     repos.cronJobs,
		Settings: settings,
		Dispatch: dispatch,
	})
	salesforce := service.MustNewSalesforceService(service.SalesforceServiceOptions{
		Logger:     logger,
		Dispatch:   dispatch,
		Audit:      audit,
		TokenURL:   deps.Config.Salesforce.TokenURL,
		HTTPClient: &http.Client{Timeout: deps.Config.Salesforce.RequestTimeout},
	})
	reports := service.MustNewReportService(service.ReportServiceOptions{Logger: logger, Repo: repos.reports, Audit: audit})

	return ServiceContainer{
		Tokens:     tokens,
		Users:      users,
		Audit:      audit,
		Errors:     errorLog,
		Settings:   settings,
		CronJobs:   cronJobs,
		Dispatch:   dispatch,
		Salesforce: salesforce,
		Reports:    reports,
		Cache:      cache,
		CacheStore: repos.cache,
		Queue:      repos.queue,
	}
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	name string
	done <-chan struct{}
}

// startHTTPServerIfEnabled starts the HTTP server if enabled.
func startHTTPServerIfEnabled(deps *serviceStartupDeps) *http.Server {
	if deps == nil || deps.cfg == nil || !deps.enabledServices[config.ServiceModeHTTP] {
		return nil
	}
	return StartHTTPServer(&HTTPServerConfig{
		Config:   deps.cfg.Config,
		Services: deps.cfg.Services,
		Redis:    deps.cfg.RedisClient,
		Logger:   deps.logger,
	})
}

func newWorkerBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeWorker,
		name: "queue worker",
		start: func(ctx context.Context) error {
			cfg := deps.cfg.Config
			runner, err := worker.NewRunner(worker.RunnerOptions{
				Logger:       deps.logger,
				Queue:        deps.cfg.Services.Queue,
				CRMBaseURL:   cfg.Salesforce.BaseURL,
				HTTPClient:   &http.Client{Timeout: cfg.Salesforce.RequestTimeout},
				Audit:        deps.cfg.Services.Audit,
				Errors:       deps.cfg.Services.Errors,
				Lease:        cfg.Worker.JobLease,
				Concurrency:  cfg.Worker.Concurrency,
				PollInterval: cfg.Worker.PollInterval,
				Environment:  cfg.Environment,
			})
			if err != nil {
				return fmt.Errorf("build worker runner: %w", err)
			}
			return runner.Run(ctx)
		},
	}
}

func newJanitorBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeJanitor,
		name: "janitor",
		start: func(ctx context.Context) error {
			runner, err := janitor.NewRunner(janitor.RunnerOptions{
				Logger:   deps.logger,
				Queue:    deps.cfg.Services.Queue,
				Tokens:   deps.cfg.Services.Tokens,
				Interval: deps.cfg.Config.Janitor.Interval,
			})
			if err != nil {
				return fmt.Errorf("build janitor runner: %w", err)
			}
			return runner.Run(ctx)
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	return []backgroundService{
		newWorkerBackgroundService(deps),
		newJanitorBackgroundService(deps),
	}
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				deps.logger.WarnContext(ctx, "dropping background service error",
					"service", descriptor.name, "error", errMsg)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))
	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}
		handles = append(handles, backgroundServiceHandle{name: svc.name, done: done})
	}
	return handles
}

// ServiceStartupResult holds the results of starting all services.
type ServiceStartupResult struct {
	HTTPServer *http.Server
	Background []backgroundServiceHandle
}

// startServices starts all enabled services and returns their completion channels.
func startServices(deps *serviceStartupDeps) ServiceStartupResult {
	return ServiceStartupResult{
		HTTPServer: startHTTPServerIfEnabled(deps),
		Background: startBackgroundServices(deps, buildBackgroundServices(deps)),
	}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, len(enabledServices)+1)

	// Cron toggles live in the settings store; load them before anything can
	// make a scheduling decision.
	cfg.Services.Settings.HydrateCronStates(serviceCtx)

	result := startServices(&serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	})

	return waitForShutdown(shutdownConfig{
		ctx:         serviceCtx,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  result.HTTPServer,
		timeout:     cfg.Config.HTTP.ShutdownTimeout,
		logger:      logger,
		backgrounds: result.Background,
	})
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx         context.Context
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	timeout     time.Duration
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel()
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel()
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop attempts to gracefully stop all services.
func gracefulStop(cfg shutdownConfig) error {
	if cfg.httpServer != nil {
		timeout := cfg.timeout
		if timeout <= 0 {
			timeout = shutdownWaitTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  cfg.httpServer,
			Logger:  cfg.logger,
		}); err != nil {
			return err
		}
	}

	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}
	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
