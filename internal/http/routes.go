package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crmbridge/backend/internal/core"
	domainauth "github.com/crmbridge/backend/internal/domain/auth"
	"github.com/crmbridge/backend/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
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
	Redis      redis.UniversalClient

	// APIKeys gates the /v1/salesforce surface. Empty disables it.
	APIKeys []APIKey

	CORSOrigins     []string
	RateLimitMax    int
	RateLimitWindow time.Duration
	CookieDomain    string
	CookieSecure    bool
	Logger          *slog.Logger
}

// NewRouter creates and configures the HTTP router with the full middleware
// chain applied: panic recovery, request logging, CORS, per-IP rate limiting
// and CSRF double-submit validation.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	authHandlers := &AuthHandlers{
		Svc:          services.Tokens,
		CookieDomain: services.CookieDomain,
		CookieSecure: services.CookieSecure,
	}
	auditHandlers := &AuditHandlers{Svc: services.Audit, Cache: services.Cache}
	errorHandlers := &ErrorLogHandlers{Svc: services.Errors}
	userHandlers := &UserHandlers{Svc: services.Users}
	settingsHandlers := &SettingsHandlers{Svc: services.Settings}
	cronHandlers := &CronJobHandlers{Svc: services.CronJobs}
	queueHandlers := &QueueHandlers{Svc: services.Dispatch}
	salesforceHandlers := &SalesforceHandlers{Svc: services.Salesforce}
	reportHandlers := &ReportHandlers{Svc: services.Reports}
	healthHandlers := &HealthHandlers{
		Dispatch: services.Dispatch,
		Store:    services.CacheStore,
		Cache:    services.Cache,
	}

	registerAuthRoutes(mux, authHandlers, services.Tokens)
	registerAuditRoutes(mux, auditHandlers, services.Tokens)
	registerErrorLogRoutes(mux, errorHandlers, services.Tokens)
	registerUserRoutes(mux, userHandlers, services.Tokens)
	registerSettingsRoutes(mux, settingsHandlers, services.Tokens)
	registerCronJobRoutes(mux, cronHandlers, services.Tokens)
	registerQueueRoutes(mux, queueHandlers, services.Tokens)
	registerSalesforceRoutes(mux, salesforceHandlers, services.APIKeys)
	registerReportRoutes(mux, reportHandlers, services.Tokens)

	mux.Handle("GET /health", http.HandlerFunc(healthHandlers.Check))
	mux.Handle("HEAD /health", http.HandlerFunc(healthHandlers.Check))

	var handler http.Handler = mux
	handler = CSRFProtection(CSRFConfig{
		CookieDomain: services.CookieDomain,
		ExemptPrefixes: []string{
			"/auth/login",
			"/auth/refresh",
			"/v1/salesforce",
			"/health",
		},
	})(handler)
	if services.Redis != nil && services.RateLimitMax > 0 {
		handler = RateLimit(services.Redis, services.RateLimitMax, services.RateLimitWindow)(handler)
	}
	if len(services.CORSOrigins) > 0 {
		handler = CORS(services.CORSOrigins)(handler)
	}
	if services.Logger != nil {
		handler = Logging(services.Logger)(handler)
		handler = Recover(services.Logger)(handler)
	}
	return handler
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, auth Authenticator) {
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("POST /auth/refresh", h.Refresh)
	mux.Handle("POST /auth/logout", RequireAuth(auth)(http.HandlerFunc(h.Logout)))
	mux.Handle("POST /auth/revoke-all", RequireRole(auth, domainauth.RoleAdmin)(http.HandlerFunc(h.RevokeAll)))
}

func registerAuditRoutes(mux *http.ServeMux, h *AuditHandlers, auth Authenticator) {
	wrap := RequireAuth(auth)
	mux.Handle("GET /audit", wrap(http.HandlerFunc(h.List)))
	mux.Handle("GET /audit/stats", wrap(http.HandlerFunc(h.Stats)))
	mux.Handle("GET /audit/export", wrap(http.HandlerFunc(h.Export)))
	mux.Handle("POST /audit", wrap(http.HandlerFunc(h.Record)))
	mux.Handle("POST /audit/mark-delivered", wrap(http.HandlerFunc(h.MarkDelivered)))
}

func registerErrorLogRoutes(mux *http.ServeMux, h *ErrorLogHandlers, auth Authenticator) {
	wrapAdmin := RequireRole(auth, domainauth.RoleAdmin)
	mux.Handle("GET /errors", wrapAdmin(http.HandlerFunc(h.List)))
	mux.Handle("GET /errors/{id}", wrapAdmin(http.HandlerFunc(h.Get)))
	mux.Handle("POST /errors", wrapAdmin(http.HandlerFunc(h.Record)))
	mux.Handle("PATCH /errors/{id}/resolve", wrapAdmin(http.HandlerFunc(h.Resolve)))
	mux.Handle("PATCH /errors/{id}/unresolve", wrapAdmin(http.HandlerFunc(h.Unresolve)))
	mux.Handle("DELETE /errors", wrapAdmin(http.HandlerFunc(h.BulkDelete)))
}

func registerUserRoutes(mux *http.ServeMux, h *UserHandlers, auth Authenticator) {
	wrapAdmin := RequireRole(auth, domainauth.RoleAdmin)
	wrapSuper := RequireRole(auth, domainauth.RoleSuperAdmin)
	mux.Handle("GET /user", wrapAdmin(http.HandlerFunc(h.List)))
	mux.Handle("GET /user/{id}", wrapAdmin(http.HandlerFunc(h.Get)))
	mux.Handle("POST /user", wrapSuper(http.HandlerFunc(h.Create)))
	mux.Handle("PUT /user/{id}", wrapSuper(http.HandlerFunc(h.Update)))
}

func registerSettingsRoutes(mux *http.ServeMux, h *SettingsHandlers, auth Authenticator) {
	wrapAdmin := RequireRole(auth, domainauth.RoleAdmin)
	mux.Handle("GET /settings", wrapAdmin(http.HandlerFunc(h.List)))
	mux.Handle("PUT /settings", wrapAdmin(http.HandlerFunc(h.Upsert)))
}

func registerCronJobRoutes(mux *http.ServeMux, h *CronJobHandlers, auth Authenticator) {
	wrapAdmin := RequireRole(auth, domainauth.RoleAdmin)
	mux.Handle("GET /cron-jobs", wrapAdmin(http.HandlerFunc(h.List)))
	mux.Handle("PUT /cron-jobs/{type}", wrapAdmin(http.HandlerFunc(h.SetEnabled)))
	mux.Handle("POST /cron-jobs/{type}/run", wrapAdmin(http.HandlerFunc(h.Run)))
	mux.Handle("GET /cron-jobs/{type}/history", wrapAdmin(http.HandlerFunc(h.History)))
}

func registerQueueRoutes(mux *http.ServeMux, h *QueueHandlers, auth Authenticator) {
	wrapAdmin := RequireRole(auth, domainauth.RoleAdmin)
	mux.Handle("GET /queues/stats", wrapAdmin(http.HandlerFunc(h.Stats)))
	mux.Handle("GET /queues/health", wrapAdmin(http.HandlerFunc(h.Health)))
	mux.Handle("GET /queues/{queue}/dead-letters", wrapAdmin(http.HandlerFunc(h.DeadLetters)))
}

func registerSalesforceRoutes(mux *http.ServeMux, h *SalesforceHandlers, keys []APIKey) {
	wrap := RequireAPIKey(keys)
	mux.Handle("GET /v1/salesforce/token", wrap(http.HandlerFunc(h.Token)))
	mux.Handle("POST /v1/salesforce/pledge", wrap(h.Call("pledge")))
	mux.Handle("POST /v1/salesforce/oneoff", wrap(h.Call("oneoff")))
	mux.Handle("POST /v1/salesforce/recurring", wrap(h.Call("recurring")))
}

func registerReportRoutes(mux *http.ServeMux, h *ReportHandlers, auth Authenticator) {
	wrapAdmin := RequireRole(auth, domainauth.RoleAdmin)
	mux.Handle("GET /reports", wrapAdmin(http.HandlerFunc(h.List)))
	mux.Handle("GET /reports/{id}", wrapAdmin(http.HandlerFunc(h.Get)))
	mux.Handle("POST /reports", wrapAdmin(http.HandlerFunc(h.Create)))
}
