package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/crmbridge/backend/internal/core"
	"github.com/crmbridge/backend/internal/data"
	domainauth "github.com/crmbridge/backend/internal/domain/auth"
	"github.com/crmbridge/backend/internal/domain/model"
	"github.com/crmbridge/backend/internal/mocks"
	"github.com/crmbridge/backend/internal/service"
	"github.com/crmbridge/backend/internal/testutil"
)

// routerFixture wires the full router against mocked repositories so route
// gating can be exercised end to end.
type routerFixture struct {
	handler http.Handler
	users   *mocks.MockUserRepository
	tokens  *mocks.MockTokenRepository
	audit   *mocks.MockAuditLogRepository
	queue   *mocks.MockQueue
}

func newRouterFixture(t *testing.T, ctrl *gomock.Controller) *routerFixture {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	users := mocks.NewMockUserRepository(ctrl)
	tokens := mocks.NewMockTokenRepository(ctrl)
	auditRepo := mocks.NewMockAuditLogRepository(ctrl)
	errorRepo := mocks.NewMockErrorLogRepository(ctrl)
	settingRepo := mocks.NewMockSettingRepository(ctrl)
	cronRepo := mocks.NewMockCronJobRepository(ctrl)
	reportRepo := mocks.NewMockReportRepository(ctrl)
	queue := mocks.NewMockQueue(ctrl)

	_, client := testutil.SetupTestRedis(t)
	cacheStore := data.NewRedisCacheRepo(client)
	cache := core.MustNewResponseCacheService(core.ResponseCacheServiceOptions{
		Logger: logger,
		Cache:  cacheStore,
	})

	tokenSvc := service.MustNewTokenService(service.TokenServiceOptions{
		Logger:          logger,
		Users:           users,
		Tokens:          tokens,
		Secret:          "test-secret",
		AccessTokenTTL:  "15m",
		RefreshTokenTTL: "7d",
		Now:             func() time.Time { return handlerTestTime },
	})
	auditSvc := service.MustNewAuditService(service.AuditServiceOptions{Logger: logger, Repo: auditRepo})
	errorSvc := service.MustNewErrorLogService(service.ErrorLogServiceOptions{Logger: logger, Repo: errorRepo})
	settingsSvc := service.MustNewSettingsService(service.SettingsServiceOptions{Logger: logger, Repo: settingRepo})
	dispatchSvc := service.MustNewDispatchService(service.DispatchServiceOptions{Logger: logger, Queue: queue})
	cronSvc := service.MustNewCronJobService(service.CronJobServiceOptions{
		Logger:   logger,
		Repo:     cronRepo,
		Settings: settingsSvc,
		Dispatch: dispatchSvc,
		Now:      func() time.Time { return handlerTestTime },
	})
	salesforceSvc := service.MustNewSalesforceService(service.SalesforceServiceOptions{
		Logger:   logger,
		Dispatch: dispatchSvc,
		Audit:    auditSvc,
	})
	userSvc := service.MustNewUserService(service.UserServiceOptions{Logger: logger, Repo: users})
	reportSvc := service.MustNewReportService(service.ReportServiceOptions{Logger: logger, Repo: reportRepo, Audit: auditSvc})

	handler := NewRouter(RouterServices{
		Tokens:     tokenSvc,
		Users:      userSvc,
		Audit:      auditSvc,
		Errors:     errorSvc,
		Settings:   settingsSvc,
		CronJobs:   cronSvc,
		Dispatch:   dispatchSvc,
		Salesforce: salesforceSvc,
		Reports:    reportSvc,
		Cache:      cache,
		CacheStore: cacheStore,
		APIKeys:    []APIKey{{Name: "crm-relay", Key: "relay-key"}},
		Logger:     logger,
	})

	return &routerFixture{
		handler: handler,
		users:   users,
		tokens:  tokens,
		audit:   auditRepo,
		queue:   queue,
	}
}

// login performs a real login and returns the issued cookies plus the CSRF
// cookie seeded by the middleware.
func (f *routerFixture) login(t *testing.T, role domainauth.Role) []*http.Cookie {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	f.users.EXPECT().GetByEmail(gomock.Any(), "ops@example.org").Return(&model.User{
		ID:           "user-1",
		Email:        "ops@example.org",
		Role:         role,
		PasswordHash: string(hash),
		Active:       true,
	}, nil)
	f.tokens.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	body, err := json.Marshal(map[string]string{"email": "ops@example.org", "password": "pw"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Result().Cookies()
}

func (f *routerFixture) send(t *testing.T, method, path string, body []byte, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	var csrf string
	for _, c := range cookies {
		req.AddCookie(c)
		if c.Name == DefaultCSRFCookieName {
			csrf = c.Value
		}
	}
	if csrf != "" {
		req.Header.Set(DefaultCSRFHeaderName, csrf)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouterRejectsAnonymousAccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)

	paths := []string{"/audit", "/errors", "/user", "/settings", "/cron-jobs", "/queues/stats", "/reports"}
	for _, path := range paths {
		rec := f.send(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRouterGatesAdminSurfacesByRole(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)

	f.tokens.EXPECT().IsBlacklisted(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil).AnyTimes()
	cookies := f.login(t, domainauth.RoleUser)

	for _, path := range []string{"/errors", "/settings", "/cron-jobs", "/queues/health", "/reports"} {
		rec := f.send(t, http.MethodGet, path, nil, cookies)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}

	// USER may still read the audit trail.
	f.audit.EXPECT().List(gomock.Any(), gomock.Any(), gomock.Any()).Return(&model.AuditLogPage{}, nil)
	rec := f.send(t, http.MethodGet, "/audit", nil, cookies)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterUserWritesRequireSuperAdmin(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)

	f.tokens.EXPECT().IsBlacklisted(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil).AnyTimes()
	cookies := f.login(t, domainauth.RoleAdmin)

	body, err := json.Marshal(map[string]string{
		"email":    "new@example.org",
		"name":     "New",
		"password": "long enough password",
		"role":     "USER",
	})
	require.NoError(t, err)
	rec := f.send(t, http.MethodPost, "/user", body, cookies)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouterRejectsMutationsWithoutCSRFToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)

	f.tokens.EXPECT().IsBlacklisted(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil).AnyTimes()
	cookies := f.login(t, domainauth.RoleAdmin)

	// Strip the CSRF cookie: the auth cookies alone must not be enough.
	var authOnly []*http.Cookie
	for _, c := range cookies {
		if c.Name != DefaultCSRFCookieName {
			authOnly = append(authOnly, c)
		}
	}
	body, err := json.Marshal(map[string]any{"job_ids": []string{"job-1"}})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/audit/mark-delivered", bytes.NewReader(body))
	for _, c := range authOnly {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouterSalesforceRelayWithAPIKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)

	f.queue.EXPECT().
		Enqueue(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *model.EnqueueRequest) (*model.Job, error) {
			assert.Equal(t, model.QueueOutboundCall, req.Queue)
			var payload model.OutboundCallPayload
			require.NoError(t, json.Unmarshal(req.Payload, &payload))
			assert.Equal(t, "pledge", payload.Action)
			assert.Equal(t, "crm-relay", payload.Actor)
			return &model.Job{ID: "job-42", Queue: req.Queue, State: model.JobStateWaiting}, nil
		})
	f.audit.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(&model.AuditLog{ID: "1"}, nil)

	body, err := json.Marshal(map[string]any{
		"endpoint": "/services/data/v58.0/sobjects/Pledge__c",
		"method":   "POST",
		"body":     map[string]string{"Amount__c": "100"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/salesforce/pledge", bytes.NewReader(body))
	req.Header.Set(APIKeyHeaderName, "relay-key")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "job-42", resp.JobID)
}

func TestRouterSalesforceRejectsBadAPIKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)

	req := httptest.NewRequest(http.MethodPost, "/v1/salesforce/pledge", bytes.NewReader([]byte("{}")))
	req.Header.Set(APIKeyHeaderName, "wrong")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouterHealthIsPublicAndCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newRouterFixture(t, ctrl)

	// One counts pass covers every queue; the second request must come from
	// the response cache without touching the queue broker again.
	f.queue.EXPECT().
		Counts(gomock.Any(), gomock.Any()).
		Return(model.QueueCounts{}, nil).
		Times(len(model.QueueNames))

	first := f.send(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, first.Code)

	second := f.send(t, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())
}
