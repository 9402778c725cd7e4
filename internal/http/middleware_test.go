package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/crmbridge/backend/internal/domain/auth"
	apperrors "github.com/crmbridge/backend/internal/errors"
	"github.com/crmbridge/backend/internal/testutil"
)

// stubAuthenticator resolves a fixed token to a fixed principal.
type stubAuthenticator struct {
	token     string
	principal *domainauth.Principal
	err       error
}

func (s *stubAuthenticator) Authenticate(_ context.Context, token string) (*domainauth.Principal, error) {
	if s.err != nil {
		return nil, s.err
	}
	if token != s.token {
		return nil, apperrors.Unauthorized("invalid token")
	}
	return s.principal, nil
}

func userPrincipal(role domainauth.Role) *domainauth.Principal {
	return &domainauth.Principal{
		Kind:   domainauth.ActorUser,
		UserID: "user-1",
		Email:  "ops@example.org",
		Role:   role,
	}
}

func okHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipalFromContext(r.Context())
		require.True(t, ok)
		require.NotNil(t, principal)
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireAuthAcceptsCookieAndBearer(t *testing.T) {
	auth := &stubAuthenticator{token: "good-token", principal: userPrincipal(domainauth.RoleUser)}
	h := RequireAuth(auth)(okHandler(t))

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/audit", nil)
		req.AddCookie(&http.Cookie{Name: AccessTokenCookieName, Value: "good-token"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("bearer fallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/audit", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("cookie wins over header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/audit", nil)
		req.AddCookie(&http.Cookie{Name: AccessTokenCookieName, Value: "good-token"})
		req.Header.Set("Authorization", "Bearer stale-token")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestRequireAuthRejectsMissingOrBadTokens(t *testing.T) {
	auth := &stubAuthenticator{token: "good-token", principal: userPrincipal(domainauth.RoleUser)}
	h := RequireAuth(auth)(okHandler(t))

	cases := map[string]func(*http.Request){
		"no credentials": func(*http.Request) {},
		"wrong token": func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: AccessTokenCookieName, Value: "bad"})
		},
		"malformed authorization header": func(r *http.Request) {
			r.Header.Set("Authorization", "Token good-token")
		},
	}
	for name, arrange := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/audit", nil)
			arrange(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireAuthFailsClosedOnAuthenticatorOutage(t *testing.T) {
	auth := &stubAuthenticator{err: apperrors.Unauthorized("token validation unavailable")}
	h := RequireAuth(auth)(okHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/audit", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookieName, Value: "good-token"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoleEnforcesHierarchy(t *testing.T) {
	cases := []struct {
		name     string
		role     domainauth.Role
		required domainauth.Role
		want     int
	}{
		{"user denied admin surface", domainauth.RoleUser, domainauth.RoleAdmin, http.StatusForbidden},
		{"admin allowed admin surface", domainauth.RoleAdmin, domainauth.RoleAdmin, http.StatusNoContent},
		{"super admin allowed admin surface", domainauth.RoleSuperAdmin, domainauth.RoleAdmin, http.StatusNoContent},
		{"admin denied super admin surface", domainauth.RoleAdmin, domainauth.RoleSuperAdmin, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &stubAuthenticator{token: "tok", principal: userPrincipal(tc.role)}
			h := RequireRole(auth, tc.required)(okHandler(t))

			req := httptest.NewRequest(http.MethodGet, "/settings", nil)
			req.AddCookie(&http.Cookie{Name: AccessTokenCookieName, Value: "tok"})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRequireAPIKey(t *testing.T) {
	keys := []APIKey{{Name: "crm-relay", Key: "s3cret"}}

	h := RequireAPIKey(keys)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := GetPrincipalFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, domainauth.ActorAPIKey, principal.Kind)
		assert.Equal(t, "crm-relay", principal.APIKeyName)
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("valid key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/salesforce/token", nil)
		req.Header.Set(APIKeyHeaderName, "s3cret")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("wrong key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/salesforce/token", nil)
		req.Header.Set(APIKeyHeaderName, "nope")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/salesforce/token", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("no keys configured", func(t *testing.T) {
		closed := RequireAPIKey(nil)(okHandler(t))
		req := httptest.NewRequest(http.MethodGet, "/v1/salesforce/token", nil)
		req.Header.Set(APIKeyHeaderName, "s3cret")
		rec := httptest.NewRecorder()
		closed.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRateLimitBlocksAboveLimit(t *testing.T) {
	_, client := testutil.SetupTestRedis(t)

	h := RateLimit(client, 2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func() int {
		req := httptest.NewRequest(http.MethodGet, "/audit", nil)
		req.RemoteAddr = "10.0.0.7:54321"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, send())
	assert.Equal(t, http.StatusNoContent, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}

func TestRateLimitIsPerClient(t *testing.T) {
	_, client := testutil.SetupTestRedis(t)

	h := RateLimit(client, 1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/audit", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, send("10.0.0.7:1000"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.7:1001"))
	assert.Equal(t, http.StatusNoContent, send("10.0.0.8:1000"))
}

func TestRateLimitFailsOpenWhenRedisIsDown(t *testing.T) {
	mr, client := testutil.SetupTestRedis(t)
	mr.Close()

	h := RateLimit(client, 1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/audit", nil)
	req.RemoteAddr = "10.0.0.7:1000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCSRFProtection(t *testing.T) {
	protect := CSRFProtection(CSRFConfig{ExemptPrefixes: []string{"/v1/salesforce", "/health"}})
	h := protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	csrfCookie := func(rec *httptest.ResponseRecorder) *http.Cookie {
		for _, c := range rec.Result().Cookies() {
			if c.Name == DefaultCSRFCookieName {
				return c
			}
		}
		return nil
	}

	t.Run("safe request seeds the cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/audit", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		cookie := csrfCookie(rec)
		require.NotNil(t, cookie)
		assert.NotEmpty(t, cookie.Value)
		assert.False(t, cookie.HttpOnly, "frontend must be able to read the token")
	})

	t.Run("mutation without header is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/audit", nil)
		req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: "tok-abc"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("mutation with mismatched header is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/audit", nil)
		req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: "tok-abc"})
		req.Header.Set(DefaultCSRFHeaderName, "tok-xyz")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("double submit passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/audit", nil)
		req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: "tok-abc"})
		req.Header.Set(DefaultCSRFHeaderName, "tok-abc")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("exempt prefix skips validation", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/salesforce/pledge", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:1000"
	assert.Equal(t, "10.0.0.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(req))
}
