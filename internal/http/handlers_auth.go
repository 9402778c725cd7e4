package httpx

import (
	"errors"
	"net/http"
	"time"

	domainauth "github.com/crmbridge/backend/internal/domain/auth"
	"github.com/crmbridge/backend/internal/service"
)

// AuthHandlers provides HTTP handlers for credential operations.
type AuthHandlers struct {
	Svc          *service.TokenService
	CookieDomain string
	CookieSecure bool
}

// Login handles POST /auth/login. On success the token pair is delivered in
// httpOnly cookies plus the response body for non-browser clients.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation",
			Err:     errors.New("email and password are required"),
		})
		return
	}

	user, pair, err := h.Svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	h.setTokenCookies(w, pair)
	WriteJSON(w, http.StatusOK, map[string]any{
		"user":                     user,
		"access_token":             pair.AccessToken,
		"refresh_token":            pair.RefreshToken,
		"access_token_expires_at":  pair.AccessTokenExpiresAt,
		"refresh_token_expires_at": pair.RefreshTokenExpiresAt,
	})
}

// Refresh handles POST /auth/refresh. The refresh token is read from its
// cookie first, falling back to the request body.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if cookie, err := r.Cookie(RefreshTokenCookieName); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if !DecodeJSON(w, r, &req) {
			return
		}
		token = req.RefreshToken
	}

	pair, err := h.Svc.Refresh(r.Context(), token)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	h.setTokenCookies(w, pair)
	WriteJSON(w, http.StatusOK, map[string]any{
		"access_token":             pair.AccessToken,
		"refresh_token":            pair.RefreshToken,
		"access_token_expires_at":  pair.AccessTokenExpiresAt,
		"refresh_token_expires_at": pair.RefreshTokenExpiresAt,
	})
}

// Logout handles POST /auth/logout. Requires an authenticated principal; the
// presented access token is blacklisted for its remaining lifetime and every
// refresh token for the account is revoked.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())
	if principal == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}

	if err := h.Svc.Logout(r.Context(), *principal, "logout"); err != nil {
		WriteAppError(w, err)
		return
	}

	h.clearTokenCookies(w)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// RevokeAll handles POST /auth/revoke-all. ADMIN+: force-revokes every
// refresh token for the named account.
func (h *AuthHandlers) RevokeAll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Reason string `json:"reason"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation",
			Err:     errors.New("user_id is required"),
		})
		return
	}
	if req.Reason == "" {
		req.Reason = "admin revocation"
	}

	revoked, err := h.Svc.RevokeUser(r.Context(), req.UserID, req.Reason)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"revoked": revoked})
}

func (h *AuthHandlers) setTokenCookies(w http.ResponseWriter, pair *domainauth.TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookieName,
		Value:    pair.AccessToken,
		Path:     "/",
		Domain:   h.CookieDomain,
		Expires:  pair.AccessTokenExpiresAt,
		Secure:   h.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshTokenCookieName,
		Value:    pair.RefreshToken,
		Path:     "/auth",
		Domain:   h.CookieDomain,
		Expires:  pair.RefreshTokenExpiresAt,
		Secure:   h.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandlers) clearTokenCookies(w http.ResponseWriter) {
	expired := time.Unix(0, 0)
	http.SetCookie(w, &http.Cookie{
		Name: AccessTokenCookieName, Value: "", Path: "/",
		Domain: h.CookieDomain, Expires: expired, HttpOnly: true,
	})
	http.SetCookie(w, &http.Cookie{
		Name: RefreshTokenCookieName, Value: "", Path: "/auth",
		Domain: h.CookieDomain, Expires: expired, HttpOnly: true,
	})
}
