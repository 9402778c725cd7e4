package httpx

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

const (
	// DefaultCSRFCookieName is the default name for the CSRF cookie.
	DefaultCSRFCookieName = "csrf_token"
	// DefaultCSRFHeaderName is the default name for the CSRF header (canonical form).
	DefaultCSRFHeaderName = "X-Csrf-Token"
	// DefaultCSRFTokenLength is the default length of the CSRF token in bytes.
	DefaultCSRFTokenLength = 32
)

// CSRFConfig holds configuration for CSRF protection middleware.
type CSRFConfig struct {
	// CookieName is the name of the CSRF cookie (default: "csrf_token")
	CookieName string
	// HeaderName is the name of the CSRF header to check (default: "X-Csrf-Token")
	HeaderName string
	// CookieDomain is the domain for the CSRF cookie
	CookieDomain string
	// TokenLength is the length of the CSRF token in bytes (default: 32)
	TokenLength int
	// ExemptPrefixes lists path prefixes skipped entirely: public auth
	// endpoints and API-key routes, which carry no browser session.
	ExemptPrefixes []string
}

// CSRFProtection returns a middleware that protects against CSRF attacks using the double-submit cookie pattern.
// It generates a random token, stores it in a cookie, and validates it on state-changing requests (POST, PUT, DELETE, PATCH)
// by comparing the cookie value against the X-Csrf-Token header.
//
// GET, HEAD, OPTIONS, and TRACE requests are exempt from CSRF validation,
// as are the configured exempt path prefixes.
func CSRFProtection(cfg CSRFConfig) func(http.Handler) http.Handler {
	// Set defaults
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCSRFCookieName
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultCSRFHeaderName
	}
	if cfg.TokenLength == 0 {
		cfg.TokenLength = DefaultCSRFTokenLength
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExemptPath(r.URL.Path, cfg.ExemptPrefixes) {
				next.ServeHTTP(w, r)
				return
			}

			// Get existing CSRF token from cookie
			token := getCSRFToken(r, cfg.CookieName)

			// Generate token only if missing
			if token == "" {
				var err error
				token, err = generateCSRFToken(cfg.TokenLength)
				if err != nil {
					http.Error(w, "unable to generate CSRF token", http.StatusInternalServerError)
					return
				}
				setCSRFCookie(w, r, csrfCookieParams{
					Name:   cfg.CookieName,
					Domain: cfg.CookieDomain,
					Token:  token,
				})
			}

			// Validate CSRF token for state-changing methods
			if requiresCSRFValidation(r.Method) {
				if !validateCSRFToken(r, token, cfg.HeaderName) {
					WriteError(w, ErrorParams{
						Code:    http.StatusForbidden,
						ErrCode: "csrf_validation_failed",
						Err:     errors.New("CSRF token validation failed"),
					})
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// requiresCSRFValidation returns true if the HTTP method requires CSRF validation.
// Safe methods (GET, HEAD, OPTIONS, TRACE) are exempt.
func requiresCSRFValidation(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	default:
		return true
	}
}

func isExemptPath(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// getCSRFToken retrieves the CSRF token from the cookie.
func getCSRFToken(r *http.Request, cookieName string) string {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// generateCSRFToken creates a new random CSRF token.
func generateCSRFToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

type csrfCookieParams struct {
	Name   string
	Domain string
	Token  string
}

// setCSRFCookie sets the CSRF token cookie. It is intentionally readable by
// scripts (not httpOnly) so clients can echo it in the header.
func setCSRFCookie(w http.ResponseWriter, r *http.Request, p csrfCookieParams) {
	http.SetCookie(w, &http.Cookie{
		Name:     p.Name,
		Value:    p.Token,
		Path:     "/",
		Domain:   p.Domain,
		Secure:   r.TLS != nil,
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	})
}

// validateCSRFToken compares the header token against the cookie token in
// constant time.
func validateCSRFToken(r *http.Request, cookieToken, headerName string) bool {
	presented := r.Header.Get(headerName)
	if presented == "" || cookieToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(cookieToken)) == 1
}
