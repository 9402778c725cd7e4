package config

import (
	"fmt"
	"strings"
)

// APIKeyEntry is one named API key for the /v1/salesforce surface.
type APIKeyEntry struct {
	Name string
	Key  string
}

// APIKeyList parses "name:key" pairs from a semicolon-separated env value.
type APIKeyList []APIKeyEntry

// UnmarshalText implements encoding.TextUnmarshaler for APIKeyList.
func (l *APIKeyList) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*l = nil
		return nil
	}
	var entries []APIKeyEntry
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, key, ok := strings.Cut(part, ":")
		if !ok || name == "" || key == "" {
			return fmt.Errorf("invalid API key entry %q (expected name:key)", part)
		}
		entries = append(entries, APIKeyEntry{Name: name, Key: key})
	}
	*l = entries
	return nil
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// JWTSecret signs access tokens. Required.
	JWTSecret string `env:"JWT_SECRET,required"`

	// AccessTokenTTL is a compact expiry string ("15m", "12h", "7d").
	AccessTokenTTL string `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`

	// RefreshTokenTTL is a compact expiry string.
	RefreshTokenTTL string `env:"REFRESH_TOKEN_TTL" envDefault:"7d"`

	// CookieDomain is the domain for token cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// CookieSecure marks token cookies Secure. Disable only for local dev.
	CookieSecure bool `env:"APP_COOKIE_SECURE" envDefault:"true"`

	// APIKeys gates the CRM relay endpoints. Format: "name:key;name2:key2".
	APIKeys APIKeyList `env:"API_KEYS" envDefault:""`
}
