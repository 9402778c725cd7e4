package auth

// Package auth contains domain-level types for authentication and authorization.
// It is pure and free of framework/adapter concerns.

import "time"

// Role represents an application's authorization role.
// Keep string form for easy persistence and token claims.
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Valid returns true if the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin || r == RoleSuperAdmin
}

// roleHierarchy maps roles to their privilege level. USER < ADMIN < SUPER_ADMIN.
var roleHierarchy = map[Role]int{
	RoleUser:       0,
	RoleAdmin:      1,
	RoleSuperAdmin: 2,
}

// AtLeast reports whether r grants at least the privileges of required.
// Unknown roles on either side never qualify.
func (r Role) AtLeast(required Role) bool {
	level, ok := roleHierarchy[r]
	if !ok {
		return false
	}
	requiredLevel, ok := roleHierarchy[required]
	if !ok {
		return false
	}
	return level >= requiredLevel
}

// ActorKind distinguishes how a request was authenticated.
type ActorKind string

const (
	// ActorUser is a JWT-authenticated end user.
	ActorUser ActorKind = "user"
	// ActorAPIKey is an API-key-authenticated machine client.
	ActorAPIKey ActorKind = "api_key"
)

// Principal is the authenticated caller attached to a request context.
// For API-key callers UserID is empty and APIKeyName identifies the key.
type Principal struct {
	Kind       ActorKind `json:"kind"`
	UserID     string    `json:"user_id,omitempty"`
	Email      string    `json:"email,omitempty"`
	Role       Role      `json:"role,omitempty"`
	APIKeyName string    `json:"api_key_name,omitempty"`
	TokenID    string    `json:"token_id,omitempty"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Actor returns a stable identifier for audit records: the user id for user
// principals, the key name for API-key principals.
func (p Principal) Actor() string {
	if p.Kind == ActorAPIKey {
		return p.APIKeyName
	}
	return p.UserID
}

// TokenPair is the result of a successful login or refresh exchange.
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
}
