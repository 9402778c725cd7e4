package model

import "time"

// RefreshToken is a persisted one-time-use refresh credential. Only the
// SHA-256 hash of the presented token is ever stored.
type RefreshToken struct {
	ID        string     `json:"id"         db:"id"`
	UserID    string     `json:"user_id"    db:"user_id"`
	TokenHash string     `json:"-"          db:"token_hash"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	Revoked   bool       `json:"revoked"    db:"revoked"`
	RevokedAt *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// BlacklistEntry invalidates an access token (by jti) before its natural
// expiry. Entries past ExpiresAt are garbage collected, since the token they
// shadow can no longer validate anyway.
type BlacklistEntry struct {
	TokenID   string    `json:"token_id"   db:"token_id"`
	UserID    string    `json:"user_id"    db:"user_id"`
	Reason    string    `json:"reason"     db:"reason"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
