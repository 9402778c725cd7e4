package model

import (
	"errors"
	"strings"
	"time"

	domainauth "github.com/crmbridge/backend/internal/domain/auth"
)

// User is a backend account. PasswordHash is never serialized.
type User struct {
	ID           string          `json:"id"         db:"id"`
	Email        string          `json:"email"      db:"email"`
	Name         string          `json:"name"       db:"name"`
	Role         domainauth.Role `json:"role"       db:"role"`
	PasswordHash string          `json:"-"          db:"password_hash"`
	Active       bool            `json:"active"     db:"active"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// CreateUserRequest describes a new account.
type CreateUserRequest struct {
	Email    string          `json:"email"`
	Name     string          `json:"name"`
	Role     domainauth.Role `json:"role"`
	Password string          `json:"password"`
}

const minPasswordLength = 8

// Validate validates the CreateUserRequest fields.
func (r *CreateUserRequest) Validate() error {
	if !strings.Contains(r.Email, "@") {
		return errors.New("a valid email is required")
	}
	if r.Name == "" {
		return errors.New("name is required")
	}
	if !r.Role.Valid() {
		return errors.New("invalid role")
	}
	if len(r.Password) < minPasswordLength {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

// UpdateUserRequest describes a partial account update. Nil fields are left
// unchanged.
type UpdateUserRequest struct {
	Name   *string          `json:"name,omitempty"`
	Role   *domainauth.Role `json:"role,omitempty"`
	Active *bool            `json:"active,omitempty"`
}

// Validate validates the UpdateUserRequest fields.
func (r *UpdateUserRequest) Validate() error {
	if r.Role != nil && !r.Role.Valid() {
		return errors.New("invalid role")
	}
	return nil
}

// UserFilter shapes user list queries.
type UserFilter struct {
	Role   *domainauth.Role `json:"role,omitempty"`
	Active *bool            `json:"active,omitempty"`
	Search string           `json:"search,omitempty"`
}
