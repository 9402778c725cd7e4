package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/crmbridge/backend/internal/domain/model"
)

// TokenRepo provides database operations for refresh tokens and the access
// token blacklist.
type TokenRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewTokenRepo creates a new TokenRepo instance with the given database connection.
func NewTokenRepo(db *sql.DB) *TokenRepo {
	return &TokenRepo{
		DB:           db,
		timeProvider: &RealTimeProvider{},
	}
}

// SaveRefreshToken persists a new refresh token record.
func (r *TokenRepo) SaveRefreshToken(ctx context.Context, token *model.RefreshToken) error {
	if token == nil {
		return errors.New("refresh token is required")
	}
	if token.TokenHash == "" {
		return errors.New("token hash is required")
	}

	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5)`
	if _, err := r.DB.ExecContext(ctx, query,
		token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

// ConsumeRefreshToken atomically revokes an unrevoked, unexpired refresh
// token by hash and returns it. A concurrent second use of the same token
// loses the UPDATE race and gets ErrRefreshTokenInvalid.
func (r *TokenRepo) ConsumeRefreshToken(ctx context.Context, tokenHash string, now time.Time) (*model.RefreshToken, error) {
	if tokenHash == "" {
		return nil, errors.New("token hash is required")
	}

	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = $2
		WHERE token_hash = $1 AND revoked = FALSE AND expires_at > $2
		RETURNING id, user_id, token_hash, expires_at, revoked, revoked_at, created_at`

	var t model.RefreshToken
	err := r.DB.QueryRowContext(ctx, query, tokenHash, now).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Revoked, &t.RevokedAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRefreshTokenInvalid
		}
		return nil, fmt.Errorf("consume refresh token: %w", err)
	}
	return &t, nil
}

// RevokeAllForUser revokes every live refresh token belonging to one user.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = $2
		WHERE user_id = $1 AND revoked = FALSE`
	res, err := r.DB.ExecContext(ctx, query, userID, r.timeProvider.Now())
	if err != nil {
		return 0, fmt.Errorf("revoke refresh tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return n, nil
}

// Blacklist records an access token id as invalid until its natural expiry.
// Re-blacklisting the same token id is a no-op.
func (r *TokenRepo) Blacklist(ctx context.Context, entry *model.BlacklistEntry) error {
	if entry == nil {
		return errors.New("blacklist entry is required")
	}
	if entry.TokenID == "" {
		return errors.New("token id is required")
	}

	query := `
		INSERT INTO token_blacklist (token_id, user_id, reason, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token_id) DO NOTHING`
	if _, err := r.DB.ExecContext(ctx, query,
		entry.TokenID, entry.UserID, entry.Reason, entry.ExpiresAt, entry.CreatedAt); err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

// IsBlacklisted reports whether the token id has an unexpired blacklist entry.
func (r *TokenRepo) IsBlacklisted(ctx context.Context, tokenID string, now time.Time) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM token_blacklist WHERE token_id = $1 AND expires_at > $2)`
	var blacklisted bool
	if err := r.DB.QueryRowContext(ctx, query, tokenID, now).Scan(&blacklisted); err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return blacklisted, nil
}

// DeleteExpired removes refresh tokens and blacklist entries whose expiry has
// passed. Returns the total number of rows removed.
func (r *TokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var total int64

	res, err := r.DB.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		total += n
	}

	res, err = r.DB.ExecContext(ctx, `DELETE FROM token_blacklist WHERE expires_at <= $1`, now)
	if err != nil {
		return total, fmt.Errorf("delete expired blacklist entries: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		total += n
	}
	return total, nil
}
