// Package service contains the business logic services for the crmbridge backend.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/crmbridge/backend/internal/core"
	"github.com/crmbridge/backend/internal/data"
	domainauth "github.com/crmbridge/backend/internal/domain/auth"
	"github.com/crmbridge/backend/internal/domain/model"
	apperrors "github.com/crmbridge/backend/internal/errors"
)

const (
	// DefaultAccessTokenTTL is used when the configured expiry is missing or malformed.
	DefaultAccessTokenTTL = 15 * time.Minute
	// DefaultRefreshTokenTTL is used when the configured refresh expiry is missing or malformed.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	refreshTokenBytes = 32
)

// expiryPattern accepts compact durations like "15m", "12h", "7d".
var expiryPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

// ParseExpiry parses a compact token expiry string. Malformed values fall
// back to the given default so a bad config entry can never issue
// never-expiring tokens.
func ParseExpiry(s string, fallback time.Duration, logger *slog.Logger) time.Duration {
	m := expiryPattern.FindStringSubmatch(s)
	if m == nil {
		if s != "" && logger != nil {
			logger.Warn("malformed token expiry, using default", "value", s, "default", fallback)
		}
		return fallback
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		if logger != nil {
			logger.Warn("malformed token expiry, using default", "value", s, "default", fallback)
		}
		return fallback
	}
	switch m[2] {
	case "s":
		return time.Duration(n) * time.Second
	case "m":
		return time.Duration(n) * time.Minute
	case "h":
		return time.Duration(n) * time.Hour
	default:
		return time.Duration(n) * 24 * time.Hour
	}
}

// AccessClaims are the JWT claims carried by an access token.
type AccessClaims struct {
	Email string          `json:"email"`
	Role  domainauth.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenServiceOptions groups dependencies for TokenService.
type TokenServiceOptions struct {
	Logger *slog.Logger
	Users  core.UserRepository
	Tokens core.TokenRepository

	// Secret signs access tokens (HMAC-SHA256).
	Secret string
	// AccessTokenTTL and RefreshTokenTTL are compact expiry strings ("15m", "7d").
	AccessTokenTTL  string
	RefreshTokenTTL string

	// Now overrides the clock (useful for testing).
	Now func() time.Time
}

// TokenService issues, refreshes, validates, and revokes credentials.
// Refresh tokens are single-use; access tokens can be cut short through the
// blacklist, which fails closed.
type TokenService struct {
	logger     *slog.Logger
	users      core.UserRepository
	tokens     core.TokenRepository
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService constructs a new TokenService.
func NewTokenService(opts TokenServiceOptions) (*TokenService, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Users == nil {
		return nil, errors.New("UserRepository is required")
	}
	if opts.Tokens == nil {
		return nil, errors.New("TokenRepository is required")
	}
	if opts.Secret == "" {
		return nil, errors.New("signing secret is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &TokenService{
		logger:     opts.Logger,
		users:      opts.Users,
		tokens:     opts.Tokens,
		secret:     []byte(opts.Secret),
		accessTTL:  ParseExpiry(opts.AccessTokenTTL, DefaultAccessTokenTTL, opts.Logger),
		refreshTTL: ParseExpiry(opts.RefreshTokenTTL, DefaultRefreshTokenTTL, opts.Logger),
		now:        now,
	}, nil
}

// MustNewTokenService constructs a new TokenService and panics on error.
func MustNewTokenService(opts TokenServiceOptions) *TokenService {
	svc, err := NewTokenService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
	}
	return svc
}

// hashRefreshToken derives the storage form of a refresh token. Only this
// hash ever touches the database.
func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Login verifies credentials and issues a fresh token pair. The error for a
// wrong password is indistinguishable from an unknown email.
func (s *TokenService) Login(ctx context.Context, email, password string) (*model.User, *domainauth.TokenPair, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			return nil, nil, apperrors.Unauthorized("invalid credentials")
		}
		return nil, nil, apperrors.MapDBError(err)
	}
	if !user.Active {
		return nil, nil, apperrors.Unauthorized("account is disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, apperrors.Unauthorized("invalid credentials")
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID, "role", user.Role)
	return user, pair, nil
}

// Refresh exchanges a single-use refresh token for a new pair. The presented
// token is consumed atomically, so replaying it fails even under concurrent
// requests.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*domainauth.TokenPair, error) {
	if refreshToken == "" {
		return nil, apperrors.Unauthorized("refresh token is required")
	}

	consumed, err := s.tokens.ConsumeRefreshToken(ctx, hashRefreshToken(refreshToken), s.now())
	if err != nil {
		if errors.Is(err, data.ErrRefreshTokenInvalid) {
			return nil, apperrors.Unauthorized("refresh token is invalid or expired")
		}
		return nil, apperrors.MapDBError(err)
	}

	user, err := s.users.GetByID(ctx, consumed.UserID)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	if !user.Active {
		return nil, apperrors.Unauthorized("account is disabled")
	}

	pair, err := s.issuePair(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "token refreshed", "user_id", user.ID)
	return pair, nil
}

// Logout blacklists the caller's access token for its remaining lifetime and
// revokes every live refresh token for the account.
func (s *TokenService) Logout(ctx context.Context, principal domainauth.Principal, reason string) error {
	if reason == "" {
		reason = "logout"
	}
	entry := &model.BlacklistEntry{
		TokenID:   principal.TokenID,
		UserID:    principal.UserID,
		Reason:    reason,
		ExpiresAt: principal.ExpiresAt,
		CreatedAt: s.now(),
	}
	if err := s.tokens.Blacklist(ctx, entry); err != nil {
		return apperrors.MapDBError(err)
	}
	revoked, err := s.tokens.RevokeAllForUser(ctx, principal.UserID)
	if err != nil {
		return apperrors.MapDBError(err)
	}
	s.logger.InfoContext(ctx, "user logged out", "user_id", principal.UserID, "refresh_tokens_revoked", revoked)
	return nil
}

// RevokeUser forcibly revokes all refresh tokens for an account, for admin use.
func (s *TokenService) RevokeUser(ctx context.Context, userID, reason string) (int64, error) {
	revoked, err := s.tokens.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, apperrors.MapDBError(err)
	}
	s.logger.InfoContext(ctx, "refresh tokens revoked", "user_id", userID, "reason", reason, "count", revoked)
	return revoked, nil
}

// Authenticate verifies an access token and returns its principal. A
// blacklist lookup failure denies the request: when revocation state is
// unknown the token is treated as revoked.
func (s *TokenService) Authenticate(ctx context.Context, accessToken string) (*domainauth.Principal, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(accessToken, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}

	blacklisted, err := s.tokens.IsBlacklisted(ctx, claims.ID, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "blacklist check failed, denying token", "error", err)
		return nil, apperrors.Unauthorized("token revocation state unavailable")
	}
	if blacklisted {
		return nil, apperrors.Unauthorized("token has been revoked")
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return &domainauth.Principal{
		Kind:      domainauth.ActorUser,
		UserID:    claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: expiresAt,
	}, nil
}

// CleanupExpired removes refresh tokens and blacklist entries past their
// expiry. Intended to run from the janitor.
func (s *TokenService) CleanupExpired(ctx context.Context) (int64, error) {
	removed, err := s.tokens.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, apperrors.MapDBError(err)
	}
	if removed > 0 {
		s.logger.InfoContext(ctx, "expired credentials removed", "count", removed)
	}
	return removed, nil
}

func (s *TokenService) issuePair(ctx context.Context, user *model.User) (*domainauth.TokenPair, error) {
	now := s.now()
	accessExpiry := now.Add(s.accessTTL)
	refreshExpiry := now.Add(s.refreshTTL)

	claims := AccessClaims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExpiry),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "sign access token")
	}

	refreshRaw := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(refreshRaw); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "generate refresh token")
	}
	refresh := hex.EncodeToString(refreshRaw)

	record := &model.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: hashRefreshToken(refresh),
		ExpiresAt: refreshExpiry,
		CreatedAt: now,
	}
	if err := s.tokens.SaveRefreshToken(ctx, record); err != nil {
		return nil, apperrors.MapDBError(err)
	}

	return &domainauth.TokenPair{
		AccessToken:           access,
		RefreshToken:          refresh,
		AccessTokenExpiresAt:  accessExpiry,
		RefreshTokenExpiresAt: refreshExpiry,
	}, nil
}
