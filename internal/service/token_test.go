package service_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/crmbridge/backend/internal/data"
	domainauth "github.com/crmbridge/backend/internal/domain/auth"
	"github.com/crmbridge/backend/internal/domain/model"
	apperrors "github.com/crmbridge/backend/internal/errors"
	"github.com/crmbridge/backend/internal/mocks"
	"github.com/crmbridge/backend/internal/service"
)

var testTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTokenService(t *testing.T, users *mocks.MockUserRepository, tokens *mocks.MockTokenRepository) *service.TokenService {
	t.Helper()
	return service.MustNewTokenService(service.TokenServiceOptions{
		Logger:          testLogger(),
		Users:           users,
		Tokens:          tokens,
		Secret:          "test-secret",
		AccessTokenTTL:  "15m",
		RefreshTokenTTL: "7d",
		Now:             func() time.Time { return testTime },
	})
}

func activeUser(t *testing.T, password string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &model.User{
		ID:           "user-1",
		Email:        "ops@example.org",
		Name:         "Ops",
		Role:         domainauth.RoleAdmin,
		PasswordHash: string(hash),
		Active:       true,
	}
}

func TestParseExpiry(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Duration
	}{
		{"minutes", "15m", 15 * time.Minute},
		{"hours", "12h", 12 * time.Hour},
		{"days", "7d", 7 * 24 * time.Hour},
		{"seconds", "30s", 30 * time.Second},
		{"empty falls back", "", service.DefaultAccessTokenTTL},
		{"garbage falls back", "soon", service.DefaultAccessTokenTTL},
		{"unknown unit falls back", "15x", service.DefaultAccessTokenTTL},
		{"negative-ish falls back", "-5m", service.DefaultAccessTokenTTL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := service.ParseExpiry(tt.input, service.DefaultAccessTokenTTL, testLogger())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoginIssuesVerifiableTokenPair(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := mocks.NewMockUserRepository(ctrl)
	tokens := mocks.NewMockTokenRepository(ctrl)
	svc := newTokenService(t, users, tokens)

	user := activeUser(t, "correct horse battery")
	users.EXPECT().GetByEmail(gomock.Any(), "ops@example.org").Return(user, nil)

	var saved *model.RefreshToken
	tokens.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rt *model.RefreshToken) error {
			saved = rt
			return nil
		})

	gotUser, pair, err := svc.Login(context.Background(), "ops@example.org", "correct horse battery")
	require.NoError(t, err)
	assert.Equal(t, user.ID, gotUser.ID)
	assert.Equal(t, testTime.Add(15*time.Minute), pair.AccessTokenExpiresAt)
	assert.Equal(t, testTime.Add(7*24*time.Hour), pair.RefreshTokenExpiresAt)
	assert.NotEmpty(t, pair.RefreshToken)

	// Stored refresh token is a hash, never the raw token.
	require.NotNil(t, saved)
	assert.NotEqual(t, pair.RefreshToken, saved.TokenHash)
	assert.Len(t, saved.TokenHash, 64)

	// The access token round-trips through Authenticate.
	tokens.EXPECT().IsBlacklisted(gomock.Any(), gomock.Any(), testTime).Return(false, nil)
	principal, err := svc.Authenticate(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)
	assert.Equal(t, user.Email, principal.Email)
	assert.Equal(t, domainauth.RoleAdmin, principal.Role)
	assert.NotEmpty(t, principal.TokenID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := mocks.NewMockUserRepository(ctrl)
	tokens := mocks.NewMockTokenRepository(ctrl)
	svc := newTokenService(t, users, tokens)

	t.Run("wrong password", func(t *testing.T) {
		users.EXPECT().GetByEmail(gomock.Any(), "ops@example.org").Return(activeUser(t, "right"), nil)
		_, _, err := svc.Login(context.Background(), "ops@example.org", "wrong")
		assert.True(t, apperrors.IsUnauthorized(err))
	})

	t.Run("unknown email reads the same", func(t *testing.T) {
		users.EXPECT().GetByEmail(gomock.Any(), "ghost@example.org").Return(nil, data.ErrUserNotFound)
		_, _, err := svc.Login(context.Background(), "ghost@example.org", "whatever")
		assert.True(t, apperrors.IsUnauthorized(err))
	})

	t.Run("disabled account", func(t *testing.T) {
		user := activeUser(t, "right")
		user.Active = false
		users.EXPECT().GetByEmail(gomock.Any(), "ops@example.org").Return(user, nil)
		_, _, err := svc.Login(context.Background(), "ops@example.org", "right")
		assert.True(t, apperrors.IsUnauthorized(err))
	})
}

func TestRefreshIsSingleUse(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := mocks.NewMockUserRepository(ctrl)
	tokens := mocks.NewMockTokenRepository(ctrl)
	svc := newTokenService(t, users, tokens)

	user := activeUser(t, "pw-not-needed")

	tokens.EXPECT().ConsumeRefreshToken(gomock.Any(), gomock.Any(), testTime).
		Return(&model.RefreshToken{ID: "rt-1", UserID: user.ID}, nil)
	users.EXPECT().GetByID(gomock.Any(), user.ID).Return(user, nil)
	tokens.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)

	pair, err := svc.Refresh(context.Background(), "raw-refresh-token")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	// Second presentation of the same token loses the consume race.
	tokens.EXPECT().ConsumeRefreshToken(gomock.Any(), gomock.Any(), testTime).
		Return(nil, data.ErrRefreshTokenInvalid)
	_, err = svc.Refresh(context.Background(), "raw-refresh-token")
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestAuthenticateFailsClosed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := mocks.NewMockUserRepository(ctrl)
	tokens := mocks.NewMockTokenRepository(ctrl)
	svc := newTokenService(t, users, tokens)

	user := activeUser(t, "pw")
	users.EXPECT().GetByEmail(gomock.Any(), user.Email).Return(user, nil)
	tokens.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)
	_, pair, err := svc.Login(context.Background(), user.Email, "pw")
	require.NoError(t, err)

	t.Run("blacklisted token is rejected", func(t *testing.T) {
		tokens.EXPECT().IsBlacklisted(gomock.Any(), gomock.Any(), testTime).Return(true, nil)
		_, err := svc.Authenticate(context.Background(), pair.AccessToken)
		assert.True(t, apperrors.IsUnauthorized(err))
	})

	t.Run("blacklist outage denies the token", func(t *testing.T) {
		tokens.EXPECT().IsBlacklisted(gomock.Any(), gomock.Any(), testTime).
			Return(false, fmt.Errorf("redis down"))
		_, err := svc.Authenticate(context.Background(), pair.AccessToken)
		assert.True(t, apperrors.IsUnauthorized(err),
			"unknown revocation state must read as revoked")
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		_, err := svc.Authenticate(context.Background(), "not-a-jwt")
		assert.True(t, apperrors.IsUnauthorized(err))
	})

	t.Run("token signed with another secret is rejected", func(t *testing.T) {
		other := service.MustNewTokenService(service.TokenServiceOptions{
			Logger: testLogger(),
			Users:  users,
			Tokens: tokens,
			Secret: "other-secret",
			Now:    func() time.Time { return testTime },
		})
		users.EXPECT().GetByEmail(gomock.Any(), user.Email).Return(user, nil)
		tokens.EXPECT().SaveRefreshToken(gomock.Any(), gomock.Any()).Return(nil)
		_, foreignPair, err := other.Login(context.Background(), user.Email, "pw")
		require.NoError(t, err)

		_, err = svc.Authenticate(context.Background(), foreignPair.AccessToken)
		assert.True(t, apperrors.IsUnauthorized(err))
	})
}

func TestLogoutBlacklistsAndRevokes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := mocks.NewMockUserRepository(ctrl)
	tokens := mocks.NewMockTokenRepository(ctrl)
	svc := newTokenService(t, users, tokens)

	principal := domainauth.Principal{
		Kind:      domainauth.ActorUser,
		UserID:    "user-1",
		TokenID:   "jti-1",
		ExpiresAt: testTime.Add(10 * time.Minute),
	}

	tokens.EXPECT().Blacklist(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, entry *model.BlacklistEntry) error {
			assert.Equal(t, "jti-1", entry.TokenID)
			assert.Equal(t, principal.ExpiresAt, entry.ExpiresAt)
			return nil
		})
	tokens.EXPECT().RevokeAllForUser(gomock.Any(), "user-1").Return(int64(2), nil)

	require.NoError(t, svc.Logout(context.Background(), principal, ""))
}
