package service

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/crmbridge/backend/internal/core"
	"github.com/crmbridge/backend/internal/data"
	"github.com/crmbridge/backend/internal/domain/model"
	apperrors "github.com/crmbridge/backend/internal/errors"
)

// UserServiceOptions groups dependencies for UserService.
type UserServiceOptions struct {
	Logger *slog.Logger
	Repo   core.UserRepository
}

// UserService provides business logic for account management.
type UserService struct {
	logger *slog.Logger
	repo   core.UserRepository
}

// NewUserService constructs a new UserService.
func NewUserService(opts UserServiceOptions) (*UserService, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Repo == nil {
		return nil, errors.New("UserRepository is required")
	}
	return &UserService{logger: opts.Logger, repo: opts.Repo}, nil
}

// MustNewUserService constructs a new UserService and panics on error.
func MustNewUserService(opts UserServiceOptions) *UserService {
	svc, err := NewUserService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
	}
	return svc
}

// Create registers a new account. The plaintext password never leaves this
// method; only its bcrypt hash is stored.
func (s *UserService) Create(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	if req == nil {
		return nil, apperrors.Validation("create user request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "hash password")
	}

	user, err := s.repo.Create(ctx, req, string(hash))
	if err != nil {
		if errors.Is(err, data.ErrUserEmailExists) {
			return nil, apperrors.Conflict("an account with this email already exists")
		}
		return nil, apperrors.MapDBError(err)
	}
	s.logger.InfoContext(ctx, "user created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Get fetches an account by id.
func (s *UserService) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.MapDBError(err)
	}
	return user, nil
}

// List returns accounts matching the filter.
func (s *UserService) List(ctx context.Context, filter model.UserFilter, page model.Page) ([]*model.User, error) {
	users, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return users, nil
}

// Update applies a partial account update.
func (s *UserService) Update(ctx context.Context, id string, req *model.UpdateUserRequest) (*model.User, error) {
	if req == nil {
		return nil, apperrors.Validation("update user request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	user, err := s.repo.Update(ctx, id, req)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.MapDBError(err)
	}
	s.logger.InfoContext(ctx, "user updated", "user_id", user.ID)
	return user, nil
}

// Deactivate disables an account without deleting its history.
func (s *UserService) Deactivate(ctx context.Context, id string) (*model.User, error) {
	inactive := false
	return s.Update(ctx, id, &model.UpdateUserRequest{Active: &inactive})
}
