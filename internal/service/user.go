package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/playlistapp/playlist-server/internal/domain"
	domainerrors "github.com/playlistapp/playlist-server/internal/errors"
	"github.com/playlistapp/playlist-server/internal/store"
)

// UserService manages users created from verified identities.
type UserService struct {
	users  *store.UserRepository
	group  singleflight.Group
	logger *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(users *store.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		users:  users,
		logger: logger,
	}
}

type ensureResult struct {
	user    *domain.User
	created bool
}

// EnsureUser returns the user for the principal's subject, creating it on
// first sight. created reports whether this call stored a new user.
// Concurrent calls for one subject share a single lookup.
func (s *UserService) EnsureUser(ctx context.Context, p domain.Principal) (*domain.User, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if !p.IsAuthenticated() {
		return nil, false, domainerrors.ErrUnauthorized
	}

	// The shared lookup runs detached from the caller's cancellation.
	sharedCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(p.Subject, func() (any, error) {
		existing, err := s.users.GetBySub(sharedCtx, p.Subject)
		if err == nil {
			return ensureResult{user: existing}, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("get user by sub: %w", err)
		}

		user := domain.NewUserFromPrincipal(p)
		if err := s.users.Create(sharedCtx, user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}

		s.logger.Info("user created", "user_id", user.ID, "sub", user.Sub)
		return ensureResult{user: user, created: true}, nil
	})
	if err != nil {
		return nil, false, err
	}

	res := v.(ensureResult)
	return res.user, res.created, nil
}

// ListUsers returns one page of users.
func (s *UserService) ListUsers(ctx context.Context, page store.PageRequest) (*store.PageResult[domain.User], error) {
	res, err := s.users.List(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return res, nil
}

// GetUser retrieves a user by ID.
func (s *UserService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("user %d", userID)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
