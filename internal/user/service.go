package user

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/expense-workflow/internal"
)

type Repository interface {
	GetByID(ctx context.Context, userID int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Create(ctx context.Context, u *User) error
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetByID(ctx context.Context, userID int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to get user", "error", err, "user_id", userID)
		return nil, err
	}
	return u, nil
}

func (s *Service) List(ctx context.Context) ([]*User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, err
	}
	return users, nil
}

// EnsureUser creates u unless a user with the same email exists, returning the stored user either way.
func (s *Service) EnsureUser(ctx context.Context, u *User) (*User, error) {
	existing, err := s.repo.GetByEmail(ctx, u.Email)
	if err == nil {
		return existing, nil
	}
	if !internal.IsNotFound(err) {
		s.logger.Error("failed to look up user", "error", err, "email", u.Email)
		return nil, err
	}
	if err := s.repo.Create(ctx, u); err != nil {
		s.logger.Error("failed to create user", "error", err, "email", u.Email)
		return nil, err
	}
	s.logger.Info("user created", "user_id", u.ID, "email", u.Email, "role", u.Role)
	return u, nil
}
