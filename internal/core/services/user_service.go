package services

import (
	"context"
	"fmt"

	"github.com/vncsmyrnk/dashboard/internal/core/domain"
	"github.com/vncsmyrnk/dashboard/internal/core/ports"
)

type UserService struct {
	repo ports.UserDirectory
}

func NewUserService(repo ports.UserDirectory) ports.UserService {
	return &UserService{
		repo: repo,
	}
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get user: %w", domain.ErrUpstream, err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}
