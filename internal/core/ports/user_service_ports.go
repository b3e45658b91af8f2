package ports

import (
	"context"

	"github.com/vncsmyrnk/dashboard/internal/core/domain"
)

type UserService interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type SweepService interface {
	ClearExpiredRefreshTokens(ctx context.Context) (int64, error)
}
