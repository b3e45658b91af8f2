package services

import (
	"context"
	"fmt"
	"time"

	"github.com/vncsmyrnk/dashboard/internal/core/ports"
)

type sweepService struct {
	directory ports.UserDirectory
	now       Clock
}

func NewSweepService(directory ports.UserDirectory, now Clock) ports.SweepService {
	if now == nil {
		now = time.Now
	}
	return &sweepService{
		directory: directory,
		now:       now,
	}
}

// ClearExpiredRefreshTokens drops refresh token pairs that can no longer
// authenticate. It returns the number of users affected.
func (s *sweepService) ClearExpiredRefreshTokens(ctx context.Context) (int64, error) {
	n, err := s.directory.ClearExpiredRefreshTokens(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired refresh tokens: %w", err)
	}
	return n, nil
}
