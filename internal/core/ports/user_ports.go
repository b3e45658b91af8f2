package ports

import (
	"context"
	"time"

	"github.com/vncsmyrnk/dashboard/internal/core/domain"
)

// UserDirectory is the persistence backend for user records. Lookups return
// (nil, nil) when nothing matches.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string, includeDeleted bool) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	// FindByRefreshToken matches a non-deleted user whose refresh token digest
	// equals tokenHash and whose expiry is after now.
	FindByRefreshToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error)
	FindBySocialLink(ctx context.Context, provider domain.Provider, providerID string) (*domain.User, error)

	// CreateUser inserts user, filling ID and timestamps, and makes it a
	// member of the directory's default group. Returns domain.ErrEmailTaken
	// when a non-deleted user already has the email.
	CreateUser(ctx context.Context, user *domain.User) error

	UpdateRefreshToken(ctx context.Context, id int64, tokenHash string, expiresAt time.Time) error
	// RotateRefreshToken replaces the refresh token pair only while the stored
	// digest still equals currentHash. It reports whether the swap happened.
	RotateRefreshToken(ctx context.Context, id int64, currentHash, newHash string, expiresAt time.Time) (bool, error)
	// ClearRefreshToken removes the pair matching tokenHash. No match is not
	// an error.
	ClearRefreshToken(ctx context.Context, tokenHash string) error
	ClearExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)

	// UpdateSocialLink fills missing provider id, name and avatar and sets the
	// user's provider. Populated fields are never overwritten.
	UpdateSocialLink(ctx context.Context, id int64, link domain.SocialLink) error
}
