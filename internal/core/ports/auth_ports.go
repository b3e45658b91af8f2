package ports

import (
	"context"
	"time"

	"github.com/vncsmyrnk/dashboard/internal/core/domain"
)

type TokenCodec interface {
	// Configured reports whether a signing secret is available.
	Configured() bool
	SignAccessToken(subject domain.TokenSubject, ttl time.Duration) (string, error)
	// VerifyAccessToken never fails loudly: any structural, signature or
	// expiry problem yields (nil, false).
	VerifyAccessToken(token string) (*domain.AccessClaims, bool)
	GenerateRefreshToken() (string, error)
}

type SessionIssuer interface {
	// IssueTokensForUser mints a token pair and persists the refresh token.
	// A persistence failure is returned.
	IssueTokensForUser(ctx context.Context, user *domain.User) (*domain.IssuedTokens, error)
	// IssueTokensLenient is IssueTokensForUser for flows where the session was
	// already granted; a persistence failure is logged, not returned.
	IssueTokensLenient(ctx context.Context, user *domain.User) (*domain.IssuedTokens, error)
	// RotateTokens replaces the refresh token identified by currentHash.
	RotateTokens(ctx context.Context, user *domain.User, currentHash string) (*domain.IssuedTokens, error)
}

// ProviderProfile is what a third-party identity provider says about the
// signed-in account.
type ProviderProfile struct {
	Provider  domain.Provider
	AccountID string
	Email     string
	Name      string
	AvatarURL string
}

type Authenticator interface {
	AuthenticateWithPassword(ctx context.Context, email, password string) (*domain.User, error)
	AuthenticateWithProvider(ctx context.Context, profile ProviderProfile) (*domain.User, error)
}

type TokenPayload struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string, clientID string) (*TokenPayload, error)
}

// IdentityProvider runs an OAuth authorization-code flow.
type IdentityProvider interface {
	Name() domain.Provider
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*ProviderProfile, error)
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type AuthResult struct {
	User   *domain.User
	Tokens *domain.IssuedTokens
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	LoginWithProvider(ctx context.Context, profile ProviderProfile) (*AuthResult, error)
	LoginWithGoogle(ctx context.Context, credential string) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	CurrentUser(ctx context.Context, accessToken string) (*domain.User, error)
}
