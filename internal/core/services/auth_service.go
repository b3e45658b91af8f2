package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vncsmyrnk/dashboard/internal/core/domain"
	"github.com/vncsmyrnk/dashboard/internal/core/ports"
	"golang.org/x/crypto/bcrypt"
)

const passwordHashCost = 12

type AuthDeps struct {
	Directory      ports.UserDirectory
	Codec          ports.TokenCodec
	Issuer         ports.SessionIssuer
	Authenticator  ports.Authenticator
	GoogleVerifier ports.TokenVerifier
	GoogleClientID string
	Now            Clock
	Logger         *slog.Logger
}

type authService struct {
	directory           ports.UserDirectory
	codec               ports.TokenCodec
	issuer              ports.SessionIssuer
	authenticator       ports.Authenticator
	googleTokenVerifier ports.TokenVerifier
	googleClientID      string
	now                 Clock
	logger              *slog.Logger
}

func NewAuthService(deps AuthDeps) ports.AuthService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &authService{
		directory:           deps.Directory,
		codec:               deps.Codec,
		issuer:              deps.Issuer,
		authenticator:       deps.Authenticator,
		googleTokenVerifier: deps.GoogleVerifier,
		googleClientID:      deps.GoogleClientID,
		now:                 deps.Now,
		logger:              deps.Logger,
	}
}

func (s *authService) Register(ctx context.Context, input ports.RegisterInput) (*domain.User, error) {
	email := domain.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, domain.ErrMissingFields
	}

	existing, err := s.directory.FindByEmail(ctx, email, false)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get user: %w", domain.ErrUpstream, err)
	}
	if existing != nil {
		return nil, domain.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), passwordHashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	passwordHash := string(hash)

	user := &domain.User{
		Email:        email,
		PasswordHash: &passwordHash,
		Role:         domain.RoleUser,
		Provider:     domain.ProviderLocal,
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		user.Name = &name
	}

	if err := s.directory.CreateUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("%w: failed to create user: %w", domain.ErrUpstream, err)
	}
	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*ports.AuthResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, domain.ErrMissingFields
	}

	user, err := s.authenticator.AuthenticateWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	tokens, err := s.issuer.IssueTokensForUser(ctx, user)
	if err != nil {
		return nil, err
	}
	return &ports.AuthResult{User: user, Tokens: tokens}, nil
}

func (s *authService) LoginWithProvider(ctx context.Context, profile ports.ProviderProfile) (*ports.AuthResult, error) {
	if !s.codec.Configured() {
		return nil, domain.ErrMissingSecret
	}

	user, err := s.authenticator.AuthenticateWithProvider(ctx, profile)
	if err != nil {
		return nil, err
	}

	tokens, err := s.issuer.IssueTokensLenient(ctx, user)
	if err != nil {
		return nil, err
	}
	return &ports.AuthResult{User: user, Tokens: tokens}, nil
}

func (s *authService) LoginWithGoogle(ctx context.Context, credential string) (*ports.AuthResult, error) {
	if s.googleTokenVerifier == nil {
		return nil, domain.ErrUnsupportedProvider
	}
	if credential == "" {
		return nil, domain.ErrMissingFields
	}

	payload, err := s.googleTokenVerifier.Verify(ctx, credential, s.googleClientID)
	if err != nil {
		s.logger.InfoContext(ctx, "google credential rejected", slog.Any("error", err))
		return nil, domain.ErrInvalidSession
	}

	return s.LoginWithProvider(ctx, ports.ProviderProfile{
		Provider:  domain.ProviderGoogle,
		AccountID: payload.Subject,
		Email:     payload.Email,
		Name:      payload.Name,
		AvatarURL: payload.Picture,
	})
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*ports.AuthResult, error) {
	if refreshToken == "" {
		return nil, domain.ErrMissingRefreshToken
	}

	tokenHash := HashToken(refreshToken)
	user, err := s.directory.FindByRefreshToken(ctx, tokenHash, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get refresh token: %w", domain.ErrUpstream, err)
	}
	if user == nil {
		return nil, domain.ErrInvalidRefreshToken
	}

	if !s.codec.Configured() {
		return nil, domain.ErrMissingSecret
	}

	tokens, err := s.issuer.RotateTokens(ctx, user, tokenHash)
	if err != nil {
		return nil, err
	}
	return &ports.AuthResult{User: user, Tokens: tokens}, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	if err := s.directory.ClearRefreshToken(ctx, HashToken(refreshToken)); err != nil {
		return fmt.Errorf("%w: failed to clear refresh token: %w", domain.ErrUpstream, err)
	}
	return nil
}

func (s *authService) CurrentUser(ctx context.Context, accessToken string) (*domain.User, error) {
	if accessToken == "" {
		return nil, domain.ErrNotLoggedIn
	}
	if !s.codec.Configured() {
		return nil, domain.ErrMissingSecret
	}

	claims, ok := s.codec.VerifyAccessToken(accessToken)
	if !ok {
		return nil, domain.ErrInvalidSession
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	user, err := s.directory.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get user: %w", domain.ErrUpstream, err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}
