package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vncsmyrnk/dashboard/internal/core/domain"
	"github.com/vncsmyrnk/dashboard/internal/core/ports"
)

const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

type SessionConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        Clock
}

type sessionIssuer struct {
	codec     ports.TokenCodec
	directory ports.UserDirectory
	cfg       SessionConfig
	logger    *slog.Logger
}

func NewSessionIssuer(codec ports.TokenCodec, directory ports.UserDirectory, cfg SessionConfig, logger *slog.Logger) ports.SessionIssuer {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTokenTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &sessionIssuer{
		codec:     codec,
		directory: directory,
		cfg:       cfg,
		logger:    logger,
	}
}

func (s *sessionIssuer) IssueTokensForUser(ctx context.Context, user *domain.User) (*domain.IssuedTokens, error) {
	tokens, err := s.mint(user)
	if err != nil {
		return nil, err
	}

	if err := s.directory.UpdateRefreshToken(ctx, user.ID, HashToken(tokens.RefreshToken), tokens.RefreshTokenExpiresAt); err != nil {
		return nil, fmt.Errorf("%w: failed to persist refresh token: %w", domain.ErrUpstream, err)
	}
	return tokens, nil
}

func (s *sessionIssuer) IssueTokensLenient(ctx context.Context, user *domain.User) (*domain.IssuedTokens, error) {
	tokens, err := s.mint(user)
	if err != nil {
		return nil, err
	}

	if err := s.directory.UpdateRefreshToken(ctx, user.ID, HashToken(tokens.RefreshToken), tokens.RefreshTokenExpiresAt); err != nil {
		s.logger.WarnContext(ctx, "refresh token not persisted, continuing with issued session",
			slog.Int64("user_id", user.ID), slog.Any("error", err))
	}
	return tokens, nil
}

func (s *sessionIssuer) RotateTokens(ctx context.Context, user *domain.User, currentHash string) (*domain.IssuedTokens, error) {
	tokens, err := s.mint(user)
	if err != nil {
		return nil, err
	}

	swapped, err := s.directory.RotateRefreshToken(ctx, user.ID, currentHash, HashToken(tokens.RefreshToken), tokens.RefreshTokenExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to rotate refresh token: %w", domain.ErrUpstream, err)
	}
	if !swapped {
		// Another refresh superseded this token between lookup and write.
		return nil, domain.ErrInvalidRefreshToken
	}
	return tokens, nil
}

func (s *sessionIssuer) mint(user *domain.User) (*domain.IssuedTokens, error) {
	accessToken, err := s.codec.SignAccessToken(user.TokenSubject(), s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.codec.GenerateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &domain.IssuedTokens{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		RefreshTokenExpiresAt: s.cfg.Now().Add(s.cfg.RefreshTTL),
	}, nil
}
