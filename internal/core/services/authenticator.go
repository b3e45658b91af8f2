package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vncsmyrnk/dashboard/internal/core/domain"
	"github.com/vncsmyrnk/dashboard/internal/core/ports"
	"golang.org/x/crypto/bcrypt"
)

type authenticator struct {
	directory ports.UserDirectory
	logger    *slog.Logger
}

func NewAuthenticator(directory ports.UserDirectory, logger *slog.Logger) ports.Authenticator {
	return &authenticator{
		directory: directory,
		logger:    logger,
	}
}

func (a *authenticator) AuthenticateWithPassword(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := a.directory.FindByEmail(ctx, domain.NormalizeEmail(email), false)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get user: %w", domain.ErrUpstream, err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if !user.HasPassword() {
		return nil, domain.ErrNoLocalCredential
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredential
	}
	return user, nil
}

func (a *authenticator) AuthenticateWithProvider(ctx context.Context, profile ports.ProviderProfile) (*domain.User, error) {
	email := domain.NormalizeEmail(profile.Email)
	accountID := strings.TrimSpace(profile.AccountID)
	if accountID == "" || email == "" {
		return nil, domain.ErrIncompleteProfile
	}
	if profile.Provider != domain.ProviderGoogle && profile.Provider != domain.ProviderGitHub {
		return nil, domain.ErrUnsupportedProvider
	}

	link := domain.SocialLink{
		Provider:   profile.Provider,
		ProviderID: accountID,
		Name:       strings.TrimSpace(profile.Name),
		Avatar:     profile.AvatarURL,
	}

	user, err := a.findLinked(ctx, link, email)
	if err != nil {
		return nil, err
	}
	if user != nil {
		a.backfill(ctx, user, link)
		return user, nil
	}

	user = &domain.User{
		Email:    email,
		Role:     domain.RoleUser,
		Provider: profile.Provider,
	}
	user.ApplySocialLink(link)

	if err := a.directory.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, domain.ErrEmailTaken) {
			return nil, fmt.Errorf("%w: failed to create user: %w", domain.ErrUpstream, err)
		}
		// A concurrent first sign-in created the account; link to it instead.
		existing, findErr := a.findLinked(ctx, link, email)
		if findErr != nil {
			return nil, findErr
		}
		if existing == nil {
			return nil, fmt.Errorf("%w: failed to create user: %w", domain.ErrUpstream, err)
		}
		a.backfill(ctx, existing, link)
		return existing, nil
	}
	return user, nil
}

func (a *authenticator) findLinked(ctx context.Context, link domain.SocialLink, email string) (*domain.User, error) {
	user, err := a.directory.FindBySocialLink(ctx, link.Provider, link.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get user: %w", domain.ErrUpstream, err)
	}
	if user != nil {
		return user, nil
	}

	user, err = a.directory.FindByEmail(ctx, email, false)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get user: %w", domain.ErrUpstream, err)
	}
	return user, nil
}

// backfill links an existing account to the provider. Failure only costs the
// link, the sign-in itself proceeds.
func (a *authenticator) backfill(ctx context.Context, user *domain.User, link domain.SocialLink) {
	before := *user
	if !user.ApplySocialLink(link) {
		return
	}
	if err := a.directory.UpdateSocialLink(ctx, user.ID, link); err != nil {
		a.logger.WarnContext(ctx, "failed to update user social link",
			slog.Int64("user_id", user.ID), slog.String("provider", string(link.Provider)), slog.Any("error", err))
		*user = before
	}
}
