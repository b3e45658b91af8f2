// Package oauth runs the authorization-code flow against third-party
// identity providers and turns the result into a provider profile.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/vncsmyrnk/dashboard/internal/core/domain"
	"github.com/vncsmyrnk/dashboard/internal/core/ports"
)

const defaultGitHubAPI = "https://api.github.com"

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Endpoint overrides the provider's authorization and token URLs.
	Endpoint *oauth2.Endpoint
	// APIBaseURL overrides the GitHub REST API root.
	APIBaseURL string
}

func (c Config) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type googleProvider struct {
	config   *oauth2.Config
	verifier ports.TokenVerifier
}

// NewGoogleProvider signs users in with Google. The profile is read from the
// ID token returned by the token exchange.
func NewGoogleProvider(cfg Config, verifier ports.TokenVerifier) ports.IdentityProvider {
	endpoint := googleoauth.Endpoint
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}
	return &googleProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
		},
		verifier: verifier,
	}
}

func (p *googleProvider) Name() domain.Provider {
	return domain.ProviderGoogle
}

func (p *googleProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

func (p *googleProvider) Exchange(ctx context.Context, code string) (*ports.ProviderProfile, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange google code: %w", err)
	}

	idToken, ok := token.Extra("id_token").(string)
	if !ok || idToken == "" {
		return nil, errors.New("google token response has no id_token")
	}

	payload, err := p.verifier.Verify(ctx, idToken, p.config.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify google id token: %w", err)
	}

	return &ports.ProviderProfile{
		Provider:  domain.ProviderGoogle,
		AccountID: payload.Subject,
		Email:     payload.Email,
		Name:      payload.Name,
		AvatarURL: payload.Picture,
	}, nil
}

type githubProvider struct {
	config  *oauth2.Config
	apiBase string
}

// NewGitHubProvider signs users in with GitHub. The profile comes from the
// /user endpoint and the primary verified address of /user/emails.
func NewGitHubProvider(cfg Config) ports.IdentityProvider {
	endpoint := github.Endpoint
	if cfg.Endpoint != nil {
		endpoint = *cfg.Endpoint
	}
	apiBase := cfg.APIBaseURL
	if apiBase == "" {
		apiBase = defaultGitHubAPI
	}
	return &githubProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"read:user", "user:email"},
		},
		apiBase: strings.TrimRight(apiBase, "/"),
	}
}

func (p *githubProvider) Name() domain.Provider {
	return domain.ProviderGitHub
}

func (p *githubProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (p *githubProvider) Exchange(ctx context.Context, code string) (*ports.ProviderProfile, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange github code: %w", err)
	}
	client := p.config.Client(ctx, token)

	var user githubUser
	if err := p.getJSON(ctx, client, "/user", &user); err != nil {
		return nil, err
	}

	var emails []githubEmail
	if err := p.getJSON(ctx, client, "/user/emails", &emails); err != nil {
		return nil, err
	}

	email := ""
	for _, e := range emails {
		if e.Primary && e.Verified {
			email = e.Email
			break
		}
	}
	if email == "" {
		return nil, errors.New("github account has no primary verified email")
	}

	name := user.Name
	if name == "" {
		name = user.Login
	}
	return &ports.ProviderProfile{
		Provider:  domain.ProviderGitHub,
		AccountID: strconv.FormatInt(user.ID, 10),
		Email:     email,
		Name:      name,
		AvatarURL: user.AvatarURL,
	}, nil
}

func (p *githubProvider) getJSON(ctx context.Context, client *http.Client, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call github %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github %s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode github %s: %w", path, err)
	}
	return nil
}
