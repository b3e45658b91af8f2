package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/dashboard/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/dashboard/internal/core/domain"
	"github.com/vncsmyrnk/dashboard/internal/core/ports"
	"github.com/vncsmyrnk/dashboard/internal/core/services"
)

const testSecret = "test-secret"

// MockVerifier accepts the credential "valid_token" only.
type MockVerifier struct {
	payload ports.TokenPayload
}

func (v *MockVerifier) Verify(ctx context.Context, token string, clientID string) (*ports.TokenPayload, error) {
	if token == "valid_token" {
		p := v.payload
		return &p, nil
	}
	return nil, assert.AnError
}

// fakeProvider answers every exchange of the code "good-code" with profile.
type fakeProvider struct {
	name    domain.Provider
	profile ports.ProviderProfile
}

func (p *fakeProvider) Name() domain.Provider { return p.name }

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.example.com/authorize?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) Exchange(ctx context.Context, code string) (*ports.ProviderProfile, error) {
	if code != "good-code" {
		return nil, assert.AnError
	}
	profile := p.profile
	return &profile, nil
}

type testApp struct {
	Handler   http.Handler
	Directory *memory.UserDirectory
	Codec     ports.TokenCodec
	Cookies   SessionCookies
	Auth      *AuthHandler
}

type appOption func(*GatekeeperConfig)

func withRefresher(r SessionRefresher) appOption {
	return func(c *GatekeeperConfig) { c.Refresher = r }
}

func withTimeout(d time.Duration) appOption {
	return func(c *GatekeeperConfig) { c.Timeout = d }
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(t *testing.T, secret string, opts ...appOption) *testApp {
	t.Helper()
	logger := discardLogger()

	directory := memory.NewUserDirectory("General Department")
	codec := services.NewTokenCodec(secret, nil)
	issuer := services.NewSessionIssuer(codec, directory, services.SessionConfig{}, logger)
	authService := services.NewAuthService(services.AuthDeps{
		Directory:      directory,
		Codec:          codec,
		Issuer:         issuer,
		Authenticator:  services.NewAuthenticator(directory, logger),
		GoogleVerifier: &MockVerifier{payload: ports.TokenPayload{Subject: "g-1", Email: "google@example.com", Name: "Goo"}},
		GoogleClientID: "client",
		Logger:         logger,
	})

	cookies := NewSessionCookies("", false, services.DefaultAccessTokenTTL, services.DefaultRefreshTokenTTL)
	authHandler := NewAuthHandler(authService, cookies, "/", false, logger)
	oauthHandler := NewOAuthHandler(authService, []ports.IdentityProvider{
		&fakeProvider{name: domain.ProviderGitHub, profile: ports.ProviderProfile{
			Provider:  domain.ProviderGitHub,
			AccountID: "42",
			Email:     "octo@example.com",
			Name:      "Octo",
		}},
	}, cookies, "/", false, logger)
	userService := services.NewUserService(directory)

	cfg := GatekeeperConfig{
		Rules:     DefaultRouteRules(),
		Cookies:   cookies,
		Codec:     codec,
		Refresher: NewHandlerRefresher(http.HandlerFunc(authHandler.Refresh), DefaultRouteRules().RefreshPath),
		Timeout:   time.Second,
		Logger:    logger,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	handler := NewHandler(RouterDeps{
		Auth:       authHandler,
		OAuth:      oauthHandler,
		Users:      NewUserHandler(userService, false),
		Pages:      NewPageHandler(userService, cookies, oauthHandler, logger),
		Gatekeeper: NewGatekeeper(cfg),
	})

	return &testApp{
		Handler:   handler,
		Directory: directory,
		Codec:     codec,
		Cookies:   cookies,
		Auth:      authHandler,
	}
}

func (a *testApp) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) register(t *testing.T, email, password string) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/auth/register", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// login signs in and returns the access and refresh cookies.
func (a *testApp) login(t *testing.T, email, password string) (*http.Cookie, *http.Cookie) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	access := findCookie(rec, a.Cookies.AccessName)
	refresh := findCookie(rec, a.Cookies.RefreshName)
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	return access, refresh
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Token   string          `json:"token"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeUser(t *testing.T, env envelope) domain.PublicUser {
	t.Helper()
	var user domain.PublicUser
	require.NoError(t, json.Unmarshal(env.Data, &user))
	return user
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (a *testApp) doForm(t *testing.T, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)
	return rec
}
