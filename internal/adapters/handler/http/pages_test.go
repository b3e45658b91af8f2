package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/vncsmyrnk/dashboard/internal/core/domain"
	"github.com/vncsmyrnk/dashboard/internal/core/services"
)

func TestPages(t *testing.T) {
	app := newTestApp(t, testSecret)

	rec := app.do(t, http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `data-endpoint="/api/auth/login"`)
	assert.Contains(t, rec.Body.String(), "/api/auth/oauth/github")
	assert.NotContains(t, rec.Body.String(), "/api/auth/oauth/google")

	rec = app.do(t, http.MethodGet, "/register", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-endpoint="/api/auth/register"`)

	rec = app.do(t, http.MethodGet, "/static/app.js", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Success)
}

func TestPages_DashboardForDeletedUser(t *testing.T) {
	app := newTestApp(t, testSecret)
	app.register(t, "gone@x.com", "12345678")
	access, _ := app.login(t, "gone@x.com", "12345678")
	app.Directory.SoftDelete(1)

	rec := app.do(t, http.MethodGet, "/", nil, access)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	c := findCookie(rec, "client_token")
	if assert.NotNil(t, c) {
		assert.Less(t, c.MaxAge, 0)
	}
}

type stubUserService struct {
	user *domain.User
	err  error
}

func (s stubUserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.user, s.err
}

func dashboardRequest(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	claims := &domain.AccessClaims{
		Email:            "ana@x.com",
		Role:             domain.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
	}
	return withState(req, StateAuthenticatedDirect, claims)
}

func TestPageHandler_Dashboard(t *testing.T) {
	cookies := NewSessionCookies("", false, services.DefaultAccessTokenTTL, services.DefaultRefreshTokenTTL)
	name := "Ana"

	tests := []struct {
		name        string
		users       stubUserService
		userID      string
		wantStatus  int
		wantCleared bool
	}{
		{
			name:       "renders the signed in user",
			users:      stubUserService{user: &domain.User{ID: 1, Email: "ana@x.com", Name: &name, Role: domain.RoleUser}},
			userID:     "1",
			wantStatus: http.StatusOK,
		},
		{
			name:        "missing user ends the session",
			users:       stubUserService{err: domain.ErrUserNotFound},
			userID:      "1",
			wantStatus:  http.StatusTemporaryRedirect,
			wantCleared: true,
		},
		{
			name:        "unreadable subject ends the session",
			users:       stubUserService{},
			userID:      "abc",
			wantStatus:  http.StatusTemporaryRedirect,
			wantCleared: true,
		},
		{
			name:       "directory outage keeps the session",
			users:      stubUserService{err: fmt.Errorf("%w: failed to get user: %w", domain.ErrUpstream, errors.New("connection refused"))},
			userID:     "1",
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "cancelled request keeps the session",
			users:      stubUserService{err: fmt.Errorf("%w: failed to get user: %w", domain.ErrUpstream, context.Canceled)},
			userID:     "1",
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPageHandler(tt.users, cookies, nil, discardLogger())

			rec := httptest.NewRecorder()
			h.Dashboard(rec, dashboardRequest(tt.userID))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCleared {
				assert.Equal(t, "/login", rec.Header().Get("Location"))
				assert.NotNil(t, findCookie(rec, "client_token"))
				assert.NotNil(t, findCookie(rec, "client_refresh_token"))
			} else {
				assert.Empty(t, rec.Header().Values("Set-Cookie"))
			}
		})
	}
}
