package http

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/dashboard/internal/core/domain"
)

func TestAuthFlow_RegisterAndLogin(t *testing.T) {
	app := newTestApp(t, testSecret)

	rec := app.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "a@x.com",
		"password": "12345678",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"id":"1","email":"a@x.com"}`, string(env.Data))

	rec = app.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "a@x.com",
		"password": "12345678",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	env = decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	user := decodeUser(t, env)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.NotContains(t, string(env.Data), "password")
	assert.NotContains(t, string(env.Data), "refresh")

	access := findCookie(rec, "client_token")
	refresh := findCookie(rec, "client_refresh_token")
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	assert.Equal(t, env.Token, access.Value)
	assert.Equal(t, 900, access.MaxAge)
	assert.Equal(t, 604800, refresh.MaxAge)
	for _, c := range []*http.Cookie{access, refresh} {
		assert.True(t, c.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.Equal(t, "/", c.Path)
		assert.False(t, c.Secure)
	}

	rec = app.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "a@x.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env = decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "Invalid password", env.Error)

	rec = app.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "nobody@x.com",
		"password": "12345678",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decodeEnvelope(t, rec).Error)
}

func TestAuthFlow_RegisterValidation(t *testing.T) {
	app := newTestApp(t, testSecret)
	app.register(t, "taken@x.com", "12345678")

	rec := app.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    " TAKEN@x.com ",
		"password": "12345678",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Email already in use", decodeEnvelope(t, rec).Error)

	rec = app.do(t, http.MethodPost, "/api/auth/register", map[string]string{"email": "new@x.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing fields", decodeEnvelope(t, rec).Error)

	rec = app.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "taken@x.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthFlow_RegisterJoinsDefaultGroup(t *testing.T) {
	app := newTestApp(t, testSecret)
	app.register(t, "member@x.com", "12345678")

	assert.Equal(t, []string{"General Department"}, app.Directory.Groups(1))
}

func TestAuthFlow_Me(t *testing.T) {
	app := newTestApp(t, testSecret)
	app.register(t, "me@x.com", "12345678")
	access, _ := app.login(t, "me@x.com", "12345678")

	rec := app.do(t, http.MethodGet, "/api/auth/me", nil, access)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "me@x.com", decodeUser(t, env).Email)
	assert.Equal(t, access.Value, env.Token)

	rec = app.do(t, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not logged in", decodeEnvelope(t, rec).Error)

	rec = app.do(t, http.MethodGet, "/api/auth/me", nil, &http.Cookie{Name: "client_token", Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthFlow_RefreshRotation(t *testing.T) {
	app := newTestApp(t, testSecret)
	app.register(t, "rot@x.com", "12345678")
	_, refresh := app.login(t, "rot@x.com", "12345678")

	rec := app.do(t, http.MethodPost, "/api/auth/refresh", nil, refresh)
	require.Equal(t, http.StatusOK, rec.Code)
	newRefresh := findCookie(rec, "client_refresh_token")
	require.NotNil(t, newRefresh)
	assert.NotEqual(t, refresh.Value, newRefresh.Value)
	assert.NotEmpty(t, findCookie(rec, "client_token").Value)

	rec = app.do(t, http.MethodPost, "/api/auth/refresh", nil, refresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid or expired refresh token", decodeEnvelope(t, rec).Error)
	cleared := findCookie(rec, "client_refresh_token")
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)

	rec = app.do(t, http.MethodPost, "/api/auth/refresh", nil, newRefresh)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthFlow_RefreshWithoutCookie(t *testing.T) {
	app := newTestApp(t, testSecret)

	rec := app.do(t, http.MethodPost, "/api/auth/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Refresh token not found", decodeEnvelope(t, rec).Error)
}

func TestAuthFlow_LogoutIsIdempotent(t *testing.T) {
	app := newTestApp(t, testSecret)
	app.register(t, "out@x.com", "12345678")
	access, refresh := app.login(t, "out@x.com", "12345678")

	for i := 0; i < 2; i++ {
		cookies := []*http.Cookie{access, refresh}
		if i == 1 {
			cookies = nil
		}
		rec := app.do(t, http.MethodPost, "/api/auth/logout", nil, cookies...)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decodeEnvelope(t, rec).Success)

		for _, name := range []string{"client_token", "client_refresh_token"} {
			c := findCookie(rec, name)
			require.NotNil(t, c, name)
			assert.Less(t, c.MaxAge, 0)
		}
	}

	rec := app.do(t, http.MethodPost, "/api/auth/refresh", nil, refresh)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthFlow_MissingSecret(t *testing.T) {
	app := newTestApp(t, "")
	app.register(t, "nosecret@x.com", "12345678")

	rec := app.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "nosecret@x.com",
		"password": "12345678",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Server configuration error", decodeEnvelope(t, rec).Error)
}

func TestGoogleCallback(t *testing.T) {
	app := newTestApp(t, testSecret)

	form := url.Values{}
	form.Add("credential", "valid_token")
	req := strings.NewReader(form.Encode())

	rec := app.doForm(t, "/api/auth/google/callback", req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.NotNil(t, findCookie(rec, "client_token"))
	assert.NotNil(t, findCookie(rec, "client_refresh_token"))

	user, err := app.Directory.FindByEmail(t.Context(), "google@example.com", false)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, domain.ProviderGoogle, user.Provider)
	assert.Equal(t, "g-1", *user.GoogleID)

	form.Set("credential", "bad_token")
	rec = app.doForm(t, "/api/auth/google/callback", strings.NewReader(form.Encode()))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?error=AccessDenied", rec.Header().Get("Location"))
	assert.Nil(t, findCookie(rec, "client_token"))
}
