package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.False(t, cfg.Production())
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, 3*time.Second, cfg.Auth.RefreshTimeout)
	assert.Equal(t, "client_token", cfg.Cookies.AccessName)
	assert.Equal(t, "client_refresh_token", cfg.Cookies.RefreshName)
	assert.Equal(t, BackendPostgres, cfg.Directory.Backend)
	assert.Equal(t, "General Department", cfg.Directory.DefaultGroup)
	assert.Empty(t, cfg.CORS.AllowedOrigins)
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("POSTGRES_DB=dashboard_from_file\n"), 0o600))
	t.Chdir(dir)
	t.Cleanup(func() { os.Unsetenv("POSTGRES_DB") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dashboard_from_file", cfg.Postgres.DB)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", "Production")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REFRESH_TIMEOUT_MS", "250")
	t.Setenv("DIRECTORY_BACKEND", "memory")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("PUBLIC_BASE_URL", "https://dash.example.com/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Production())
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 250*time.Millisecond, cfg.Auth.RefreshTimeout)
	assert.Equal(t, BackendMemory, cfg.Directory.Backend)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "https://dash.example.com", cfg.Server.PublicBaseURL)
}

func TestLoad_MissingSecretIsNotAnError(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Auth.JWTSecret)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
		want  string
	}{
		{"SERVER_PORT", "eighty", "invalid SERVER_PORT"},
		{"ACCESS_TOKEN_TTL_SECONDS", "15m", "invalid ACCESS_TOKEN_TTL_SECONDS"},
		{"REFRESH_TIMEOUT_MS", "soon", "invalid REFRESH_TIMEOUT_MS"},
		{"ACCESS_TOKEN_TTL_SECONDS", "0", "invalid ACCESS_TOKEN_TTL_SECONDS"},
		{"REFRESH_TOKEN_TTL_SECONDS", "-60", "invalid REFRESH_TOKEN_TTL_SECONDS"},
		{"REFRESH_TIMEOUT_MS", "0", "invalid REFRESH_TIMEOUT_MS"},
		{"DIRECTORY_BACKEND", "mongo", "invalid DIRECTORY_BACKEND"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPostgresConfig_ConnString(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: "5432", User: "app", Password: "p@ss", DB: "dashboard", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss@db:5432/dashboard?sslmode=disable", cfg.ConnString())
}
