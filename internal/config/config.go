// Package config loads the service configuration from the environment. A
// .env file in the working directory is read first when present.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Env       string
	LogLevel  string
	Server    ServerConfig
	Auth      AuthConfig
	Cookies   CookieConfig
	Directory DirectoryConfig
	Postgres  PostgresConfig
	OAuth     OAuthConfig
	CORS      CORSConfig
}

type ServerConfig struct {
	Host          string
	Port          int
	PublicBaseURL string
}

type AuthConfig struct {
	// JWTSecret may be empty. Requests that need it then fail with a
	// configuration error instead of the process refusing to start.
	JWTSecret      string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	RefreshTimeout time.Duration
	// RefreshUpstreamURL, when set, makes silent refreshes go over HTTP to
	// that origin instead of calling the refresh handler in process.
	RefreshUpstreamURL string
}

type CookieConfig struct {
	Domain      string
	AccessName  string
	RefreshName string
}

type DirectoryConfig struct {
	Backend      string
	DefaultGroup string
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DB       string
	SSLMode  string
}

type OAuthConfig struct {
	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := getInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	accessTTL, err := getPositiveInt("ACCESS_TOKEN_TTL_SECONDS", 900)
	if err != nil {
		return nil, err
	}
	refreshTTL, err := getPositiveInt("REFRESH_TOKEN_TTL_SECONDS", 604800)
	if err != nil {
		return nil, err
	}
	refreshTimeout, err := getPositiveInt("REFRESH_TIMEOUT_MS", 3000)
	if err != nil {
		return nil, err
	}

	backend := strings.ToLower(getEnv("DIRECTORY_BACKEND", BackendPostgres))
	if backend != BackendPostgres && backend != BackendMemory {
		return nil, fmt.Errorf("invalid DIRECTORY_BACKEND: %q", backend)
	}

	cfg := &Config{
		Env:      strings.ToLower(getEnv("APP_ENV", EnvDevelopment)),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Host:          getEnv("SERVER_HOST", "0.0.0.0"),
			Port:          port,
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		},
		Auth: AuthConfig{
			JWTSecret:          getEnv("JWT_SECRET", ""),
			AccessTTL:          time.Duration(accessTTL) * time.Second,
			RefreshTTL:         time.Duration(refreshTTL) * time.Second,
			RefreshTimeout:     time.Duration(refreshTimeout) * time.Millisecond,
			RefreshUpstreamURL: getEnv("REFRESH_UPSTREAM_URL", ""),
		},
		Cookies: CookieConfig{
			Domain:      getEnv("COOKIE_DOMAIN", ""),
			AccessName:  getEnv("ACCESS_COOKIE_NAME", "client_token"),
			RefreshName: getEnv("REFRESH_COOKIE_NAME", "client_refresh_token"),
		},
		Directory: DirectoryConfig{
			Backend:      backend,
			DefaultGroup: getEnv("DEFAULT_GROUP_NAME", "General Department"),
		},
		Postgres: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			User:     getEnv("POSTGRES_USER", ""),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			DB:       getEnv("POSTGRES_DB", ""),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		OAuth: OAuthConfig{
			GoogleClientID:     getEnv("OAUTH_GOOGLE_CLIENT_ID", ""),
			GoogleClientSecret: getEnv("OAUTH_GOOGLE_CLIENT_SECRET", ""),
			GitHubClientID:     getEnv("OAUTH_GITHUB_CLIENT_ID", ""),
			GitHubClientSecret: getEnv("OAUTH_GITHUB_CLIENT_SECRET", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
		},
	}

	return cfg, nil
}

func (c *Config) Production() bool {
	return c.Env == EnvProduction
}

func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ConnString builds a lib/pq connection URL.
func (c *PostgresConfig) ConnString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     c.DB,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getPositiveInt(key string, fallback int) (int, error) {
	v, err := getInt(key, fallback)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive, got %d", key, v)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
