package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vncsmyrnk/dashboard/internal/adapters/handler/http"
	"github.com/vncsmyrnk/dashboard/internal/adapters/oauth"
	"github.com/vncsmyrnk/dashboard/internal/adapters/oauth/google"
	"github.com/vncsmyrnk/dashboard/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/dashboard/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/dashboard/internal/config"
	"github.com/vncsmyrnk/dashboard/internal/core/ports"
	"github.com/vncsmyrnk/dashboard/internal/core/services"
	"github.com/vncsmyrnk/dashboard/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set, authenticated requests will fail with a configuration error")
	}

	directory, closeDirectory, err := openDirectory(cfg, logger)
	if err != nil {
		return err
	}
	defer closeDirectory()

	handler := buildHandler(cfg, directory, logger)
	server := &stdhttp.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           otelhttp.NewHandler(handler, "dashboard"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", server.Addr), slog.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

func openDirectory(cfg *config.Config, logger *slog.Logger) (ports.UserDirectory, func(), error) {
	if cfg.Directory.Backend == config.BackendMemory {
		logger.Warn("using the in-memory user directory, users are lost on restart")
		return memory.NewUserDirectory(cfg.Directory.DefaultGroup), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.Postgres.ConnString())
	if err != nil {
		return nil, nil, err
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, err
	}

	return postgres.NewUserDirectory(db, cfg.Directory.DefaultGroup), func() { db.Close() }, nil
}

func buildHandler(cfg *config.Config, directory ports.UserDirectory, logger *slog.Logger) stdhttp.Handler {
	production := cfg.Production()
	codec := services.NewTokenCodec(cfg.Auth.JWTSecret, nil)
	issuer := services.NewSessionIssuer(codec, directory, services.SessionConfig{
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
	}, logger)

	var googleVerifier ports.TokenVerifier
	if cfg.OAuth.GoogleClientID != "" {
		googleVerifier = google.NewVerifier()
	}

	authService := services.NewAuthService(services.AuthDeps{
		Directory:      directory,
		Codec:          codec,
		Issuer:         issuer,
		Authenticator:  services.NewAuthenticator(directory, logger),
		GoogleVerifier: googleVerifier,
		GoogleClientID: cfg.OAuth.GoogleClientID,
		Logger:         logger,
	})
	userService := services.NewUserService(directory)

	cookies := http.NewSessionCookies(cfg.Cookies.Domain, production, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	cookies.AccessName = cfg.Cookies.AccessName
	cookies.RefreshName = cfg.Cookies.RefreshName

	rules := http.DefaultRouteRules()
	homeURL := cfg.Server.PublicBaseURL + rules.HomePath

	authHandler := http.NewAuthHandler(authService, cookies, homeURL, production, logger)
	oauthHandler := http.NewOAuthHandler(authService, identityProviders(cfg, googleVerifier), cookies, homeURL, production, logger)

	var refresher http.SessionRefresher = http.NewHandlerRefresher(stdhttp.HandlerFunc(authHandler.Refresh), rules.RefreshPath)
	if cfg.Auth.RefreshUpstreamURL != "" {
		refresher = http.NewHTTPRefresher(&stdhttp.Client{Transport: otelhttp.NewTransport(stdhttp.DefaultTransport)}, cfg.Auth.RefreshUpstreamURL, rules.RefreshPath)
	}

	gatekeeper := http.NewGatekeeper(http.GatekeeperConfig{
		Rules:      rules,
		Cookies:    cookies,
		Codec:      codec,
		Refresher:  refresher,
		Timeout:    cfg.Auth.RefreshTimeout,
		Production: production,
		Logger:     logger,
	})

	return http.NewHandler(http.RouterDeps{
		Auth:           authHandler,
		OAuth:          oauthHandler,
		Users:          http.NewUserHandler(userService, production),
		Pages:          http.NewPageHandler(userService, cookies, oauthHandler, logger),
		Gatekeeper:     gatekeeper,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})
}

func identityProviders(cfg *config.Config, googleVerifier ports.TokenVerifier) []ports.IdentityProvider {
	var providers []ports.IdentityProvider

	googleCfg := oauth.Config{
		ClientID:     cfg.OAuth.GoogleClientID,
		ClientSecret: cfg.OAuth.GoogleClientSecret,
		RedirectURL:  cfg.Server.PublicBaseURL + "/api/auth/oauth/google/callback",
	}
	if googleCfg.Enabled() && googleVerifier != nil {
		providers = append(providers, oauth.NewGoogleProvider(googleCfg, googleVerifier))
	}

	githubCfg := oauth.Config{
		ClientID:     cfg.OAuth.GitHubClientID,
		ClientSecret: cfg.OAuth.GitHubClientSecret,
		RedirectURL:  cfg.Server.PublicBaseURL + "/api/auth/oauth/github/callback",
	}
	if githubCfg.Enabled() {
		providers = append(providers, oauth.NewGitHubProvider(githubCfg))
	}

	return providers
}
