package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"
	flag "github.com/spf13/pflag"

	"github.com/vncsmyrnk/dashboard/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/dashboard/internal/config"
	"github.com/vncsmyrnk/dashboard/internal/core/services"
	"github.com/vncsmyrnk/dashboard/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	var timeout time.Duration
	flag.StringVar(&cfg.Postgres.Host, "db-host", cfg.Postgres.Host, "Database host")
	flag.StringVar(&cfg.Postgres.Port, "db-port", cfg.Postgres.Port, "Database port")
	flag.StringVar(&cfg.Postgres.User, "db-user", cfg.Postgres.User, "Database user")
	flag.StringVar(&cfg.Postgres.Password, "db-pass", cfg.Postgres.Password, "Database password")
	flag.StringVar(&cfg.Postgres.DB, "db-name", cfg.Postgres.DB, "Database name")
	flag.DurationVar(&timeout, "timeout", 5*time.Minute, "Maximum time the sweep may take")
	flag.Parse()

	logger := logging.New(os.Stdout, cfg.Env, cfg.LogLevel)

	db, err := sql.Open("postgres", cfg.Postgres.ConnString())
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Use a timeout for the job execution to prevent it from hanging indefinitely
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to reach database", slog.Any("error", err))
		os.Exit(1)
	}

	sweeper := services.NewSweepService(postgres.NewUserDirectory(db, cfg.Directory.DefaultGroup), nil)

	logger.Info("starting expired refresh token sweep")
	n, err := sweeper.ClearExpiredRefreshTokens(ctx)
	if err != nil {
		logger.Error("sweep failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("sweep completed", slog.Int64("cleared", n))
}
