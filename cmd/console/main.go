// Command console serves the merchant console API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/pigbank/console-api/config"
	"github.com/pigbank/console-api/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "console api stopped", "error", err)
		os.Exit(1) //nolint:forbidigo // entrypoint
	}
}

func run(ctx context.Context, logger *slog.Logger) (err error) {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	bootstrap.SetLogLevel(cfg.LogLevel)
	if err = bootstrap.ValidateConfig(&cfg); err != nil {
		return err
	}
	logger.InfoContext(ctx, "starting console api",
		"auth_mode", cfg.Auth.Mode,
		"merchant_directory", cfg.Postgres.Enabled,
		"data_api", cfg.Console.DataAPIURL,
		"redis_mode", cfg.Redis.Mode,
		"addr", cfg.HTTP.Addr)

	infra, err := connect(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, infra.close()) }()

	if infra.db != nil && cfg.Postgres.MigrateOnStart {
		if err = bootstrap.RunMigrations(ctx, infra.db, logger); err != nil {
			return err
		}
	}

	console, err := bootstrap.NewConsole(bootstrap.ConsoleDeps{
		Config:      &cfg,
		DB:          infra.db,
		RedisClient: infra.redis,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("build console: %w", err)
	}

	return bootstrap.ServeWithShutdown(ctx, &bootstrap.HTTPServerConfig{
		Config:  &cfg,
		Console: console,
		Logger:  logger,
	})
}

type infrastructure struct {
	db    *sql.DB
	redis redis.UniversalClient
}

func (i infrastructure) close() error {
	var errs []error
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if i.db != nil {
		if err := i.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

// connect dials Redis and, when the merchant directory is enabled, Postgres. A partial
// failure closes whatever was already opened.
func connect(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (infrastructure, error) {
	var infra infrastructure

	client, err := bootstrap.ConnectRedis(ctx, cfg.Redis, logger)
	if err != nil {
		return infra, fmt.Errorf("connect redis: %w", err)
	}
	infra.redis = client

	if !cfg.Postgres.Enabled {
		logger.InfoContext(ctx, "merchant directory disabled; impersonation accepts bare merchant ids")
		return infra, nil
	}
	db, err := bootstrap.ConnectDB(ctx, cfg.Postgres, logger)
	if err != nil {
		return infrastructure{}, errors.Join(fmt.Errorf("connect db: %w", err), infra.close())
	}
	infra.db = db
	return infra, nil
}
