package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/pigbank/console-api/config"
	"github.com/pigbank/console-api/internal/migrate"
)

const pingTimeout = 5 * time.Second

// ConnectDB opens the merchant directory database and verifies it answers.
func ConnectDB(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(max(cfg.MaxOpenConns, 1))
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, errors.Join(fmt.Errorf("ping database: %w", err), db.Close())
	}

	if logger != nil {
		logger.InfoContext(ctx, "database connected",
			"host", cfg.Host, "port", cfg.Port, "database", cfg.Name, "max_open_conns", cfg.MaxOpenConns)
	}
	return db, nil
}

// RunMigrations applies the merchant directory schema.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	applied, err := migrate.Apply(ctx, db)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if logger != nil {
		logger.InfoContext(ctx, "database migrations completed", "applied", len(applied), "versions", applied)
	}
	return nil
}

// PendingMigrations lists migrations not yet applied to db.
func PendingMigrations(ctx context.Context, db *sql.DB) ([]string, error) {
	pending, err := migrate.Pending(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("check migrations: %w", err)
	}
	return pending, nil
}
