package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pigbank/console-api/internal/bootstrap"
)

var (
	errRedisNotConfigured = errors.New("redis not configured")
	errDirectoryDisabled  = errors.New("merchant directory database is disabled (DB_ENABLED=false)")
)

// withResource opens a connection, hands it to use and closes it afterwards. The whole
// run is capped by timeout and cancelled by SIGINT or SIGTERM.
func withResource[T io.Closer](
	cmdCtx *commandContext,
	timeout time.Duration,
	name string,
	open func(context.Context) (T, error),
	use func(context.Context, T) error,
) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := open(ctx)
	if err != nil {
		return fmt.Errorf("connect %s: %w", name, err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			cmdCtx.Logger.Warn("close failed", "resource", name, "error", cerr)
		}
	}()
	return use(ctx, conn)
}

func withDatabase(cmdCtx *commandContext, timeout time.Duration, use func(context.Context, *sql.DB) error) error {
	cfg := cmdCtx.Config.Postgres
	if !cfg.Enabled {
		return errDirectoryDisabled
	}
	return withResource(cmdCtx, timeout, "db", func(ctx context.Context) (*sql.DB, error) {
		return bootstrap.ConnectDB(ctx, cfg, cmdCtx.Logger)
	}, use)
}

func withRedis(cmdCtx *commandContext, timeout time.Duration, use func(context.Context, redis.UniversalClient) error) error {
	cfg := cmdCtx.Config.Redis
	if !cfg.Configured() {
		return errRedisNotConfigured
	}
	return withResource(cmdCtx, timeout, "redis", func(ctx context.Context) (redis.UniversalClient, error) {
		return bootstrap.ConnectRedis(ctx, cfg, cmdCtx.Logger)
	}, use)
}
