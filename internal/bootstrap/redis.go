package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/pigbank/console-api/config"
)

// ConnectRedis dials Redis in the configured mode and verifies it answers. Redis backs
// sessions, view state and the data cache.
//
//nolint:ireturn // direct, sentinel and cluster clients share redis.UniversalClient.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewUniversalClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Join(fmt.Errorf("ping redis: %w", err), client.Close())
	}

	if logger != nil {
		logger.InfoContext(ctx, "redis connected", "mode", cfg.Mode, "addrs", opts.Addrs)
	}
	return client, nil
}

// redisOptions maps RedisConfig onto go-redis universal options. NewUniversalClient picks
// a failover client when MasterName is set and a cluster client when IsClusterMode is set.
func redisOptions(cfg config.RedisConfig) (*redis.UniversalOptions, error) {
	opts := &redis.UniversalOptions{
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	switch cfg.Mode {
	case config.RedisModeSentinel:
		if len(cfg.Nodes) == 0 || cfg.MasterName == "" {
			return nil, errors.New("redis sentinel mode requires REDIS_NODES and REDIS_MASTER_NAME")
		}
		opts.Addrs = cfg.Nodes
		opts.MasterName = cfg.MasterName
		opts.SentinelPassword = cfg.SentinelPassword
		return opts, nil

	case config.RedisModeCluster:
		opts.IsClusterMode = true
		if len(cfg.Nodes) > 0 {
			opts.Addrs = cfg.Nodes
		} else if err := applyRedisAddr(opts, cfg.Addr); err != nil {
			return nil, err
		}
		// Cluster nodes only serve database 0.
		opts.DB = 0
		return opts, nil

	default:
		if err := applyRedisAddr(opts, cfg.Addr); err != nil {
			return nil, err
		}
		return opts, nil
	}
}

// applyRedisAddr accepts either host:port or a redis:// URL. Credentials and the database
// index in a URL override the separate settings.
func applyRedisAddr(opts *redis.UniversalOptions, addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return errors.New("redis address is required (REDIS_ADDR)")
	}
	if !strings.HasPrefix(addr, "redis://") && !strings.HasPrefix(addr, "rediss://") {
		opts.Addrs = []string{addr}
		return nil
	}

	parsed, err := redis.ParseURL(addr)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	opts.Addrs = []string{parsed.Addr}
	opts.TLSConfig = parsed.TLSConfig
	if parsed.Username != "" {
		opts.Username = parsed.Username
	}
	if parsed.Password != "" {
		opts.Password = parsed.Password
	}
	if parsed.DB != 0 {
		opts.DB = parsed.DB
	}
	return nil
}
