package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pigbank/console-api/internal/ports"
)

const defaultCachePrefix = "cache:"

var errEmptyCacheKey = errors.New("key cannot be empty")

// RedisCacheRepo is the Redis-backed data response cache. Every key is stored under a
// prefix so the cache can share a database with sessions and view state.
type RedisCacheRepo struct {
	client redis.UniversalClient
	prefix string
}

var _ ports.CacheRepository = (*RedisCacheRepo)(nil)

// NewRedisCacheRepo creates a RedisCacheRepo. An empty prefix means "cache:".
func NewRedisCacheRepo(client redis.UniversalClient, prefix string) *RedisCacheRepo {
	if prefix == "" {
		prefix = defaultCachePrefix
	}
	return &RedisCacheRepo{client: client, prefix: prefix}
}

func (r *RedisCacheRepo) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return errEmptyCacheKey
	}
	return wrapRedis("set", r.client.Set(ctx, r.prefix+key, value, ttl).Err())
}

func (r *RedisCacheRepo) Get(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, errEmptyCacheKey
	}
	b, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return b, wrapRedis("get", err)
}

func (r *RedisCacheRepo) Delete(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errEmptyCacheKey
	}
	n, err := r.client.Del(ctx, r.prefix+key).Result()
	return n > 0, wrapRedis("del", err)
}

func (r *RedisCacheRepo) Health(ctx context.Context) error {
	return wrapRedis("ping", r.client.Ping(ctx).Err())
}

func wrapRedis(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("redis %s: %w", op, err)
}
