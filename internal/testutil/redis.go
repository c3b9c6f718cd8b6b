package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisReservationTTL = 30 * time.Minute

// SetupTestRedis returns a client bound to an empty logical database reserved for t.
// It skips t (or fails it when Redis is required) if no Redis answers.
func SetupTestRedis(t testing.TB) *redis.Client {
	t.Helper()
	cfg := LoadInfra()

	addr, err := findRedis(cfg)
	if err != nil {
		if cfg.mustHaveRedis() {
			t.Fatalf("redis not available: %v", err)
		}
		t.Skipf("redis not available: %v", err)
	}

	db := cfg.RedisDB
	if db < 0 {
		db = reserveRedisDB(t, addr)
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.FlushDB(ctx).Err(); err != nil {
		_ = client.Close()
		t.Fatalf("flush redis db %d: %v", db, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func findRedis(cfg Infra) (string, error) {
	candidates := []string{"redis:6379", "localhost:6379", "localhost:56379"}
	switch {
	case cfg.RedisAddr != "":
		candidates = []string{cfg.RedisAddr}
	case os.Getenv("REDIS_ADDR") != "":
		candidates = []string{os.Getenv("REDIS_ADDR")}
	}

	var lastErr error
	for _, addr := range candidates {
		if lastErr = pingRedis(addr); lastErr == nil {
			return addr, nil
		}
	}
	return "", lastErr
}

func pingRedis(addr string) error {
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = client.Close() }()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}

// reserveRedisDB claims one of DB 1..15 through a lock key in DB 0 so packages running
// in parallel never flush each other's data. DB 0 itself is never handed out.
func reserveRedisDB(t testing.TB, addr string) int {
	meta := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = meta.Close() }()

	owner := fmt.Sprintf("%d:%d", os.Getpid(), time.Now().UnixNano())
	for db := 1; db <= 15; db++ {
		key := fmt.Sprintf("console:testutil:db_lock:%d", db)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		ok, err := meta.SetNX(ctx, key, owner, redisReservationTTL).Result()
		cancel()
		if err != nil || !ok {
			continue
		}
		t.Cleanup(func() {
			c := redis.NewClient(&redis.Options{Addr: addr})
			defer func() { _ = c.Close() }()
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = c.Del(ctx, key).Err()
		})
		return db
	}
	t.Logf("no free redis db reservation at %s, sharing db 1", addr)
	return 1
}
