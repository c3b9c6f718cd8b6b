package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// EachShard calls fn once per master in cluster mode and once with client otherwise.
// SCAN only walks the node it is sent to, so key sweeps must go through here.
func EachShard(ctx context.Context, client redis.UniversalClient, fn func(ctx context.Context, node redis.Cmdable) error) error {
	if cluster, ok := client.(*redis.ClusterClient); ok {
		return cluster.ForEachMaster(ctx, func(ctx context.Context, node *redis.Client) error {
			return fn(ctx, node)
		})
	}
	return fn(ctx, client)
}

// DeleteKeys removes keys one command each. Keys on one cluster node may still hash to
// different slots, which a multi-key DEL rejects.
func DeleteKeys(ctx context.Context, node redis.Cmdable, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	pipe := node.Pipeline()
	for _, k := range keys {
		pipe.Del(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
