package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pigbank/console-api/internal/ports"
)

const (
	defaultViewPrefix = "view:"
	defaultViewTTL    = 8 * time.Hour
	clearScanCount    = 100
)

// ViewStorage keeps per-tab view state under "<prefix><session-id>:<tab-id>".
type ViewStorage struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ ports.ViewStorage = (*ViewStorage)(nil)

// ViewStorageOptions configures ViewStorage.
type ViewStorageOptions struct {
	Prefix string        // defaults to "view:"
	TTL    time.Duration // applied when a caller passes zero; defaults to 8h
}

// NewViewStorage creates a Redis-backed ViewStorage.
func NewViewStorage(client redis.UniversalClient, opts ViewStorageOptions) *ViewStorage {
	if opts.Prefix == "" {
		opts.Prefix = defaultViewPrefix
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultViewTTL
	}
	return &ViewStorage{client: client, prefix: opts.Prefix, ttl: opts.TTL}
}

func (s *ViewStorage) key(k ports.ViewKey) string {
	return s.prefix + k.SessionID + ":" + k.TabID
}

// Load returns the stored bytes for k.
func (s *ViewStorage) Load(ctx context.Context, k ports.ViewKey) ([]byte, bool, error) {
	if !k.Valid() {
		return nil, false, nil
	}
	data, err := s.client.Get(ctx, s.key(k)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get view: %w", err)
	}
	return data, true, nil
}

// Store writes value for k.
func (s *ViewStorage) Store(ctx context.Context, k ports.ViewKey, value []byte, ttl time.Duration) error {
	if !k.Valid() {
		return errors.New("view key requires session and tab id")
	}
	if ttl <= 0 {
		ttl = s.ttl
	}
	if err := s.client.Set(ctx, s.key(k), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set view: %w", err)
	}
	return nil
}

// Remove deletes the value for k.
func (s *ViewStorage) Remove(ctx context.Context, k ports.ViewKey) error {
	if !k.Valid() {
		return nil
	}
	if err := s.client.Del(ctx, s.key(k)).Err(); err != nil {
		return fmt.Errorf("redis del view: %w", err)
	}
	return nil
}

// Clear deletes every tab's view state for sessionID, on every shard in cluster mode.
func (s *ViewStorage) Clear(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	pattern := s.prefix + sessionID + ":*"
	return EachShard(ctx, s.client, func(ctx context.Context, node redis.Cmdable) error {
		return clearMatching(ctx, node, pattern)
	})
}

func clearMatching(ctx context.Context, node redis.Cmdable, pattern string) error {
	var cursor uint64
	for {
		keys, next, err := node.Scan(ctx, cursor, pattern, clearScanCount).Result()
		if err != nil {
			return fmt.Errorf("redis scan views: %w", err)
		}
		if err := DeleteKeys(ctx, node, keys); err != nil {
			return fmt.Errorf("clear views: %w", err)
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
