package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pigbank/console-api/internal/ports"
	"github.com/pigbank/console-api/internal/testutil"
)

func TestViewStorage_StoreLoadRemove(t *testing.T) {
	client := testutil.SetupTestRedis(t)

	store := NewViewStorage(client, ViewStorageOptions{})
	ctx := context.Background()
	k := ports.ViewKey{SessionID: "s1", TabID: "tab-a"}

	_, ok, err := store.Load(ctx, k)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Store(ctx, k, []byte(`{"merchant_id":"m-1"}`), time.Minute))
	assert.Equal(t, int64(1), client.Exists(ctx, "view:s1:tab-a").Val())

	got, ok, err := store.Load(ctx, k)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"merchant_id":"m-1"}`, string(got))

	require.NoError(t, store.Remove(ctx, k))
	_, ok, err = store.Load(ctx, k)
	require.NoError(t, err)
	assert.False(t, ok)

	// Removing twice is fine.
	require.NoError(t, store.Remove(ctx, k))
}

func TestViewStorage_DefaultTTL(t *testing.T) {
	client := testutil.SetupTestRedis(t)

	store := NewViewStorage(client, ViewStorageOptions{TTL: time.Minute})
	ctx := context.Background()
	k := ports.ViewKey{SessionID: "s1", TabID: "tab-a"}

	require.NoError(t, store.Store(ctx, k, []byte("x"), 0))
	ttl := client.TTL(ctx, "view:s1:tab-a").Val()
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestViewStorage_TabsAreIsolated(t *testing.T) {
	client := testutil.SetupTestRedis(t)

	store := NewViewStorage(client, ViewStorageOptions{})
	ctx := context.Background()
	a := ports.ViewKey{SessionID: "s1", TabID: "tab-a"}
	b := ports.ViewKey{SessionID: "s1", TabID: "tab-b"}

	require.NoError(t, store.Store(ctx, a, []byte("a"), time.Minute))
	_, ok, err := store.Load(ctx, b)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestViewStorage_ClearSession(t *testing.T) {
	client := testutil.SetupTestRedis(t)

	store := NewViewStorage(client, ViewStorageOptions{Prefix: "test-view:"})
	ctx := context.Background()

	for _, k := range []ports.ViewKey{
		{SessionID: "s1", TabID: "a"},
		{SessionID: "s1", TabID: "b"},
		{SessionID: "s2", TabID: "a"},
	} {
		require.NoError(t, store.Store(ctx, k, []byte("v"), time.Minute))
	}

	require.NoError(t, store.Clear(ctx, "s1"))
	assert.Equal(t, int64(0), client.Exists(ctx, "test-view:s1:a", "test-view:s1:b").Val())
	assert.Equal(t, int64(1), client.Exists(ctx, "test-view:s2:a").Val())
}

func TestViewStorage_InvalidKey(t *testing.T) {
	client := testutil.SetupTestRedis(t)

	store := NewViewStorage(client, ViewStorageOptions{})
	ctx := context.Background()

	err := store.Store(ctx, ports.ViewKey{SessionID: "s1"}, []byte("v"), time.Minute)
	require.Error(t, err)

	_, ok, err := store.Load(ctx, ports.ViewKey{TabID: "a"})
	require.NoError(t, err)
	assert.False(t, ok)
}
