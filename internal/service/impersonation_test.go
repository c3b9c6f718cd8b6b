package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainauth "github.com/pigbank/console-api/internal/domain/auth"
	"github.com/pigbank/console-api/internal/domain/impersonation"
	"github.com/pigbank/console-api/internal/mocks"
	mockauth "github.com/pigbank/console-api/internal/mocks/auth"
	"github.com/pigbank/console-api/internal/ports"
	"github.com/pigbank/console-api/internal/testutil"
)

var testViewKey = ports.ViewKey{SessionID: "sess-1", TabID: "tab-1"}

func acmeTarget() impersonation.Target {
	return testutil.Acme().Target()
}

func newStore(role domainauth.Role, storage ports.ViewStorage) *ImpersonationStore {
	return NewImpersonationStore(ImpersonationStoreOptions{
		Role:    role,
		ActorID: "user-1",
		Key:     testViewKey,
		Storage: storage,
		TTL:     time.Hour,
	})
}

func TestImpersonationStore_EnterPersistsAndScopes(t *testing.T) {
	views := mockauth.NewMemoryViewStorage()
	store := newStore(domainauth.RoleSupportStaff, views)
	ctx := context.Background()
	store.Hydrate(ctx)

	require.True(t, store.Enter(ctx, acmeTarget()))

	snap := store.Snapshot()
	assert.True(t, snap.Initialized)
	assert.True(t, snap.Impersonating())
	got, ok := snap.Target()
	require.True(t, ok)
	assert.Equal(t, "m-1", got.MerchantID)
	assert.Equal(t, "Acme Corp", got.DisplayName())

	raw, ok := views.Raw(testViewKey)
	require.True(t, ok)
	persisted, err := impersonation.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, acmeTarget(), persisted)
}

func TestImpersonationStore_EnterRefused(t *testing.T) {
	tests := []struct {
		name   string
		role   domainauth.Role
		target impersonation.Target
	}{
		{"merchant", domainauth.RoleMerchant, acmeTarget()},
		{"pending merchant", domainauth.RolePendingMerchant, acmeTarget()},
		{"unknown role", domainauth.RoleUnknown, acmeTarget()},
		{"empty merchant id", domainauth.RoleSupportAdmin, impersonation.Target{LegalName: "Nobody"}},
		{"blank merchant id", domainauth.RoleSupportStaff, impersonation.Target{MerchantID: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views := mockauth.NewMemoryViewStorage()
			store := newStore(tt.role, views)
			ctx := context.Background()
			store.Hydrate(ctx)

			assert.False(t, store.Enter(ctx, tt.target))
			assert.False(t, store.Snapshot().Impersonation.Active())
			_, ok := views.Raw(testViewKey)
			assert.False(t, ok)
		})
	}
}

func TestImpersonationStore_WritesStorageBeforeMemory(t *testing.T) {
	ctrl := gomock.NewController(t)
	views := mocks.NewMockViewStorage(ctrl)
	store := newStore(domainauth.RoleSupportStaff, views)

	views.EXPECT().
		Store(gomock.Any(), testViewKey, gomock.Any(), time.Hour).
		DoAndReturn(func(_ context.Context, _ ports.ViewKey, value []byte, _ time.Duration) error {
			// Memory has not changed yet.
			assert.False(t, store.state.Active())
			target, err := impersonation.Decode(value)
			require.NoError(t, err)
			assert.Equal(t, "m-1", target.MerchantID)
			return nil
		})

	require.True(t, store.Enter(context.Background(), acmeTarget()))
	assert.True(t, store.Snapshot().Impersonating())
}

func TestImpersonationStore_ReEnterReplacesTarget(t *testing.T) {
	views := mockauth.NewMemoryViewStorage()
	store := newStore(domainauth.RoleSupportAdmin, views)
	ctx := context.Background()

	require.True(t, store.Enter(ctx, acmeTarget()))
	require.True(t, store.Enter(ctx, impersonation.Target{MerchantID: "m-2", TradeName: "Globex"}))

	got, ok := store.Snapshot().Target()
	require.True(t, ok)
	assert.Equal(t, "m-2", got.MerchantID)

	raw, _ := views.Raw(testViewKey)
	persisted, err := impersonation.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "m-2", persisted.MerchantID)
}

func TestImpersonationStore_ExitIsIdempotent(t *testing.T) {
	views := mockauth.NewMemoryViewStorage()
	store := newStore(domainauth.RoleSupportStaff, views)
	ctx := context.Background()

	require.True(t, store.Enter(ctx, acmeTarget()))
	store.Exit(ctx)
	assert.False(t, store.Snapshot().Impersonation.Active())
	_, ok := views.Raw(testViewKey)
	assert.False(t, ok)

	store.Exit(ctx)
	assert.False(t, store.Snapshot().Impersonation.Active())
}

func TestImpersonationStore_ObserveLocation(t *testing.T) {
	ctx := context.Background()

	for _, path := range []string{"/staff/merchants", "/staff/merchants/approved", "/", "/staff", "/staff/"} {
		t.Run("exit "+path, func(t *testing.T) {
			views := mockauth.NewMemoryViewStorage()
			store := newStore(domainauth.RoleSupportStaff, views)
			require.True(t, store.Enter(ctx, acmeTarget()))

			assert.True(t, store.ObserveLocation(ctx, path))
			assert.False(t, store.Snapshot().Impersonation.Active())
			_, ok := views.Raw(testViewKey)
			assert.False(t, ok)
		})
	}

	for _, path := range []string{"/transactions", "/invoices/inv-1", "/staff/messages", "/staff/merchants/m-1"} {
		t.Run("stay "+path, func(t *testing.T) {
			store := newStore(domainauth.RoleSupportStaff, mockauth.NewMemoryViewStorage())
			require.True(t, store.Enter(ctx, acmeTarget()))

			assert.False(t, store.ObserveLocation(ctx, path))
			assert.True(t, store.Snapshot().Impersonating())
		})
	}

	t.Run("empty store", func(t *testing.T) {
		store := newStore(domainauth.RoleSupportStaff, mockauth.NewMemoryViewStorage())
		assert.False(t, store.ObserveLocation(ctx, "/staff"))
	})
}

func TestImpersonationStore_Hydrate(t *testing.T) {
	ctx := context.Background()
	valid, err := impersonation.Encode(acmeTarget())
	require.NoError(t, err)

	t.Run("valid value restores viewing", func(t *testing.T) {
		views := mockauth.NewMemoryViewStorage()
		views.Put(testViewKey, valid)
		store := newStore(domainauth.RoleSupportStaff, views)

		assert.False(t, store.Initialized())
		store.Hydrate(ctx)
		assert.True(t, store.Initialized())
		got, ok := store.Snapshot().Target()
		require.True(t, ok)
		assert.Equal(t, acmeTarget(), got)
	})

	t.Run("nothing stored", func(t *testing.T) {
		store := newStore(domainauth.RoleSupportStaff, mockauth.NewMemoryViewStorage())
		store.Hydrate(ctx)
		assert.True(t, store.Initialized())
		assert.False(t, store.Snapshot().Impersonation.Active())
	})

	for name, raw := range map[string][]byte{
		"not json":         []byte("{nope"),
		"missing merchant": []byte(`{"legal_name":"Acme"}`),
		"wrong shape":      []byte(`["m-1"]`),
	} {
		t.Run("malformed "+name, func(t *testing.T) {
			views := mockauth.NewMemoryViewStorage()
			views.Put(testViewKey, raw)
			store := newStore(domainauth.RoleSupportStaff, views)

			store.Hydrate(ctx)
			assert.True(t, store.Initialized())
			assert.False(t, store.Snapshot().Impersonation.Active())
			_, ok := views.Raw(testViewKey)
			assert.False(t, ok)
		})
	}

	t.Run("non-staff role discards", func(t *testing.T) {
		views := mockauth.NewMemoryViewStorage()
		views.Put(testViewKey, valid)
		store := newStore(domainauth.RoleMerchant, views)

		store.Hydrate(ctx)
		assert.False(t, store.Snapshot().Impersonation.Active())
		_, ok := views.Raw(testViewKey)
		assert.False(t, ok)
	})

	t.Run("runs once", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		views := mocks.NewMockViewStorage(ctrl)
		views.EXPECT().Load(gomock.Any(), testViewKey).Return(valid, true, nil).Times(1)
		store := newStore(domainauth.RoleSupportStaff, views)

		store.Hydrate(ctx)
		store.Hydrate(ctx)
		assert.True(t, store.Snapshot().Impersonating())
	})
}

func TestImpersonationStore_StorageFailuresDegradeToMemory(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("redis unavailable")

	views := mockauth.NewMemoryViewStorage()
	views.FailLoad = boom
	views.FailStore = boom
	views.FailRemove = boom
	store := newStore(domainauth.RoleSupportStaff, views)

	store.Hydrate(ctx)
	assert.True(t, store.Initialized())

	require.True(t, store.Enter(ctx, acmeTarget()))
	assert.True(t, store.Snapshot().Impersonating())

	store.Exit(ctx)
	assert.False(t, store.Snapshot().Impersonation.Active())
}

func TestImpersonationStore_FailedWriteLastsOneRequest(t *testing.T) {
	ctx := context.Background()
	views := mockauth.NewMemoryViewStorage()
	views.FailStore = errors.New("redis unavailable")

	first := newStore(domainauth.RoleSupportStaff, views)
	first.Hydrate(ctx)
	require.True(t, first.Enter(ctx, acmeTarget()))
	assert.True(t, first.Snapshot().Impersonating())

	next := newStore(domainauth.RoleSupportStaff, views)
	next.Hydrate(ctx)
	assert.False(t, next.Snapshot().Impersonating())
	assert.Empty(t, views.Keys())
}

func TestImpersonationStore_MemoryOnly(t *testing.T) {
	ctx := context.Background()
	store := NewImpersonationStore(ImpersonationStoreOptions{Role: domainauth.RoleSupportStaff})

	store.Hydrate(ctx)
	require.True(t, store.Enter(ctx, acmeTarget()))
	assert.True(t, store.Snapshot().Impersonating())
	assert.True(t, store.ObserveLocation(ctx, "/"))
}

func TestImpersonationStore_ConcurrentAccess(t *testing.T) {
	store := newStore(domainauth.RoleSupportStaff, mockauth.NewMemoryViewStorage())
	ctx := context.Background()
	store.Hydrate(ctx)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch i % 3 {
			case 0:
				store.Enter(ctx, acmeTarget())
			case 1:
				store.ObserveLocation(ctx, "/staff")
			default:
				_ = store.Snapshot()
			}
		}()
	}
	wg.Wait()
	assert.True(t, store.Initialized())
}
