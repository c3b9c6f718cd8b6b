package httpx

import (
	"context"

	domainauth "github.com/pigbank/console-api/internal/domain/auth"
	"github.com/pigbank/console-api/internal/domain/scope"
	"github.com/pigbank/console-api/internal/ports"
	"github.com/pigbank/console-api/internal/service"
)

// Unexported context key types avoid collisions across packages.
// Centralized in this file so all handlers/middleware use the same keys.
type (
	resolutionKey  struct{}
	credentialsKey struct{}
	storeKey       struct{}
	tabKey         struct{}
)

// SetResolutionInContext returns a child context carrying the identity resolution.
func SetResolutionInContext(ctx context.Context, res domainauth.Resolution) context.Context {
	return context.WithValue(ctx, resolutionKey{}, res)
}

// GetResolutionFromContext returns the identity resolution and whether one was set.
// Without one, the request is treated as pending.
func GetResolutionFromContext(ctx context.Context) (domainauth.Resolution, bool) {
	res, ok := ctx.Value(resolutionKey{}).(domainauth.Resolution)
	if !ok {
		return domainauth.Pending(), false
	}
	return res, true
}

// GetSessionFromContext returns the resolved session, or nil.
func GetSessionFromContext(ctx context.Context) *domainauth.Session {
	res, _ := GetResolutionFromContext(ctx)
	if res.State != domainauth.ResolutionResolved {
		return nil
	}
	return res.Session
}

// SetCredentialsInContext stores the credentials the request presented.
func SetCredentialsInContext(ctx context.Context, creds ports.Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, creds)
}

// GetCredentialsFromContext returns the presented credentials (zero value when unset).
func GetCredentialsFromContext(ctx context.Context) ports.Credentials {
	creds, _ := ctx.Value(credentialsKey{}).(ports.Credentials)
	return creds
}

// SetStoreInContext attaches the request's impersonation store.
// If store is nil, the original ctx is returned unchanged.
func SetStoreInContext(ctx context.Context, store *service.ImpersonationStore) context.Context {
	if store == nil {
		return ctx
	}
	return context.WithValue(ctx, storeKey{}, store)
}

// GetStoreFromContext returns the request's impersonation store, if any.
func GetStoreFromContext(ctx context.Context) (*service.ImpersonationStore, bool) {
	store, ok := ctx.Value(storeKey{}).(*service.ImpersonationStore)
	return store, ok && store != nil
}

// SetTabInContext records the tab id the request was attributed to.
func SetTabInContext(ctx context.Context, tabID string) context.Context {
	return context.WithValue(ctx, tabKey{}, tabID)
}

// GetTabFromContext returns the tab id, or "".
func GetTabFromContext(ctx context.Context) string {
	tab, _ := ctx.Value(tabKey{}).(string)
	return tab
}

// ScopeSessionFromContext returns the (role, impersonation) value for the request.
// Requests without a store act as themselves; they count as initialized once identity
// is no longer pending since there is nothing to hydrate.
func ScopeSessionFromContext(ctx context.Context) scope.Session {
	if store, ok := GetStoreFromContext(ctx); ok {
		return store.Snapshot()
	}
	res, _ := GetResolutionFromContext(ctx)
	return scope.Session{
		Role:        res.Role(),
		Initialized: res.State != domainauth.ResolutionPending,
	}
}
