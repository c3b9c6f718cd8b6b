// Package ports declares the boundaries between console services and the infrastructure
// behind them: identity providers, session and view storage, and upstream data APIs.
package ports

import (
	"context"
	"errors"

	domainauth "github.com/pigbank/console-api/internal/domain/auth"
)

// AuthProvider runs the browser login flow against an identity provider.
type AuthProvider interface {
	// Begin returns the URL to send the browser to, plus the state and nonce the callback
	// has to present again.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)
	// Exchange redeems the callback code and returns who logged in.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)
}

type BeginInput struct {
	RedirectURL string
}

// ExchangeInput is the callback's code and state plus the nonce remembered from Begin.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// ErrSessionNotFound covers unknown, deleted and lapsed sessions. Stores may wrap it.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps console sessions server side, keyed by session id.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// RoleMapper derives a console role from IdP group membership.
type RoleMapper interface {
	Map(groups []string) domainauth.Role
}
