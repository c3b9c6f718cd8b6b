// Package devauth is an AuthProvider for local development that logs every visitor in as
// one configured identity without talking to an IdP.
package devauth

import (
	"context"
	"errors"
	"net/url"
	"slices"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/pigbank/console-api/internal/domain/auth"
	"github.com/pigbank/console-api/internal/ports"
)

const defaultSessionDuration = 8 * time.Hour

// Config describes the identity handed out on every login. UserID and Email are
// required. Groups feed the role mapper unless Role is set.
type Config struct {
	UserID     string
	Email      string
	FirstName  string
	LastName   string
	Groups     []string
	Role       domainauth.Role
	MerchantID string
	DemoActive bool

	SessionDuration time.Duration // default 8h
	CallbackPath    string        // default /auth/callback
	Now             func() time.Time
}

// Provider skips the IdP: Begin points the browser straight back at the callback and
// Exchange returns the configured identity for any code.
type Provider struct {
	identity domainauth.Identity
	ttl      time.Duration
	callback string
	now      func() time.Time
}

var _ ports.AuthProvider = (*Provider)(nil)

// NewProvider validates cfg and builds a Provider.
func NewProvider(cfg Config) (*Provider, error) {
	switch {
	case cfg.UserID == "":
		return nil, errors.New("dev auth: UserID is required")
	case cfg.Email == "":
		return nil, errors.New("dev auth: Email is required")
	}
	p := &Provider{
		identity: domainauth.Identity{
			UserID:     cfg.UserID,
			FirstName:  cfg.FirstName,
			LastName:   cfg.LastName,
			Email:      cfg.Email,
			Groups:     slices.Clone(cfg.Groups),
			Role:       cfg.Role,
			MerchantID: cfg.MerchantID,
			DemoActive: cfg.DemoActive,
		},
		ttl:      cfg.SessionDuration,
		callback: cfg.CallbackPath,
		now:      cfg.Now,
	}
	if p.ttl <= 0 {
		p.ttl = defaultSessionDuration
	}
	if p.callback == "" {
		p.callback = "/auth/callback"
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// Begin mints a random state and nonce and returns the local callback URL carrying them.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
	state, err := uuid.NewRandom()
	if err != nil {
		return "", "", "", err
	}
	nonce, err := uuid.NewRandom()
	if err != nil {
		return "", "", "", err
	}
	q := url.Values{"code": {"dev"}, "state": {state.String()}}
	return p.callback + "?" + q.Encode(), state.String(), nonce.String(), nil
}

// Exchange returns a fresh copy of the configured identity. The callback handler has
// already matched state and nonce against its cookies.
func (p *Provider) Exchange(_ context.Context, _ ports.ExchangeInput) (domainauth.Identity, error) {
	id := p.identity
	id.Groups = slices.Clone(p.identity.Groups)
	id.ExpiresAt = p.now().Add(p.ttl)
	return id, nil
}
