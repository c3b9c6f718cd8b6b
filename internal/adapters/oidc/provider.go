// Package oidc logs console users in through an OpenID Connect identity provider.
package oidc

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/pigbank/console-api/internal/domain/auth"
	"github.com/pigbank/console-api/internal/ports"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	// fallbackTokenLifetime applies when the token response carries no expiry.
	fallbackTokenLifetime = time.Hour
	wellKnownSuffix       = "/.well-known/openid-configuration"
)

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string // space separated
	// DiscoveryURL is the issuer URL, with or without the well-known suffix.
	DiscoveryURL  string
	GroupsClaim   string // defaults to "groups"
	MerchantClaim string // defaults to "merchant_id"
	HTTPClient    *http.Client
}

func (c ProviderConfig) validate() error {
	for _, req := range []struct{ val, msg string }{
		{c.ClientID, "client ID is required"},
		{c.ClientSecret, "client secret is required"},
		{c.RedirectURL, "redirect URL is required"},
		{c.DiscoveryURL, "discovery URL is required"},
	} {
		if req.val == "" {
			return errors.New(req.msg)
		}
	}
	return nil
}

// Provider implements ports.AuthProvider with the authorization code flow.
type Provider struct {
	config   *oauth2.Config
	issuer   *gooidc.Provider
	verifier *gooidc.IDTokenVerifier
	client   *http.Client
	claims   claimNames
}

var _ ports.AuthProvider = (*Provider)(nil)

// NewProvider resolves the issuer's discovery document and builds the code flow client.
func NewProvider(cfg ProviderConfig) (*Provider, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}

	issuerURL := strings.TrimSuffix(strings.TrimSuffix(cfg.DiscoveryURL, "/"), wellKnownSuffix)
	issuer, err := gooidc.NewProvider(gooidc.ClientContext(context.Background(), client), issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       strings.Fields(cfg.Scope),
			Endpoint:     issuer.Endpoint(),
		},
		issuer:   issuer,
		verifier: issuer.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		client:   client,
		claims:   newClaimNames(cfg.GroupsClaim, cfg.MerchantClaim),
	}, nil
}

// Begin returns the IdP authorization URL plus the state and nonce the callback must echo.
// The redirect_uri is always the configured one; in.RedirectURL is only required to be set.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, string, error) {
	if in.RedirectURL == "" {
		return "", "", "", errors.New("redirect URL is required")
	}
	state, nonce := rand.Text(), rand.Text()
	return p.config.AuthCodeURL(state, gooidc.Nonce(nonce)), state, nonce, nil
}

// Exchange redeems the code, verifies the ID token against in.Nonce and falls back to the
// userinfo endpoint when the token omits subject or email.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	switch {
	case in.Code == "":
		return domainauth.Identity{}, errors.New("authorization code is required")
	case in.State == "":
		return domainauth.Identity{}, errors.New("state is required")
	case in.Nonce == "":
		return domainauth.Identity{}, errors.New("nonce is required")
	}

	ctx = gooidc.ClientContext(ctx, p.client)
	token, err := p.config.Exchange(ctx, in.Code)
	if err != nil {
		return domainauth.Identity{}, fmt.Errorf("exchange code for token: %w", err)
	}

	claims, err := p.verifiedClaims(ctx, token, in.Nonce)
	if err != nil {
		return domainauth.Identity{}, err
	}
	if claims.incomplete() {
		extra, uiErr := p.userInfo(ctx, token)
		if uiErr != nil {
			return domainauth.Identity{}, uiErr
		}
		claims.fill(extra)
	}

	id := claims.identity()
	id.ExpiresAt = token.Expiry
	if id.ExpiresAt.IsZero() {
		id.ExpiresAt = time.Now().Add(fallbackTokenLifetime)
	}
	return id, nil
}

// verifiedClaims is empty when the openid scope was not requested; userinfo then supplies
// everything.
func (p *Provider) verifiedClaims(ctx context.Context, token *oauth2.Token, nonce string) (consoleClaims, error) {
	if !slices.Contains(p.config.Scopes, gooidc.ScopeOpenID) {
		return consoleClaims{}, nil
	}
	raw, err := rawIDToken(token)
	if err != nil {
		return consoleClaims{}, err
	}
	idToken, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return consoleClaims{}, fmt.Errorf("verify id_token: %w", err)
	}
	var m map[string]any
	if err := idToken.Claims(&m); err != nil {
		return consoleClaims{}, fmt.Errorf("decode id_token claims: %w", err)
	}
	c := p.claims.parse(m)
	if c.Nonce != nonce {
		return consoleClaims{}, errors.New("id_token nonce mismatch")
	}
	return c, nil
}

func (p *Provider) userInfo(ctx context.Context, token *oauth2.Token) (consoleClaims, error) {
	info, err := p.issuer.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return consoleClaims{}, fmt.Errorf("fetch user info: %w", err)
	}
	var m map[string]any
	if err := info.Claims(&m); err != nil {
		return consoleClaims{}, fmt.Errorf("decode user info: %w", err)
	}
	return p.claims.parse(m), nil
}

func rawIDToken(token *oauth2.Token) (string, error) {
	if token == nil {
		return "", errors.New("nil token")
	}
	if s, _ := token.Extra("id_token").(string); s != "" {
		return s, nil
	}
	return "", errors.New("missing id_token in token response")
}
