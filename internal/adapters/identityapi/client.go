// Package identityapi resolves console identities by asking the merchant platform's
// identity endpoint who the forwarded credentials belong to.
package identityapi

import (
	"cmp"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/pigbank/console-api/internal/domain/auth"
	"github.com/pigbank/console-api/internal/ports"
)

const maxBodyBytes = 64 << 10

// Config captures the identity endpoint settings.
type Config struct {
	BaseURL string // e.g. https://api.pigbank.example; "/me" is appended
	Timeout time.Duration
	Client  *http.Client
}

// Client implements ports.IdentitySource over HTTP.
type Client struct {
	meURL  string
	client *http.Client
}

var _ ports.IdentitySource = (*Client)(nil)

// NewClient builds an identity API client.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("identity api base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{meURL: base + "/me", client: hc}, nil
}

// meResponse mirrors the platform's /me payload.
type meResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Role       string    `json:"role"`
	MerchantID string    `json:"merchantId"`
	DemoActive bool      `json:"demoActive"`
	ExpiresAt  time.Time `json:"expiresAt"`
	SessionID  string    `json:"sessionId"`
}

// Lookup forwards the caller's cookie and bearer token. 401 and 404 mean no identity.
func (c *Client) Lookup(ctx context.Context, creds ports.Credentials) (*domainauth.Session, error) {
	if creds.Cookie == "" && creds.BearerToken == "" {
		return nil, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.meURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create identity request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if creds.Cookie != "" {
		req.Header.Set("Cookie", creds.Cookie)
	}
	if creds.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+creds.BearerToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("identity api status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var me meResponse
	if decErr := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&me); decErr != nil {
		return nil, fmt.Errorf("decode identity response: %w", decErr)
	}
	if me.ID == "" {
		return nil, nil
	}
	return &domainauth.Session{
		ID:         "api:" + me.ID + "@" + loginID(me.SessionID, creds),
		UserID:     me.ID,
		FirstName:  me.FirstName,
		LastName:   me.LastName,
		Email:      me.Email,
		Role:       domainauth.ParseRole(me.Role),
		MerchantID: me.MerchantID,
		DemoActive: me.DemoActive,
		ExpiresAt:  me.ExpiresAt,
	}, nil
}

// loginID names the login behind a /me answer: the platform's session id when it reports
// one, else a digest of the credential that identified the caller. Raw credentials never
// end up in storage keys.
func loginID(reported string, creds ports.Credentials) string {
	if reported != "" {
		return reported
	}
	credential := cmp.Or(creds.SessionID, creds.BearerToken, creds.Cookie)
	sum := sha256.Sum256([]byte(credential))
	return "cred-" + hex.EncodeToString(sum[:12])
}
