// Package dataapi reads business records from the platform data API on behalf of the
// console user, forwarding the caller's credentials.
package dataapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/pigbank/console-api/internal/errors"
	"github.com/pigbank/console-api/internal/ports"
)

const defaultMaxBody = 4 << 20

// ErrNotFound is returned when the data API has no such endpoint or record.
var ErrNotFound error = apperrors.NotFound("data api: not found")

// ErrUnauthorized is returned when the data API rejects the forwarded credentials.
var ErrUnauthorized error = apperrors.Unauthorized("data api: unauthorized")

// StatusError carries an unexpected upstream status.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("data api status %d: %s", e.Status, e.Body)
}

// Config captures the data API settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// MaxBody caps the response size; larger bodies fail.
	MaxBody int64
	Client  *http.Client
}

// Client implements ports.DataFetcher over HTTP.
type Client struct {
	base    *url.URL
	client  *http.Client
	maxBody int64
}

var _ ports.DataFetcher = (*Client)(nil)

// NewClient builds a data API client.
func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("data api base url is required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse data api base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("data api base url must be http(s), got %q", base.Scheme)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	maxBody := cfg.MaxBody
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}
	return &Client{base: base, client: hc, maxBody: maxBody}, nil
}

// URL returns the absolute URL for endpoint and params.
func (c *Client) URL(endpoint string, params url.Values) string {
	u := c.base.JoinPath(strings.TrimLeft(endpoint, "/"))
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

// Fetch GETs endpoint and returns the raw body.
func (c *Client) Fetch(ctx context.Context, endpoint string, params url.Values, creds ports.Credentials) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(endpoint, params), nil)
	if err != nil {
		return nil, fmt.Errorf("create data request: %w", err)
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
		return nil, fmt.Errorf("data request %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read data response: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("data response for %s exceeds %d bytes", endpoint, c.maxBody)
	}
	return body, nil
}
