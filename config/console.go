package config

import (
	"strings"
	"time"
)

// ConsoleConfig controls data scoping, identity resolution and view sessions.
type ConsoleConfig struct {
	// DataAPIURL is the base URL of the business-record API.
	DataAPIURL string `env:"DATA_API_URL" envDefault:"http://localhost:9090"`

	// DataTimeout bounds one data API request.
	DataTimeout time.Duration `env:"DATA_TIMEOUT" envDefault:"15s"`

	// DataCacheTTL is how long scoped data responses stay cached. Zero disables caching.
	DataCacheTTL time.Duration `env:"DATA_CACHE_TTL" envDefault:"60s"`

	// IdentityWait is how long a request waits for identity before answering "loading".
	IdentityWait time.Duration `env:"IDENTITY_WAIT" envDefault:"2s"`

	// IdentityLookupTimeout bounds the shared upstream identity lookup.
	IdentityLookupTimeout time.Duration `env:"IDENTITY_LOOKUP_TIMEOUT" envDefault:"10s"`

	// TabHeader carries the tab id. Tabs that omit it keep view state for one request only.
	TabHeader string `env:"TAB_HEADER" envDefault:"X-Console-Tab"`

	// ViewTTL bounds persisted view state when the session has no expiry of its own.
	ViewTTL time.Duration `env:"VIEW_TTL" envDefault:"8h"`
}

// Sanitize applies guardrails to console configuration values.
func (c *ConsoleConfig) Sanitize() {
	c.DataAPIURL = strings.TrimRight(strings.TrimSpace(c.DataAPIURL), "/")
	if c.DataTimeout <= 0 {
		c.DataTimeout = 15 * time.Second
	}
	if c.DataCacheTTL < 0 {
		c.DataCacheTTL = 0
	}
	if c.IdentityWait <= 0 {
		c.IdentityWait = 2 * time.Second
	}
	if c.IdentityLookupTimeout < c.IdentityWait {
		c.IdentityLookupTimeout = c.IdentityWait
	}
	if c.TabHeader = strings.TrimSpace(c.TabHeader); c.TabHeader == "" {
		c.TabHeader = "X-Console-Tab"
	}
	if c.ViewTTL <= 0 {
		c.ViewTTL = 8 * time.Hour
	}
}
