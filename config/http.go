package config

import (
	"compress/gzip"
	"strings"
	"time"
)

// HTTPConfig configures the console API listener and the browser-facing response policy.
type HTTPConfig struct {
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"10s"`
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT"        envDefault:"30s"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT"       envDefault:"30s"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT"        envDefault:"2m"`
	// ShutdownTimeout bounds how long in-flight requests may drain on SIGTERM.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// CookieDomain scopes the session cookie. Empty means host-only cookies.
	CookieDomain string `env:"APP_COOKIE_DOMAIN"`

	// AllowedOrigin is the dashboard origin allowed to call the API with credentials.
	// Empty disables CORS headers.
	AllowedOrigin string `env:"HTTP_ALLOWED_ORIGIN"`

	CompressionEnabled bool `env:"HTTP_COMPRESSION_ENABLED" envDefault:"false"`
	CompressionLevel   int  `env:"HTTP_COMPRESSION_LEVEL"   envDefault:"6"`
}

// Sanitize clamps the gzip level and replaces non-positive timeouts with defaults.
func (h *HTTPConfig) Sanitize() {
	h.Addr = strings.TrimSpace(h.Addr)
	if h.Addr == "" {
		h.Addr = ":8080"
	}
	h.AllowedOrigin = strings.TrimRight(strings.TrimSpace(h.AllowedOrigin), "/")
	h.CompressionLevel = min(max(h.CompressionLevel, gzip.BestSpeed), gzip.BestCompression)

	for _, d := range []struct {
		v   *time.Duration
		def time.Duration
	}{
		{&h.ReadHeaderTimeout, 10 * time.Second},
		{&h.ReadTimeout, 30 * time.Second},
		{&h.WriteTimeout, 30 * time.Second},
		{&h.IdleTimeout, 2 * time.Minute},
		{&h.ShutdownTimeout, 10 * time.Second},
	} {
		if *d.v <= 0 {
			*d.v = d.def
		}
	}
}
