// Package config declares the console API's environment-driven configuration. Each
// concern lives in its own file and is parsed with caarlos0/env.
package config

import (
	"os"
	"strings"
)

// AppConfig composes every configuration section.
//   - auth.go: identity modes, OIDC, dev identity, group mapping, sessions
//   - database.go: merchant directory database and Redis
//   - http.go: listener, cookies, CORS, compression
//   - console.go: data API, cache, identity resolution and view sessions
type AppConfig struct {
	// IsDev relaxes cookie security and enables the mock identity mode without warnings.
	// NODE_ENV=development also turns it on.
	IsDev bool `env:"DEV" envDefault:"false"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Auth     AuthConfig
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`
	HTTP     HTTPConfig
	Console  ConsoleConfig `envPrefix:"CONSOLE_"`
}

// Sanitize normalizes every section. Call it once after parsing.
func (c *AppConfig) Sanitize() {
	c.Auth.Sanitize()
	c.Postgres.Sanitize()
	c.Redis.Sanitize()
	c.HTTP.Sanitize()
	c.Console.Sanitize()

	switch level := strings.ToLower(strings.TrimSpace(c.LogLevel)); level {
	case "debug", "info", "warn", "error":
		c.LogLevel = level
	default:
		c.LogLevel = "info"
	}

	if !c.IsDev {
		switch strings.ToLower(os.Getenv("NODE_ENV")) {
		case "development", "dev":
			c.IsDev = true
		}
	}
}
