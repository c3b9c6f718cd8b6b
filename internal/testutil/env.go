package testutil

import (
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

// Infra describes the Postgres and Redis instances integration tests run against.
// Defaults match the docker-compose test profile (ports 55432 and 56379).
type Infra struct {
	DBHost     string `env:"TEST_DB_HOST"     envDefault:"localhost"`
	DBPort     int    `env:"TEST_DB_PORT"     envDefault:"55432"`
	DBUser     string `env:"TEST_DB_USER"     envDefault:"console"`
	DBPassword string `env:"TEST_DB_PASSWORD" envDefault:"console"`
	DBName     string `env:"TEST_DB_NAME"     envDefault:"console"`
	DBSSLMode  string `env:"DB_SSL_MODE"      envDefault:"disable"`

	// RedisAddr pins the Redis instance; empty probes REDIS_ADDR, then the usual addresses.
	RedisAddr string `env:"TEST_REDIS_ADDR"`
	// RedisDB pins the logical database; negative reserves a free one.
	RedisDB int `env:"TEST_REDIS_DB" envDefault:"-1"`

	// Require* turn a missing dependency into a failure instead of a skip (set in CI).
	RequireDB    bool `env:"TEST_REQUIRE_DB"`
	RequireRedis bool `env:"TEST_REQUIRE_REDIS"`
	RequireInfra bool `env:"TEST_REQUIRE_INFRA"`
}

// LoadInfra reads the test infrastructure settings from the environment.
func LoadInfra() Infra {
	cfg, err := env.ParseAs[Infra]()
	if err != nil {
		// Malformed values fall back to defaults so a stray variable never hides a skip reason.
		cfg, _ = env.ParseAsWithOptions[Infra](env.Options{Environment: map[string]string{}})
	}
	return cfg
}

// DSN returns the connection string for the test database, optionally pinned to schema.
func (c Infra) DSN(schema string) string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUser, c.DBPassword),
		Host:   net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
		Path:   "/" + c.DBName,
	}
	q := u.Query()
	q.Set("sslmode", c.DBSSLMode)
	if schema != "" {
		q.Set("search_path", schema+",public")
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (c Infra) mustHaveDB() bool    { return c.RequireDB || c.RequireInfra }
func (c Infra) mustHaveRedis() bool { return c.RequireRedis || c.RequireInfra }

// FixedTimeFunc returns a clock that always reports t.
func FixedTimeFunc(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// TestTime is the fixed instant used by fixtures.
func TestTime() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}
