package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DBConfig configures the PostgreSQL database behind the merchant directory.
type DBConfig struct {
	// Enabled turns the merchant directory on. Without it, staff enter impersonation by
	// merchant id and the caller supplies display names.
	Enabled  bool   `env:"ENABLED"  envDefault:"true"`
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"console"`
	Password string `env:"PASSWORD" envDefault:"console"`
	Name     string `env:"NAME"     envDefault:"console"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"`

	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"    envDefault:"10"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"    envDefault:"2"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`

	// MigrateOnStart applies pending merchant directory migrations when the API boots.
	MigrateOnStart bool `env:"MIGRATE_ON_START" envDefault:"true"`
}

// DSN renders a pgx connection URL. Credentials are escaped.
func (c DBConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Sanitize keeps pool settings usable.
func (c *DBConfig) Sanitize() {
	c.Host = strings.TrimSpace(c.Host)
	if c.MaxOpenConns < 1 {
		c.MaxOpenConns = 1
	}
	if c.MaxIdleConns < 0 {
		c.MaxIdleConns = 0
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		c.MaxIdleConns = c.MaxOpenConns
	}
}

// RedisMode selects how the Redis client reaches the server.
type RedisMode string

const (
	RedisModeDirect   RedisMode = "direct"
	RedisModeSentinel RedisMode = "sentinel"
	RedisModeCluster  RedisMode = "cluster"
)

// UnmarshalText implements encoding.TextUnmarshaler for RedisMode.
func (m *RedisMode) UnmarshalText(text []byte) error {
	v := RedisMode(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case RedisModeDirect, RedisModeSentinel, RedisModeCluster:
		*m = v
		return nil
	case "":
		*m = RedisModeDirect
		return nil
	default:
		return fmt.Errorf("invalid RedisMode: %q (valid options: direct, sentinel, cluster)", string(text))
	}
}

// RedisConfig configures the Redis deployment shared by sessions, view state and the data
// cache.
type RedisConfig struct {
	Mode RedisMode `env:"MODE" envDefault:"direct"`

	// Addr is "host:port" or a redis:// / rediss:// URL. Cluster mode falls back to it
	// when Nodes is empty.
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB"       envDefault:"0"`

	// Nodes lists sentinel addresses in sentinel mode and seed nodes in cluster mode.
	Nodes            []string `env:"NODES"`
	MasterName       string   `env:"MASTER_NAME"       envDefault:"mymaster"`
	SentinelPassword string   `env:"SENTINEL_PASSWORD"`
}

// Configured reports whether enough is set to dial Redis in the selected mode.
func (c RedisConfig) Configured() bool {
	switch c.Mode {
	case RedisModeSentinel:
		return len(c.Nodes) > 0 && c.MasterName != ""
	case RedisModeCluster:
		return len(c.Nodes) > 0 || c.Addr != ""
	default:
		return c.Addr != ""
	}
}

// Sanitize trims addresses and drops blank node entries.
func (c *RedisConfig) Sanitize() {
	if c.Mode == "" {
		c.Mode = RedisModeDirect
	}
	c.Addr = strings.TrimSpace(c.Addr)
	nodes := c.Nodes[:0]
	for _, n := range c.Nodes {
		if n = strings.TrimSpace(n); n != "" {
			nodes = append(nodes, n)
		}
	}
	c.Nodes = nodes
	if c.DB < 0 {
		c.DB = 0
	}
}
