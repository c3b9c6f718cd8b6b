package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/pigbank/console-api/config"
	"github.com/pigbank/console-api/internal/adapters/dataapi"
	"github.com/pigbank/console-api/internal/adapters/identityapi"
	"github.com/pigbank/console-api/internal/adapters/jwtidentity"
	redisadapter "github.com/pigbank/console-api/internal/adapters/redis"
	"github.com/pigbank/console-api/internal/data"
	httpx "github.com/pigbank/console-api/internal/http"
	"github.com/pigbank/console-api/internal/ports"
	"github.com/pigbank/console-api/internal/service"
)

// ConsoleDeps holds the connected infrastructure. DB is nil when the merchant directory
// is disabled; RedisClient is nil when Redis is not configured.
type ConsoleDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// Console holds the wired components behind the HTTP API.
type Console struct {
	Auth      *service.AuthService
	Identity  *service.IdentityResolver
	Views     ports.ViewStorage
	Directory ports.MerchantDirectory
	Data      *service.DataProxy
	Checks    map[string]httpx.HealthCheck
}

// NewConsole wires identity, view storage, the merchant directory and the data proxy.
func NewConsole(deps ConsoleDeps) (*Console, error) {
	if deps.Config == nil {
		return nil, errors.New("console config is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Console{Checks: map[string]httpx.HealthCheck{}}

	if deps.RedisClient != nil {
		c.Views = redisadapter.NewViewStorage(deps.RedisClient, redisadapter.ViewStorageOptions{
			TTL: cfg.Console.ViewTTL,
		})
		client := deps.RedisClient
		c.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	} else {
		logger.Warn("redis not configured; impersonation state lasts one request and data is not cached")
	}

	c.Auth = BuildAuthService(AuthConfig{
		Auth:        cfg.Auth,
		RedisClient: deps.RedisClient,
		Views:       c.Views,
		Logger:      logger,
	})

	source, err := BuildIdentitySource(cfg.Auth, c.Auth)
	if err != nil {
		return nil, err
	}
	c.Identity = service.NewIdentityResolver(service.IdentityResolverOptions{
		Source:        source,
		Wait:          cfg.Console.IdentityWait,
		LookupTimeout: cfg.Console.IdentityLookupTimeout,
		Logger:        logger,
	})

	if deps.DB != nil {
		c.Directory = data.NewMerchantRepo(deps.DB)
		db := deps.DB
		c.Checks["postgres"] = db.PingContext
	}

	fetcher, err := dataapi.NewClient(dataapi.Config{
		BaseURL: cfg.Console.DataAPIURL,
		Timeout: cfg.Console.DataTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("data api client: %w", err)
	}
	proxyOpts := service.DataProxyOptions{
		Fetcher:      fetcher,
		TTL:          cfg.Console.DataCacheTTL,
		FetchTimeout: cfg.Console.DataTimeout,
		Logger:       logger,
	}
	if deps.RedisClient != nil && cfg.Console.DataCacheTTL > 0 {
		proxyOpts.Cache = data.NewRedisCacheRepo(deps.RedisClient, "cache:")
	}
	c.Data = service.NewDataProxy(proxyOpts)

	return c, nil
}

// BuildIdentitySource selects the identity source for the configured mode. Session modes
// read the login sessions behind auth.
//
//nolint:ireturn // the resolver only needs the source port.
func BuildIdentitySource(cfg config.AuthConfig, auth *service.AuthService) (ports.IdentitySource, error) {
	switch cfg.Mode {
	case config.AuthModeOAuth, config.AuthModeMock:
		if auth == nil {
			return nil, fmt.Errorf("auth mode %s requires a configured auth service and redis", cfg.Mode)
		}
		return service.NewSessionIdentitySource(auth), nil
	case config.AuthModeJWT:
		src, err := jwtidentity.NewSource(jwtidentity.Config{
			Secret: cfg.JWT.Secret,
			Issuer: cfg.JWT.Issuer,
			Leeway: cfg.JWT.Leeway,
		})
		if err != nil {
			return nil, fmt.Errorf("jwt identity source: %w", err)
		}
		return src, nil
	case config.AuthModeAPI:
		client, err := identityapi.NewClient(identityapi.Config{
			BaseURL: cfg.IdentityAPI.URL,
			Timeout: cfg.IdentityAPI.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("identity api source: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}

// RouterServices maps the console onto the HTTP router's dependencies.
func (c *Console) RouterServices(cfg *config.AppConfig, logger *slog.Logger) httpx.RouterServices {
	services := httpx.RouterServices{
		Identity:           c.Identity,
		Views:              c.Views,
		Data:               c.Data,
		Directory:          c.Directory,
		Checks:             c.Checks,
		SessionCookie:      cfg.Auth.SessionCookie,
		CookieDomain:       cfg.HTTP.CookieDomain,
		TabHeader:          cfg.Console.TabHeader,
		ViewTTL:            cfg.Console.ViewTTL,
		AllowedOrigin:      cfg.HTTP.AllowedOrigin,
		CompressionEnabled: cfg.HTTP.CompressionEnabled,
		CompressionLevel:   cfg.HTTP.CompressionLevel,
		Logger:             logger,
	}
	// A nil *AuthService must not become a non-nil interface.
	if c.Auth != nil {
		services.Auth = c.Auth
	}
	return services
}
