package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/pigbank/console-api/config"
	"github.com/pigbank/console-api/internal/adapters/authroles"
	"github.com/pigbank/console-api/internal/adapters/devauth"
	"github.com/pigbank/console-api/internal/adapters/oidc"
	redisadapter "github.com/pigbank/console-api/internal/adapters/redis"
	domainauth "github.com/pigbank/console-api/internal/domain/auth"
	"github.com/pigbank/console-api/internal/ports"
	"github.com/pigbank/console-api/internal/service"
)

// AuthConfig contains configuration for auth service.
type AuthConfig struct {
	Auth        config.AuthConfig
	RedisClient redis.UniversalClient
	// Views is cleared for every tab of a session on logout.
	Views  ports.ViewStorage
	Logger *slog.Logger
}

var errLoginUnconfigured = errors.New("login provider is not configured")

// BuildAuthService wires the login flow for the session modes (oauth, mock). It returns nil,
// leaving the /auth routes unmounted, for token modes, without Redis, or when the provider
// cannot be built.
func BuildAuthService(cfg AuthConfig) *service.AuthService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	mode := cfg.Auth.Mode
	if !mode.UsesSessions() {
		return nil
	}
	if cfg.RedisClient == nil {
		logger.Warn("login disabled: redis client not configured", "mode", mode)
		return nil
	}

	provider, err := loginProvider(cfg.Auth)
	if err != nil {
		logger.Warn("login disabled", "mode", mode, "error", err)
		return nil
	}

	return service.NewAuthService(service.AuthServiceOptions{
		Provider: provider,
		Sessions: redisadapter.NewSessionStore(cfg.RedisClient, redisadapter.SessionStoreOptions{}),
		Roles: authroles.StaticRoleMapper{
			AdminGroup:    cfg.Auth.AdminGroup,
			StaffGroup:    cfg.Auth.StaffGroup,
			MerchantGroup: cfg.Auth.MerchantGroup,
		},
		Views:         cfg.Views,
		MaxSessionTTL: cfg.Auth.SessionMaxTTL,
	})
}

//nolint:ireturn // callers only need the provider port.
func loginProvider(auth config.AuthConfig) (ports.AuthProvider, error) {
	switch auth.Mode {
	case config.AuthModeMock:
		dev := auth.DevAuth
		return devauth.NewProvider(devauth.Config{
			UserID:     dev.UserID,
			Email:      dev.Email,
			FirstName:  dev.FirstName,
			LastName:   dev.LastName,
			Groups:     dev.Groups,
			MerchantID: dev.MerchantID,
			DemoActive: dev.DemoActive,
			Role:       domainauth.ParseRole(dev.Role),
		})
	case config.AuthModeOAuth:
		o := auth.OAuth
		if o.DiscoveryURL == "" || o.ClientID == "" || o.ClientSecret == "" {
			return nil, fmt.Errorf("%w: OAUTH_DISCOVERY_URL, OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET are required",
				errLoginUnconfigured)
		}
		p, err := oidc.NewProvider(oidc.ProviderConfig{
			ClientID:      o.ClientID,
			ClientSecret:  o.ClientSecret,
			RedirectURL:   o.RedirectURL,
			Scope:         o.Scope,
			DiscoveryURL:  o.DiscoveryURL,
			GroupsClaim:   o.GroupsClaim,
			MerchantClaim: o.MerchantClaim,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: mode %q has no login flow", errLoginUnconfigured, auth.Mode)
	}
}
