package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/pigbank/console-api/config"
)

// logLevel backs every logger InitLogger hands out so the level can change after config
// is parsed.
var logLevel slog.LevelVar

// InitLogger installs a JSON logger on stdout at info level as the slog default.
func InitLogger() *slog.Logger {
	logLevel.Set(slog.LevelInfo)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))
	slog.SetDefault(logger)
	return logger
}

// SetLogLevel switches the level of InitLogger's logger. Unparseable names are ignored.
func SetLogLevel(name string) {
	var lvl slog.Level
	if lvl.UnmarshalText([]byte(strings.TrimSpace(name))) == nil {
		logLevel.Set(lvl)
	}
}

// LoadConfig reads an optional .env file, then parses and sanitizes the environment.
func LoadConfig() (config.AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
	}
	cfg, err := env.ParseAs[config.AppConfig]()
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.Sanitize()
	return cfg, nil
}

// ValidateConfig reports every missing setting the selected identity mode and the shared
// stores need, joined into one error.
func ValidateConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("config is required")
	}
	var problems []error
	require := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Errorf(format, args...))
		}
	}

	auth := cfg.Auth
	switch auth.Mode {
	case config.AuthModeJWT:
		require(auth.JWT.Secret != "", "AUTH_JWT_SECRET is required when AUTH_MODE=jwt")
	case config.AuthModeAPI:
		require(auth.IdentityAPI.URL != "", "IDENTITY_API_URL is required when AUTH_MODE=api")
	case config.AuthModeOAuth:
		require(auth.OAuth.DiscoveryURL != "", "OAUTH_DISCOVERY_URL is required when AUTH_MODE=oauth")
	case config.AuthModeMock:
		if !cfg.IsDev {
			slog.Warn("mock authentication enabled outside development mode")
		}
	default:
		require(false, "unsupported auth mode %q", auth.Mode)
	}
	require(cfg.Console.DataAPIURL != "", "CONSOLE_DATA_API_URL is required")
	require(cfg.Redis.Configured(), "REDIS_ settings are incomplete for mode %q", cfg.Redis.Mode)

	return errors.Join(problems...)
}
