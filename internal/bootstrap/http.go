package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/pigbank/console-api/config"
	httpx "github.com/pigbank/console-api/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config  *config.AppConfig
	Console *Console
	Logger  *slog.Logger
}

func (c *HTTPServerConfig) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *HTTPServerConfig) appConfig() *config.AppConfig {
	if c.Config != nil {
		return c.Config
	}
	return &config.AppConfig{}
}

// BuildHTTPHandler builds the console router from the wired components.
func BuildHTTPHandler(cfg *HTTPServerConfig) http.Handler {
	app := cfg.appConfig()
	if app.HTTP.CompressionEnabled {
		cfg.logger().Info("HTTP compression enabled", "level", app.HTTP.CompressionLevel)
	}
	return httpx.NewRouter(cfg.Console.RouterServices(app, cfg.logger()))
}

func newHTTPServer(cfg *HTTPServerConfig) *http.Server {
	h := cfg.appConfig().HTTP
	h.Sanitize()
	return &http.Server{
		Addr:              h.Addr,
		Handler:           BuildHTTPHandler(cfg),
		ReadHeaderTimeout: h.ReadHeaderTimeout,
		ReadTimeout:       h.ReadTimeout,
		WriteTimeout:      h.WriteTimeout,
		IdleTimeout:       h.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(cfg.logger().Handler(), slog.LevelWarn),
	}
}

// ServeWithShutdown serves until ctx ends, SIGINT or SIGTERM arrives, or the listener
// fails. On a stop request it drains in-flight requests for up to HTTP_SHUTDOWN_TIMEOUT.
func ServeWithShutdown(ctx context.Context, cfg *HTTPServerConfig) error {
	if cfg == nil || cfg.Console == nil {
		return errors.New("http server config is required")
	}
	server := newHTTPServer(cfg)
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", server.Addr, err)
	}
	return serve(ctx, cfg, server, ln)
}

func serve(ctx context.Context, cfg *HTTPServerConfig, server *http.Server, ln net.Listener) error {
	logger := cfg.logger()
	stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(stopCtx)
	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", ln.Addr().String())
		if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server", "cause", context.Cause(gctx))

		h := cfg.appConfig().HTTP
		h.Sanitize()
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		logger.Info("HTTP server stopped")
		return nil
	})
	return g.Wait()
}
