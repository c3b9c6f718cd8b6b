package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pigbank/console-api/internal/ports"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	// Auth is set in session modes (oauth, mock); nil disables the /auth routes.
	Auth     AuthServiceInterface
	Identity IdentityResolver
	Views    ports.ViewStorage
	Data     DataService
	// Directory is optional.
	Directory ports.MerchantDirectory
	// Checks feed /readyz.
	Checks map[string]HealthCheck

	SessionCookie string
	CookieDomain  string
	TabHeader     string
	ViewTTL       time.Duration
	AllowedOrigin string

	CompressionEnabled bool
	CompressionLevel   int

	Logger *slog.Logger
}

// NewRouter creates and configures the HTTP router and its middleware chain:
// recover, logging, CORS, compression, identity, view scope.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readyHandler(services.Checks, logger))
	mux.Handle("GET /metrics", promhttp.Handler())

	if services.Auth != nil {
		registerAuthRoutes(mux, &AuthHandlers{
			Svc:           services.Auth,
			CookieDomain:  services.CookieDomain,
			SessionCookie: services.SessionCookie,
			Logger:        logger,
		})
	} else {
		mux.HandleFunc("GET /auth/status", (&AuthHandlers{}).Status)
		mux.HandleFunc("POST /auth/logout", ViewLogout(services.Views, logger))
	}

	registerNavigationRoutes(mux, NewNavigationHandlers())
	registerImpersonationRoutes(mux, NewImpersonationHandlers(services.Directory, logger))
	mux.Handle("GET /api/staff/merchants", RequireStaff()(
		http.HandlerFunc((&MerchantHandlers{Directory: services.Directory, Logger: logger}).List)))
	if services.Data != nil {
		registerDataRoutes(mux, &DataHandlers{Svc: services.Data})
	}

	var handler http.Handler = mux
	handler = ViewScope(ViewScopeConfig{
		Storage:   services.Views,
		TabHeader: services.TabHeader,
		TTL:       services.ViewTTL,
		Logger:    logger,
	})(handler)
	handler = Identity(services.Identity, services.SessionCookie)(handler)
	if services.CompressionEnabled {
		handler = Compression(CompressionConfig{Level: services.CompressionLevel, Logger: logger})(handler)
	}
	handler = CORS(services.AllowedOrigin, tabHeaderOrDefault(services.TabHeader))(handler)
	handler = Logging(logger)(handler)
	return Recover(logger)(handler)
}

func tabHeaderOrDefault(h string) string {
	if h == "" {
		return defaultTabHeader
	}
	return h
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("GET /auth/login", h.Login)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
}

func registerNavigationRoutes(mux *http.ServeMux, h *NavigationHandlers) {
	mux.HandleFunc("GET /api/navigation", h.Get)
	mux.HandleFunc("POST /api/navigation", h.Navigate)
}

func registerImpersonationRoutes(mux *http.ServeMux, h *ImpersonationHandlers) {
	mux.HandleFunc("GET /api/impersonation", h.Banner)
	mux.Handle("DELETE /api/impersonation", RequireResolved()(http.HandlerFunc(h.Exit)))
	mux.Handle("POST /api/staff/impersonation", RequireStaff()(http.HandlerFunc(h.Enter)))
}

func registerDataRoutes(mux *http.ServeMux, h *DataHandlers) {
	mux.Handle("GET /api/scope/{resource}", RequireResolved()(http.HandlerFunc(h.Scope)))
	mux.Handle("GET /api/data/{resource}", RequireResolved()(http.HandlerFunc(h.Data)))
}
