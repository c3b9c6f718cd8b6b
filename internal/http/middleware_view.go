package httpx

import (
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/pigbank/console-api/internal/ports"
	"github.com/pigbank/console-api/internal/service"
)

const (
	defaultSessionCookie = "session_id"
	defaultTabHeader     = "X-Console-Tab"
)

var tabIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ViewScopeConfig configures the ViewScope middleware.
type ViewScopeConfig struct {
	// Storage persists impersonation state per view session. Nil keeps state in memory
	// for the lifetime of one request only.
	Storage ports.ViewStorage
	// TabHeader carries the tab id. Only tabs that send it get durable state.
	TabHeader string
	// TTL bounds persisted state when the session has no expiry of its own.
	TTL    time.Duration
	Logger *slog.Logger
	// Now is overridable for tests.
	Now func() time.Time
}

// ViewScope returns a middleware that binds a hydrated ImpersonationStore to every request
// with a resolved identity. The view session is the identity's session id plus the tab id
// from the tab header. A request without a usable header gets a freshly minted tab id,
// echoed in the header, and a memory-only store: state a browser shares across tabs
// (cookies) never identifies a view session.
func ViewScope(cfg ViewScopeConfig) func(http.Handler) http.Handler {
	if cfg.TabHeader == "" {
		cfg.TabHeader = defaultTabHeader
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 8 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := GetSessionFromContext(r.Context())
			if sess == nil {
				next.ServeHTTP(w, r)
				return
			}

			tabID, fromHeader := cfg.tabID(w, r)
			storage := cfg.Storage
			if !fromHeader {
				storage = nil
			}
			ttl := cfg.TTL
			if !sess.ExpiresAt.IsZero() {
				if remaining := sess.ExpiresAt.Sub(cfg.Now()); remaining > 0 && remaining < ttl {
					ttl = remaining
				}
			}

			store := service.NewImpersonationStore(service.ImpersonationStoreOptions{
				Role:    sess.Role,
				ActorID: sess.UserID,
				Key:     ports.ViewKey{SessionID: sess.ID, TabID: tabID},
				Storage: storage,
				TTL:     ttl,
				Logger:  cfg.Logger.With("request_id", RequestIDFromContext(r.Context())),
			})
			store.Hydrate(r.Context())

			ctx := SetStoreInContext(r.Context(), store)
			ctx = SetTabInContext(ctx, tabID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (cfg ViewScopeConfig) tabID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if id := r.Header.Get(cfg.TabHeader); tabIDPattern.MatchString(id) {
		return id, true
	}
	id := uuid.NewString()
	w.Header().Set(cfg.TabHeader, id)
	return id, false
}
