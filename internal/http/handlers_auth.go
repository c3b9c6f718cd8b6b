package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domainauth "github.com/pigbank/console-api/internal/domain/auth"
	"github.com/pigbank/console-api/internal/ports"
	"github.com/pigbank/console-api/internal/service"
)

// Cookies that carry an in-flight login between /auth/login and /auth/callback.
const (
	stateCookie    = "oauth_state"
	nonceCookie    = "oauth_nonce"
	returnToCookie = "post_login_redirect"
	loginFlowTTL   = 10 * time.Minute
)

// AuthServiceInterface is the slice of service.AuthService the login routes need.
type AuthServiceInterface interface {
	BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// AuthHandlers serves the session login flow and the identity status probe.
type AuthHandlers struct {
	Svc          AuthServiceInterface
	CookieDomain string
	// SessionCookie names the login session cookie (default session_id).
	SessionCookie string
	Logger        *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *AuthHandlers) sessionCookieName() string {
	if h.SessionCookie == "" {
		return defaultSessionCookie
	}
	return h.SessionCookie
}

// cookie builds an HttpOnly, Lax cookie scoped to the console. maxAge < 0 deletes it.
func (h *AuthHandlers) cookie(r *http.Request, name, value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
	if maxAge < 0 {
		c.Value = ""
		c.Expires = time.Unix(0, 0).UTC()
	}
	return c
}

func (h *AuthHandlers) expire(w http.ResponseWriter, r *http.Request, names ...string) {
	for _, name := range names {
		http.SetCookie(w, h.cookie(r, name, "", -1))
	}
}

// Login starts the IdP round trip.
// GET /auth/login?redirect_uri=<path>.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	returnTo := safeRedirectPath(r.URL.Query().Get("redirect_uri"))

	begin, err := h.Svc.BeginLogin(r.Context(), returnTo)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "login_failed", Err: err})
		return
	}

	flowAge := int(loginFlowTTL / time.Second)
	http.SetCookie(w, h.cookie(r, stateCookie, begin.State, flowAge))
	http.SetCookie(w, h.cookie(r, nonceCookie, begin.Nonce, flowAge))
	http.SetCookie(w, h.cookie(r, returnToCookie, returnTo, flowAge))
	http.Redirect(w, r, begin.AuthURL, http.StatusFound)
}

// callbackInput checks the IdP callback against the cookies Login set.
func callbackInput(r *http.Request) (service.CompleteLoginInput, *ErrorParams) {
	q := r.URL.Query()
	in := service.CompleteLoginInput{Code: q.Get("code"), State: q.Get("state")}

	reject := func(code, msg string) (service.CompleteLoginInput, *ErrorParams) {
		return service.CompleteLoginInput{}, &ErrorParams{Code: http.StatusBadRequest, ErrCode: code, Err: errors.New(msg)}
	}
	switch {
	case in.Code == "":
		return reject("missing_code", "authorization code is required")
	case in.State == "":
		return reject("missing_state", "state parameter is required")
	}
	if c, err := r.Cookie(stateCookie); err != nil || c.Value != in.State {
		return reject("invalid_state", "invalid or missing state parameter")
	}
	c, err := r.Cookie(nonceCookie)
	if err != nil {
		return reject("missing_nonce", "missing nonce parameter")
	}
	in.Nonce = c.Value
	return in, nil
}

// Callback completes the login, sets the session cookie and returns the user to where
// they started.
// GET /auth/callback?code=<code>&state=<state>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	in, bad := callbackInput(r)
	if bad != nil {
		WriteError(w, *bad)
		return
	}

	done, err := h.Svc.CompleteLogin(r.Context(), in)
	if err != nil {
		h.logger().WarnContext(r.Context(), "login completion failed", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "login_completion_failed", Err: err})
		return
	}

	returnTo := "/"
	if c, cookieErr := r.Cookie(returnToCookie); cookieErr == nil {
		returnTo = safeRedirectPath(c.Value)
	}

	sess := done.Session
	http.SetCookie(w, h.cookie(r, h.sessionCookieName(), sess.ID, int(time.Until(sess.ExpiresAt).Seconds())))
	h.expire(w, r, stateCookie, nonceCookie, returnToCookie)
	http.Redirect(w, r, returnTo, http.StatusFound)
}

// Logout ends the session and drops every tab's view state. A failing store is logged
// and the cookie is cleared regardless.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	name := h.sessionCookieName()
	if c, err := r.Cookie(name); err == nil {
		if logoutErr := h.Svc.Logout(r.Context(), c.Value); logoutErr != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", logoutErr)
		}
	}
	h.expire(w, r, name)

	returnTo := r.FormValue("redirect_uri")
	if returnTo == "" {
		returnTo = r.URL.Query().Get("redirect_uri")
	}
	returnTo = safeRedirectPath(returnTo)

	if wantsJSON(r) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "success", "redirect_to": returnTo})
		return
	}
	http.Redirect(w, r, returnTo, http.StatusFound)
}

// ViewLogout serves logout in token modes, where the platform owns the login itself. It
// drops every tab's view state for the caller's session so nothing outlives the login.
// POST /auth/logout.
func ViewLogout(views ports.ViewStorage, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sess := GetSessionFromContext(r.Context()); sess != nil && views != nil {
			if err := views.Clear(r.Context(), sess.ID); err != nil {
				logger.WarnContext(r.Context(), "clear view state on logout failed", "error", err)
			}
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
}

type statusUser struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	MerchantID string `json:"merchant_id,omitempty"`
	DemoActive bool   `json:"demo_active,omitempty"`
}

type statusResponse struct {
	State         string      `json:"state"`
	Authenticated bool        `json:"authenticated"`
	User          *statusUser `json:"user,omitempty"`
	ExpiresAt     *time.Time  `json:"expires_at,omitempty"`
}

// Status reports how the caller's identity resolved.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	res, _ := GetResolutionFromContext(r.Context())
	out := statusResponse{State: res.State.String()}
	if res.State == domainauth.ResolutionResolved && res.Session != nil {
		s := res.Session
		out.Authenticated = true
		out.User = &statusUser{
			ID:         s.UserID,
			FirstName:  s.FirstName,
			LastName:   s.LastName,
			Email:      s.Email,
			Role:       s.Role.String(),
			MerchantID: s.MerchantID,
			DemoActive: s.DemoActive,
		}
		if !s.ExpiresAt.IsZero() {
			out.ExpiresAt = &s.ExpiresAt
		}
	}
	WriteJSON(w, http.StatusOK, out)
}
