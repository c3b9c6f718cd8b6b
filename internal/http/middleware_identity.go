package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	domainauth "github.com/pigbank/console-api/internal/domain/auth"
	"github.com/pigbank/console-api/internal/ports"
)

// IdentityResolver resolves request credentials into an identity resolution.
type IdentityResolver interface {
	Resolve(ctx context.Context, creds ports.Credentials) domainauth.Resolution
}

// Identity returns a middleware that resolves the caller's identity and stores the
// resolution and the presented credentials in the request context. It never rejects a
// request; use RequireResolved or RequireStaff on routes that need an identity.
func Identity(resolver IdentityResolver, sessionCookie string) func(http.Handler) http.Handler {
	if sessionCookie == "" {
		sessionCookie = defaultSessionCookie
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds := credentialsFromRequest(r, sessionCookie)
			res := resolver.Resolve(r.Context(), creds)

			ctx := SetCredentialsInContext(r.Context(), creds)
			ctx = SetResolutionInContext(ctx, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func credentialsFromRequest(r *http.Request, sessionCookie string) ports.Credentials {
	var creds ports.Credentials
	if c, err := r.Cookie(sessionCookie); err == nil {
		creds.SessionID = c.Value
	}
	if scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok &&
		strings.EqualFold(scheme, "Bearer") {
		creds.BearerToken = strings.TrimSpace(token)
	}
	creds.Cookie = r.Header.Get("Cookie")
	return creds
}

// RequireResolved returns a middleware that requires a resolved identity.
// Pending identity answers 503 with Retry-After so the client keeps showing its loading
// state; absent identity answers 401.
func RequireResolved() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireResolved(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireStaff returns a middleware that requires a resolved support staff identity.
func RequireStaff() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !requireResolved(w, r) {
				return
			}
			if !GetSessionFromContext(r.Context()).IsStaff() {
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: "insufficient_permissions",
					Err:     errors.New("insufficient permissions"),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requireResolved(w http.ResponseWriter, r *http.Request) bool {
	res, _ := GetResolutionFromContext(r.Context())
	switch res.State {
	case domainauth.ResolutionResolved:
		return true
	case domainauth.ResolutionAbsent:
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
	default:
		w.Header().Set("Retry-After", "1")
		WriteError(w, ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "identity_pending",
			Err:     errors.New("identity is still being resolved"),
		})
	}
	return false
}
