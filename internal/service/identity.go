package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	domainauth "github.com/pigbank/console-api/internal/domain/auth"
	"github.com/pigbank/console-api/internal/observability/metrics"
	"github.com/pigbank/console-api/internal/ports"
)

// SessionGetter is the subset of AuthService used to resolve cookie sessions.
type SessionGetter interface {
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
}

// SessionIdentitySource resolves identities from server-side login sessions.
type SessionIdentitySource struct {
	sessions SessionGetter
}

var _ ports.IdentitySource = (*SessionIdentitySource)(nil)

// NewSessionIdentitySource wraps a SessionGetter.
func NewSessionIdentitySource(sessions SessionGetter) *SessionIdentitySource {
	return &SessionIdentitySource{sessions: sessions}
}

// Lookup returns the session behind the session cookie. Missing or expired sessions carry
// no identity; store failures are returned.
func (s *SessionIdentitySource) Lookup(ctx context.Context, creds ports.Credentials) (*domainauth.Session, error) {
	if creds.SessionID == "" {
		return nil, nil
	}
	sess, err := s.sessions.GetSession(ctx, creds.SessionID)
	if errors.Is(err, ports.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

const (
	defaultResolveWait   = 2 * time.Second
	defaultLookupTimeout = 10 * time.Second
)

// IdentityResolverOptions groups dependencies for IdentityResolver.
type IdentityResolverOptions struct {
	Source ports.IdentitySource
	// Wait bounds how long a request waits for identity before answering Pending.
	Wait time.Duration
	// LookupTimeout bounds the shared upstream lookup, which may outlive a single waiter.
	LookupTimeout time.Duration
	Logger        *slog.Logger
}

// IdentityResolver turns request credentials into a Resolution. Concurrent requests with
// the same credentials share one upstream lookup.
type IdentityResolver struct {
	source        ports.IdentitySource
	wait          time.Duration
	lookupTimeout time.Duration
	logger        *slog.Logger
	group         singleflight.Group
}

// NewIdentityResolver constructs an IdentityResolver.
func NewIdentityResolver(opts IdentityResolverOptions) *IdentityResolver {
	wait := opts.Wait
	if wait <= 0 {
		wait = defaultResolveWait
	}
	lookupTimeout := opts.LookupTimeout
	if lookupTimeout <= 0 {
		lookupTimeout = defaultLookupTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &IdentityResolver{
		source:        opts.Source,
		wait:          wait,
		lookupTimeout: lookupTimeout,
		logger:        logger.With("component", "identity_resolver"),
	}
}

// Resolve answers Pending when the source has not replied within the wait, Absent when
// it replied without an identity or failed, and Resolved otherwise.
func (r *IdentityResolver) Resolve(ctx context.Context, creds ports.Credentials) domainauth.Resolution {
	res := r.resolve(ctx, creds)
	metrics.IdentityResolutions.WithLabelValues(res.State.String()).Inc()
	return res
}

func (r *IdentityResolver) resolve(ctx context.Context, creds ports.Credentials) domainauth.Resolution {
	if creds.Empty() || r.source == nil {
		return domainauth.Absent()
	}

	ch := r.group.DoChan(creds.Key(), func() (any, error) {
		// Detached from the first caller so its cancellation does not fail the others.
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.lookupTimeout)
		defer cancel()
		return r.source.Lookup(lctx, creds)
	})

	timer := time.NewTimer(r.wait)
	defer timer.Stop()

	select {
	case out := <-ch:
		if out.Err != nil {
			r.logger.WarnContext(ctx, "identity lookup failed", "error", out.Err)
			return domainauth.Absent()
		}
		sess, _ := out.Val.(*domainauth.Session)
		if sess == nil {
			return domainauth.Absent()
		}
		cp := *sess
		return domainauth.Resolved(&cp)
	case <-timer.C:
		r.logger.DebugContext(ctx, "identity lookup still pending", "wait", r.wait)
		return domainauth.Pending()
	case <-ctx.Done():
		return domainauth.Pending()
	}
}
