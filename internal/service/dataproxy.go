package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pigbank/console-api/internal/domain/scope"
	apperrors "github.com/pigbank/console-api/internal/errors"
	"github.com/pigbank/console-api/internal/observability/metrics"
	"github.com/pigbank/console-api/internal/ports"
)

var resourcePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,63}$`)

const defaultFetchTimeout = 30 * time.Second

// DataProxyOptions groups dependencies for DataProxy.
type DataProxyOptions struct {
	Resolver *scope.Resolver
	Fetcher  ports.DataFetcher
	Cache    ports.CacheRepository // optional
	TTL      time.Duration
	// FetchTimeout bounds one shared upstream fetch, which may outlive the caller that
	// started it.
	FetchTimeout time.Duration
	Logger       *slog.Logger
}

// DataProxy serves data screens: it resolves the request scope, then answers from the
// cache or the data API.
type DataProxy struct {
	resolver *scope.Resolver
	fetcher  ports.DataFetcher
	cache    ports.CacheRepository
	ttl          time.Duration
	fetchTimeout time.Duration
	logger       *slog.Logger
	group        singleflight.Group
}

// NewDataProxy constructs a DataProxy.
func NewDataProxy(opts DataProxyOptions) *DataProxy {
	resolver := opts.Resolver
	if resolver == nil {
		resolver = scope.NewResolver()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	fetchTimeout := opts.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DataProxy{
		resolver:     resolver,
		fetcher:      opts.Fetcher,
		cache:        opts.Cache,
		ttl:          ttl,
		fetchTimeout: fetchTimeout,
		logger:       logger.With("component", "data_proxy"),
	}
}

// DataRequest is one data-screen read.
type DataRequest struct {
	// Principal identifies the caller; cache entries are never shared across principals.
	Principal string
	Session   scope.Session
	Resource  scope.Resource
	Params    url.Values
	Creds     ports.Credentials
}

// DataResult is the scoped response body.
type DataResult struct {
	Scope  scope.Scope
	Body   []byte
	Cached bool
}

// ResolveScope validates the resource and resolves its scope for sess.
func (p *DataProxy) ResolveScope(resource scope.Resource, sess scope.Session, params url.Values) (scope.Scope, error) {
	if !resourcePattern.MatchString(string(resource)) {
		return scope.Scope{}, apperrors.ValidationField("resource", "invalid resource name")
	}
	sc := p.resolver.Resolve(resource, sess, params)
	metrics.ScopeResolutions.WithLabelValues(string(sc.Resource), string(sc.Mode)).Inc()
	if sc.Mode == scope.ModeFallback {
		p.logger.Warn("impersonation target unusable, serving caller's own data",
			"resource", string(resource))
	}
	return sc, nil
}

// Fetch returns the data for req. Responses that arrive after the caller's impersonation
// changed are still cached under the key they were requested with.
func (p *DataProxy) Fetch(ctx context.Context, req DataRequest) (*DataResult, error) {
	if req.Principal == "" {
		return nil, apperrors.Validation("principal is required")
	}
	sc, err := p.ResolveScope(req.Resource, req.Session, req.Params)
	if err != nil {
		return nil, err
	}
	key := p.cacheKey(req.Principal, sc)

	if body := p.cached(ctx, key); body != nil {
		metrics.DataCacheRequests.WithLabelValues(metrics.CacheHit).Inc()
		return &DataResult{Scope: sc, Body: body, Cached: true}, nil
	}
	metrics.DataCacheRequests.WithLabelValues(metrics.CacheMiss).Inc()

	ch := p.group.DoChan(key, func() (any, error) {
		// Detached from the first caller so its disconnect does not fail the others.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.fetchTimeout)
		defer cancel()
		body, fetchErr := p.fetcher.Fetch(fctx, sc.Endpoint, req.Params, req.Creds)
		if fetchErr != nil {
			return nil, fetchErr
		}
		p.store(fctx, key, body)
		return body, nil
	})

	select {
	case out := <-ch:
		if out.Err != nil {
			metrics.ObserveUpstreamError(out.Err)
			return nil, fmt.Errorf("fetch %s: %w", sc.Endpoint, out.Err)
		}
		body, _ := out.Val.([]byte)
		return &DataResult{Scope: sc, Body: body}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch %s: %w", sc.Endpoint, ctx.Err())
	}
}

func (p *DataProxy) cacheKey(principal string, sc scope.Scope) string {
	return "data:" + principal + ":" + sc.CacheKey
}

func (p *DataProxy) cached(ctx context.Context, key string) []byte {
	if p.cache == nil {
		return nil
	}
	body, err := p.cache.Get(ctx, key)
	if err != nil {
		p.logger.WarnContext(ctx, "data cache read failed", "error", err)
		return nil
	}
	return body
}

func (p *DataProxy) store(ctx context.Context, key string, body []byte) {
	if p.cache == nil {
		return
	}
	// The write should land even if the caller has gone away.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := p.cache.Set(wctx, key, body, p.ttl); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.WarnContext(ctx, "data cache write failed", "error", err)
	}
}
