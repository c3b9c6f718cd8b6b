// Package metrics defines the console's Prometheus metrics. Metrics register with the
// default registry on package init; /metrics serves them through promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	obserrors "github.com/pigbank/console-api/internal/observability/errors"
)

const namespace = "console"

// Impersonation transition labels.
const (
	TransitionEnter     = "enter"
	TransitionExit      = "exit"
	TransitionExitRoute = "exit_route"
	TransitionRefused   = "refused"
	TransitionDiscarded = "discarded"
)

// Cache result labels.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// ImpersonationTransitions counts impersonation state changes.
// Label transition: enter, exit, exit_route, refused or discarded.
var ImpersonationTransitions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "impersonation_transitions_total",
		Help:      "Impersonation state transitions by kind.",
	},
	[]string{"transition"},
)

// ViewStorageErrors counts view storage failures the store degraded past.
// Label op: load, store or remove.
var ViewStorageErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "view_storage_errors_total",
		Help:      "View storage failures tolerated by the impersonation store.",
	},
	[]string{"op"},
)

// ScopeResolutions counts resolver outputs.
// Labels: resource, mode (default, scoped, fallback).
var ScopeResolutions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scope_resolutions_total",
		Help:      "Request scope resolutions by resource and mode.",
	},
	[]string{"resource", "mode"},
)

// RouteDecisions counts navigation decisions.
// Labels: table (unauthenticated, support, pending-merchant, merchant, loading), kind.
var RouteDecisions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "route_decisions_total",
		Help:      "Navigation decisions by route table and decision kind.",
	},
	[]string{"table", "kind"},
)

// IdentityResolutions counts identity resolution outcomes.
// Label state: pending, absent or resolved.
var IdentityResolutions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "identity_resolutions_total",
		Help:      "Identity resolution outcomes.",
	},
	[]string{"state"},
)

// DataCacheRequests counts data proxy cache lookups.
// Label result: hit or miss.
var DataCacheRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "data_cache_requests_total",
		Help:      "Scoped data cache lookups by result.",
	},
	[]string{"result"},
)

// DataUpstreamErrors counts failed data API fetches.
// Label error_class: normalized error type.
var DataUpstreamErrors = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "data_upstream_errors_total",
		Help:      "Failed data API fetches by error class.",
	},
	[]string{"error_class"},
)

// ObserveUpstreamError records err under its classified type.
func ObserveUpstreamError(err error) {
	if err == nil {
		return
	}
	DataUpstreamErrors.WithLabelValues(obserrors.Classify(err)).Inc()
}
