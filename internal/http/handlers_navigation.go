package httpx

import (
	"net/http"

	"github.com/pigbank/console-api/internal/domain/navigation"
	apperrors "github.com/pigbank/console-api/internal/errors"
	"github.com/pigbank/console-api/internal/observability/metrics"
)

// NavigationHandlers answers which routes the caller may navigate and what a requested
// path resolves to.
type NavigationHandlers struct {
	validator *requestValidator
}

// NewNavigationHandlers constructs NavigationHandlers.
func NewNavigationHandlers() *NavigationHandlers {
	return &NavigationHandlers{validator: newRequestValidator()}
}

type navigationResponse struct {
	Loading       bool                 `json:"loading"`
	Table         navigation.TableKind `json:"table,omitempty"`
	Routes        []navigation.Route   `json:"routes,omitempty"`
	Decision      *navigation.Decision `json:"decision,omitempty"`
	Impersonation *bannerPayload       `json:"impersonation,omitempty"`
}

type navigateRequest struct {
	Path string `json:"path" validate:"required,startswith=/,max=2048"`
}

// Get returns the route table and the decision for ?path= without side effects.
// GET /api/navigation?path=/transactions.
func (h *NavigationHandlers) Get(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Query().Get("path")
	if p == "" {
		p = navigation.LandingPath
	}
	WriteJSON(w, http.StatusOK, h.decide(r, p, false))
}

// Navigate records an actual navigation: the decision is made, then arriving at the
// effective path may end impersonation, and the response reflects the result.
// POST /api/navigation.
func (h *NavigationHandlers) Navigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.Validate(req); err != nil {
		WriteAppError(w, err, apperrors.ErrCodeValidation)
		return
	}
	WriteJSON(w, http.StatusOK, h.decide(r, req.Path, true))
}

func (h *NavigationHandlers) decide(r *http.Request, p string, observe bool) navigationResponse {
	res, _ := GetResolutionFromContext(r.Context())
	sel := navigation.SelectRouteTable(res.State, res.Role())
	if sel.Loading {
		metrics.RouteDecisions.WithLabelValues("loading", "loading").Inc()
		return navigationResponse{Loading: true}
	}

	decision := sel.Table.Decide(p)
	metrics.RouteDecisions.WithLabelValues(string(sel.Table.Kind), string(decision.Kind)).Inc()

	if observe && decision.Kind != navigation.DecisionNotFound {
		if store, ok := GetStoreFromContext(r.Context()); ok {
			store.ObserveLocation(r.Context(), decision.EffectivePath())
		}
	}

	banner := bannerFromContext(r.Context())
	return navigationResponse{
		Table:         sel.Table.Kind,
		Routes:        sel.Table.Routes(),
		Decision:      &decision,
		Impersonation: &banner,
	}
}
