package httpx

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pigbank/console-api/internal/domain/scope"
	apperrors "github.com/pigbank/console-api/internal/errors"
	"github.com/pigbank/console-api/internal/service"
)

// DataService resolves request scopes and serves scoped data.
type DataService interface {
	ResolveScope(resource scope.Resource, sess scope.Session, params url.Values) (scope.Scope, error)
	Fetch(ctx context.Context, req service.DataRequest) (*service.DataResult, error)
}

// DataHandlers exposes the request scope resolver and the scoped data proxy.
type DataHandlers struct {
	Svc DataService
}

// Scope returns the endpoint and cache key the caller's data screens use for a resource.
// GET /api/scope/{resource}.
func (h *DataHandlers) Scope(w http.ResponseWriter, r *http.Request) {
	sc, err := h.Svc.ResolveScope(scope.Resource(r.PathValue("resource")), ScopeSessionFromContext(r.Context()),
		r.URL.Query())
	if err != nil {
		WriteAppError(w, err, apperrors.ErrCodeValidation)
		return
	}
	WriteJSON(w, http.StatusOK, sc)
}

// Data proxies the scoped data request and returns the upstream body unchanged.
// GET /api/data/{resource}.
func (h *DataHandlers) Data(w http.ResponseWriter, r *http.Request) {
	sess := GetSessionFromContext(r.Context())
	if sess == nil {
		WriteAppError(w, apperrors.Unauthorized("authentication required"), apperrors.ErrCodeUnauthorized)
		return
	}

	res, err := h.Svc.Fetch(r.Context(), service.DataRequest{
		Principal: sess.UserID,
		Session:   ScopeSessionFromContext(r.Context()),
		Resource:  scope.Resource(r.PathValue("resource")),
		Params:    r.URL.Query(),
		Creds:     GetCredentialsFromContext(r.Context()),
	})
	if err != nil {
		WriteAppError(w, err, apperrors.ErrCodeUpstream)
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "application/json")
	hdr.Set("Cache-Control", "private, no-store")
	hdr.Set("X-Console-Scope", string(res.Scope.Mode))
	if res.Scope.MerchantID != "" {
		hdr.Set("X-Console-Merchant", res.Scope.MerchantID)
	}
	hdr.Set("X-Console-Cache", strconv.FormatBool(res.Cached))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Body)
}
