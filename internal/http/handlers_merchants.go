package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apperrors "github.com/pigbank/console-api/internal/errors"
	"github.com/pigbank/console-api/internal/ports"
)

// MerchantHandlers serves the staff merchant directory.
type MerchantHandlers struct {
	Directory ports.MerchantDirectory
	Logger    *slog.Logger
}

// List returns merchants, optionally only approved ones.
// GET /api/staff/merchants?approved=true&q=acme&limit=50&offset=0.
func (h *MerchantHandlers) List(w http.ResponseWriter, r *http.Request) {
	if h.Directory == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusServiceUnavailable,
			ErrCode: "directory_unavailable",
			Err:     errors.New("merchant directory is not configured"),
		})
		return
	}

	limit, offset := ParseLimitOffset(r, 50, 200)
	merchants, err := h.Directory.List(r.Context(), ports.MerchantFilter{
		ApprovedOnly: parseBoolQuery(r, "approved"),
		Query:        strings.TrimSpace(r.URL.Query().Get("q")),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.ErrorContext(r.Context(), "list merchants failed", "error", err)
		}
		WriteAppError(w, err, apperrors.ErrCodeInternal)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"merchants": merchants,
		"limit":     limit,
		"offset":    offset,
	})
}
