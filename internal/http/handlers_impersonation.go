package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pigbank/console-api/internal/domain/impersonation"
	apperrors "github.com/pigbank/console-api/internal/errors"
	"github.com/pigbank/console-api/internal/ports"
)

// ImpersonationHandlers serves the "viewing as merchant" banner and its transitions.
type ImpersonationHandlers struct {
	// Directory is optional; without it, enter requests carry the display names.
	Directory ports.MerchantDirectory
	Logger    *slog.Logger

	validator *requestValidator
}

// NewImpersonationHandlers constructs ImpersonationHandlers.
func NewImpersonationHandlers(dir ports.MerchantDirectory, logger *slog.Logger) *ImpersonationHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImpersonationHandlers{Directory: dir, Logger: logger, validator: newRequestValidator()}
}

type targetPayload struct {
	MerchantID  string `json:"merchant_id"`
	LegalName   string `json:"legal_name,omitempty"`
	TradeName   string `json:"trade_name,omitempty"`
	DisplayName string `json:"display_name"`
}

// bannerPayload is the overlay signal: the banner shows exactly when impersonating is true.
type bannerPayload struct {
	Initialized   bool           `json:"initialized"`
	Impersonating bool           `json:"impersonating"`
	Target        *targetPayload `json:"target,omitempty"`
}

func bannerFromContext(ctx context.Context) bannerPayload {
	sess := ScopeSessionFromContext(ctx)
	out := bannerPayload{Initialized: sess.Initialized}
	if t, ok := sess.Target(); ok {
		out.Impersonating = true
		out.Target = &targetPayload{
			MerchantID:  t.MerchantID,
			LegalName:   t.LegalName,
			TradeName:   t.TradeName,
			DisplayName: t.DisplayName(),
		}
	}
	return out
}

// Banner returns the current impersonation state.
// GET /api/impersonation.
func (h *ImpersonationHandlers) Banner(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, bannerFromContext(r.Context()))
}

type enterRequest struct {
	MerchantID string `json:"merchant_id" validate:"required,max=64"`
	LegalName  string `json:"legal_name"  validate:"max=200"`
	TradeName  string `json:"trade_name"  validate:"max=200"`
}

// Enter starts viewing as a merchant. Staff only.
// POST /api/staff/impersonation.
func (h *ImpersonationHandlers) Enter(w http.ResponseWriter, r *http.Request) {
	store, ok := GetStoreFromContext(r.Context())
	if !ok {
		WriteAppError(w, apperrors.Forbidden("no view session"), apperrors.ErrCodeForbidden)
		return
	}

	var req enterRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.MerchantID = strings.TrimSpace(req.MerchantID)
	if err := h.validator.Validate(req); err != nil {
		WriteAppError(w, err, apperrors.ErrCodeValidation)
		return
	}
	if !impersonation.ValidMerchantID(req.MerchantID) {
		WriteAppError(w, apperrors.ValidationField("merchant_id", "Invalid merchant id."), apperrors.ErrCodeValidation)
		return
	}

	target, err := h.resolveTarget(r.Context(), req)
	if err != nil {
		WriteAppError(w, err, apperrors.ErrCodeInternal)
		return
	}

	if !store.Enter(r.Context(), target) {
		WriteError(w, ErrorParams{
			Code:    http.StatusForbidden,
			ErrCode: "impersonation_refused",
			Err:     errors.New("impersonation refused"),
		})
		return
	}
	WriteJSON(w, http.StatusOK, bannerFromContext(r.Context()))
}

func (h *ImpersonationHandlers) resolveTarget(ctx context.Context, req enterRequest) (impersonation.Target, error) {
	if h.Directory == nil {
		return impersonation.Target{
			MerchantID: req.MerchantID,
			LegalName:  strings.TrimSpace(req.LegalName),
			TradeName:  strings.TrimSpace(req.TradeName),
		}, nil
	}
	m, err := h.Directory.GetByID(ctx, req.MerchantID)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			h.Logger.ErrorContext(ctx, "merchant lookup failed", "merchant_id", req.MerchantID, "error", err)
		}
		return impersonation.Target{}, err
	}
	return m.Target(), nil
}

// Exit stops viewing as a merchant. Idempotent.
// DELETE /api/impersonation.
func (h *ImpersonationHandlers) Exit(w http.ResponseWriter, r *http.Request) {
	if store, ok := GetStoreFromContext(r.Context()); ok {
		store.Exit(r.Context())
	}
	WriteJSON(w, http.StatusOK, bannerFromContext(r.Context()))
}
