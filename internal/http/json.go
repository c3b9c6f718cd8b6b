package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/pigbank/console-api/internal/errors"
)

// maxJSONBody bounds request bodies; console requests carry a path or a merchant id.
const maxJSONBody = 64 << 10

// DecodeJSON reads one JSON object from r into dst. On failure it writes a 400
// invalid_json response and returns false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if err == nil && dec.More() {
		err = errors.New("request body must hold a single JSON object")
	}
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}
	return true
}

// WriteJSON encodes v before touching w so an encoding failure still yields a clean 500.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_, _ = w.Write(append(body, '\n'))
}

// ErrorParams describes an error response: HTTP status, machine code and message source.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes {"error": ErrCode, "message": Err}.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// WriteAppError maps err onto a status through its application error code. Errors without
// a code are reported as fallback; context errors win over both.
func WriteAppError(w http.ResponseWriter, err error, fallback apperrors.ErrorCode) {
	code := apperrors.GetCode(err)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = apperrors.ErrCodeTimeout
	case errors.Is(err, context.Canceled):
		code = apperrors.ErrCodeCanceled
	case code == "":
		code = fallback
	}

	body := map[string]string{"error": string(code), "message": publicMessage(err, code)}
	if field := apperrors.GetField(err); field != "" {
		body["field"] = field
	}
	WriteJSON(w, code.HTTPStatus(), body)
}

// publicMessage hides internal causes from clients.
func publicMessage(err error, code apperrors.ErrorCode) string {
	var appErr *apperrors.AppError
	switch {
	case code == apperrors.ErrCodeInternal:
		return "internal error"
	case code == apperrors.ErrCodeUpstream && !errors.As(err, &appErr):
		return "upstream request failed"
	case errors.As(err, &appErr):
		return appErr.Message
	default:
		return err.Error()
	}
}
