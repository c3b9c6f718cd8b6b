package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/pigbank/console-api/internal/errors"
)

func TestWriteAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		fallback apperrors.ErrorCode
		status   int
		body     map[string]string
	}{
		{
			name:     "validation keeps field",
			err:      apperrors.ValidationField("merchant_id", "Merchant id is required."),
			fallback: apperrors.ErrCodeInternal,
			status:   http.StatusBadRequest,
			body:     map[string]string{"error": "validation", "message": "Merchant id is required.", "field": "merchant_id"},
		},
		{
			name:     "wrapped not found",
			err:      fmt.Errorf("lookup: %w", apperrors.NotFoundf("Merchant %s not found.", "m-2")),
			fallback: apperrors.ErrCodeInternal,
			status:   http.StatusNotFound,
			body:     map[string]string{"error": "not_found", "message": "Merchant m-2 not found."},
		},
		{
			name:     "plain error uses fallback without leaking",
			err:      errors.New("dial tcp 10.0.0.1:443: refused"),
			fallback: apperrors.ErrCodeUpstream,
			status:   http.StatusBadGateway,
			body:     map[string]string{"error": "upstream", "message": "upstream request failed"},
		},
		{
			name:     "internal hides message",
			err:      errors.New("pq: syntax error"),
			fallback: apperrors.ErrCodeInternal,
			status:   http.StatusInternalServerError,
			body:     map[string]string{"error": "internal", "message": "internal error"},
		},
		{
			name:     "deadline wins",
			err:      fmt.Errorf("fetch: %w", context.DeadlineExceeded),
			fallback: apperrors.ErrCodeUpstream,
			status:   http.StatusGatewayTimeout,
			body:     map[string]string{"error": "timeout", "message": "fetch: context deadline exceeded"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteAppError(rec, tt.err, tt.fallback)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.body, decodeBody[map[string]string](t, rec))
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Path string `json:"path"`
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"path":"/staff"}`))
	assert.True(t, DecodeJSON(rec, req, &dst))
	assert.Equal(t, "/staff", dst.Path)

	for name, body := range map[string]string{
		"unknown field": `{"path":"/","extra":1}`,
		"malformed":     `{"path":`,
		"too large":     `{"path":"` + strings.Repeat("a", 70<<10) + `"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
			assert.False(t, DecodeJSON(rec, req, &dst))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "invalid_json", decodeBody[map[string]string](t, rec)["error"])
		})
	}
}
