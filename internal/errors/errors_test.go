package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err:  &AppError{Code: ErrCodeNotFound, Message: "merchant not found"},
			want: "merchant not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeInternal,
				Message: "failed to list merchants",
				Cause:   errors.New("underlying error"),
			},
			want: "failed to list merchants: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, ErrCodeUpstream, "data api failed")

	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(Wrap(cause), cause) = false")
	}
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Errorf("Wrap(nil) should be nil")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code ErrorCode
		msg  string
	}{
		{"NotFound", NotFound("gone"), ErrCodeNotFound, "gone"},
		{"NotFoundf", NotFoundf("Merchant %s not found.", "m-1"), ErrCodeNotFound, "Merchant m-1 not found."},
		{"Validation", Validation("bad"), ErrCodeValidation, "bad"},
		{"Unauthorized", Unauthorized("who"), ErrCodeUnauthorized, "who"},
		{"Forbidden", Forbidden("staff only"), ErrCodeForbidden, "staff only"},
		{"Wrap", Wrap(errors.New("x"), ErrCodeUpstream, "fetch team"), ErrCodeUpstream, "fetch team"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.code)
			}
			if tt.err.Message != tt.msg {
				t.Errorf("Message = %q, want %q", tt.err.Message, tt.msg)
			}
		})
	}

	f := ValidationField("merchant_id", "required")
	if f.Field != "merchant_id" || !IsValidation(f) {
		t.Errorf("ValidationField() = %+v", f)
	}
}

func TestPredicatesThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", Forbidden("staff only"))

	if IsNotFound(wrapped) || IsValidation(wrapped) {
		t.Errorf("wrapped forbidden matched another code")
	}
	if GetCode(wrapped) != ErrCodeForbidden {
		t.Errorf("GetCode(wrapped) = %v", GetCode(wrapped))
	}
	if GetCode(errors.New("plain")) != "" || GetField(errors.New("plain")) != "" {
		t.Errorf("plain errors carry no code or field")
	}
	if GetField(fmt.Errorf("bind: %w", ValidationField("limit", "too big"))) != "limit" {
		t.Errorf("GetField through wrapping")
	}
}

func TestErrorCode_HTTPStatus(t *testing.T) {
	tests := map[ErrorCode]int{
		ErrCodeNotFound:     http.StatusNotFound,
		ErrCodeConflict:     http.StatusConflict,
		ErrCodeValidation:   http.StatusBadRequest,
		ErrCodeUnauthorized: http.StatusUnauthorized,
		ErrCodeForbidden:    http.StatusForbidden,
		ErrCodeUpstream:     http.StatusBadGateway,
		ErrCodeTimeout:      http.StatusGatewayTimeout,
		ErrCodeCanceled:     499,
		ErrCodeInternal:     http.StatusInternalServerError,
		"":                  http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := code.HTTPStatus(); got != want {
			t.Errorf("%q.HTTPStatus() = %d, want %d", code, got, want)
		}
	}
}
