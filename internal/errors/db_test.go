package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapDBError(t *testing.T) {
	pg := func(code string, mutate func(*pgconn.PgError)) *pgconn.PgError {
		e := &pgconn.PgError{Code: code}
		if mutate != nil {
			mutate(e)
		}
		return e
	}

	tests := []struct {
		name      string
		err       error
		wantCode  ErrorCode
		wantField string
	}{
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout, ""},
		{"canceled while querying", fmt.Errorf("query: %w", context.Canceled), ErrCodeCanceled, ""},
		{"no rows", fmt.Errorf("get merchant: %w", pgx.ErrNoRows), ErrCodeNotFound, ""},
		{"unique column", pg(pgerrcode.UniqueViolation, func(e *pgconn.PgError) { e.ColumnName = "id" }), ErrCodeConflict, "id"},
		{"unique detail", pg(pgerrcode.UniqueViolation, func(e *pgconn.PgError) {
			e.Detail = "Key (legal_name)=(Acme) already exists."
		}), ErrCodeConflict, "legal_name"},
		{"unique composite detail", pg(pgerrcode.UniqueViolation, func(e *pgconn.PgError) {
			e.Detail = "Key (legal_name, status)=(Acme, active) already exists."
		}), ErrCodeConflict, ""},
		{"primary key", pg(pgerrcode.UniqueViolation, func(e *pgconn.PgError) { e.ConstraintName = "merchants_pkey" }), ErrCodeConflict, "id"},
		{"single column key", pg(pgerrcode.UniqueViolation, func(e *pgconn.PgError) { e.ConstraintName = "merchants_email_key" }), ErrCodeConflict, "email"},
		{"multi column key", pg(pgerrcode.UniqueViolation, func(e *pgconn.PgError) {
			e.ConstraintName = "merchants_legal_name_status_key"
		}), ErrCodeConflict, ""},
		{"named check", pg(pgerrcode.CheckViolation, func(e *pgconn.PgError) { e.ConstraintName = "merchants_status_check" }), ErrCodeValidation, "status"},
		{"unknown check", pg(pgerrcode.CheckViolation, func(e *pgconn.PgError) { e.ConstraintName = "other_check" }), ErrCodeValidation, ""},
		{"not null", pg(pgerrcode.NotNullViolation, func(e *pgconn.PgError) { e.ColumnName = "legal_name" }), ErrCodeValidation, "legal_name"},
		{"bad text", pg(pgerrcode.InvalidTextRepresentation, nil), ErrCodeValidation, ""},
		{"connection", pg(pgerrcode.ConnectionFailure, nil), ErrCodeInternal, ""},
		{"deadlock", pg(pgerrcode.DeadlockDetected, nil), ErrCodeInternal, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(tt.err)
			assert.Equal(t, tt.wantCode, GetCode(err))
			assert.Equal(t, tt.wantField, GetField(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestMapDBError_Passthrough(t *testing.T) {
	assert.NoError(t, MapDBError(nil))

	orig := errors.New("connection refused")
	err := MapDBError(orig)
	assert.Same(t, orig, err)
	assert.Empty(t, GetCode(err))
}

func TestMapDBError_Messages(t *testing.T) {
	var appErr *AppError
	err := MapDBError(&pgconn.PgError{Code: pgerrcode.NotNullViolation, ColumnName: "legal_name"})
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "Field legal_name is required.", appErr.Message)

	err = MapDBError(&pgconn.PgError{Code: pgerrcode.CheckViolation})
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "Invalid data. Please check your input.", appErr.Message)
}
