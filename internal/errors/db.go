package errors

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// detailKey matches the column in "Key (legal_name)=(Acme) already exists.".
var detailKey = regexp.MustCompile(`Key \(([^),]+)\)=`)

// checkConstraintFields names the column each merchants CHECK constraint guards.
var checkConstraintFields = map[string]string{
	"merchants_id_format":        "id",
	"merchants_legal_name_check": "legal_name",
	"merchants_status_check":     "status",
}

// MapDBError turns merchant directory query failures into AppErrors. Errors that carry no
// database meaning come back unchanged so callers can still wrap them.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}
	wrap := func(code ErrorCode, msg, field string) error {
		return &AppError{Code: code, Message: msg, Field: field, Cause: err}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return wrap(ErrCodeTimeout, "Request timed out. Please try again.", "")
	case errors.Is(err, context.Canceled):
		return wrap(ErrCodeCanceled, "Request was canceled.", "")
	case errors.Is(err, pgx.ErrNoRows):
		return wrap(ErrCodeNotFound, "Resource not found", "")
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch {
	case pgErr.Code == pgerrcode.UniqueViolation:
		return wrap(ErrCodeConflict, "This value already exists.", uniqueViolationField(pgErr))
	case pgErr.Code == pgerrcode.CheckViolation:
		field := pgErr.ColumnName
		if field == "" {
			field = checkConstraintFields[pgErr.ConstraintName]
		}
		return wrap(ErrCodeValidation, fieldMessage(field, "has an invalid value"), field)
	case pgErr.Code == pgerrcode.NotNullViolation:
		return wrap(ErrCodeValidation, fieldMessage(pgErr.ColumnName, "is required"), pgErr.ColumnName)
	case pgErr.Code == pgerrcode.InvalidTextRepresentation:
		return wrap(ErrCodeValidation, "Malformed identifier.", "")
	case pgerrcode.IsConnectionException(pgErr.Code):
		return wrap(ErrCodeInternal, "The merchant directory is unavailable.", "")
	default:
		return wrap(ErrCodeInternal, "A database error occurred. Please try again.", "")
	}
}

func fieldMessage(field, problem string) string {
	if field == "" {
		return "Invalid data. Please check your input."
	}
	return "Field " + field + " " + problem + "."
}

// uniqueViolationField tries column metadata, then the Detail text, then the
// "<table>_<column>_key" and "<table>_pkey" naming conventions.
func uniqueViolationField(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if m := detailKey.FindStringSubmatch(pgErr.Detail); m != nil {
		return m[1]
	}
	name := pgErr.ConstraintName
	if table, ok := strings.CutSuffix(name, "_pkey"); ok && !strings.Contains(table, "_") {
		return "id"
	}
	if rest, ok := strings.CutSuffix(name, "_key"); ok {
		if parts := strings.Split(rest, "_"); len(parts) == 2 {
			return parts[1]
		}
	}
	return ""
}
