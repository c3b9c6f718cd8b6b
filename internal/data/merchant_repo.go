package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pigbank/console-api/internal/data/pgxutil"
	"github.com/pigbank/console-api/internal/domain/impersonation"
	apperrors "github.com/pigbank/console-api/internal/errors"
	"github.com/pigbank/console-api/internal/ports"
)

const (
	defaultMerchantLimit = 50
	maxMerchantLimit     = 200
	merchantColumns      = "id, legal_name, trade_name, status, created_at"
)

// MerchantRepo provides database operations for the merchant directory.
type MerchantRepo struct {
	DB  *sql.DB
	now func() time.Time
}

var _ ports.MerchantDirectory = (*MerchantRepo)(nil)

// NewMerchantRepo creates a MerchantRepo using the wall clock.
func NewMerchantRepo(db *sql.DB) *MerchantRepo {
	return &MerchantRepo{DB: db, now: time.Now}
}

// NewMerchantRepoWithClock creates a MerchantRepo with a custom clock (useful for tests).
func NewMerchantRepoWithClock(db *sql.DB, now func() time.Time) *MerchantRepo {
	return &MerchantRepo{DB: db, now: now}
}

// List returns merchants newest first. Query matches legal or trade name, case-insensitively.
func (r *MerchantRepo) List(ctx context.Context, filter ports.MerchantFilter) ([]impersonation.Merchant, error) {
	query, args := buildMerchantListQuery(filter)

	var out []impersonation.Merchant
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectRows(rows, pgx.RowToStructByName[impersonation.Merchant])
		return err
	}); err != nil {
		return nil, fmt.Errorf("failed to list merchants: %w", apperrors.MapDBError(err))
	}
	if out == nil {
		out = []impersonation.Merchant{}
	}
	return out, nil
}

// GetByID retrieves a merchant by id.
func (r *MerchantRepo) GetByID(ctx context.Context, id string) (*impersonation.Merchant, error) {
	if !impersonation.ValidMerchantID(id) {
		return nil, apperrors.ValidationField("merchant_id", "Invalid merchant id.")
	}

	var out impersonation.Merchant
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, "SELECT "+merchantColumns+" FROM merchants WHERE id = $1", id)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[impersonation.Merchant])
		return err
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundf("Merchant %s not found.", id)
		}
		return nil, fmt.Errorf("failed to get merchant by ID: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// Upsert inserts or updates merchants in one transaction. Existing rows keep created_at.
func (r *MerchantRepo) Upsert(ctx context.Context, merchants []impersonation.Merchant) error {
	for _, m := range merchants {
		if !impersonation.ValidMerchantID(m.ID) {
			return apperrors.ValidationField("id", fmt.Sprintf("Invalid merchant id %q.", m.ID))
		}
		if strings.TrimSpace(m.LegalName) == "" {
			return apperrors.ValidationField("legal_name", "Legal name is required.")
		}
		if m.Status != "" && !m.Status.Valid() {
			return apperrors.ValidationField("status", fmt.Sprintf("Unknown merchant status %q.", m.Status))
		}
	}

	now := r.now().UTC()
	err := pgxutil.WithPgxTx(ctx, r.DB, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, m := range merchants {
			status := m.Status
			if status == "" {
				status = impersonation.MerchantStatusPending
			}
			createdAt := m.CreatedAt
			if createdAt.IsZero() {
				createdAt = now
			}
			batch.Queue(`
				INSERT INTO merchants (id, legal_name, trade_name, status, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (id) DO UPDATE SET
					legal_name = EXCLUDED.legal_name,
					trade_name = EXCLUDED.trade_name,
					status     = EXCLUDED.status,
					updated_at = EXCLUDED.updated_at`,
				m.ID, strings.TrimSpace(m.LegalName), strings.TrimSpace(m.TradeName), string(status), createdAt, now,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("failed to upsert merchants: %w", apperrors.MapDBError(err))
	}
	return nil
}

func buildMerchantListQuery(filter ports.MerchantFilter) (string, []any) {
	limit := filter.Limit
	switch {
	case limit <= 0:
		limit = defaultMerchantLimit
	case limit > maxMerchantLimit:
		limit = maxMerchantLimit
	}
	offset := max(filter.Offset, 0)

	var (
		where []string
		args  []any
	)
	if filter.ApprovedOnly {
		args = append(args, string(impersonation.MerchantStatusApproved))
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		n := strconv.Itoa(len(args))
		where = append(where, "(legal_name ILIKE $"+n+" OR trade_name ILIKE $"+n+" OR id = $"+
			strconv.Itoa(len(args)+1)+")")
		args = append(args, q)
	}

	var b strings.Builder
	b.WriteString("SELECT " + merchantColumns + " FROM merchants")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	args = append(args, limit, offset)
	b.WriteString(" ORDER BY created_at DESC, id ASC LIMIT $" + strconv.Itoa(len(args)-1) +
		" OFFSET $" + strconv.Itoa(len(args)))
	return b.String(), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
