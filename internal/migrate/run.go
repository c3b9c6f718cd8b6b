// Package migrate applies the embedded merchant directory schema.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/pigbank/console-api/internal/data/pgxutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// lockKey serializes migrations across console replicas starting together.
const lockKey int64 = 0x636f6e736f6c65

const createVersionsTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

type migration struct {
	version string
	file    string
}

// Run applies every pending migration. It is safe to call repeatedly and concurrently.
func Run(ctx context.Context, db *sql.DB) error {
	_, err := Apply(ctx, db)
	return err
}

// Apply applies pending migrations in version order and returns the versions it applied.
// Each migration runs in its own transaction together with its bookkeeping row.
func Apply(ctx context.Context, db *sql.DB) ([]string, error) {
	all, err := embedded()
	if err != nil {
		return nil, err
	}

	var applied []string
	err = pgxutil.WithPgxConn(ctx, db, func(conn *pgx.Conn) error {
		if _, lockErr := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", lockKey); lockErr != nil {
			return fmt.Errorf("acquire migration lock: %w", lockErr)
		}
		defer func() {
			// The lock is session scoped; release it even if ctx is already done.
			_, _ = conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", lockKey)
		}()

		if _, execErr := conn.Exec(ctx, createVersionsTable); execErr != nil {
			return fmt.Errorf("create schema_migrations table: %w", execErr)
		}
		done, loadErr := appliedVersions(ctx, conn)
		if loadErr != nil {
			return loadErr
		}

		logger := slog.Default().With("component", "migrations")
		for _, m := range all {
			if _, ok := done[m.version]; ok {
				continue
			}
			logger.InfoContext(ctx, "applying migration", "version", m.version)
			if applyErr := applyOne(ctx, conn, m); applyErr != nil {
				return applyErr
			}
			applied = append(applied, m.version)
		}
		return nil
	})
	if err != nil {
		return applied, err
	}
	return applied, nil
}

// Pending lists embedded migrations that have not been applied yet. A database that has
// never been migrated reports every migration as pending.
func Pending(ctx context.Context, db *sql.DB) ([]string, error) {
	all, err := embedded()
	if err != nil {
		return nil, err
	}

	var pending []string
	err = pgxutil.WithPgxConn(ctx, db, func(conn *pgx.Conn) error {
		var exists bool
		if scanErr := conn.QueryRow(ctx,
			"SELECT to_regclass('schema_migrations') IS NOT NULL").Scan(&exists); scanErr != nil {
			return fmt.Errorf("check schema_migrations table: %w", scanErr)
		}
		done := map[string]struct{}{}
		if exists {
			var loadErr error
			if done, loadErr = appliedVersions(ctx, conn); loadErr != nil {
				return loadErr
			}
		}
		for _, m := range all {
			if _, ok := done[m.version]; !ok {
				pending = append(pending, m.version)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pending, nil
}

func embedded() ([]migration, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	out := make([]migration, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || path.Ext(name) != ".sql" {
			continue
		}
		out = append(out, migration{version: strings.TrimSuffix(name, ".sql"), file: name})
	}
	slices.SortFunc(out, func(a, b migration) int { return strings.Compare(a.version, b.version) })
	return out, nil
}

func appliedVersions(ctx context.Context, conn *pgx.Conn) (map[string]struct{}, error) {
	rows, err := conn.Query(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("load applied migrations: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("load applied migrations: %w", err)
	}
	done := make(map[string]struct{}, len(versions))
	for _, v := range versions {
		done[v] = struct{}{}
	}
	return done, nil
}

func applyOne(ctx context.Context, conn *pgx.Conn, m migration) error {
	body, err := migrationsFS.ReadFile("migrations/" + m.file)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", m.file, err)
	}
	return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		if _, execErr := tx.Exec(ctx, string(body)); execErr != nil {
			return fmt.Errorf("exec migration %s: %w", m.file, execErr)
		}
		if _, execErr := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", m.version); execErr != nil {
			return fmt.Errorf("record migration %s: %w", m.file, execErr)
		}
		return nil
	})
}
