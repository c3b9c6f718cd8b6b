package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pigbank/console-api/internal/bootstrap"
	"github.com/pigbank/console-api/internal/data"
	"github.com/pigbank/console-api/internal/domain/impersonation"
	"github.com/pigbank/console-api/internal/ports"
)

type migrateOptions struct {
	Timeout time.Duration
	Status  bool
}

type dbResetOptions struct {
	Timeout     time.Duration
	Yes         bool
	Seed        bool
	AllowRemote bool
}

type seedOptions struct {
	Timeout     time.Duration
	File        string
	AllowRemote bool
}

type listMerchantsOptions struct {
	Approved bool
	Query    string
	Limit    int
	Offset   int
	JSON     bool
}

// devMerchants seeds local environments so staff can try impersonation without a directory import.
func devMerchants() []impersonation.Merchant {
	return []impersonation.Merchant{
		{ID: "m-1001", LegalName: "Acme Corporation Ltd", TradeName: "Acme Corp", Status: impersonation.MerchantStatusApproved},
		{ID: "m-1002", LegalName: "Globex Holdings plc", TradeName: "Globex", Status: impersonation.MerchantStatusApproved},
		{ID: "m-1003", LegalName: "Initech Payments Ltd", Status: impersonation.MerchantStatusPending},
		{ID: "m-1004", LegalName: "Umbrella Retail Ltd", TradeName: "Umbrella", Status: impersonation.MerchantStatusRejected},
	}
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		if opts.Status {
			pending, pendingErr := bootstrap.PendingMigrations(ctx, db)
			if pendingErr != nil {
				return pendingErr
			}
			return printPendingMigrations(os.Stdout, pending)
		}

		cmdCtx.Logger.Info("running database migrations")
		if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return migrateErr
		}
		cmdCtx.Logger.Info("migrations completed successfully")
		return nil
	})
}

func printPendingMigrations(w io.Writer, pending []string) error {
	if len(pending) == 0 {
		return writeln(w, "Schema is up to date.")
	}
	if err := writef(w, "Pending migrations (%d):\n", len(pending)); err != nil {
		return err
	}
	for _, v := range pending {
		if err := writef(w, "  %s\n", v); err != nil {
			return err
		}
	}
	return nil
}

func runDBReset(cmdCtx *commandContext, args []string) error {
	opts, err := parseDBResetFlags(args)
	if err != nil {
		return err
	}

	pg := cmdCtx.Config.Postgres
	remote, err := guardRemoteHost(cmdCtx, opts.AllowRemote, "drop and recreate the public schema")
	if err != nil {
		return err
	}
	confirm := confirmRequest{
		In:      os.Stdin,
		Out:     os.Stdout,
		Action:  "reset database schema",
		Target:  fmt.Sprintf("database %q on %s:%d", pg.Name, pg.Host, pg.Port),
		Warning: "WARNING: this will drop and recreate the public schema for the configured database.",
		Skip:    opts.Yes && !remote,
	}
	if confirmErr := confirmAction(confirm); confirmErr != nil {
		return confirmErr
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		cmdCtx.Logger.Info("dropping public schema", "database", pg.Name)
		if resetErr := cmdCtx.resetDatabase(ctx, db); resetErr != nil {
			return resetErr
		}

		cmdCtx.Logger.Info("re-running database migrations")
		if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return migrateErr
		}

		if opts.Seed {
			if seedErr := seedMerchants(ctx, data.NewMerchantRepo(db), devMerchants()); seedErr != nil {
				return seedErr
			}
			cmdCtx.Logger.Info("seeded development merchants", "count", len(devMerchants()))
		}

		cmdCtx.Logger.Info("database reset completed successfully")
		return nil
	})
}

func runSeedMerchants(cmdCtx *commandContext, args []string) error {
	opts, err := parseSeedFlags(args)
	if err != nil {
		return err
	}

	merchants := devMerchants()
	if opts.File != "" {
		f, openErr := os.Open(opts.File)
		if openErr != nil {
			return fmt.Errorf("open merchants file: %w", openErr)
		}
		defer func() { _ = f.Close() }()
		merchants, err = decodeMerchants(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", opts.File, err)
		}
	}

	action := "seed development merchants on the configured database"
	if opts.File != "" {
		action = "upsert merchants from " + opts.File
	}
	if _, guardErr := guardRemoteHost(cmdCtx, opts.AllowRemote, action); guardErr != nil {
		return guardErr
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		if migrateErr := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); migrateErr != nil {
			return migrateErr
		}
		if seedErr := seedMerchants(ctx, data.NewMerchantRepo(db), merchants); seedErr != nil {
			return seedErr
		}
		cmdCtx.Logger.Info("merchants upserted", "count", len(merchants))
		return nil
	})
}

type merchantUpserter interface {
	Upsert(ctx context.Context, merchants []impersonation.Merchant) error
}

func seedMerchants(ctx context.Context, repo merchantUpserter, merchants []impersonation.Merchant) error {
	if len(merchants) == 0 {
		return errors.New("no merchants to seed")
	}
	if err := repo.Upsert(ctx, merchants); err != nil {
		return fmt.Errorf("upsert merchants: %w", err)
	}
	return nil
}

// decodeMerchants accepts either a JSON array of merchants or an object with a "merchants" array.
func decodeMerchants(r io.Reader) ([]impersonation.Merchant, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, errors.New("empty merchants file")
	}

	var merchants []impersonation.Merchant
	if strings.HasPrefix(trimmed, "{") {
		var wrapper struct {
			Merchants []impersonation.Merchant `json:"merchants"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return nil, fmt.Errorf("decode merchants: %w", err)
		}
		merchants = wrapper.Merchants
	} else if err := json.Unmarshal(raw, &merchants); err != nil {
		return nil, fmt.Errorf("decode merchants: %w", err)
	}

	seen := make(map[string]struct{}, len(merchants))
	for i, m := range merchants {
		if !impersonation.ValidMerchantID(m.ID) {
			return nil, fmt.Errorf("merchant %d: invalid id %q", i, m.ID)
		}
		if _, dup := seen[m.ID]; dup {
			return nil, fmt.Errorf("merchant %d: duplicate id %q", i, m.ID)
		}
		seen[m.ID] = struct{}{}
	}
	return merchants, nil
}

func runListMerchants(cmdCtx *commandContext, args []string) error {
	opts, err := parseListMerchantsFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultQueryTimeout, func(ctx context.Context, db *sql.DB) error {
		merchants, listErr := data.NewMerchantRepo(db).List(ctx, ports.MerchantFilter{
			ApprovedOnly: opts.Approved,
			Query:        opts.Query,
			Limit:        opts.Limit,
			Offset:       opts.Offset,
		})
		if listErr != nil {
			return listErr
		}
		if opts.JSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(merchants)
		}
		return renderMerchants(os.Stdout, merchants)
	})
}

func renderMerchants(w io.Writer, merchants []impersonation.Merchant) error {
	if len(merchants) == 0 {
		return writeln(w, "(no merchants found)")
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writeln(tw, "ID\tLEGAL NAME\tTRADE NAME\tSTATUS\tCREATED"); err != nil {
		return err
	}
	for _, m := range merchants {
		trade := m.TradeName
		if trade == "" {
			trade = "-"
		}
		if err := writef(tw, "%s\t%s\t%s\t%s\t%s\n",
			m.ID, m.LegalName, trade, m.Status, m.CreatedAt.UTC().Format(time.RFC3339)); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return writef(w, "\nTotal merchants: %d\n", len(merchants))
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := migrateOptions{}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout,
		"Maximum duration to wait for migrations to complete")
	fs.BoolVar(&opts.Status, "status", false, "List pending migrations without applying them")

	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}
	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseDBResetFlags(args []string) (dbResetOptions, error) {
	fs := flag.NewFlagSet("db-reset", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := dbResetOptions{}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout,
		"Maximum duration to wait for reset operations to complete")
	fs.BoolVar(&opts.Yes, "yes", false, "Skip confirmation prompt")
	fs.BoolVar(&opts.Seed, "seed", false, "Seed development merchants after reset completes")
	fs.BoolVar(&opts.AllowRemote, "allow-remote", false,
		"Permit running against database hosts that do not look local")

	if err := fs.Parse(args); err != nil {
		return dbResetOptions{}, err
	}
	if opts.Timeout <= 0 {
		return dbResetOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseSeedFlags(args []string) (seedOptions, error) {
	fs := flag.NewFlagSet("seed-merchants", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := seedOptions{}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout,
		"Maximum duration to wait for seeding to complete")
	fs.StringVar(&opts.File, "file", "", "JSON file of merchants to upsert (defaults to development fixtures)")
	fs.BoolVar(&opts.AllowRemote, "allow-remote", false,
		"Permit running against database hosts that do not look local")

	if err := fs.Parse(args); err != nil {
		return seedOptions{}, err
	}
	if opts.Timeout <= 0 {
		return seedOptions{}, errors.New("--timeout must be greater than zero")
	}
	opts.File = strings.TrimSpace(opts.File)
	return opts, nil
}

func parseListMerchantsFlags(args []string) (listMerchantsOptions, error) {
	fs := flag.NewFlagSet("list-merchants", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := listMerchantsOptions{}
	fs.BoolVar(&opts.Approved, "approved", false, "Only list approved merchants")
	fs.StringVar(&opts.Query, "query", "", "Match legal name, trade name or exact id")
	fs.IntVar(&opts.Limit, "limit", 50, "Maximum merchants to list (max 200)")
	fs.IntVar(&opts.Offset, "offset", 0, "Number of merchants to skip")
	fs.BoolVar(&opts.JSON, "json", false, "Print merchants as JSON")

	if err := fs.Parse(args); err != nil {
		return listMerchantsOptions{}, err
	}
	if opts.Limit <= 0 {
		return listMerchantsOptions{}, errors.New("--limit must be greater than zero")
	}
	if opts.Offset < 0 {
		return listMerchantsOptions{}, errors.New("--offset must not be negative")
	}
	return opts, nil
}

func guardRemoteHost(cmdCtx *commandContext, allow bool, action string) (bool, error) {
	host := cmdCtx.Config.Postgres.Host
	if !isLikelyRemoteHost(host) {
		return false, nil
	}
	if !allow {
		return true, fmt.Errorf(
			"refusing to run against potentially remote database host %q; re-run with --allow-remote if this is intentional",
			host,
		)
	}
	return true, requireRemoteHostConfirmation(os.Stdin, os.Stderr, action, host)
}

func (cmdCtx *commandContext) resetDatabase(ctx context.Context, db *sql.DB) error {
	for _, stmt := range resetStatements(cmdCtx.Config.Postgres.User) {
		cmdCtx.Logger.DebugContext(ctx, "executing reset statement", "sql", stmt)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

func resetStatements(user string) []string {
	statements := []string{
		"DROP SCHEMA public CASCADE",
		"CREATE SCHEMA public",
		"GRANT ALL ON SCHEMA public TO public",
	}
	if u := strings.TrimSpace(user); u != "" && !strings.EqualFold(u, "public") {
		statements = append(statements, "GRANT ALL ON SCHEMA public TO "+quoteIdentifier(u))
	}
	return statements
}

func quoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func isLikelyRemoteHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	switch {
	case h == "", h == "localhost", strings.HasSuffix(h, ".local"):
		return false
	}
	if ip := net.ParseIP(h); ip != nil {
		return !ip.IsLoopback()
	}
	return true
}

func requireRemoteHostConfirmation(in io.Reader, out io.Writer, action, host string) error {
	if err := writef(out,
		"\nWARNING: database host %q does not look like a local address.\nThis operation will %s.\n",
		host, action); err != nil {
		return fmt.Errorf("print remote host warning: %w", err)
	}
	if err := writef(out, "Type %q to continue or press enter to abort: ", host); err != nil {
		return fmt.Errorf("print remote host prompt: %w", err)
	}
	sc := bufio.NewScanner(in)
	if sc.Scan() && strings.TrimSpace(sc.Text()) == host {
		return nil
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%w: read confirmation: %w", errAborted, err)
	}
	if err := writeln(out, "\nRemote safeguard check failed; aborting."); err != nil {
		return fmt.Errorf("print remote safeguard failure: %w", err)
	}
	return errAborted
}
