// Command console-admin runs maintenance tasks against the console's Postgres merchant
// directory and its Redis state.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pigbank/console-api/config"
	"github.com/pigbank/console-api/internal/bootstrap"
)

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultRedisTimeout     = 2 * time.Minute
	defaultQueryTimeout     = 30 * time.Second
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

type command struct {
	name    string
	summary string
	run     func(cmdCtx *commandContext, args []string) error
}

func commands() []command {
	return []command{
		{"migrate", "Run merchant directory migrations", runMigrations},
		{"db-reset", "Drop the database schema, run migrations, and optionally seed merchants", runDBReset},
		{"seed-merchants", "Upsert merchants from a JSON file (or the development fixtures)", runSeedMerchants},
		{"list-merchants", "List merchants in the directory", runListMerchants},
		{"list-views", "Inspect per-tab impersonation state stored in Redis", runListViews},
		{"clear-views", "Clear per-tab impersonation state from Redis", runClearViews},
		{"clear-data-cache", "Clear cached data-screen responses from Redis", runClearDataCache},
	}
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands() {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)) //nolint:forbidigo // exit code is the CLI contract
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	logger := bootstrap.InitLogger()

	if len(args) == 0 {
		_ = printUsage(stdout)
		return exitUsage
	}
	cmd, ok := lookupCommand(args[0])
	if !ok {
		_ = writef(stderr, "unknown command %q\n\n", args[0])
		_ = printUsage(stdout)
		return exitUsage
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.ErrorContext(ctx, "load config", "error", err)
		return exitError
	}
	bootstrap.SetLogLevel(cfg.LogLevel)

	cmdCtx := &commandContext{Ctx: ctx, Logger: logger, Config: cfg}
	if err := cmd.run(cmdCtx, args[1:]); err != nil {
		logger.ErrorContext(ctx, "command failed", "command", cmd.name, "error", err)
		return exitError
	}
	return exitOK
}

func printUsage(w io.Writer) error {
	cmds := commands()
	slices.SortFunc(cmds, func(a, b command) int { return strings.Compare(a.name, b.name) })

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	if err := writef(tw, "Usage: console-admin <command> [flags]\n\nAvailable commands:\n"); err != nil {
		return err
	}
	for _, c := range cmds {
		if err := writef(tw, "  %s\t%s\n", c.name, c.summary); err != nil {
			return err
		}
	}
	return tw.Flush()
}

type confirmRequest struct {
	In      io.Reader
	Out     io.Writer
	Action  string
	Target  string
	Warning string
	Skip    bool
}

var errAborted = errors.New("aborted by user")

// confirmAction asks for a y/yes answer on In. Anything else, including EOF, aborts.
func confirmAction(req confirmRequest) error {
	if req.Skip {
		return nil
	}
	var prompt strings.Builder
	if req.Warning != "" {
		prompt.WriteString(req.Warning + "\n")
	}
	if req.Target != "" {
		fmt.Fprintf(&prompt, "About to %s for %s.\n", req.Action, req.Target)
	}
	prompt.WriteString("Continue? [y/N]: ")
	if err := write(req.Out, prompt.String()); err != nil {
		return fmt.Errorf("print confirmation prompt: %w", err)
	}

	sc := bufio.NewScanner(req.In)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return fmt.Errorf("%w: read confirmation: %w", errAborted, err)
		}
		return errAborted
	}
	switch strings.ToLower(strings.TrimSpace(sc.Text())) {
	case "y", "yes":
		return nil
	default:
		return errAborted
	}
}

// renderTTL formats a Redis TTL reply, including its -1 and -2 sentinels.
func renderTTL(d time.Duration) string {
	switch {
	case d == -1 || d == -time.Second:
		return "no expiry"
	case d == -2 || d == -2*time.Second:
		return "key missing"
	default:
		return d.String()
	}
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func write(w io.Writer, args ...any) error {
	_, err := fmt.Fprint(w, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}
