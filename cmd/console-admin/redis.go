package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"

	redisstore "github.com/pigbank/console-api/internal/adapters/redis"
	"github.com/pigbank/console-api/internal/domain/impersonation"
)

const (
	viewKeyPrefix      = "view:"
	dataCacheKeyPrefix = "cache:data:"
	scanBatchSize      = 100
	deleteBatchSize    = 500
)

type viewsOptions struct {
	SessionID string
	All       bool
	DryRun    bool
	Yes       bool
}

type dataCacheOptions struct {
	Principal string
	All       bool
	DryRun    bool
	Yes       bool
}

type viewEntry struct {
	Key       string
	SessionID string
	TabID     string
	Target    string
	TTL       time.Duration
}

func (o viewsOptions) pattern() string {
	if o.SessionID == "" {
		return viewKeyPrefix + "*"
	}
	return viewKeyPrefix + o.SessionID + ":*"
}

func (o dataCacheOptions) pattern() string {
	if o.Principal == "" {
		return dataCacheKeyPrefix + "*"
	}
	return dataCacheKeyPrefix + o.Principal + ":*"
}

func runListViews(cmdCtx *commandContext, args []string) error {
	opts, err := parseViewsFlags("list-views", args, false)
	if err != nil {
		return err
	}

	return withRedis(cmdCtx, defaultRedisTimeout, func(ctx context.Context, client redis.UniversalClient) error {
		cmdCtx.Logger.Info("scanning redis", "pattern", opts.pattern())
		entries, scanErr := collectViews(ctx, client, opts.pattern())
		if scanErr != nil {
			return scanErr
		}
		return renderViews(os.Stdout, entries)
	})
}

func runClearViews(cmdCtx *commandContext, args []string) error {
	opts, err := parseViewsFlags("clear-views", args, true)
	if err != nil {
		return err
	}
	target := "every session"
	if opts.SessionID != "" {
		target = fmt.Sprintf("session %q", opts.SessionID)
	}
	if confirmErr := confirmAction(confirmRequest{
		In:      os.Stdin,
		Out:     os.Stdout,
		Action:  "clear impersonation state",
		Target:  target,
		Warning: "WARNING: staff tabs in the affected sessions will return to their own view.",
		Skip:    opts.DryRun || opts.Yes,
	}); confirmErr != nil {
		return confirmErr
	}

	return withRedis(cmdCtx, defaultRedisTimeout, func(ctx context.Context, client redis.UniversalClient) error {
		n, delErr := deleteMatching(ctx, client, opts.pattern(), opts.DryRun)
		if delErr != nil {
			return delErr
		}
		return printDeleteSummary(os.Stdout, "view", n, opts.DryRun)
	})
}

func runClearDataCache(cmdCtx *commandContext, args []string) error {
	opts, err := parseDataCacheFlags(args)
	if err != nil {
		return err
	}
	target := "every principal"
	if opts.Principal != "" {
		target = fmt.Sprintf("principal %q", opts.Principal)
	}
	if confirmErr := confirmAction(confirmRequest{
		In:     os.Stdin,
		Out:    os.Stdout,
		Action: "clear cached data responses",
		Target: target,
		Skip:   opts.DryRun || opts.Yes,
	}); confirmErr != nil {
		return confirmErr
	}

	return withRedis(cmdCtx, defaultRedisTimeout, func(ctx context.Context, client redis.UniversalClient) error {
		n, delErr := deleteMatching(ctx, client, opts.pattern(), opts.DryRun)
		if delErr != nil {
			return delErr
		}
		return printDeleteSummary(os.Stdout, "data cache", n, opts.DryRun)
	})
}

func collectViews(ctx context.Context, client redis.UniversalClient, pattern string) ([]viewEntry, error) {
	var entries []viewEntry
	err := redisstore.EachShard(ctx, client, func(ctx context.Context, node redis.Cmdable) error {
		iter := node.Scan(ctx, 0, pattern, scanBatchSize).Iterator()
		for iter.Next(ctx) {
			key := iter.Val()
			entry, ok := parseViewKey(key)
			if !ok {
				continue
			}
			raw, err := node.Get(ctx, key).Bytes()
			switch {
			case errors.Is(err, redis.Nil):
				continue
			case err != nil:
				entry.Target = "error: " + err.Error()
			default:
				entry.Target = describeTarget(raw)
			}
			if ttl, err := node.TTL(ctx, key).Result(); err == nil {
				entry.TTL = ttl
			}
			entries = append(entries, entry)
		}
		return iter.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return entries, nil
}

// parseViewKey splits "view:<session-id>:<tab-id>". Tab ids never contain a colon.
func parseViewKey(key string) (viewEntry, bool) {
	rest, ok := strings.CutPrefix(key, viewKeyPrefix)
	if !ok {
		return viewEntry{}, false
	}
	idx := strings.LastIndex(rest, ":")
	if idx <= 0 || idx == len(rest)-1 {
		return viewEntry{}, false
	}
	return viewEntry{Key: key, SessionID: rest[:idx], TabID: rest[idx+1:]}, true
}

func describeTarget(raw []byte) string {
	target, err := impersonation.Decode(raw)
	if err != nil {
		return "(unreadable)"
	}
	return fmt.Sprintf("%s (%s)", target.DisplayName(), target.MerchantID)
}

func renderViews(w io.Writer, entries []viewEntry) error {
	if len(entries) == 0 {
		return writeln(w, "(no view state found)")
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writeln(tw, "SESSION\tTAB\tVIEWING\tTTL"); err != nil {
		return err
	}
	for _, e := range entries {
		if err := writef(tw, "%s\t%s\t%s\t%s\n", e.SessionID, e.TabID, e.Target, renderTTL(e.TTL)); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return writef(w, "\nTotal views: %d\n", len(entries))
}

func deleteMatching(ctx context.Context, client redis.UniversalClient, pattern string, dryRun bool) (int, error) {
	var total int
	err := redisstore.EachShard(ctx, client, func(ctx context.Context, node redis.Cmdable) error {
		batch := make([]string, 0, deleteBatchSize)
		flush := func() error {
			defer func() { batch = batch[:0] }()
			if dryRun {
				return nil
			}
			return redisstore.DeleteKeys(ctx, node, batch)
		}

		iter := node.Scan(ctx, 0, pattern, scanBatchSize).Iterator()
		for iter.Next(ctx) {
			batch = append(batch, iter.Val())
			total++
			if len(batch) >= deleteBatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		return flush()
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func printDeleteSummary(w io.Writer, kind string, n int, dryRun bool) error {
	if dryRun {
		return writef(w, "Dry run: %d %s key(s) would be deleted.\n", n, kind)
	}
	return writef(w, "Deleted %d %s key(s).\n", n, kind)
}

func parseViewsFlags(name string, args []string, destructive bool) (viewsOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := viewsOptions{}
	fs.StringVar(&opts.SessionID, "session", "", "Limit to one session id")
	if destructive {
		fs.BoolVar(&opts.All, "all", false, "Apply to every session")
		fs.BoolVar(&opts.DryRun, "dry-run", false, "Count matching keys without deleting")
		fs.BoolVar(&opts.Yes, "yes", false, "Skip confirmation prompt")
	}

	if err := fs.Parse(args); err != nil {
		return viewsOptions{}, err
	}
	opts.SessionID = strings.TrimSpace(opts.SessionID)
	if err := checkKeySegment("--session", opts.SessionID); err != nil {
		return viewsOptions{}, err
	}
	if destructive && opts.SessionID == "" && !opts.All {
		return viewsOptions{}, errors.New("--session is required (or use --all)")
	}
	if opts.All && opts.SessionID != "" {
		return viewsOptions{}, errors.New("--session and --all are mutually exclusive")
	}
	return opts, nil
}

func parseDataCacheFlags(args []string) (dataCacheOptions, error) {
	fs := flag.NewFlagSet("clear-data-cache", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := dataCacheOptions{}
	fs.StringVar(&opts.Principal, "principal", "", "Limit to one caller's cached responses")
	fs.BoolVar(&opts.All, "all", false, "Clear cached responses for every caller")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "Count matching keys without deleting")
	fs.BoolVar(&opts.Yes, "yes", false, "Skip confirmation prompt")

	if err := fs.Parse(args); err != nil {
		return dataCacheOptions{}, err
	}
	opts.Principal = strings.TrimSpace(opts.Principal)
	if err := checkKeySegment("--principal", opts.Principal); err != nil {
		return dataCacheOptions{}, err
	}
	if opts.Principal == "" && !opts.All {
		return dataCacheOptions{}, errors.New("--principal is required (or use --all)")
	}
	if opts.All && opts.Principal != "" {
		return dataCacheOptions{}, errors.New("--principal and --all are mutually exclusive")
	}
	return opts, nil
}

// checkKeySegment rejects glob metacharacters so a filter can never widen the SCAN pattern.
func checkKeySegment(flagName, v string) error {
	if strings.ContainsAny(v, "*?[]\\") {
		return fmt.Errorf("%s must not contain glob characters", flagName)
	}
	return nil
}
