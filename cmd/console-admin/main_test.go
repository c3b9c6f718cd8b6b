package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pigbank/console-api/internal/domain/impersonation"
	"github.com/pigbank/console-api/internal/testutil"
)

func TestPrintUsageListsCommandsSorted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf))

	out := buf.String()
	assert.Contains(t, out, "Usage: console-admin <command> [flags]")
	assert.Less(t, strings.Index(out, "clear-data-cache"), strings.Index(out, "seed-merchants"))
	for _, c := range commands() {
		assert.Contains(t, out, c.name)
		_, ok := lookupCommand(c.name)
		assert.True(t, ok, c.name)
	}
	_, ok := lookupCommand("drop-everything")
	assert.False(t, ok)
}

func TestRun_Usage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitUsage, run(context.Background(), nil, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Available commands:")

	stdout.Reset()
	assert.Equal(t, exitUsage, run(context.Background(), []string{"nope"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), `unknown command "nope"`)
}

func TestIsLikelyRemoteHost(t *testing.T) {
	tests := map[string]bool{
		"":                false,
		"localhost":       false,
		" LOCALHOST ":     false,
		"127.0.0.1":       false,
		"127.0.0.2":       false,
		"::1":             false,
		"db.local":        false,
		"10.0.0.5":        true,
		"db.example.com":  true,
		"postgres":        true,
		"2001:db8::1":     true,
		"pg.internal.net": true,
	}
	for host, want := range tests {
		assert.Equal(t, want, isLikelyRemoteHost(host), "host %q", host)
	}
}

func TestRequireRemoteHostConfirmation(t *testing.T) {
	var out bytes.Buffer
	err := requireRemoteHostConfirmation(strings.NewReader("db.example.com\n"), &out, "reset", "db.example.com")
	require.NoError(t, err)
	assert.Contains(t, out.String(), `Type "db.example.com" to continue`)

	out.Reset()
	err = requireRemoteHostConfirmation(strings.NewReader("yes\n"), &out, "reset", "db.example.com")
	require.ErrorIs(t, err, errAborted)
	assert.Contains(t, out.String(), "Remote safeguard check failed")

	err = requireRemoteHostConfirmation(strings.NewReader(""), &out, "reset", "db.example.com")
	require.EqualError(t, err, "aborted by user")
}

func TestConfirmAction(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		skip    bool
		wantErr bool
	}{
		{name: "skip", skip: true},
		{name: "yes", input: "yes\n"},
		{name: "y without newline", input: " Y"},
		{name: "no", input: "n\n", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := confirmAction(confirmRequest{
				In:      strings.NewReader(tt.input),
				Out:     &out,
				Action:  "clear impersonation state",
				Target:  `session "s1"`,
				Warning: "WARNING: careful",
				Skip:    tt.skip,
			})
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			if tt.skip {
				assert.Empty(t, out.String())
				return
			}
			assert.Contains(t, out.String(), `About to clear impersonation state for session "s1".`)
			assert.Contains(t, out.String(), "WARNING: careful")
		})
	}
}

func TestResetStatements(t *testing.T) {
	base := []string{
		"DROP SCHEMA public CASCADE",
		"CREATE SCHEMA public",
		"GRANT ALL ON SCHEMA public TO public",
	}
	assert.Equal(t, base, resetStatements(""))
	assert.Equal(t, base, resetStatements("PUBLIC"))
	assert.Equal(t, append(base, `GRANT ALL ON SCHEMA public TO "con""sole"`), resetStatements(`con"sole`))
}

func TestParseFlags(t *testing.T) {
	migrate, err := parseMigrateFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultMigrationTimeout, migrate.Timeout)

	_, err = parseMigrateFlags([]string{"--timeout", "0s"})
	require.Error(t, err)

	status, err := parseMigrateFlags([]string{"--status"})
	require.NoError(t, err)
	assert.True(t, status.Status)

	reset, err := parseDBResetFlags([]string{"--yes", "--seed", "--timeout", "30s"})
	require.NoError(t, err)
	assert.True(t, reset.Yes)
	assert.True(t, reset.Seed)
	assert.False(t, reset.AllowRemote)
	assert.Equal(t, 30*time.Second, reset.Timeout)

	seed, err := parseSeedFlags([]string{"--file", " merchants.json "})
	require.NoError(t, err)
	assert.Equal(t, "merchants.json", seed.File)

	list, err := parseListMerchantsFlags([]string{"--approved", "--query", "acme"})
	require.NoError(t, err)
	assert.Equal(t, listMerchantsOptions{Approved: true, Query: "acme", Limit: 50}, list)

	_, err = parseListMerchantsFlags([]string{"--limit", "0"})
	require.Error(t, err)
	_, err = parseListMerchantsFlags([]string{"--offset", "-1"})
	require.Error(t, err)
}

func TestParseViewsFlags(t *testing.T) {
	listAll, err := parseViewsFlags("list-views", nil, false)
	require.NoError(t, err)
	assert.Equal(t, "view:*", listAll.pattern())

	one, err := parseViewsFlags("clear-views", []string{"--session", "sess-1", "--dry-run"}, true)
	require.NoError(t, err)
	assert.True(t, one.DryRun)
	assert.Equal(t, "view:sess-1:*", one.pattern())

	_, err = parseViewsFlags("clear-views", nil, true)
	require.EqualError(t, err, "--session is required (or use --all)")

	_, err = parseViewsFlags("clear-views", []string{"--session", "s1", "--all"}, true)
	require.Error(t, err)

	_, err = parseViewsFlags("list-views", []string{"--session", "s*"}, false)
	require.EqualError(t, err, "--session must not contain glob characters")

	// --all is only defined on the destructive command.
	_, err = parseViewsFlags("list-views", []string{"--all"}, false)
	require.Error(t, err)
}

func TestParseDataCacheFlags(t *testing.T) {
	opts, err := parseDataCacheFlags([]string{"--principal", "user-1", "--yes"})
	require.NoError(t, err)
	assert.Equal(t, "cache:data:user-1:*", opts.pattern())

	all, err := parseDataCacheFlags([]string{"--all"})
	require.NoError(t, err)
	assert.Equal(t, "cache:data:*", all.pattern())

	_, err = parseDataCacheFlags(nil)
	require.Error(t, err)
	_, err = parseDataCacheFlags([]string{"--principal", "user-[1]"})
	require.Error(t, err)
}

func TestParseViewKey(t *testing.T) {
	entry, ok := parseViewKey("view:sess-1:tab-a")
	require.True(t, ok)
	assert.Equal(t, "sess-1", entry.SessionID)
	assert.Equal(t, "tab-a", entry.TabID)

	entry, ok = parseViewKey("view:oidc:abc:tab-b")
	require.True(t, ok)
	assert.Equal(t, "oidc:abc", entry.SessionID)
	assert.Equal(t, "tab-b", entry.TabID)

	for _, key := range []string{"view:", "view:sess-1", "view:sess-1:", "view::tab", "session:sess-1:tab"} {
		_, ok := parseViewKey(key)
		assert.False(t, ok, "key %q", key)
	}
}

func TestDescribeTarget(t *testing.T) {
	raw, err := impersonation.Encode(testutil.Acme().Target())
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp (m-1)", describeTarget(raw))
	assert.Equal(t, "(unreadable)", describeTarget([]byte("{nope")))
}

func TestDecodeMerchants(t *testing.T) {
	arr, err := decodeMerchants(strings.NewReader(`[{"id":"m-1","legal_name":"Acme","status":"approved"}]`))
	require.NoError(t, err)
	require.Len(t, arr, 1)
	assert.Equal(t, impersonation.MerchantStatusApproved, arr[0].Status)

	wrapped, err := decodeMerchants(strings.NewReader(`{"merchants":[{"id":"m-1","legal_name":"Acme"},{"id":"m-2","legal_name":"Globex"}]}`))
	require.NoError(t, err)
	assert.Len(t, wrapped, 2)

	for name, input := range map[string]string{
		"empty":     "  ",
		"malformed": "[{",
		"bad id":    `[{"id":"../m","legal_name":"Acme"}]`,
		"duplicate": `[{"id":"m-1","legal_name":"A"},{"id":"m-1","legal_name":"B"}]`,
	} {
		_, err := decodeMerchants(strings.NewReader(input))
		assert.Error(t, err, name)
	}
}

func TestDevMerchantsAreValid(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range devMerchants() {
		assert.True(t, impersonation.ValidMerchantID(m.ID), m.ID)
		assert.True(t, m.Status.Valid(), m.ID)
		assert.NotEmpty(t, m.LegalName)
		assert.False(t, seen[m.ID], "duplicate %s", m.ID)
		seen[m.ID] = true
	}
}

type fakeUpserter struct {
	got []impersonation.Merchant
	err error
}

func (f *fakeUpserter) Upsert(_ context.Context, merchants []impersonation.Merchant) error {
	f.got = merchants
	return f.err
}

func TestSeedMerchants(t *testing.T) {
	ctx := context.Background()

	repo := &fakeUpserter{}
	require.NoError(t, seedMerchants(ctx, repo, devMerchants()))
	assert.Len(t, repo.got, len(devMerchants()))

	require.Error(t, seedMerchants(ctx, repo, nil))

	failing := &fakeUpserter{err: errors.New("db down")}
	err := seedMerchants(ctx, failing, devMerchants())
	require.ErrorContains(t, err, "upsert merchants: db down")
}

func TestRenderMerchants(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderMerchants(&buf, nil))
	assert.Equal(t, "(no merchants found)\n", buf.String())

	buf.Reset()
	pending := impersonation.Merchant{ID: "m-2", LegalName: "Initech", Status: impersonation.MerchantStatusPending}
	require.NoError(t, renderMerchants(&buf, []impersonation.Merchant{testutil.Acme(), pending}))
	out := buf.String()
	assert.Contains(t, out, "Acme Corporation Ltd")
	assert.Contains(t, out, "Total merchants: 2")
	lines := strings.Split(out, "\n")
	assert.Regexp(t, `^m-2\s+Initech\s+-\s+pending\s`, lines[2])
}

func TestPrintPendingMigrations(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printPendingMigrations(&buf, nil))
	assert.Equal(t, "Schema is up to date.\n", buf.String())

	buf.Reset()
	require.NoError(t, printPendingMigrations(&buf, []string{"0001_merchants", "0002_merchant_country"}))
	assert.Equal(t, "Pending migrations (2):\n  0001_merchants\n  0002_merchant_country\n", buf.String())
}

func TestRenderTTL(t *testing.T) {
	assert.Equal(t, "no expiry", renderTTL(-1*time.Second))
	assert.Equal(t, "key missing", renderTTL(-2*time.Second))
	assert.Equal(t, "1m30s", renderTTL(90*time.Second))
}

func TestRedisCommands(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	ctx := context.Background()

	raw, err := impersonation.Encode(testutil.Acme().Target())
	require.NoError(t, err)
	require.NoError(t, client.Set(ctx, "view:sess-1:tab-a", raw, time.Hour).Err())
	require.NoError(t, client.Set(ctx, "view:sess-1:tab-b", raw, 0).Err())
	require.NoError(t, client.Set(ctx, "view:sess-2:tab-a", raw, time.Hour).Err())
	require.NoError(t, client.Set(ctx, "cache:data:user-1:invoices@merchant:m-1", "[]", time.Minute).Err())
	require.NoError(t, client.Set(ctx, "cache:data:user-2:team@default", "[]", time.Minute).Err())

	views, err := collectViews(ctx, client, "view:sess-1:*")
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, v := range views {
		assert.Equal(t, "sess-1", v.SessionID)
		assert.Equal(t, "Acme Corp (m-1)", v.Target)
	}

	var buf bytes.Buffer
	require.NoError(t, renderViews(&buf, views))
	assert.Contains(t, buf.String(), "Total views: 2")

	n, err := deleteMatching(ctx, client, "view:sess-1:*", true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(3), client.Exists(ctx, "view:sess-1:tab-a", "view:sess-1:tab-b", "view:sess-2:tab-a").Val())

	n, err = deleteMatching(ctx, client, "view:sess-1:*", false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(1), client.Exists(ctx, "view:sess-1:tab-a", "view:sess-1:tab-b", "view:sess-2:tab-a").Val())

	n, err = deleteMatching(ctx, client, dataCacheOptions{Principal: "user-1"}.pattern(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(1), client.Exists(ctx, "cache:data:user-2:team@default").Val())
}
