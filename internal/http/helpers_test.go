package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	domainauth "github.com/pigbank/console-api/internal/domain/auth"
	mockauth "github.com/pigbank/console-api/internal/mocks/auth"
	"github.com/pigbank/console-api/internal/ports"
	"github.com/pigbank/console-api/internal/testutil"
)

// stubResolver resolves session cookies from a fixed table. Unknown cookies are absent;
// cookies listed in pending never resolve.
type stubResolver struct {
	sessions map[string]domainauth.Session
	pending  map[string]bool
}

func (s *stubResolver) Resolve(_ context.Context, creds ports.Credentials) domainauth.Resolution {
	if s.pending[creds.SessionID] {
		return domainauth.Pending()
	}
	sess, ok := s.sessions[creds.SessionID]
	if !ok {
		return domainauth.Absent()
	}
	return domainauth.Resolved(&sess)
}

func newStubResolver(sessions ...domainauth.Session) *stubResolver {
	r := &stubResolver{sessions: map[string]domainauth.Session{}, pending: map[string]bool{}}
	for _, s := range sessions {
		r.sessions[s.ID] = s
	}
	return r
}

// testConsole bundles a router with its in-memory collaborators.
type testConsole struct {
	handler  http.Handler
	views    *mockauth.MemoryViewStorage
	resolver *stubResolver
}

func newTestConsole(t *testing.T, mutate func(*RouterServices)) *testConsole {
	t.Helper()
	staff := testutil.Staff("staff-sess")
	merchant := testutil.NewSession().WithID("merchant-sess").Build()
	pendingMerchant := testutil.NewSession().WithID("pending-sess").WithRole(domainauth.RolePendingMerchant).Build()

	resolver := newStubResolver(staff, merchant, pendingMerchant)
	resolver.pending["loading-sess"] = true
	views := mockauth.NewMemoryViewStorage()

	services := RouterServices{
		Identity: resolver,
		Views:    views,
	}
	if mutate != nil {
		mutate(&services)
	}
	return &testConsole{handler: NewRouter(services), views: views, resolver: resolver}
}

// request describes one call against the test console.
type request struct {
	Method  string
	Path    string
	Session string
	Tab     string
	Body    any
}

func (c *testConsole) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if req.Body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(req.Body))
	}
	r := httptest.NewRequest(req.Method, req.Path, &body)
	if req.Body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if req.Session != "" {
		r.AddCookie(&http.Cookie{Name: "session_id", Value: req.Session})
	}
	if req.Tab != "" {
		r.Header.Set("X-Console-Tab", req.Tab)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, r)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
