package httpx

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/pigbank/console-api/internal/domain/impersonation"
	"github.com/pigbank/console-api/internal/domain/scope"
	apperrors "github.com/pigbank/console-api/internal/errors"
	"github.com/pigbank/console-api/internal/mocks"
	"github.com/pigbank/console-api/internal/ports"
	"github.com/pigbank/console-api/internal/service"
	"github.com/pigbank/console-api/internal/testutil"
)

func withDirectoryAndData(dir ports.MerchantDirectory) func(*RouterServices) {
	return func(s *RouterServices) {
		s.Directory = dir
		s.Data = service.NewDataProxy(service.DataProxyOptions{})
	}
}

func TestConsole_StaffViewsAcmeThenLeaves(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockMerchantDirectory(ctrl)
	acme := testutil.Acme()
	dir.EXPECT().GetByID(gomock.Any(), "m-1").Return(&acme, nil)

	c := newTestConsole(t, withDirectoryAndData(dir))

	// Enter from the merchant directory screen.
	rec := c.do(t, request{
		Method:  http.MethodPost,
		Path:    "/api/staff/impersonation",
		Session: "staff-sess",
		Tab:     "tab-a",
		Body:    map[string]string{"merchant_id": "m-1"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	banner := decodeBody[bannerPayload](t, rec)
	assert.True(t, banner.Impersonating)
	require.NotNil(t, banner.Target)
	assert.Equal(t, "Acme Corp", banner.Target.DisplayName)

	// Persisted under the view session before the response.
	raw, ok := c.views.Raw(ports.ViewKey{SessionID: "staff-sess", TabID: "tab-a"})
	require.True(t, ok)
	persisted, err := impersonation.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "m-1", persisted.MerchantID)

	// The next request hydrates the banner and scopes data to m-1.
	rec = c.do(t, request{Method: http.MethodGet, Path: "/api/impersonation", Session: "staff-sess", Tab: "tab-a"})
	banner = decodeBody[bannerPayload](t, rec)
	assert.True(t, banner.Initialized)
	assert.True(t, banner.Impersonating)

	rec = c.do(t, request{Method: http.MethodGet, Path: "/api/scope/invoices", Session: "staff-sess", Tab: "tab-a"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sc := decodeBody[scope.Scope](t, rec)
	assert.Equal(t, "staff/merchants/m-1/invoices", sc.Endpoint)
	assert.Equal(t, "invoices@merchant:m-1", sc.CacheKey)

	// Another tab of the same login is unaffected.
	rec = c.do(t, request{Method: http.MethodGet, Path: "/api/scope/invoices", Session: "staff-sess", Tab: "tab-b"})
	sc = decodeBody[scope.Scope](t, rec)
	assert.Equal(t, "invoices", sc.Endpoint)

	// Navigating to the merchant list ends impersonation.
	rec = c.do(t, request{
		Method:  http.MethodPost,
		Path:    "/api/navigation",
		Session: "staff-sess",
		Tab:     "tab-a",
		Body:    map[string]string{"path": "/staff/merchants"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	nav := decodeBody[navigationResponse](t, rec)
	require.NotNil(t, nav.Impersonation)
	assert.False(t, nav.Impersonation.Impersonating)
	_, ok = c.views.Raw(ports.ViewKey{SessionID: "staff-sess", TabID: "tab-a"})
	assert.False(t, ok)

	rec = c.do(t, request{Method: http.MethodGet, Path: "/api/scope/invoices", Session: "staff-sess", Tab: "tab-a"})
	sc = decodeBody[scope.Scope](t, rec)
	assert.Equal(t, "invoices", sc.Endpoint)
	assert.Empty(t, sc.MerchantID)
}

func TestImpersonation_EnterAccessControl(t *testing.T) {
	c := newTestConsole(t, nil)
	body := map[string]string{"merchant_id": "m-1", "trade_name": "Acme Corp"}

	tests := []struct {
		name    string
		session string
		status  int
		errCode string
	}{
		{"merchant is forbidden", "merchant-sess", http.StatusForbidden, "insufficient_permissions"},
		{"pending merchant is forbidden", "pending-sess", http.StatusForbidden, "insufficient_permissions"},
		{"anonymous is unauthorized", "", http.StatusUnauthorized, "authentication_required"},
		{"pending identity asks to retry", "loading-sess", http.StatusServiceUnavailable, "identity_pending"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := c.do(t, request{
				Method:  http.MethodPost,
				Path:    "/api/staff/impersonation",
				Session: tt.session,
				Tab:     "tab-a",
				Body:    body,
			})
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.errCode, decodeBody[map[string]string](t, rec)["error"])
		})
	}
	assert.Empty(t, c.views.Keys())
}

func TestImpersonation_EnterWithoutDirectoryUsesRequestNames(t *testing.T) {
	c := newTestConsole(t, nil)

	rec := c.do(t, request{
		Method:  http.MethodPost,
		Path:    "/api/staff/impersonation",
		Session: "staff-sess",
		Tab:     "tab-a",
		Body:    map[string]string{"merchant_id": " m-9 ", "legal_name": "Globex Holdings"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	banner := decodeBody[bannerPayload](t, rec)
	require.NotNil(t, banner.Target)
	assert.Equal(t, "m-9", banner.Target.MerchantID)
	assert.Equal(t, "Globex Holdings", banner.Target.DisplayName)
}

func TestImpersonation_EnterValidation(t *testing.T) {
	c := newTestConsole(t, nil)

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"missing merchant id", map[string]string{"trade_name": "Acme"}, "merchant_id"},
		{"blank merchant id", map[string]string{"merchant_id": "   "}, "merchant_id"},
		{"unsafe merchant id", map[string]string{"merchant_id": "../m-1"}, "merchant_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := c.do(t, request{
				Method:  http.MethodPost,
				Path:    "/api/staff/impersonation",
				Session: "staff-sess",
				Tab:     "tab-a",
				Body:    tt.body,
			})
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			out := decodeBody[map[string]string](t, rec)
			assert.Equal(t, "validation", out["error"])
			assert.Equal(t, tt.field, out["field"])
		})
	}

	rec := c.do(t, request{
		Method:  http.MethodPost,
		Path:    "/api/staff/impersonation",
		Session: "staff-sess",
		Tab:     "tab-a",
		Body:    map[string]string{"merchant_id": "m-1", "surprise": "x"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_json", decodeBody[map[string]string](t, rec)["error"])
}

func TestImpersonation_EnterUnknownMerchant(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockMerchantDirectory(ctrl)
	dir.EXPECT().GetByID(gomock.Any(), "m-404").Return(nil, apperrors.NotFoundf("Merchant %s not found.", "m-404"))
	c := newTestConsole(t, withDirectoryAndData(dir))

	rec := c.do(t, request{
		Method:  http.MethodPost,
		Path:    "/api/staff/impersonation",
		Session: "staff-sess",
		Tab:     "tab-a",
		Body:    map[string]string{"merchant_id": "m-404"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Merchant m-404 not found.", decodeBody[map[string]string](t, rec)["message"])
	assert.Empty(t, c.views.Keys())
}

func TestImpersonation_ExitIsIdempotent(t *testing.T) {
	c := newTestConsole(t, nil)
	enter := request{
		Method:  http.MethodPost,
		Path:    "/api/staff/impersonation",
		Session: "staff-sess",
		Tab:     "tab-a",
		Body:    map[string]string{"merchant_id": "m-1"},
	}
	require.Equal(t, http.StatusOK, c.do(t, enter).Code)

	for range 2 {
		rec := c.do(t, request{Method: http.MethodDelete, Path: "/api/impersonation", Session: "staff-sess", Tab: "tab-a"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, decodeBody[bannerPayload](t, rec).Impersonating)
	}
	assert.Empty(t, c.views.Keys())
}

func TestImpersonation_BannerStates(t *testing.T) {
	c := newTestConsole(t, nil)

	rec := c.do(t, request{Method: http.MethodGet, Path: "/api/impersonation", Session: "loading-sess"})
	banner := decodeBody[bannerPayload](t, rec)
	assert.False(t, banner.Initialized)
	assert.False(t, banner.Impersonating)

	rec = c.do(t, request{Method: http.MethodGet, Path: "/api/impersonation"})
	banner = decodeBody[bannerPayload](t, rec)
	assert.True(t, banner.Initialized)
	assert.False(t, banner.Impersonating)
}

func TestImpersonation_MerchantNeverSeesPersistedTarget(t *testing.T) {
	c := newTestConsole(t, nil)
	key := ports.ViewKey{SessionID: "merchant-sess", TabID: "tab-a"}
	raw, err := impersonation.Encode(testutil.Acme().Target())
	require.NoError(t, err)
	c.views.Put(key, raw)

	rec := c.do(t, request{Method: http.MethodGet, Path: "/api/impersonation", Session: "merchant-sess", Tab: "tab-a"})
	assert.False(t, decodeBody[bannerPayload](t, rec).Impersonating)
	_, ok := c.views.Raw(key)
	assert.False(t, ok, "stale value is discarded on hydrate")
}
