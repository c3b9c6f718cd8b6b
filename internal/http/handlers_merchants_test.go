package httpx

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/pigbank/console-api/internal/domain/impersonation"
	"github.com/pigbank/console-api/internal/mocks"
	"github.com/pigbank/console-api/internal/ports"
	"github.com/pigbank/console-api/internal/testutil"
)

func TestMerchants_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockMerchantDirectory(ctrl)
	dir.EXPECT().
		List(gomock.Any(), ports.MerchantFilter{ApprovedOnly: true, Query: "acme", Limit: 200, Offset: 10}).
		Return([]impersonation.Merchant{testutil.Acme()}, nil)
	c := newTestConsole(t, func(s *RouterServices) { s.Directory = dir })

	rec := c.do(t, request{
		Method:  http.MethodGet,
		Path:    "/api/staff/merchants?approved=true&q=%20acme%20&limit=500&offset=10",
		Session: "staff-sess",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decodeBody[struct {
		Merchants []impersonation.Merchant `json:"merchants"`
		Limit     int                      `json:"limit"`
		Offset    int                      `json:"offset"`
	}](t, rec)
	require.Len(t, out.Merchants, 1)
	assert.Equal(t, "m-1", out.Merchants[0].ID)
	assert.Equal(t, impersonation.MerchantStatusApproved, out.Merchants[0].Status)
	assert.Equal(t, 200, out.Limit)
	assert.Equal(t, 10, out.Offset)
}

func TestMerchants_ListAccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockMerchantDirectory(ctrl)
	c := newTestConsole(t, func(s *RouterServices) { s.Directory = dir })

	tests := []struct {
		session string
		status  int
	}{
		{"merchant-sess", http.StatusForbidden},
		{"pending-sess", http.StatusForbidden},
		{"", http.StatusUnauthorized},
		{"loading-sess", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.session, func(t *testing.T) {
			rec := c.do(t, request{Method: http.MethodGet, Path: "/api/staff/merchants", Session: tt.session})
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestMerchants_ListWithoutDirectory(t *testing.T) {
	c := newTestConsole(t, nil)

	rec := c.do(t, request{Method: http.MethodGet, Path: "/api/staff/merchants", Session: "staff-sess"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "directory_unavailable", decodeBody[map[string]string](t, rec)["error"])
}

func TestMerchants_ListFailureHidesCause(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockMerchantDirectory(ctrl)
	dir.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, errors.New("pq: relation does not exist"))
	c := newTestConsole(t, func(s *RouterServices) { s.Directory = dir })

	rec := c.do(t, request{Method: http.MethodGet, Path: "/api/staff/merchants", Session: "staff-sess"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	out := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "internal", out["error"])
	assert.Equal(t, "internal error", out["message"])
}
