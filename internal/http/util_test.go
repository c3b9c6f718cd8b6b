package httpx

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeRedirectPath(t *testing.T) {
	tests := map[string]string{
		"":                            "/",
		"/":                           "/",
		"/payouts?status=pending#top": "/payouts?status=pending#top",
		"payouts":                     "/",
		"//evil.example.com/x":        "/",
		`/\evil.example.com`:          "/",
		"https://evil.example.com/":   "/",
		"javascript:alert(1)":         "/",
		"/%zz":                        "/",
	}
	for in, want := range tests {
		assert.Equal(t, want, safeRedirectPath(in), "input %q", in)
	}
}

func TestParseLimitOffset(t *testing.T) {
	tests := []struct {
		query       string
		limit, offs int
	}{
		{"", 50, 0},
		{"?limit=10&offset=20", 10, 20},
		{"?limit=0&offset=-5", 1, 0},
		{"?limit=5000", 200, 0},
		{"?limit=abc&offset=xyz", 50, 0},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/merchants"+tt.query, nil)
		limit, offset := ParseLimitOffset(r, 50, 200)
		assert.Equal(t, tt.limit, limit, "limit for %q", tt.query)
		assert.Equal(t, tt.offs, offset, "offset for %q", tt.query)
	}
}

func TestIsSecureRequest(t *testing.T) {
	plain := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, isSecureRequest(plain))

	proxied := httptest.NewRequest(http.MethodGet, "/", nil)
	proxied.Header.Set("X-Forwarded-Proto", "HTTPS")
	assert.True(t, isSecureRequest(proxied))

	direct := httptest.NewRequest(http.MethodGet, "/", nil)
	direct.TLS = &tls.ConnectionState{}
	assert.True(t, isSecureRequest(direct))
}
