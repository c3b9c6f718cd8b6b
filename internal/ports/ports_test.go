package ports_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	mocks "github.com/pigbank/console-api/internal/mocks/auth"
	"github.com/pigbank/console-api/internal/ports"
)

var (
	_ ports.AuthProvider   = (*mocks.MockAuthProvider)(nil)
	_ ports.SessionStore   = (*mocks.MemorySessionStore)(nil)
	_ ports.RoleMapper     = mocks.StaticRoleMapper{}
	_ ports.ViewStorage    = (*mocks.MemoryViewStorage)(nil)
	_ ports.IdentitySource = (*mocks.StaticIdentitySource)(nil)
)

func TestCredentials(t *testing.T) {
	tests := []struct {
		creds ports.Credentials
		key   string
	}{
		{ports.Credentials{SessionID: "abc", BearerToken: "tok", Cookie: "a=b"}, "3:abc3:tok3:a=b"},
		{ports.Credentials{BearerToken: "tok", Cookie: "a=b"}, "0:3:tok3:a=b"},
		{ports.Credentials{Cookie: "a=b"}, "0:0:3:a=b"},
		{ports.Credentials{}, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.key, tt.creds.Key())
		assert.Equal(t, tt.key == "", tt.creds.Empty())
	}
}

func TestCredentialsKey_DistinguishesEveryField(t *testing.T) {
	shared := ports.Credentials{SessionID: "shared", BearerToken: "admin-token"}
	other := ports.Credentials{SessionID: "shared", BearerToken: "merchant-token"}
	assert.NotEqual(t, shared.Key(), other.Key())

	// Shifting bytes between fields must not produce the same key.
	a := ports.Credentials{SessionID: "ab", BearerToken: "c"}
	b := ports.Credentials{SessionID: "a", BearerToken: "bc"}
	assert.NotEqual(t, a.Key(), b.Key())
}

func TestViewKeyValid(t *testing.T) {
	assert.True(t, ports.ViewKey{SessionID: "s", TabID: "t"}.Valid())
	assert.False(t, ports.ViewKey{SessionID: "s"}.Valid())
	assert.False(t, ports.ViewKey{TabID: "t"}.Valid())
}
