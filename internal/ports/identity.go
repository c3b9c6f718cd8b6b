package ports

import (
	"context"
	"strconv"
	"strings"

	domainauth "github.com/pigbank/console-api/internal/domain/auth"
)

// Credentials are what the browser sent with a request. Each IdentitySource reads only
// the part it understands.
type Credentials struct {
	SessionID   string // session_id cookie
	BearerToken string // Authorization: Bearer <token>
	Cookie      string // raw Cookie header, forwarded to upstream identity APIs
}

// Key identifies the credentials for coalescing concurrent lookups. Sources read
// different fields, so every field takes part. Each part is length-prefixed so values
// cannot run into one another.
func (c Credentials) Key() string {
	if c.Empty() {
		return ""
	}
	var b strings.Builder
	for _, v := range [...]string{c.SessionID, c.BearerToken, c.Cookie} {
		b.WriteString(strconv.Itoa(len(v)))
		b.WriteByte(':')
		b.WriteString(v)
	}
	return b.String()
}

// Empty reports whether the request carried no credentials at all.
func (c Credentials) Empty() bool {
	return c.SessionID == "" && c.BearerToken == "" && c.Cookie == ""
}

// IdentitySource resolves credentials to a session. A nil session with a nil error means
// nobody is signed in; errors are reserved for the source itself failing.
type IdentitySource interface {
	Lookup(ctx context.Context, creds Credentials) (*domainauth.Session, error)
}
