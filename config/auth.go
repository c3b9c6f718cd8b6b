package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode selects the identity source.
type AuthMode string

const (
	// AuthModeOAuth uses OAuth/OIDC login with server-side sessions.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses mock/dev login with server-side sessions (development only).
	AuthModeMock AuthMode = "mock"
	// AuthModeJWT verifies HS256 bearer tokens issued by the merchant platform.
	AuthModeJWT AuthMode = "jwt"
	// AuthModeAPI asks the merchant platform's identity endpoint.
	AuthModeAPI AuthMode = "api"
)

// UsesSessions reports whether the mode logs users in through /auth and stores sessions.
func (a AuthMode) UsesSessions() bool {
	return a == AuthModeOAuth || a == AuthModeMock
}

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch AuthMode(v) {
	case AuthModeOAuth, AuthModeMock, AuthModeJWT, AuthModeAPI:
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock, jwt, api)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID      string `env:"CLIENT_ID"      envDefault:"console"`
	ClientSecret  string `env:"CLIENT_SECRET"  envDefault:"console"`
	RedirectURL   string `env:"REDIRECT_URL"   envDefault:"http://localhost:8080/auth/callback"`
	Scope         string `env:"SCOPE"          envDefault:"openid profile email groups"`
	DiscoveryURL  string `env:"DISCOVERY_URL"`
	LogoutURL     string `env:"LOGOUT_URL"`
	GroupsClaim   string `env:"GROUPS_CLAIM"   envDefault:"groups"`
	MerchantClaim string `env:"MERCHANT_CLAIM" envDefault:"merchant_id"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UserID     string   `env:"USER_ID"     envDefault:"dev-user"`
	Email      string   `env:"EMAIL"       envDefault:"dev@example.com"`
	FirstName  string   `env:"FIRST_NAME"  envDefault:"Dev"`
	LastName   string   `env:"LAST_NAME"   envDefault:"User"`
	Groups     []string `env:"GROUPS"      envDefault:"support"         envSeparator:";"`
	MerchantID string   `env:"MERCHANT_ID"`
	DemoActive bool     `env:"DEMO_ACTIVE" envDefault:"false"`
	// Role pins the dev user's role label and bypasses group mapping when set.
	Role string `env:"ROLE"`
}

// JWTConfig configures bearer-token identity (AUTH_MODE=jwt).
type JWTConfig struct {
	Secret string        `env:"SECRET"`
	Issuer string        `env:"ISSUER"`
	Leeway time.Duration `env:"LEEWAY" envDefault:"30s"`
}

// IdentityAPIConfig configures the platform identity endpoint (AUTH_MODE=api).
type IdentityAPIConfig struct {
	URL     string        `env:"URL"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"5s"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity source to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// JWT configuration (used when Mode=jwt).
	JWT JWTConfig `envPrefix:"AUTH_JWT_"`

	// IdentityAPI configuration (used when Mode=api).
	IdentityAPI IdentityAPIConfig `envPrefix:"IDENTITY_API_"`

	// Group names mapped to roles for session modes. A user in none of them is a
	// pending merchant.
	AdminGroup    string `env:"SUPPORT_ADMIN_GROUP" envDefault:"support-admins"`
	StaffGroup    string `env:"SUPPORT_STAFF_GROUP" envDefault:"support"`
	MerchantGroup string `env:"MERCHANT_GROUP"      envDefault:"merchants"`

	// SessionCookie is the name of the login session cookie.
	SessionCookie string `env:"SESSION_COOKIE" envDefault:"session_id"`

	// SessionMaxTTL caps a login session even when the IdP grants a longer one.
	SessionMaxTTL time.Duration `env:"SESSION_MAX_TTL" envDefault:"12h"`
}

// Sanitize trims values that commonly arrive with stray whitespace.
func (a *AuthConfig) Sanitize() {
	a.AdminGroup = strings.TrimSpace(a.AdminGroup)
	a.StaffGroup = strings.TrimSpace(a.StaffGroup)
	a.MerchantGroup = strings.TrimSpace(a.MerchantGroup)
	a.IdentityAPI.URL = strings.TrimSpace(a.IdentityAPI.URL)
	if a.JWT.Leeway < 0 {
		a.JWT.Leeway = 0
	}
	if a.SessionCookie = strings.TrimSpace(a.SessionCookie); a.SessionCookie == "" {
		a.SessionCookie = "session_id"
	}
	if a.SessionMaxTTL < 0 {
		a.SessionMaxTTL = 0
	}
}
