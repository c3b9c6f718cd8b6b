// Package jwtidentity resolves console identities from HS256 bearer tokens issued by the
// merchant platform.
package jwtidentity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainauth "github.com/pigbank/console-api/internal/domain/auth"
	"github.com/pigbank/console-api/internal/ports"
)

// Claims is the token payload. Role is the raw label; unrecognized labels resolve to
// RoleUnknown rather than failing the token.
type Claims struct {
	Email      string `json:"email,omitempty"`
	FirstName  string `json:"given_name,omitempty"`
	LastName   string `json:"family_name,omitempty"`
	Role       string `json:"role"`
	MerchantID string `json:"merchant_id,omitempty"`
	DemoActive bool   `json:"demo_active,omitempty"`
	// SessionID is the platform's login session; refreshed tokens keep it.
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Source implements ports.IdentitySource for bearer tokens.
type Source struct {
	secret []byte
	issuer string
	leeway time.Duration
}

var _ ports.IdentitySource = (*Source)(nil)

// Config configures Source.
type Config struct {
	Secret string
	Issuer string        // optional; enforced when set
	Leeway time.Duration // clock skew tolerance
}

// ErrInvalidToken wraps every token rejection.
var ErrInvalidToken = errors.New("invalid bearer token")

// NewSource constructs a Source. The secret is required.
func NewSource(cfg Config) (*Source, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt identity: secret is required")
	}
	return &Source{secret: []byte(cfg.Secret), issuer: cfg.Issuer, leeway: cfg.Leeway}, nil
}

// Lookup verifies the bearer token and maps its claims. Requests without a bearer token
// carry no identity. The session id names one login, never just the subject, so view
// state does not outlive a logout.
func (s *Source) Lookup(_ context.Context, creds ports.Credentials) (*domainauth.Session, error) {
	if creds.BearerToken == "" {
		return nil, nil
	}
	claims, err := s.Parse(creds.BearerToken)
	if err != nil {
		return nil, err
	}
	sess := &domainauth.Session{
		ID:         loginID(claims, creds.BearerToken),
		UserID:     claims.Subject,
		FirstName:  claims.FirstName,
		LastName:   claims.LastName,
		Email:      claims.Email,
		Role:       domainauth.ParseRole(claims.Role),
		MerchantID: claims.MerchantID,
		DemoActive: claims.DemoActive,
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

// loginID keys view state to one login: the sid claim, else the token id, else the issue
// time. A token with none of them is its own login.
func loginID(claims *Claims, token string) string {
	login := claims.SessionID
	switch {
	case login != "":
	case claims.ID != "":
		login = claims.ID
	case claims.IssuedAt != nil:
		login = "iat-" + strconv.FormatInt(claims.IssuedAt.Unix(), 10)
	default:
		sum := sha256.Sum256([]byte(token))
		login = "tok-" + hex.EncodeToString(sum[:12])
	}
	return "jwt:" + claims.Subject + "@" + login
}

// Parse verifies tokenString and returns its claims.
func (s *Source) Parse(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.leeway),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !tkn.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

// Issue signs claims with the configured secret. Used by local tooling and tests.
func (s *Source) Issue(claims Claims) (string, error) {
	if s.issuer != "" && claims.Issuer == "" {
		claims.Issuer = s.issuer
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
