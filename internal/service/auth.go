package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/pigbank/console-api/internal/domain/auth"
	"github.com/pigbank/console-api/internal/ports"
)

const defaultMaxSessionTTL = 12 * time.Hour

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider ports.AuthProvider
	Sessions ports.SessionStore
	Roles    ports.RoleMapper
	// Views is optional; when set, logout clears every tab's view state for the session.
	Views ports.ViewStorage
	// MaxSessionTTL caps how long a console session lives regardless of the IdP's expiry.
	MaxSessionTTL time.Duration
	Now           func() time.Time
}

// AuthService runs the console login flow and owns the server-side sessions it creates.
type AuthService struct {
	provider ports.AuthProvider
	sessions ports.SessionStore
	roles    ports.RoleMapper
	views    ports.ViewStorage
	maxTTL   time.Duration
	now      func() time.Time
}

var errSessionExpired = fmt.Errorf("%w: expired", ports.ErrSessionNotFound)

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	maxTTL := opts.MaxSessionTTL
	if maxTTL <= 0 {
		maxTTL = defaultMaxSessionTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		provider: opts.Provider,
		sessions: opts.Sessions,
		roles:    opts.Roles,
		views:    opts.Views,
		maxTTL:   maxTTL,
		now:      now,
	}
}

// BeginLoginResult is what the login handler needs to redirect to the IdP.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin starts a login flow that returns to redirectURL.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}
	return &BeginLoginResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteLoginInput carries the callback parameters and the values remembered at login.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

// CompleteLoginResult holds the session created for the caller.
type CompleteLoginResult struct {
	Session domainauth.Session
}

func (in CompleteLoginInput) validate() error {
	switch {
	case in.Code == "":
		return errors.New("authorization code is required")
	case in.State == "":
		return errors.New("state parameter is required")
	case in.Nonce == "":
		return errors.New("nonce parameter is required")
	}
	return nil
}

// CompleteLogin exchanges the callback code for an identity and persists a session for it.
// The provider's role label wins; otherwise groups are mapped. Staff sessions never carry a
// merchant link because staff reach merchant data only through impersonation.
func (s *AuthService) CompleteLogin(ctx context.Context, input CompleteLoginInput) (*CompleteLoginResult, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	identity, err := s.provider.Exchange(ctx, ports.ExchangeInput(input))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	if identity.UserID == "" {
		return nil, errors.New("identity has no user id")
	}

	session := s.newSession(identity)
	if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
		return nil, fmt.Errorf("save session: %w", saveErr)
	}
	return &CompleteLoginResult{Session: session}, nil
}

func (s *AuthService) newSession(identity domainauth.Identity) domainauth.Session {
	role := identity.Role
	if role == domainauth.RoleUnknown {
		role = s.roles.Map(identity.Groups)
	}

	expires := identity.ExpiresAt
	if limit := s.now().Add(s.maxTTL); expires.IsZero() || expires.After(limit) {
		expires = limit
	}

	sess := domainauth.Session{
		ID:         uuid.NewString(),
		UserID:     identity.UserID,
		FirstName:  identity.FirstName,
		LastName:   identity.LastName,
		Email:      identity.Email,
		Role:       role,
		MerchantID: identity.MerchantID,
		DemoActive: identity.DemoActive,
		ExpiresAt:  expires,
	}
	if role.IsStaff() {
		sess.MerchantID = ""
	}
	return sess
}

// GetSession returns the live session for sessionID. Unknown and expired sessions both
// yield an error matching ports.ErrSessionNotFound; expired ones are deleted on the way.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if !s.now().Before(session.ExpiresAt) {
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			return nil, errors.Join(errSessionExpired, fmt.Errorf("delete session: %w", deleteErr))
		}
		return nil, errSessionExpired
	}
	return &session, nil
}

// Logout removes a session and any view state its tabs still hold.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	var errs []error
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		errs = append(errs, fmt.Errorf("delete session: %w", err))
	}
	if s.views != nil {
		if err := s.views.Clear(ctx, sessionID); err != nil {
			errs = append(errs, fmt.Errorf("clear view state: %w", err))
		}
	}
	return errors.Join(errs...)
}
