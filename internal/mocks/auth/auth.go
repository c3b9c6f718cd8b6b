// Package auth contains hand-written test doubles for the session, identity and view ports.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/pigbank/console-api/internal/domain/auth"
	"github.com/pigbank/console-api/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthProvider   = (*MockAuthProvider)(nil)
	_ ports.SessionStore   = (*MemorySessionStore)(nil)
	_ ports.RoleMapper     = (*StaticRoleMapper)(nil)
	_ ports.ViewStorage    = (*MemoryViewStorage)(nil)
	_ ports.IdentitySource = (*StaticIdentitySource)(nil)
)

// MockAuthProvider simulates an IdP for tests with deterministic state/nonce handling.
type MockAuthProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (authURL, state, nonce string, err error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error)

	// Deterministic values for predictable testing
	AuthURL     string
	StatePrefix string
	NoncePrefix string
	DefaultUser domainauth.Identity

	callCount int
}

// NewMockAuthProvider creates a MockAuthProvider with sensible defaults.
func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{
		AuthURL:     "https://mock-idp/auth",
		StatePrefix: "state",
		NoncePrefix: "nonce",
		DefaultUser: defaultIdentity(),
	}
}

func defaultIdentity() domainauth.Identity {
	return domainauth.Identity{
		UserID:     "mock-user-1",
		FirstName:  "Mock",
		LastName:   "Merchant",
		Email:      "mock.merchant@example.com",
		Groups:     []string{"merchants"},
		MerchantID: "m-mock",
		ExpiresAt:  time.Now().Add(time.Hour),
	}
}

func (m *MockAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (string, string, string, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}

	m.callCount++
	authURL := m.AuthURL
	if authURL == "" {
		authURL = "https://mock-idp/auth"
	}

	statePrefix := m.StatePrefix
	if statePrefix == "" {
		statePrefix = "state"
	}
	noncePrefix := m.NoncePrefix
	if noncePrefix == "" {
		noncePrefix = "nonce"
	}

	return authURL, fmt.Sprintf("%s-%d", statePrefix, m.callCount), fmt.Sprintf("%s-%d", noncePrefix, m.callCount), nil
}

func (m *MockAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}

	user := m.DefaultUser
	if user.UserID == "" {
		user = defaultIdentity()
	}
	user.ExpiresAt = time.Now().Add(time.Hour)

	return user, nil
}

// MemorySessionStore is an in-memory session store for unit tests.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domainauth.Session
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]domainauth.Session),
	}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if id == "" || !ok {
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	if id == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len reports how many sessions are stored.
func (m *MemorySessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ErrNotFound is what MemorySessionStore returns for unknown ids, matching the real store.
var ErrNotFound = ports.ErrSessionNotFound

// StaticRoleMapper maps groups by simple string membership rules.
// Precedence is admin, staff, merchant; anything else is a pending merchant.
type StaticRoleMapper struct {
	AdminGroup    string
	StaffGroup    string
	MerchantGroup string
}

func (m StaticRoleMapper) Map(groups []string) domainauth.Role {
	has := func(want string) bool {
		if want == "" {
			return false
		}
		for _, g := range groups {
			if g == want {
				return true
			}
		}
		return false
	}
	switch {
	case has(m.AdminGroup):
		return domainauth.RoleSupportAdmin
	case has(m.StaffGroup):
		return domainauth.RoleSupportStaff
	case has(m.MerchantGroup):
		return domainauth.RoleMerchant
	default:
		return domainauth.RolePendingMerchant
	}
}

// MemoryViewStorage is an in-memory ViewStorage. Set the Fail* errors to simulate an
// unavailable backend.
type MemoryViewStorage struct {
	mu     sync.Mutex
	values map[ports.ViewKey][]byte
	ttls   map[ports.ViewKey]time.Duration

	FailLoad   error
	FailStore  error
	FailRemove error
}

// NewMemoryViewStorage creates an empty MemoryViewStorage.
func NewMemoryViewStorage() *MemoryViewStorage {
	return &MemoryViewStorage{
		values: make(map[ports.ViewKey][]byte),
		ttls:   make(map[ports.ViewKey]time.Duration),
	}
}

func (m *MemoryViewStorage) Load(_ context.Context, key ports.ViewKey) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailLoad != nil {
		return nil, false, m.FailLoad
	}
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryViewStorage) Store(_ context.Context, key ports.ViewKey, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailStore != nil {
		return m.FailStore
	}
	m.values[key] = append([]byte(nil), value...)
	m.ttls[key] = ttl
	return nil
}

func (m *MemoryViewStorage) Remove(_ context.Context, key ports.ViewKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRemove != nil {
		return m.FailRemove
	}
	delete(m.values, key)
	return nil
}

// Clear fails with FailRemove when set.
func (m *MemoryViewStorage) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRemove != nil {
		return m.FailRemove
	}
	for k := range m.values {
		if k.SessionID == sessionID {
			delete(m.values, k)
		}
	}
	return nil
}

// Put seeds raw bytes, bypassing the failure switches.
func (m *MemoryViewStorage) Put(key ports.ViewKey, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
}

// Raw returns the stored bytes for key.
func (m *MemoryViewStorage) Raw(key ports.ViewKey) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

// StaticIdentitySource answers every lookup with a fixed session, or with the result of
// LookupFunc when set.
type StaticIdentitySource struct {
	Session    *domainauth.Session
	Err        error
	LookupFunc func(ctx context.Context, creds ports.Credentials) (*domainauth.Session, error)
}

func (s *StaticIdentitySource) Lookup(ctx context.Context, creds ports.Credentials) (*domainauth.Session, error) {
	if s.LookupFunc != nil {
		return s.LookupFunc(ctx, creds)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Session == nil {
		return nil, nil
	}
	cp := *s.Session
	return &cp, nil
}

// TTL returns the ttl passed with the last Store of key.
func (m *MemoryViewStorage) TTL(key ports.ViewKey) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttls[key]
}

// Keys returns the keys currently stored.
func (m *MemoryViewStorage) Keys() []ports.ViewKey {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ports.ViewKey, 0, len(m.values))
	for k := range m.values {
		out = append(out, k)
	}
	return out
}
