package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	domainauth "github.com/pigbank/console-api/internal/domain/auth"
	"github.com/pigbank/console-api/internal/domain/impersonation"
	"github.com/pigbank/console-api/internal/domain/scope"
	"github.com/pigbank/console-api/internal/observability/metrics"
	"github.com/pigbank/console-api/internal/ports"
)

// ImpersonationStoreOptions groups dependencies for ImpersonationStore.
type ImpersonationStoreOptions struct {
	Role    domainauth.Role
	ActorID string
	Key     ports.ViewKey
	Storage ports.ViewStorage
	// TTL bounds the persisted value; normally the remaining session lifetime.
	TTL    time.Duration
	Logger *slog.Logger
}

// ImpersonationStore holds the impersonation state of one view session.
//
// State is persisted before it changes in memory. Storage failures are logged and the
// store keeps working in memory for the rest of the request.
type ImpersonationStore struct {
	role    domainauth.Role
	actorID string
	key     ports.ViewKey
	storage ports.ViewStorage
	ttl     time.Duration
	logger  *slog.Logger

	mu          sync.Mutex
	state       impersonation.State
	initialized bool
}

// NewImpersonationStore constructs a store bound to one view session. A nil storage or an
// invalid key yields a memory-only store.
func NewImpersonationStore(opts ImpersonationStoreOptions) *ImpersonationStore {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ImpersonationStore{
		role:    opts.Role,
		actorID: opts.ActorID,
		key:     opts.Key,
		storage: opts.Storage,
		ttl:     opts.TTL,
		logger: logger.With(
			"component", "impersonation",
			"actor_id", opts.ActorID,
			"tab_id", opts.Key.TabID,
		),
	}
}

func (s *ImpersonationStore) durable() bool {
	return s.storage != nil && s.key.Valid()
}

// Hydrate loads persisted state once. Malformed values, and values found under a
// non-staff role, are removed. After Hydrate the store reports Initialized.
func (s *ImpersonationStore) Hydrate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return
	}
	defer func() { s.initialized = true }()

	if !s.durable() {
		return
	}
	raw, ok, err := s.storage.Load(ctx, s.key)
	if err != nil {
		s.storageFailed(ctx, "load", err)
		return
	}
	if !ok {
		return
	}

	target, err := impersonation.Decode(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "discarding malformed impersonation state", "error", err)
		s.discard(ctx)
		return
	}
	if !s.role.IsStaff() {
		s.logger.WarnContext(ctx, "discarding impersonation state held by non-staff role",
			"role", s.role.String(), "merchant_id", target.MerchantID)
		s.discard(ctx)
		return
	}
	s.state = impersonation.Viewing(target)
}

// Enter starts viewing as target and reports whether the request was accepted. Only staff
// may enter, and the target must name a merchant. Entering while viewing replaces the
// target.
//
// A failed write still returns true, but the target then lives only in this store. Stores
// are built per request, so the next request in the same tab hydrates Empty.
func (s *ImpersonationStore) Enter(ctx context.Context, target impersonation.Target) bool {
	target.MerchantID = strings.TrimSpace(target.MerchantID)
	if !s.role.IsStaff() {
		s.refuse(ctx, "role may not impersonate", target)
		return false
	}
	if target.MerchantID == "" {
		s.refuse(ctx, "impersonation target has no merchant id", target)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.durable() {
		if err := s.persist(ctx, target); err != nil {
			s.storageFailed(ctx, "store", err)
		}
	}
	s.state = impersonation.Viewing(target)
	s.initialized = true

	metrics.ImpersonationTransitions.WithLabelValues(metrics.TransitionEnter).Inc()
	s.logger.InfoContext(ctx, "impersonation started",
		"merchant_id", target.MerchantID, "merchant_name", target.DisplayName())
	return true
}

// Exit stops viewing. Exiting an empty store is a no-op apart from clearing storage.
func (s *ImpersonationStore) Exit(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exitLocked(ctx, metrics.TransitionExit)
}

// ObserveLocation exits when the store is viewing and path is an exit route. It reports
// whether an exit happened.
func (s *ImpersonationStore) ObserveLocation(ctx context.Context, path string) bool {
	if !impersonation.IsExitRoute(path) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Active() {
		return false
	}
	s.exitLocked(ctx, metrics.TransitionExitRoute)
	return true
}

// Snapshot returns the current state as an immutable request-scope value.
func (s *ImpersonationStore) Snapshot() scope.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return scope.Session{
		Role:          s.role,
		Impersonation: s.state,
		Initialized:   s.initialized,
	}
}

// Initialized reports whether Hydrate has run.
func (s *ImpersonationStore) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Role returns the role the store was bound to.
func (s *ImpersonationStore) Role() domainauth.Role { return s.role }

func (s *ImpersonationStore) exitLocked(ctx context.Context, transition string) {
	was, active := s.state.Target()
	if s.durable() {
		if err := s.storage.Remove(ctx, s.key); err != nil {
			s.storageFailed(ctx, "remove", err)
		}
	}
	s.state = impersonation.Empty()
	if !active {
		return
	}
	metrics.ImpersonationTransitions.WithLabelValues(transition).Inc()
	s.logger.InfoContext(ctx, "impersonation ended",
		"merchant_id", was.MerchantID, "reason", transition)
}

func (s *ImpersonationStore) persist(ctx context.Context, target impersonation.Target) error {
	b, err := impersonation.Encode(target)
	if err != nil {
		return err
	}
	return s.storage.Store(ctx, s.key, b, s.ttl)
}

func (s *ImpersonationStore) discard(ctx context.Context) {
	metrics.ImpersonationTransitions.WithLabelValues(metrics.TransitionDiscarded).Inc()
	if err := s.storage.Remove(ctx, s.key); err != nil {
		s.storageFailed(ctx, "remove", err)
	}
}

func (s *ImpersonationStore) refuse(ctx context.Context, reason string, target impersonation.Target) {
	metrics.ImpersonationTransitions.WithLabelValues(metrics.TransitionRefused).Inc()
	s.logger.WarnContext(ctx, "impersonation refused",
		"reason", reason, "role", s.role.String(), "merchant_id", target.MerchantID)
}

func (s *ImpersonationStore) storageFailed(ctx context.Context, op string, err error) {
	metrics.ViewStorageErrors.WithLabelValues(op).Inc()
	level := slog.LevelError
	if errors.Is(err, context.Canceled) {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "view storage "+op+" failed", "error", err)
}
