// Package redis provides Redis-backed stores for console sessions and per-tab view state.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/pigbank/console-api/internal/domain/auth"
	"github.com/pigbank/console-api/internal/ports"
)

const defaultSessionPrefix = "session:"

var errSessionExpired = errors.New("session is expired")

// SessionStore keeps console sessions as JSON under "<prefix><session-id>". Redis expires
// each key at the session's ExpiresAt.
type SessionStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

var _ ports.SessionStore = (*SessionStore)(nil)

// SessionStoreOptions configures SessionStore.
type SessionStoreOptions struct {
	Prefix string // defaults to "session:"
	Now    func() time.Time
}

// NewSessionStore creates a Redis-backed SessionStore.
func NewSessionStore(client redis.UniversalClient, opts SessionStoreOptions) *SessionStore {
	if opts.Prefix == "" {
		opts.Prefix = defaultSessionPrefix
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SessionStore{client: client, prefix: opts.Prefix, now: opts.Now}
}

func (s *SessionStore) key(id string) string { return s.prefix + id }

// Save writes sess with a TTL that ends at sess.ExpiresAt. Sessions that are already
// expired are rejected rather than stored.
func (s *SessionStore) Save(ctx context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return errSessionExpired
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sess.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get loads a session. Missing, blank and lapsed ids all return ports.ErrSessionNotFound.
// Role labels that are no longer recognised decode as RoleUnknown.
func (s *SessionStore) Get(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, ports.ErrSessionNotFound
	}

	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return domainauth.Session{}, ports.ErrSessionNotFound
	case err != nil:
		return domainauth.Session{}, fmt.Errorf("redis get: %w", err)
	}

	var sess domainauth.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return domainauth.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	sess.Role = domainauth.ParseRole(string(sess.Role))

	// Key TTLs are second granular; the stored expiry is authoritative.
	if !s.now().Before(sess.ExpiresAt) {
		if err := s.Delete(ctx, id); err != nil {
			return domainauth.Session{}, fmt.Errorf("cleanup expired session: %w", err)
		}
		return domainauth.Session{}, ports.ErrSessionNotFound
	}
	return sess, nil
}

// Delete removes a session. Deleting a blank or unknown id is a no-op.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
