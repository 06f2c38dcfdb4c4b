// Package session implements cookie-session lifecycle on top of the Postgres
// store, with an optional Redis read-through cache, plus the per-login tab
// token used to detect stale browser tabs.
package session

import (
	"context"
	"time"

	"secdir/internal/constants"
	"secdir/internal/logger"
)

// Session is one authenticated login, valid until ExpiresAt. Sessions are
// values and are never mutated after creation; expiry is fixed at creation
// time and enforced on lookup.
type Session struct {
	Token     string    `json:"token"`
	UserID    int       `json:"user_id"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"is_admin"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store is the persistent session backend.
type Store interface {
	CreateSession(ctx context.Context, token string, userID int, expiresAt time.Time) error
	SessionByToken(ctx context.Context, token string) (Session, bool, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteSessionsForUser(ctx context.Context, userID int) error
}

// cacheLayer is the read-through layer in front of the store; *Cache is the
// Redis implementation.
type cacheLayer interface {
	get(ctx context.Context, token string) (Session, bool)
	put(ctx context.Context, s Session)
	del(ctx context.Context, token string)
	flush(ctx context.Context)
}

// Manager drives session lifecycle. Safe for use from concurrent connections.
type Manager struct {
	store  Store
	tokens *TokenSource
	cache  cacheLayer
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithCache adds a read-through cache in front of the store. A nil cache is
// ignored.
func WithCache(c *Cache) Option {
	return func(m *Manager) {
		if c != nil {
			m.cache = c
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager builds a Manager around a store and an explicit token source.
func NewManager(store Store, tokens *TokenSource, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		tokens: tokens,
		ttl:    constants.SessionDuration,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create issues a fresh session token for userID with an absolute expiry of
// now plus the session duration.
func (m *Manager) Create(ctx context.Context, userID int) (string, error) {
	token := m.tokens.Hex()
	if err := m.store.CreateSession(ctx, token, userID, m.now().Add(m.ttl)); err != nil {
		return "", err
	}
	return token, nil
}

// Resolve maps a presented token to a session. Expired and unknown tokens
// both resolve to "not logged in"; store failures are logged and treated the
// same way rather than surfaced to the dispatcher.
func (m *Manager) Resolve(ctx context.Context, token string) (Session, bool) {
	if token == "" {
		return Session{}, false
	}

	if m.cache != nil {
		if s, ok := m.cache.get(ctx, token); ok {
			if m.now().Before(s.ExpiresAt) {
				return s, true
			}
			m.cache.del(ctx, token)
		}
	}

	s, ok, err := m.store.SessionByToken(ctx, token)
	if err != nil {
		logger.Errorf(ctx, "session lookup failed: %v", err)
		return Session{}, false
	}
	if !ok {
		return Session{}, false
	}
	if !m.now().Before(s.ExpiresAt) {
		// Lazily clean up; there is no background eviction.
		_ = m.store.DeleteSession(ctx, token)
		return Session{}, false
	}

	if m.cache != nil {
		m.cache.put(ctx, s)
	}
	return s, true
}

// Destroy deletes a session. Destroying an unknown token is a no-op success.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if m.cache != nil {
		m.cache.del(ctx, token)
	}
	return m.store.DeleteSession(ctx, token)
}

// DestroyAllForUser removes every session belonging to userID, e.g. forced
// logout on a future password change.
func (m *Manager) DestroyAllForUser(ctx context.Context, userID int) error {
	if m.cache != nil {
		m.cache.flush(ctx)
	}
	return m.store.DeleteSessionsForUser(ctx, userID)
}

// NewTabToken generates the secondary per-login token embedded in pages and
// mirrored in a script-readable cookie. It is a reconciliation value, not an
// authorization credential.
func (m *Manager) NewTabToken() string {
	return m.tokens.Hex()
}
