package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/studybud/backend/internal/models"
)

var (
	// ErrSessionNotFound indicates the session id does not map to a stored session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates the session existed but its lifetime has elapsed.
	ErrSessionExpired = errors.New("session expired")
)

// SessionStore persists sessions keyed by their opaque id so they survive process restarts.
type SessionStore interface {
	Save(ctx context.Context, session Session) error
	Find(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

// UserSessionRevoker is implemented by stores that can drop every session of a user.
type UserSessionRevoker interface {
	DeleteByUser(ctx context.Context, userID int64) error
}

// Session is the server-side state behind a session cookie.
type Session struct {
	ID        string      `json:"id"`
	UserID    int64       `json:"userId"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	CSRFToken string      `json:"csrfToken"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// Manager manages the lifecycle of sessions backed by a persistent store.
type Manager struct {
	lifetime time.Duration
	store    SessionStore
	now      func() time.Time
}

// NewManager constructs a Manager issuing sessions valid for lifetime.
func NewManager(lifetime time.Duration, store SessionStore) *Manager {
	if store == nil {
		panic("auth: session store must not be nil")
	}
	if lifetime <= 0 {
		lifetime = time.Hour
	}
	return &Manager{
		lifetime: lifetime,
		store:    store,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Lifetime reports how long issued sessions stay valid.
func (m *Manager) Lifetime() time.Duration {
	return m.lifetime
}

// Issue creates a session for user with a fresh id and CSRF token.
func (m *Manager) Issue(ctx context.Context, user models.User) (Session, error) {
	if user.ID == 0 {
		return Session{}, errors.New("user id must be provided")
	}

	id, err := randomToken()
	if err != nil {
		return Session{}, err
	}
	csrf, err := randomToken()
	if err != nil {
		return Session{}, err
	}

	session := Session{
		ID:        id,
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CSRFToken: csrf,
		ExpiresAt: m.now().Add(m.lifetime),
	}

	if err := m.store.Save(ctx, session); err != nil {
		return Session{}, err
	}
	return session, nil
}

// Lookup returns the live session for id. Expired sessions are removed.
func (m *Manager) Lookup(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, ErrSessionNotFound
	}

	session, err := m.store.Find(ctx, id)
	if err != nil {
		return Session{}, err
	}

	if !m.now().Before(session.ExpiresAt) {
		_ = m.store.Delete(ctx, id)
		return Session{}, ErrSessionExpired
	}
	return session, nil
}

// SetRole rewrites the role cached in a session after the user's role changed.
func (m *Manager) SetRole(ctx context.Context, id string, role models.Role) error {
	session, err := m.Lookup(ctx, id)
	if err != nil {
		return err
	}
	session.Role = role
	return m.store.Save(ctx, session)
}

// Revoke removes the session. Unknown ids are ignored.
func (m *Manager) Revoke(ctx context.Context, id string) {
	if id == "" {
		return
	}
	_ = m.store.Delete(ctx, id)
}

// RevokeUser removes every session of userID when the store supports it.
func (m *Manager) RevokeUser(ctx context.Context, userID int64) error {
	revoker, ok := m.store.(UserSessionRevoker)
	if !ok {
		return nil
	}
	return revoker.DeleteByUser(ctx, userID)
}

func randomToken() (string, error) {
	const size = 32
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
