package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/studybud/backend/internal/auth"
	"github.com/studybud/backend/internal/db"
	"github.com/studybud/backend/internal/models"
)

// SessionStore persists authenticated sessions in the sessions table.
type SessionStore struct {
	base
}

// NewSessionStore constructs a database-backed auth.SessionStore.
func NewSessionStore(d *db.DB) *SessionStore {
	return &SessionStore{base: newBase(d)}
}

var _ auth.SessionStore = (*SessionStore)(nil)

type sessionRow struct {
	ID        string      `db:"id"`
	UserID    int64       `db:"user_id"`
	Username  string      `db:"username"`
	Role      models.Role `db:"role"`
	CSRFToken string      `db:"csrf_token"`
	ExpiresAt time.Time   `db:"expires_at"`
}

// Save stores or updates a session record.
func (s *SessionStore) Save(ctx context.Context, session auth.Session) error {
	_, err := s.exec(ctx, `
        INSERT INTO sessions (id, user_id, username, role, csrf_token, expires_at, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (id)
        DO UPDATE SET username = excluded.username, role = excluded.role,
                      csrf_token = excluded.csrf_token, expires_at = excluded.expires_at
    `, session.ID, session.UserID, session.Username, session.Role, session.CSRFToken, session.ExpiresAt.UTC(), s.now())
	if err != nil {
		return translate(err, "upsert session")
	}
	return nil
}

// Find loads a session by id.
func (s *SessionStore) Find(ctx context.Context, id string) (auth.Session, error) {
	var row sessionRow
	err := s.get(ctx, s.db, &row, `
        SELECT id, user_id, username, role, csrf_token, expires_at
        FROM sessions WHERE id = ?`, id)
	if err != nil {
		if errors.Is(translate(err, ""), ErrNotFound) {
			return auth.Session{}, auth.ErrSessionNotFound
		}
		return auth.Session{}, translate(err, "select session")
	}

	return auth.Session{
		ID:        row.ID,
		UserID:    row.UserID,
		Username:  row.Username,
		Role:      row.Role,
		CSRFToken: row.CSRFToken,
		ExpiresAt: row.ExpiresAt.UTC(),
	}, nil
}

// Delete removes a session by id.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return translate(err, "delete session")
	}
	if rowsAffected(res) == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}

// DeleteByUser removes every session belonging to userID.
func (s *SessionStore) DeleteByUser(ctx context.Context, userID int64) error {
	if _, err := s.exec(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return translate(err, "delete user sessions")
	}
	return nil
}

// DeleteExpired purges sessions that expired before now.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.exec(ctx, `DELETE FROM sessions WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, translate(err, "purge sessions")
	}
	return rowsAffected(res), nil
}
