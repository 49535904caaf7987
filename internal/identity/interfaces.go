package identity

import (
	"context"
	"time"

	"github.com/studybud/backend/internal/mailer"
	"github.com/studybud/backend/internal/models"
)

// UserStore captures the account persistence the identity service relies on.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id int64) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	TouchLastLogin(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	UpdateProfile(ctx context.Context, id int64, fullName, bio string) error
	UpdateRole(ctx context.Context, id int64, role models.Role) error
}

// LoginRecorder appends to and inspects the login audit log.
type LoginRecorder interface {
	Record(ctx context.Context, activity models.LoginActivity) error
	LastSuccess(ctx context.Context, userID int64) (*time.Time, error)
	CountFailuresSince(ctx context.Context, userID int64, since time.Time) (int, error)
}

// ResetTokenStore persists password reset tokens.
type ResetTokenStore interface {
	Replace(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	Find(ctx context.Context, token string) (models.PasswordResetToken, error)
	Delete(ctx context.Context, token string) error
	Consume(ctx context.Context, token string, now time.Time) (int64, error)
}

// PreferenceStore persists per-user email preferences.
type PreferenceStore interface {
	Get(ctx context.Context, userID int64) (models.UserPreferences, error)
	Upsert(ctx context.Context, prefs models.UserPreferences) error
}

// SiteSettings exposes the settings that gate sign up and login.
type SiteSettings interface {
	RegistrationsOpen(ctx context.Context) bool
	LoginAttemptLimit(ctx context.Context) int
}

// Mailer delivers reset links.
type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) error
}
