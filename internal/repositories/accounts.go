package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/studybud/backend/internal/db"
	"github.com/studybud/backend/internal/models"
)

// LoginActivityRepository persists the login audit log.
type LoginActivityRepository struct {
	base
}

// NewLoginActivityRepository constructs a login audit repository over the shared pool.
func NewLoginActivityRepository(d *db.DB) *LoginActivityRepository {
	return &LoginActivityRepository{base: newBase(d)}
}

// Record appends an audit row. LoginTime defaults to now when zero.
func (r *LoginActivityRepository) Record(ctx context.Context, activity models.LoginActivity) error {
	if activity.LoginTime.IsZero() {
		activity.LoginTime = r.now()
	}
	_, err := r.exec(ctx, `
        INSERT INTO login_activity (user_id, email, username, ip_address, user_agent, status, login_time)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `, activity.UserID, activity.Email, activity.Username, activity.IPAddress, activity.UserAgent, string(activity.Status), activity.LoginTime)
	if err != nil {
		return translate(err, "insert login activity")
	}
	return nil
}

const loginActivitySelect = `
        SELECT la.id, la.user_id, la.email, la.username, COALESCE(u.full_name, '') AS full_name,
               la.ip_address, la.user_agent, la.status, la.login_time
        FROM login_activity la
        LEFT JOIN users u ON u.id = la.user_id`

// List returns a page of the audit log, newest first.
func (r *LoginActivityRepository) List(ctx context.Context, page models.Page) ([]models.LoginActivity, error) {
	var rows []models.LoginActivity
	err := r.selectAll(ctx, &rows, loginActivitySelect+`
        ORDER BY la.login_time DESC, la.id DESC
        LIMIT ? OFFSET ?`, page.Limit(), page.Offset())
	if err != nil {
		return nil, translate(err, "list login activity")
	}
	return rows, nil
}

// Count returns the number of audit rows.
func (r *LoginActivityRepository) Count(ctx context.Context) (int, error) {
	n, err := r.count(ctx, `SELECT COUNT(*) FROM login_activity`)
	if err != nil {
		return 0, translate(err, "count login activity")
	}
	return n, nil
}

// LastSuccess returns the time of userID's latest successful login, or nil.
func (r *LoginActivityRepository) LastSuccess(ctx context.Context, userID int64) (*time.Time, error) {
	var at time.Time
	err := r.get(ctx, r.db, &at, `
        SELECT login_time FROM login_activity
        WHERE user_id = ? AND status = ?
        ORDER BY login_time DESC, id DESC
        LIMIT 1`, userID, string(models.LoginSuccess))
	if err != nil {
		if errors.Is(translate(err, ""), ErrNotFound) {
			return nil, nil
		}
		return nil, translate(err, "select last successful login")
	}
	return &at, nil
}

// CountFailuresSince returns userID's failed attempts after since.
func (r *LoginActivityRepository) CountFailuresSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	n, err := r.count(ctx, `
        SELECT COUNT(*) FROM login_activity
        WHERE user_id = ? AND status = ? AND login_time > ?`, userID, string(models.LoginFailed), since.UTC())
	if err != nil {
		return 0, translate(err, "count failed logins")
	}
	return n, nil
}

// ResetTokenRepository persists password reset tokens.
type ResetTokenRepository struct {
	base
}

// NewResetTokenRepository constructs a reset token repository over the shared pool.
func NewResetTokenRepository(d *db.DB) *ResetTokenRepository {
	return &ResetTokenRepository{base: newBase(d)}
}

// Replace deletes userID's existing tokens and stores token in their place.
func (r *ResetTokenRepository) Replace(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM password_reset_tokens WHERE user_id = ?`), userID); err != nil {
			return translate(err, "delete previous reset tokens")
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(`
            INSERT INTO password_reset_tokens (user_id, token, expires_at, created_at)
            VALUES (?, ?, ?, ?)
        `), userID, token, expiresAt.UTC(), r.now())
		if err != nil {
			return translate(err, "insert reset token")
		}
		return nil
	})
}

// Find looks a token up regardless of expiry.
func (r *ResetTokenRepository) Find(ctx context.Context, token string) (models.PasswordResetToken, error) {
	var t models.PasswordResetToken
	err := r.get(ctx, r.db, &t, `SELECT user_id, token, expires_at, created_at FROM password_reset_tokens WHERE token = ?`, token)
	if err != nil {
		return models.PasswordResetToken{}, translate(err, "select reset token")
	}
	return t, nil
}

// Delete removes a token. Deleting a missing token is a no-op.
func (r *ResetTokenRepository) Delete(ctx context.Context, token string) error {
	if _, err := r.exec(ctx, `DELETE FROM password_reset_tokens WHERE token = ?`, token); err != nil {
		return translate(err, "delete reset token")
	}
	return nil
}

// Consume deletes token when it is still live at now and returns its owner. Only one
// caller can consume a token; the rest get ErrNotFound.
func (r *ResetTokenRepository) Consume(ctx context.Context, token string, now time.Time) (int64, error) {
	var userID int64
	err := r.get(ctx, r.db, &userID, `DELETE FROM password_reset_tokens WHERE token = ? AND expires_at > ? RETURNING user_id`, token, now.UTC())
	if err != nil {
		return 0, translate(err, "consume reset token")
	}
	return userID, nil
}

// DeleteExpired purges tokens that expired before now and reports how many were removed.
func (r *ResetTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.exec(ctx, `DELETE FROM password_reset_tokens WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, translate(err, "purge reset tokens")
	}
	return rowsAffected(res), nil
}

// SettingsRepository persists the site settings key-value store.
type SettingsRepository struct {
	base
}

// NewSettingsRepository constructs a settings repository over the shared pool.
func NewSettingsRepository(d *db.DB) *SettingsRepository {
	return &SettingsRepository{base: newBase(d)}
}

// EnsureDefaults inserts any of defaults that are not stored yet.
func (r *SettingsRepository) EnsureDefaults(ctx context.Context, defaults map[string]string) error {
	now := r.now()
	for key, value := range defaults {
		_, err := r.exec(ctx, `
            INSERT INTO settings (setting_key, setting_value, updated_at)
            VALUES (?, ?, ?)
            ON CONFLICT (setting_key) DO NOTHING
        `, key, value, now)
		if err != nil {
			return translate(err, "insert default setting")
		}
	}
	return nil
}

// All returns every stored setting ordered by key.
func (r *SettingsRepository) All(ctx context.Context) ([]models.Setting, error) {
	var settings []models.Setting
	if err := r.selectAll(ctx, &settings, `SELECT setting_key, setting_value, updated_at FROM settings ORDER BY setting_key`); err != nil {
		return nil, translate(err, "list settings")
	}
	return settings, nil
}

// Upsert stores value under key.
func (r *SettingsRepository) Upsert(ctx context.Context, key, value string) error {
	_, err := r.exec(ctx, `
        INSERT INTO settings (setting_key, setting_value, updated_at)
        VALUES (?, ?, ?)
        ON CONFLICT (setting_key)
        DO UPDATE SET setting_value = excluded.setting_value, updated_at = excluded.updated_at
    `, key, value, r.now())
	if err != nil {
		return translate(err, "upsert setting")
	}
	return nil
}

// PreferencesRepository persists per-user notification preferences.
type PreferencesRepository struct {
	base
}

// NewPreferencesRepository constructs a preferences repository over the shared pool.
func NewPreferencesRepository(d *db.DB) *PreferencesRepository {
	return &PreferencesRepository{base: newBase(d)}
}

// Get returns userID's stored preferences.
func (r *PreferencesRepository) Get(ctx context.Context, userID int64) (models.UserPreferences, error) {
	var prefs models.UserPreferences
	err := r.get(ctx, r.db, &prefs, `
        SELECT user_id, email_notifications, marketing_emails, updated_at
        FROM user_preferences WHERE user_id = ?`, userID)
	if err != nil {
		return models.UserPreferences{}, translate(err, "select preferences")
	}
	return prefs, nil
}

// Upsert stores prefs for prefs.UserID.
func (r *PreferencesRepository) Upsert(ctx context.Context, prefs models.UserPreferences) error {
	_, err := r.exec(ctx, `
        INSERT INTO user_preferences (user_id, email_notifications, marketing_emails, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (user_id)
        DO UPDATE SET email_notifications = excluded.email_notifications,
                      marketing_emails = excluded.marketing_emails,
                      updated_at = excluded.updated_at
    `, prefs.UserID, prefs.EmailNotifications, prefs.MarketingEmails, r.now())
	if err != nil {
		return translate(err, "upsert preferences")
	}
	return nil
}
