package repositories

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/studybud/backend/internal/db"
	"github.com/studybud/backend/internal/models"
)

const userColumns = `id, email, username, password_hash, full_name, role, is_active, bio, profile_image, created_at, updated_at, last_login`

// UserRepository persists user accounts.
type UserRepository struct {
	base
}

// NewUserRepository constructs a user repository over the shared pool.
func NewUserRepository(d *db.DB) *UserRepository {
	return &UserRepository{base: newBase(d)}
}

// Create inserts user and fills in its generated id and timestamps.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := r.now()
	if user.Role == "" {
		user.Role = models.RoleStudent
	}

	id, err := r.insert(ctx, `
        INSERT INTO users (email, username, password_hash, full_name, role, is_active, bio, profile_image, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        RETURNING id
    `, user.Email, user.Username, user.PasswordHash, user.FullName, user.Role, user.IsActive, user.Bio, user.ProfileImage, now, now)
	if err != nil {
		return translate(err, "insert user")
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// FindByID fetches a user by primary key.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (models.User, error) {
	var user models.User
	if err := r.get(ctx, r.db, &user, `SELECT `+userColumns+` FROM users WHERE id = ?`, id); err != nil {
		return models.User{}, translate(err, "select user")
	}
	return user, nil
}

// FindByEmail fetches a user by email address. Emails are stored lower-cased.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	if err := r.get(ctx, r.db, &user, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(email)); err != nil {
		return models.User{}, translate(err, "select user by email")
	}
	return user, nil
}

// TouchLastLogin records a successful login time.
func (r *UserRepository) TouchLastLogin(ctx context.Context, id int64) error {
	res, err := r.exec(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, r.now(), id)
	if err != nil {
		return translate(err, "update last login")
	}
	if rowsAffected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	res, err := r.exec(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, r.now(), id)
	if err != nil {
		return translate(err, "update password")
	}
	if rowsAffected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProfile changes the self-service profile fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, fullName, bio string) error {
	res, err := r.exec(ctx, `UPDATE users SET full_name = ?, bio = ?, updated_at = ? WHERE id = ?`, fullName, bio, r.now(), id)
	if err != nil {
		return translate(err, "update profile")
	}
	if rowsAffected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateRole changes a user's role.
func (r *UserRepository) UpdateRole(ctx context.Context, id int64, role models.Role) error {
	res, err := r.exec(ctx, `UPDATE users SET role = ?, updated_at = ? WHERE id = ?`, role, r.now(), id)
	if err != nil {
		return translate(err, "update role")
	}
	if rowsAffected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

// Update applies an admin edit. It fails with ErrLastAdmin when the edit would demote
// or deactivate the only active admin.
func (r *UserRepository) Update(ctx context.Context, id int64, update models.UserUpdate) error {
	if update.Empty() {
		return nil
	}

	var sets []string
	var args []any
	if update.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(*update.Email)))
	}
	if update.Username != nil {
		sets = append(sets, "username = ?")
		args = append(args, strings.TrimSpace(*update.Username))
	}
	if update.FullName != nil {
		sets = append(sets, "full_name = ?")
		args = append(args, strings.TrimSpace(*update.FullName))
	}
	if update.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *update.IsActive)
	}
	if update.Role != nil {
		sets = append(sets, "role = ?")
		args = append(args, *update.Role)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, r.now(), id)

	demotes := (update.Role != nil && *update.Role != models.RoleAdmin) || (update.IsActive != nil && !*update.IsActive)

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if demotes {
			if err := r.guardLastAdmin(ctx, tx, id); err != nil {
				return err
			}
		}

		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
		if err != nil {
			return translate(err, "update user")
		}
		if rowsAffected(res) == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Delete removes a user unless they are the last active admin.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := r.guardLastAdmin(ctx, tx, id); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM users WHERE id = ?`), id)
		if err != nil {
			return translate(err, "delete user")
		}
		if rowsAffected(res) == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// guardLastAdmin refuses to remove id when it is the only active admin. Inactive
// admins and non-admins never trip it. On PostgreSQL the active admin rows stay
// locked until the transaction ends, so two concurrent removals cannot both pass.
func (r *UserRepository) guardLastAdmin(ctx context.Context, tx *sqlx.Tx, id int64) error {
	query := `SELECT id FROM users WHERE role = ? AND is_active = ?`
	if r.db.Dialect() == db.DialectPostgres {
		query += ` FOR UPDATE`
	}

	var admins []int64
	if err := sqlx.SelectContext(ctx, tx, &admins, tx.Rebind(query), models.RoleAdmin, true); err != nil {
		return translate(err, "lock active admins")
	}
	if !slices.Contains(admins, id) {
		return nil
	}
	if len(admins) <= 1 {
		return ErrLastAdmin
	}
	return nil
}

// List returns a page of users, newest first.
func (r *UserRepository) List(ctx context.Context, page models.Page) ([]models.User, error) {
	var users []models.User
	err := r.selectAll(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY id DESC LIMIT ? OFFSET ?`, page.Limit(), page.Offset())
	if err != nil {
		return nil, translate(err, "list users")
	}
	return users, nil
}

// ListByRole returns every user with role ordered by username.
func (r *UserRepository) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	var users []models.User
	err := r.selectAll(ctx, &users, `SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY username`, role)
	if err != nil {
		return nil, translate(err, "list users by role")
	}
	return users, nil
}

// Recent returns the most recently registered users.
func (r *UserRepository) Recent(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	err := r.selectAll(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, translate(err, "list recent users")
	}
	return users, nil
}

// Count returns the number of users.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	n, err := r.count(ctx, `SELECT COUNT(*) FROM users`)
	if err != nil {
		return 0, translate(err, "count users")
	}
	return n, nil
}

// CountActive returns the number of active users.
func (r *UserRepository) CountActive(ctx context.Context) (int, error) {
	n, err := r.count(ctx, `SELECT COUNT(*) FROM users WHERE is_active = ?`, true)
	if err != nil {
		return 0, translate(err, "count active users")
	}
	return n, nil
}

// CountByRole returns the number of users holding role.
func (r *UserRepository) CountByRole(ctx context.Context, role models.Role) (int, error) {
	n, err := r.count(ctx, `SELECT COUNT(*) FROM users WHERE role = ?`, role)
	if err != nil {
		return 0, translate(err, fmt.Sprintf("count %s users", role))
	}
	return n, nil
}
