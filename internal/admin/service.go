// Package admin implements the back office: dashboard figures, user and course
// listings, the login audit log, admin account management and site settings.
package admin

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/studybud/backend/internal/apperr"
	"github.com/studybud/backend/internal/identity"
	"github.com/studybud/backend/internal/logging"
	"github.com/studybud/backend/internal/models"
	"github.com/studybud/backend/internal/repositories"
	"github.com/studybud/backend/internal/validation"
)

const dashboardRecentLimit = 5

// Dependencies wires the admin service.
type Dependencies struct {
	Users    UserStore
	Courses  CourseStore
	Videos   VideoCounter
	Logins   LoginLog
	Accounts Accounts
	Settings SiteSettings
	Sessions SessionRevoker
}

// Service implements the admin and reporting operations.
type Service struct {
	users    UserStore
	courses  CourseStore
	videos   VideoCounter
	logins   LoginLog
	accounts Accounts
	settings SiteSettings
	sessions SessionRevoker
}

// NewService constructs the admin service.
func NewService(deps Dependencies) *Service {
	return &Service{
		users:    deps.Users,
		courses:  deps.Courses,
		videos:   deps.Videos,
		logins:   deps.Logins,
		accounts: deps.Accounts,
		settings: deps.Settings,
		sessions: deps.Sessions,
	}
}

// IsAdmin reports whether userID is an active admin. Unknown users are not admins.
func (s *Service) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, nil
		}
		return false, readFailure(ctx, err, "user")
	}
	return user.Role == models.RoleAdmin && user.IsActive, nil
}

// DashboardStats gathers the headline figures for the admin dashboard.
func (s *Service) DashboardStats(ctx context.Context) (models.DashboardStats, error) {
	ctx, span := logging.StartSpan(ctx, "admin.DashboardStats")
	defer span.End()

	var stats models.DashboardStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats.TotalUsers, err = s.users.Count(gctx)
		return wrapRead(gctx, err, "users")
	})
	g.Go(func() (err error) {
		stats.ActiveUsers, err = s.users.CountActive(gctx)
		return wrapRead(gctx, err, "users")
	})
	g.Go(func() (err error) {
		stats.TotalCourses, err = s.courses.Count(gctx)
		return wrapRead(gctx, err, "courses")
	})
	g.Go(func() (err error) {
		stats.TotalVideos, err = s.videos.Count(gctx)
		return wrapRead(gctx, err, "videos")
	})
	g.Go(func() (err error) {
		stats.RecentUsers, err = s.users.Recent(gctx, dashboardRecentLimit)
		return wrapRead(gctx, err, "users")
	})
	g.Go(func() (err error) {
		stats.RecentLogins, err = s.logins.List(gctx, models.Page{Number: 1, PerPage: dashboardRecentLimit})
		return wrapRead(gctx, err, "login activity")
	})
	if err := g.Wait(); err != nil {
		return models.DashboardStats{}, err
	}

	stats.RecentUsers = nonNil(stats.RecentUsers)
	stats.RecentLogins = nonNil(stats.RecentLogins)
	return stats, nil
}

// Users returns a page of every user, newest first.
func (s *Service) Users(ctx context.Context, page models.Page) (models.Paginated[models.User], error) {
	page = page.Normalize()
	users, err := s.users.List(ctx, page)
	if err != nil {
		return models.Paginated[models.User]{}, readFailure(ctx, err, "users")
	}
	total, err := s.UserCount(ctx)
	if err != nil {
		return models.Paginated[models.User]{}, err
	}
	return models.NewPaginated(users, total, page), nil
}

// UserCount returns the number of users.
func (s *Service) UserCount(ctx context.Context) (int, error) {
	n, err := s.users.Count(ctx)
	if err != nil {
		return 0, readFailure(ctx, err, "users")
	}
	return n, nil
}

// Courses returns a page of courses in any status.
func (s *Service) Courses(ctx context.Context, page models.Page) (models.Paginated[models.CourseSummary], error) {
	page = page.Normalize()
	courses, err := s.courses.ListAll(ctx, page)
	if err != nil {
		return models.Paginated[models.CourseSummary]{}, readFailure(ctx, err, "courses")
	}
	total, err := s.CourseCount(ctx)
	if err != nil {
		return models.Paginated[models.CourseSummary]{}, err
	}
	return models.NewPaginated(courses, total, page), nil
}

// CourseCount returns the number of courses in any status.
func (s *Service) CourseCount(ctx context.Context) (int, error) {
	n, err := s.courses.Count(ctx)
	if err != nil {
		return 0, readFailure(ctx, err, "courses")
	}
	return n, nil
}

// LoginActivity returns a page of the login audit log, newest first.
func (s *Service) LoginActivity(ctx context.Context, page models.Page) (models.Paginated[models.LoginActivity], error) {
	page = page.Normalize()
	rows, err := s.logins.List(ctx, page)
	if err != nil {
		return models.Paginated[models.LoginActivity]{}, readFailure(ctx, err, "login activity")
	}
	total, err := s.logins.Count(ctx)
	if err != nil {
		return models.Paginated[models.LoginActivity]{}, readFailure(ctx, err, "login activity")
	}
	return models.NewPaginated(rows, total, page), nil
}

// RecordLogin appends an audit row.
func (s *Service) RecordLogin(ctx context.Context, activity models.LoginActivity) error {
	if err := s.logins.Record(ctx, activity); err != nil {
		return writeFailure(ctx, err, "login activity", "record login")
	}
	return nil
}

// CreateAdminUser creates an active admin account.
func (s *Service) CreateAdminUser(ctx context.Context, in identity.RegisterInput) (models.User, error) {
	user, err := s.accounts.CreateUser(ctx, in, models.RoleAdmin)
	if err != nil {
		return models.User{}, err
	}
	logging.FromContext(ctx).Info("admin user created", "userId", user.ID)
	return user, nil
}

// UpdateUser applies an admin edit to userID. Demoting or deactivating the last
// admin is refused.
func (s *Service) UpdateUser(ctx context.Context, userID int64, update models.UserUpdate) (models.User, error) {
	ctx, span := logging.StartSpan(ctx, "admin.UpdateUser")
	defer span.End()

	if err := normalizeUserUpdate(&update); err != nil {
		return models.User{}, err
	}

	if err := s.users.Update(ctx, userID, update); err != nil {
		switch {
		case errors.Is(err, repositories.ErrLastAdmin):
			return models.User{}, apperr.ErrCannotDeleteLastAdmin
		case errors.Is(err, repositories.ErrConflict):
			return models.User{}, apperr.Conflict(err, "email or username is already taken")
		}
		return models.User{}, writeFailure(ctx, err, "user", "update user")
	}

	// Sessions cache the role, so a demoted or deactivated user signs in again.
	if s.sessions != nil && (update.Role != nil || (update.IsActive != nil && !*update.IsActive)) {
		if err := s.sessions.RevokeUser(ctx, userID); err != nil {
			logging.FromContext(ctx).Warn("failed to revoke sessions after user update", "error", err, "userId", userID)
		}
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return models.User{}, readFailure(ctx, err, "user")
	}
	logging.FromContext(ctx).Info("user updated by admin", "userId", userID)
	return user, nil
}

func normalizeUserUpdate(u *models.UserUpdate) error {
	if u.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*u.Email))
		if !validation.Email(email) {
			return apperr.Validation("invalid email address")
		}
		u.Email = &email
	}
	if u.Username != nil {
		username := strings.TrimSpace(*u.Username)
		if len(username) < 3 || len(username) > 50 {
			return apperr.Validation("username must be between 3 and 50 characters")
		}
		u.Username = &username
	}
	if u.FullName != nil {
		name := strings.TrimSpace(*u.FullName)
		if len(name) > 100 {
			return apperr.Validation("full name must be at most 100 characters")
		}
		u.FullName = &name
	}
	if u.Role != nil {
		role, err := models.ParseRole(string(*u.Role))
		if err != nil {
			return apperr.Validation("invalid role %q", *u.Role)
		}
		u.Role = &role
	}
	return nil
}

// UpdateUserPassword sets a new password for userID.
func (s *Service) UpdateUserPassword(ctx context.Context, userID int64, password string) error {
	return s.accounts.UpdatePassword(ctx, userID, password)
}

// DeleteUser removes userID unless they are the last admin.
func (s *Service) DeleteUser(ctx context.Context, userID int64) error {
	ctx, span := logging.StartSpan(ctx, "admin.DeleteUser")
	defer span.End()

	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrLastAdmin) {
			logging.FromContext(ctx).Warn("refused to delete last admin", "userId", userID)
			return apperr.ErrCannotDeleteLastAdmin
		}
		return writeFailure(ctx, err, "user", "delete user")
	}
	logging.FromContext(ctx).Info("user deleted by admin", "userId", userID)
	return nil
}

// Admins lists every admin account.
func (s *Service) Admins(ctx context.Context) ([]models.User, error) {
	admins, err := s.users.ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		return nil, readFailure(ctx, err, "admins")
	}
	return nonNil(admins), nil
}

// AdminCount returns the number of admin accounts.
func (s *Service) AdminCount(ctx context.Context) (int, error) {
	n, err := s.users.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return 0, readFailure(ctx, err, "admins")
	}
	return n, nil
}

// Settings returns every site setting sorted by key.
func (s *Service) Settings(ctx context.Context) ([]models.Setting, error) {
	return s.settings.List(ctx)
}

// UpdateSetting changes one site setting.
func (s *Service) UpdateSetting(ctx context.Context, key, value string) error {
	if err := s.settings.Update(ctx, key, value); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("setting updated", "key", key)
	return nil
}

func wrapRead(ctx context.Context, err error, entity string) error {
	if err == nil {
		return nil
	}
	return readFailure(ctx, err, entity)
}

func readFailure(ctx context.Context, err error, entity string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound("%s not found", entity)
	}
	logging.FromContext(ctx).Error("admin read failed", "entity", entity, "error", err)
	return apperr.Persistence(err, "unable to load %s", entity)
}

func writeFailure(ctx context.Context, err error, entity, action string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound("%s not found", entity)
	}
	logging.FromContext(ctx).Error("admin write failed", "entity", entity, "action", action, "error", err)
	return apperr.OperationFailed(err, "unable to %s", action)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
