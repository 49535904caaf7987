// Package identity implements registration, login, sessions and password management.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/studybud/backend/internal/apperr"
	"github.com/studybud/backend/internal/auth"
	"github.com/studybud/backend/internal/logging"
	"github.com/studybud/backend/internal/models"
	"github.com/studybud/backend/internal/repositories"
	"github.com/studybud/backend/internal/validation"
)

const (
	resetTokenLifetime   = time.Hour
	defaultLockoutWindow = 15 * time.Minute
)

// Dependencies wires the identity service.
type Dependencies struct {
	Users         UserStore
	Logins        LoginRecorder
	ResetTokens   ResetTokenStore
	Preferences   PreferenceStore
	Settings      SiteSettings
	Sessions      *auth.Manager
	Hasher        *auth.PasswordHasher
	Mailer        Mailer
	BaseURL       string
	LockoutWindow time.Duration
}

// Service implements the account lifecycle.
type Service struct {
	users         UserStore
	logins        LoginRecorder
	resetTokens   ResetTokenStore
	preferences   PreferenceStore
	settings      SiteSettings
	sessions      *auth.Manager
	hasher        *auth.PasswordHasher
	mailer        Mailer
	baseURL       string
	lockoutWindow time.Duration
	now           func() time.Time
}

// NewService constructs the identity service.
func NewService(deps Dependencies) *Service {
	window := deps.LockoutWindow
	if window <= 0 {
		window = defaultLockoutWindow
	}
	return &Service{
		users:         deps.Users,
		logins:        deps.Logins,
		resetTokens:   deps.ResetTokens,
		preferences:   deps.Preferences,
		settings:      deps.Settings,
		sessions:      deps.Sessions,
		hasher:        deps.Hasher,
		mailer:        deps.Mailer,
		baseURL:       strings.TrimRight(deps.BaseURL, "/"),
		lockoutWindow: window,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// RegisterInput carries a sign up request.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"required,max=100"`
}

func (in *RegisterInput) normalize() {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	in.FullName = strings.TrimSpace(in.FullName)
}

// Register creates a student account when registrations are open.
func (s *Service) Register(ctx context.Context, in RegisterInput) (models.User, error) {
	ctx, span := logging.StartSpan(ctx, "identity.Register")
	defer span.End()

	if s.settings != nil && !s.settings.RegistrationsOpen(ctx) {
		return models.User{}, apperr.Validation("registration is currently closed")
	}
	return s.CreateUser(ctx, in, models.RoleStudent)
}

// CreateUser creates an account with role, bypassing the registration toggle. It is the
// path used by admins and the create-admin command.
func (s *Service) CreateUser(ctx context.Context, in RegisterInput, role models.Role) (models.User, error) {
	logger := logging.FromContext(ctx)

	in.normalize()
	if err := validation.Struct(in); err != nil {
		return models.User{}, err
	}
	if _, err := models.ParseRole(string(role)); err != nil {
		return models.User{}, apperr.Validation("invalid role %q", role)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		logger.Error("failed to hash password", "error", err)
		return models.User{}, apperr.OperationFailed(err, "unable to create account")
	}

	user := models.User{
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
		FullName:     in.FullName,
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			logger.Warn("registration conflict", "email", in.Email, "username", in.Username)
			return models.User{}, apperr.Conflict(err, "email or username is already taken")
		}
		logger.Error("failed to create user", "error", err, "email", in.Email)
		return models.User{}, apperr.OperationFailed(err, "unable to create account")
	}

	if s.preferences != nil {
		prefs := models.UserPreferences{UserID: user.ID, EmailNotifications: true}
		if err := s.preferences.Upsert(ctx, prefs); err != nil {
			logger.Warn("failed to store default preferences", "error", err, "userId", user.ID)
		}
	}

	logger.Info("user created", "userId", user.ID, "role", user.Role)
	return user, nil
}

// GetUser returns the account with id.
func (s *Service) GetUser(ctx context.Context, id int64) (models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, apperr.NotFound("user not found")
		}
		logging.FromContext(ctx).Error("failed to load user", "error", err, "userId", id)
		return models.User{}, apperr.Persistence(err, "unable to load user")
	}
	return user, nil
}
