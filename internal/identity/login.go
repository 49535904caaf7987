package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/studybud/backend/internal/apperr"
	"github.com/studybud/backend/internal/auth"
	"github.com/studybud/backend/internal/logging"
	"github.com/studybud/backend/internal/models"
	"github.com/studybud/backend/internal/repositories"
)

// LoginInput carries credentials together with client details for the audit log.
type LoginInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

var errInvalidCredentials = apperr.Auth("invalid email or password")

// Login verifies credentials and issues a session.
func (s *Service) Login(ctx context.Context, in LoginInput) (auth.Session, error) {
	ctx, span := logging.StartSpan(ctx, "identity.Login")
	defer span.End()
	logger := logging.FromContext(ctx)

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return auth.Session{}, apperr.Validation("email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			logger.Warn("login unknown email", "email", email)
			return auth.Session{}, errInvalidCredentials
		}
		logger.Error("login user lookup failed", "error", err, "email", email)
		return auth.Session{}, apperr.Persistence(err, "unable to sign in right now")
	}
	if !user.IsActive {
		logger.Warn("login inactive account", "userId", user.ID)
		return auth.Session{}, errInvalidCredentials
	}

	locked, err := s.lockedOut(ctx, user.ID)
	if err != nil {
		logger.Error("login lockout check failed", "error", err, "userId", user.ID)
		return auth.Session{}, apperr.Persistence(err, "unable to sign in right now")
	}
	if locked {
		logger.Warn("login locked out", "userId", user.ID)
		return auth.Session{}, apperr.Auth("too many failed login attempts, try again later")
	}

	ok, err := s.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		logger.Error("stored password hash unreadable", "error", err, "userId", user.ID)
	}
	if !ok {
		logger.Warn("login password mismatch", "userId", user.ID)
		s.record(ctx, user, in, models.LoginFailed)
		return auth.Session{}, errInvalidCredentials
	}

	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		logger.Warn("failed to update last login", "error", err, "userId", user.ID)
	}
	s.record(ctx, user, in, models.LoginSuccess)

	session, err := s.sessions.Issue(ctx, user)
	if err != nil {
		logger.Error("failed to issue session", "error", err, "userId", user.ID)
		return auth.Session{}, apperr.OperationFailed(err, "unable to create session")
	}

	logger.Info("user logged in", "userId", user.ID)
	return session, nil
}

// lockedOut reports whether userID's failed attempts since their last successful login,
// bounded by the lockout window, have reached the configured limit.
func (s *Service) lockedOut(ctx context.Context, userID int64) (bool, error) {
	if s.settings == nil || s.logins == nil {
		return false, nil
	}
	limit := s.settings.LoginAttemptLimit(ctx)
	if limit <= 0 {
		return false, nil
	}

	since := s.now().Add(-s.lockoutWindow)
	last, err := s.logins.LastSuccess(ctx, userID)
	if err != nil {
		return false, err
	}
	if last != nil && last.After(since) {
		since = *last
	}

	failures, err := s.logins.CountFailuresSince(ctx, userID, since)
	if err != nil {
		return false, err
	}
	return failures >= limit, nil
}

func (s *Service) record(ctx context.Context, user models.User, in LoginInput, status models.LoginStatus) {
	if s.logins == nil {
		return
	}
	userID := user.ID
	activity := models.LoginActivity{
		UserID:    &userID,
		Email:     user.Email,
		Username:  user.Username,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
		Status:    status,
		LoginTime: s.now(),
	}
	if err := s.logins.Record(ctx, activity); err != nil {
		logging.FromContext(ctx).Warn("failed to record login activity", "error", err, "userId", user.ID, "status", status)
	}
}

// CurrentSession returns the live session for id.
func (s *Service) CurrentSession(ctx context.Context, id string) (auth.Session, error) {
	session, err := s.sessions.Lookup(ctx, id)
	if err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) || errors.Is(err, auth.ErrSessionExpired) {
			return auth.Session{}, apperr.Auth("not signed in")
		}
		logging.FromContext(ctx).Error("session lookup failed", "error", err)
		return auth.Session{}, apperr.Persistence(err, "unable to load session")
	}
	return session, nil
}

// IsLoggedIn reports whether id names a live session.
func (s *Service) IsLoggedIn(ctx context.Context, id string) bool {
	_, err := s.CurrentSession(ctx, id)
	return err == nil
}

// Logout ends the session. Unknown ids are ignored.
func (s *Service) Logout(ctx context.Context, id string) {
	s.sessions.Revoke(ctx, id)
}
