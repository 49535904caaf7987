package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"

	"github.com/studybud/backend/internal/apperr"
	"github.com/studybud/backend/internal/logging"
	"github.com/studybud/backend/internal/mailer"
	"github.com/studybud/backend/internal/repositories"
)

const minPasswordLength = 8

var errInvalidResetToken = apperr.Auth("invalid or expired reset link")

// CreatePasswordResetToken issues a one-hour reset token for an active account and mails
// the reset link. Unknown or inactive emails succeed silently, and so does a failed
// send, so the answer never reveals which addresses are registered.
func (s *Service) CreatePasswordResetToken(ctx context.Context, email string) error {
	ctx, span := logging.StartSpan(ctx, "identity.CreatePasswordResetToken")
	defer span.End()
	logger := logging.FromContext(ctx)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperr.Validation("email is required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			logger.Info("password reset requested for unknown email")
			return nil
		}
		logger.Error("password reset lookup failed", "error", err)
		return apperr.Persistence(err, "unable to process the request")
	}
	if !user.IsActive {
		logger.Info("password reset requested for inactive account", "userId", user.ID)
		return nil
	}

	token, err := newResetToken()
	if err != nil {
		logger.Error("failed to generate reset token", "error", err)
		return apperr.OperationFailed(err, "unable to process the request")
	}

	if err := s.resetTokens.Replace(ctx, user.ID, token, s.now().Add(resetTokenLifetime)); err != nil {
		logger.Error("failed to store reset token", "error", err, "userId", user.ID)
		return apperr.OperationFailed(err, "unable to process the request")
	}

	if s.mailer != nil {
		link := s.baseURL + "/reset-password?token=" + url.QueryEscape(token)
		if err := s.mailer.Send(ctx, mailer.PasswordReset(user.Email, user.FullName, link)); err != nil {
			logger.Error("failed to send reset email", "error", err, "userId", user.ID)
			return nil
		}
	}

	logger.Info("password reset token issued", "userId", user.ID)
	return nil
}

// VerifyPasswordResetToken returns the user a live token belongs to. Expired tokens
// are deleted.
func (s *Service) VerifyPasswordResetToken(ctx context.Context, token string) (int64, error) {
	logger := logging.FromContext(ctx)

	token = strings.TrimSpace(token)
	if token == "" {
		return 0, errInvalidResetToken
	}

	stored, err := s.resetTokens.Find(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return 0, errInvalidResetToken
		}
		logger.Error("reset token lookup failed", "error", err)
		return 0, apperr.Persistence(err, "unable to verify the reset link")
	}

	if !s.now().Before(stored.ExpiresAt) {
		if err := s.resetTokens.Delete(ctx, token); err != nil {
			logger.Warn("failed to delete expired reset token", "error", err, "userId", stored.UserID)
		}
		return 0, errInvalidResetToken
	}
	return stored.UserID, nil
}

// ResetPassword sets a new password using a reset token. The token is consumed before
// the new password is stored, so concurrent submissions of one token succeed at most
// once. The user's sessions are revoked.
func (s *Service) ResetPassword(ctx context.Context, token, password, confirm string) error {
	ctx, span := logging.StartSpan(ctx, "identity.ResetPassword")
	defer span.End()
	logger := logging.FromContext(ctx)

	if err := checkNewPassword(password, confirm); err != nil {
		return err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return errInvalidResetToken
	}

	userID, err := s.resetTokens.Consume(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// Unknown, already used or expired. Drop an expired leftover.
			if err := s.resetTokens.Delete(ctx, token); err != nil {
				logger.Warn("failed to delete reset token", "error", err)
			}
			return errInvalidResetToken
		}
		logger.Error("failed to consume reset token", "error", err)
		return apperr.Persistence(err, "unable to reset password")
	}

	if err := s.setPassword(ctx, userID, password); err != nil {
		return err
	}
	if err := s.sessions.RevokeUser(ctx, userID); err != nil {
		logger.Warn("failed to revoke sessions after reset", "error", err, "userId", userID)
	}

	logger.Info("password reset", "userId", userID)
	return nil
}

// VerifyPassword reports whether plaintext matches userID's password.
func (s *Service) VerifyPassword(ctx context.Context, userID int64, plaintext string) (bool, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	ok, err := s.hasher.Verify(plaintext, user.PasswordHash)
	if err != nil {
		logging.FromContext(ctx).Error("stored password hash unreadable", "error", err, "userId", userID)
		return false, nil
	}
	return ok, nil
}

// UpdatePassword replaces userID's password without checking the current one.
func (s *Service) UpdatePassword(ctx context.Context, userID int64, password string) error {
	if len(password) < minPasswordLength {
		return apperr.Validation("password must be at least %d characters", minPasswordLength)
	}
	return s.setPassword(ctx, userID, password)
}

// ChangePassword replaces the password of a signed-in user after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, password, confirm string) error {
	ok, err := s.VerifyPassword(ctx, userID, current)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Auth("current password is incorrect")
	}
	if err := checkNewPassword(password, confirm); err != nil {
		return err
	}
	return s.setPassword(ctx, userID, password)
}

func (s *Service) setPassword(ctx context.Context, userID int64, password string) error {
	logger := logging.FromContext(ctx)

	hash, err := s.hasher.Hash(password)
	if err != nil {
		logger.Error("failed to hash password", "error", err)
		return apperr.OperationFailed(err, "unable to update password")
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.NotFound("user not found")
		}
		logger.Error("failed to update password", "error", err, "userId", userID)
		return apperr.OperationFailed(err, "unable to update password")
	}
	return nil
}

func checkNewPassword(password, confirm string) error {
	if len(password) < minPasswordLength {
		return apperr.Validation("password must be at least %d characters", minPasswordLength)
	}
	if password != confirm {
		return apperr.Validation("passwords do not match")
	}
	return nil
}

func newResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
