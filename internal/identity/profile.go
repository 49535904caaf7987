package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/studybud/backend/internal/apperr"
	"github.com/studybud/backend/internal/logging"
	"github.com/studybud/backend/internal/models"
	"github.com/studybud/backend/internal/repositories"
	"github.com/studybud/backend/internal/validation"
)

// ProfileInput carries the self-service profile fields.
type ProfileInput struct {
	FullName string `json:"full_name" validate:"required,max=100"`
	Bio      string `json:"bio" validate:"max=1000"`
}

// UpdateProfile changes userID's name and bio.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (models.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Bio = strings.TrimSpace(in.Bio)
	if err := validation.Struct(in); err != nil {
		return models.User{}, err
	}

	if err := s.users.UpdateProfile(ctx, userID, in.FullName, in.Bio); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, apperr.NotFound("user not found")
		}
		logging.FromContext(ctx).Error("failed to update profile", "error", err, "userId", userID)
		return models.User{}, apperr.OperationFailed(err, "unable to update profile")
	}
	return s.GetUser(ctx, userID)
}

// BecomeTutor promotes a student to tutor and refreshes the role held by their session.
func (s *Service) BecomeTutor(ctx context.Context, userID int64, sessionID string) (models.User, error) {
	logger := logging.FromContext(ctx)

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	if user.Role != models.RoleStudent {
		return models.User{}, apperr.Validation("only students can become tutors")
	}

	if err := s.users.UpdateRole(ctx, userID, models.RoleTutor); err != nil {
		logger.Error("failed to promote user", "error", err, "userId", userID)
		return models.User{}, apperr.OperationFailed(err, "unable to update role")
	}
	if sessionID != "" {
		if err := s.sessions.SetRole(ctx, sessionID, models.RoleTutor); err != nil {
			logger.Warn("failed to refresh session role", "error", err, "userId", userID)
		}
	}

	user.Role = models.RoleTutor
	logger.Info("user became tutor", "userId", userID)
	return user, nil
}

// Preferences returns userID's email preferences, or the defaults when none are stored.
func (s *Service) Preferences(ctx context.Context, userID int64) (models.UserPreferences, error) {
	prefs, err := s.preferences.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.UserPreferences{UserID: userID, EmailNotifications: true}, nil
		}
		logging.FromContext(ctx).Error("failed to load preferences", "error", err, "userId", userID)
		return models.UserPreferences{}, apperr.Persistence(err, "unable to load preferences")
	}
	return prefs, nil
}

// UpdatePreferences stores userID's email preferences.
func (s *Service) UpdatePreferences(ctx context.Context, userID int64, emailNotifications, marketingEmails bool) (models.UserPreferences, error) {
	prefs := models.UserPreferences{
		UserID:             userID,
		EmailNotifications: emailNotifications,
		MarketingEmails:    marketingEmails,
	}
	if err := s.preferences.Upsert(ctx, prefs); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.UserPreferences{}, apperr.NotFound("user not found")
		}
		logging.FromContext(ctx).Error("failed to update preferences", "error", err, "userId", userID)
		return models.UserPreferences{}, apperr.OperationFailed(err, "unable to update preferences")
	}
	prefs.UpdatedAt = s.now()
	return prefs, nil
}
