package handlers

import (
	"net/http"

	"github.com/studybud/backend/internal/auth"
	"github.com/studybud/backend/internal/identity"
	"github.com/studybud/backend/internal/logging"
)

// AccountHandler serves the signed-in user's own profile, settings and learning lists.
type AccountHandler struct {
	Accounts Accounts
	Courses  Courses
	Learning Learning
}

// Me handles GET /api/v1/me requests.
func (h AccountHandler) Me(w http.ResponseWriter, r *http.Request, session auth.Session) {
	ctx := r.Context()

	user, err := h.Accounts.GetUser(ctx, session.UserID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	enrolled, err := h.Learning.EnrollmentCount(ctx, session.UserID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	saved, err := h.Learning.SavedVideoCount(ctx, session.UserID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{
		"user":            user,
		"enrollmentCount": enrolled,
		"savedCount":      saved,
	})
}

// UpdateProfile handles PUT /api/v1/me/profile requests.
func (h AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request, session auth.Session) {
	ctx := r.Context()

	var req identity.ProfileInput
	if err := decodeJSON(r, &req); err != nil {
		logging.FromContext(ctx).Warn("invalid profile payload", "error", err)
		respondMessage(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Accounts.UpdateProfile(ctx, session.UserID, req)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"user": user})
}

// ChangePassword handles PUT /api/v1/me/password requests.
func (h AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request, session auth.Session) {
	ctx := r.Context()

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		logging.FromContext(ctx).Warn("invalid password payload", "error", err)
		respondMessage(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Accounts.ChangePassword(ctx, session.UserID, req.CurrentPassword, req.Password, req.ConfirmPassword); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, successResponse{Success: true})
}

// BecomeTutor handles POST /api/v1/me/become-tutor requests.
func (h AccountHandler) BecomeTutor(w http.ResponseWriter, r *http.Request, session auth.Session) {
	ctx := r.Context()

	user, err := h.Accounts.BecomeTutor(ctx, session.UserID, session.ID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"user": user})
}

// Preferences handles GET /api/v1/me/preferences requests.
func (h AccountHandler) Preferences(w http.ResponseWriter, r *http.Request, session auth.Session) {
	ctx := r.Context()

	prefs, err := h.Accounts.Preferences(ctx, session.UserID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, prefs)
}

// UpdatePreferences handles PUT /api/v1/me/preferences requests.
func (h AccountHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request, session auth.Session) {
	ctx := r.Context()

	var req preferencesRequest
	if err := decodeJSON(r, &req); err != nil {
		logging.FromContext(ctx).Warn("invalid preferences payload", "error", err)
		respondMessage(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	prefs, err := h.Accounts.UpdatePreferences(ctx, session.UserID, req.EmailNotifications, req.MarketingEmails)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, prefs)
}

// Enrollments handles GET /api/v1/me/enrollments requests.
func (h AccountHandler) Enrollments(w http.ResponseWriter, r *http.Request, session auth.Session) {
	ctx := r.Context()

	courses, err := h.Learning.UserEnrollments(ctx, session.UserID, pageFromQuery(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, courses)
}

// Saved handles GET /api/v1/me/saved requests.
func (h AccountHandler) Saved(w http.ResponseWriter, r *http.Request, session auth.Session) {
	ctx := r.Context()

	saved, err := h.Learning.SavedVideos(ctx, session.UserID, pageFromQuery(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, saved)
}

// History handles GET /api/v1/me/history requests.
func (h AccountHandler) History(w http.ResponseWriter, r *http.Request, session auth.Session) {
	ctx := r.Context()

	entries, err := h.Learning.History(ctx, session.UserID, queryInt(r, "limit"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"history": entries})
}

// ClearHistory handles DELETE /api/v1/me/history requests.
func (h AccountHandler) ClearHistory(w http.ResponseWriter, r *http.Request, session auth.Session) {
	ctx := r.Context()

	if err := h.Learning.ClearHistory(ctx, session.UserID); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, successResponse{Success: true})
}

// TeachingCourses handles GET /api/v1/me/courses requests.
func (h AccountHandler) TeachingCourses(w http.ResponseWriter, r *http.Request, session auth.Session) {
	ctx := r.Context()

	courses, err := h.Courses.InstructorCourses(ctx, session.UserID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"courses": courses})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type preferencesRequest struct {
	EmailNotifications bool `json:"email_notifications"`
	MarketingEmails    bool `json:"marketing_emails"`
}
