package handlers

import (
	"net/http"

	"github.com/studybud/backend/internal/auth"
	"github.com/studybud/backend/internal/identity"
	"github.com/studybud/backend/internal/logging"
	"github.com/studybud/backend/internal/models"
)

// AdminHandler serves the back office. Every route is wrapped by adminGuard.
type AdminHandler struct {
	Admin Admin
}

// Dashboard handles GET /api/v1/admin/dashboard.
func (h AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request, _ auth.Session) {
	ctx := r.Context()

	stats, err := h.Admin.DashboardStats(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, stats)
}

// Users handles GET /api/v1/admin/users?page=&per_page=.
func (h AdminHandler) Users(w http.ResponseWriter, r *http.Request, _ auth.Session) {
	ctx := r.Context()

	users, err := h.Admin.Users(ctx, pageFromQuery(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, users)
}

// CreateAdmin handles POST /api/v1/admin/users. New accounts are always admins.
func (h AdminHandler) CreateAdmin(w http.ResponseWriter, r *http.Request, session auth.Session) {
	ctx := r.Context()

	var req identity.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		logging.FromContext(ctx).Warn("invalid admin payload", "error", err)
		respondMessage(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Admin.CreateAdminUser(ctx, req)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	logging.FromContext(ctx).Info("admin account created", "createdBy", session.UserID, "userId", user.ID)
	respondJSON(ctx, w, http.StatusCreated, map[string]any{"user": user})
}

// UpdateUser handles PATCH /api/v1/admin/users/{id}.
func (h AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request, _ auth.Session) {
	ctx := r.Context()

	userID, err := pathID(r, "id")
	if err != nil {
		respondMessage(ctx, w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req models.UserUpdate
	if err := decodeJSON(r, &req); err != nil {
		logging.FromContext(ctx).Warn("invalid user update payload", "error", err)
		respondMessage(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Admin.UpdateUser(ctx, userID, req)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"user": user})
}

// UpdateUserPassword handles PUT /api/v1/admin/users/{id}/password.
func (h AdminHandler) UpdateUserPassword(w http.ResponseWriter, r *http.Request, _ auth.Session) {
	ctx := r.Context()

	userID, err := pathID(r, "id")
	if err != nil {
		respondMessage(ctx, w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondMessage(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Admin.UpdateUserPassword(ctx, userID, req.Password); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, successResponse{Success: true})
}

// DeleteUser handles DELETE /api/v1/admin/users/{id}.
func (h AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request, _ auth.Session) {
	ctx := r.Context()

	userID, err := pathID(r, "id")
	if err != nil {
		respondMessage(ctx, w, http.StatusBadRequest, "invalid user id")
		return
	}
	if err := h.Admin.DeleteUser(ctx, userID); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, successResponse{Success: true})
}

// Admins handles GET /api/v1/admin/admins.
func (h AdminHandler) Admins(w http.ResponseWriter, r *http.Request, _ auth.Session) {
	ctx := r.Context()

	admins, err := h.Admin.Admins(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"admins": admins, "count": len(admins)})
}

// Courses handles GET /api/v1/admin/courses?page=&per_page=.
func (h AdminHandler) Courses(w http.ResponseWriter, r *http.Request, _ auth.Session) {
	ctx := r.Context()

	courses, err := h.Admin.Courses(ctx, pageFromQuery(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, courses)
}

// LoginActivity handles GET /api/v1/admin/logins?page=&per_page=.
func (h AdminHandler) LoginActivity(w http.ResponseWriter, r *http.Request, _ auth.Session) {
	ctx := r.Context()

	activity, err := h.Admin.LoginActivity(ctx, pageFromQuery(r))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, activity)
}

// Settings handles GET /api/v1/admin/settings.
func (h AdminHandler) Settings(w http.ResponseWriter, r *http.Request, _ auth.Session) {
	ctx := r.Context()

	settings, err := h.Admin.Settings(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"settings": settings})
}

// UpdateSetting handles PUT /api/v1/admin/settings/{key} with {"value": "..."}.
func (h AdminHandler) UpdateSetting(w http.ResponseWriter, r *http.Request, _ auth.Session) {
	ctx := r.Context()

	var req struct {
		Value string `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondMessage(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Admin.UpdateSetting(ctx, r.PathValue("key"), req.Value); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, successResponse{Success: true})
}
