package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/studybud/backend/internal/auth"
	"github.com/studybud/backend/internal/identity"
	"github.com/studybud/backend/internal/logging"
	"github.com/studybud/backend/internal/models"
)

// AuthHandler implements sign up, sign in and password recovery endpoints.
type AuthHandler struct {
	Accounts Accounts
	Limiter  RateLimiter
	cookies  cookieConfig
}

// Register handles POST /api/v1/auth/register requests.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "register") {
		logger.Warn("register rate limited", "ip", clientIP(r))
		respondMessage(ctx, w, http.StatusTooManyRequests, "too many requests, slow down")
		return
	}

	var req identity.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		logger.Warn("invalid register payload", "error", err)
		respondMessage(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Accounts.Register(ctx, req)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]any{"user": user})
}

// Login handles POST /api/v1/auth/login requests.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "login") {
		logger.Warn("login rate limited", "ip", clientIP(r))
		respondMessage(ctx, w, http.StatusTooManyRequests, "too many login attempts, slow down")
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		logger.Warn("invalid login payload", "error", err)
		respondMessage(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.Accounts.Login(ctx, identity.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	h.cookies.set(w, session.ID)
	respondJSON(ctx, w, http.StatusOK, newSessionResponse(session))
}

// Logout handles POST /api/v1/auth/logout requests.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request, session auth.Session) {
	h.Accounts.Logout(r.Context(), session.ID)
	h.cookies.clear(w)
	respondJSON(r.Context(), w, http.StatusOK, successResponse{Success: true})
}

// Session handles GET /api/v1/auth/session requests.
func (h AuthHandler) Session(w http.ResponseWriter, r *http.Request, session auth.Session) {
	respondJSON(r.Context(), w, http.StatusOK, newSessionResponse(session))
}

// ForgotPassword handles POST /api/v1/auth/password/forgot requests. The response
// is the same whether or not the email belongs to an account.
func (h AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "password-reset") {
		logger.Warn("password reset rate limited", "ip", clientIP(r))
		respondMessage(ctx, w, http.StatusTooManyRequests, "too many requests, slow down")
		return
	}

	var req passwordResetRequest
	if err := decodeJSON(r, &req); err != nil {
		logger.Warn("invalid password reset payload", "error", err)
		respondMessage(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		respondMessage(ctx, w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.Accounts.CreatePasswordResetToken(ctx, req.Email); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusAccepted, map[string]string{
		"status": "If an account exists for that email, password reset instructions have been sent.",
	})
}

// ResetPassword handles POST /api/v1/auth/password/reset requests.
func (h AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		logging.FromContext(ctx).Warn("invalid reset payload", "error", err)
		respondMessage(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Accounts.ResetPassword(ctx, strings.TrimSpace(req.Token), req.Password, req.ConfirmPassword); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, successResponse{Success: true})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type sessionResponse struct {
	UserID    int64       `json:"userId"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	CSRFToken string      `json:"csrfToken"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func newSessionResponse(s auth.Session) sessionResponse {
	return sessionResponse{
		UserID:    s.UserID,
		Username:  s.Username,
		Role:      s.Role,
		CSRFToken: s.CSRFToken,
		ExpiresAt: s.ExpiresAt,
	}
}
