package handlers

import (
	"math"
	"net/http"

	"github.com/studybud/backend/internal/apperr"
	"github.com/studybud/backend/internal/auth"
	"github.com/studybud/backend/internal/logging"
)

// VideoHandler serves the player: watching, progress reports and bookmarks.
type VideoHandler struct {
	Learning Learning
}

// Watch handles GET /api/v1/videos/{id}.
func (h VideoHandler) Watch(w http.ResponseWriter, r *http.Request, session auth.Session) {
	ctx := r.Context()

	videoID, err := pathID(r, "id")
	if err != nil {
		respondMessage(ctx, w, http.StatusBadRequest, "invalid video id")
		return
	}

	result, err := h.Learning.WatchVideo(ctx, session.UserID, videoID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, result)
}

// Progress handles POST /api/v1/videos/{id}/progress. The body is
// {"position": <seconds>, "is_completed": <bool>}.
func (h VideoHandler) Progress(w http.ResponseWriter, r *http.Request, session auth.Session) {
	ctx := r.Context()

	videoID, err := pathID(r, "id")
	if err != nil {
		respondJSON(ctx, w, http.StatusBadRequest, successResponse{Error: "invalid video id"})
		return
	}

	var req progressRequest
	if err := decodeJSON(r, &req); err != nil {
		logging.FromContext(ctx).Warn("invalid progress payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, successResponse{Error: "invalid request body"})
		return
	}

	// Positions are stored as 32-bit seconds.
	if req.Position < 0 || req.Position > math.MaxInt32 {
		respondJSON(ctx, w, http.StatusBadRequest, successResponse{Error: "position is out of range"})
		return
	}

	if err := h.Learning.UpdateVideoProgress(ctx, session.UserID, videoID, int(req.Position), req.IsCompleted); err != nil {
		respondJSON(ctx, w, statusFor(err), successResponse{Error: apperr.Message(err)})
		return
	}
	respondJSON(ctx, w, http.StatusOK, successResponse{Success: true})
}

// Save handles POST /api/v1/videos/{id}/save.
func (h VideoHandler) Save(w http.ResponseWriter, r *http.Request, session auth.Session) {
	ctx := r.Context()

	videoID, err := pathID(r, "id")
	if err != nil {
		respondMessage(ctx, w, http.StatusBadRequest, "invalid video id")
		return
	}
	if err := h.Learning.SaveVideo(ctx, session.UserID, videoID); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, successResponse{Success: true})
}

// Unsave handles DELETE /api/v1/videos/{id}/save.
func (h VideoHandler) Unsave(w http.ResponseWriter, r *http.Request, session auth.Session) {
	ctx := r.Context()

	videoID, err := pathID(r, "id")
	if err != nil {
		respondMessage(ctx, w, http.StatusBadRequest, "invalid video id")
		return
	}
	if err := h.Learning.UnsaveVideo(ctx, session.UserID, videoID); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, successResponse{Success: true})
}

// progressRequest accepts fractional positions as reported by media elements.
type progressRequest struct {
	Position    float64 `json:"position"`
	IsCompleted bool    `json:"is_completed"`
}
