package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/studybud/backend/internal/logging"
)

// HealthHandler responds with service health information.
type HealthHandler struct {
	DB HealthChecker
}

// Handle implements GET /healthz. It reports 503 when the database does not answer.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	payload := map[string]string{"status": "ok"}

	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.PingContext(ctx); err != nil {
			logging.FromContext(ctx).Error("database health check failed", "error", err)
			status = http.StatusServiceUnavailable
			payload = map[string]string{"status": "degraded", "database": "unreachable"}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
