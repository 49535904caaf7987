package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/studybud/backend/internal/auth"
	"github.com/studybud/backend/internal/models"
)

// MaintenanceFlag reports whether the site is in maintenance mode.
type MaintenanceFlag interface {
	MaintenanceEnabled(ctx context.Context) bool
}

// Maintenance answers API requests from non-admins with 503 while maintenance mode
// is on. Login and session endpoints stay open so admins can sign in.
func Maintenance(flag MaintenanceFlag, exempt ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") || isExempt(r.URL.Path, exempt) {
				next.ServeHTTP(w, r)
				return
			}
			if session, ok := auth.SessionFromContext(r.Context()); ok && session.Role == models.RoleAdmin {
				next.ServeHTTP(w, r)
				return
			}
			if !flag.MaintenanceEnabled(r.Context()) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "300")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "the site is down for maintenance"})
		})
	}
}

func isExempt(path string, exempt []string) bool {
	for _, prefix := range exempt {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
