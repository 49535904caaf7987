package handlers

import (
	"net/http"

	"github.com/studybud/backend/internal/middleware"
)

// RateLimiter throttles the unauthenticated account endpoints.
type RateLimiter interface {
	Allow(key string) bool
}

// allowRequest charges the caller's address under scope. A nil limiter allows everything.
func allowRequest(limiter RateLimiter, r *http.Request, scope string) bool {
	if limiter == nil {
		return true
	}
	return limiter.Allow(scope + ":" + clientIP(r))
}

func clientIP(r *http.Request) string {
	return middleware.ClientIP(r)
}
