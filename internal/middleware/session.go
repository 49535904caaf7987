package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/studybud/backend/internal/auth"
	"github.com/studybud/backend/internal/logging"
)

// SessionCookieName is the cookie carrying the opaque session id.
const SessionCookieName = "studybud_session"

// SessionLookup resolves a session id to a live session.
type SessionLookup interface {
	Lookup(ctx context.Context, id string) (auth.Session, error)
}

// Sessions attaches the caller's session to the request context when the session
// cookie names a live session. Requests without one continue anonymously.
func Sessions(lookup SessionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			session, err := lookup.Lookup(ctx, cookie.Value)
			if err != nil {
				if !errors.Is(err, auth.ErrSessionNotFound) && !errors.Is(err, auth.ErrSessionExpired) {
					logging.FromContext(ctx).Error("session lookup failed", "error", err)
				}
				http.SetCookie(w, &http.Cookie{Name: SessionCookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
				next.ServeHTTP(w, r)
				return
			}

			ctx = logging.With(auth.WithSession(ctx, session), "userId", session.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
