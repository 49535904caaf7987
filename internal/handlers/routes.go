package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/studybud/backend/internal/auth"
	"github.com/studybud/backend/internal/middleware"
)

const defaultMaxUploadBytes = 2 << 30

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Accounts Accounts
	Courses  Courses
	Learning Learning
	Admin    Admin
	Health   HealthChecker
	Limiter  RateLimiter
	Metrics  http.Handler
	// Uploads serves locally stored media under UploadsPrefix. Nil when media lives in S3.
	Uploads        http.Handler
	UploadsPrefix  string
	SecureCookies  bool
	SessionMaxAge  time.Duration
	MaxUploadBytes int64
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	cookies := cookieConfig{secure: deps.SecureCookies, maxAge: deps.SessionMaxAge}
	maxUpload := deps.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}

	health := HealthHandler{DB: deps.Health}
	authH := AuthHandler{Accounts: deps.Accounts, Limiter: deps.Limiter, cookies: cookies}
	account := AccountHandler{Accounts: deps.Accounts, Courses: deps.Courses, Learning: deps.Learning}
	courses := CourseHandler{Courses: deps.Courses, Learning: deps.Learning}
	videos := VideoHandler{Learning: deps.Learning}
	admin := AdminHandler{Admin: deps.Admin}
	adminOnly := adminGuard{admins: deps.Admin}

	mux.HandleFunc("GET /healthz", health.Handle)
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}
	if deps.Uploads != nil && deps.UploadsPrefix != "" {
		prefix := strings.TrimRight(deps.UploadsPrefix, "/") + "/"
		mux.Handle("GET "+prefix, http.StripPrefix(prefix, deps.Uploads))
	}

	mux.HandleFunc("POST /api/v1/auth/register", authH.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authH.Login)
	mux.HandleFunc("POST /api/v1/auth/logout", requireSession(authH.Logout))
	mux.HandleFunc("GET /api/v1/auth/session", requireSession(authH.Session))
	mux.HandleFunc("POST /api/v1/auth/password/forgot", authH.ForgotPassword)
	mux.HandleFunc("POST /api/v1/auth/password/reset", authH.ResetPassword)

	mux.HandleFunc("GET /api/v1/me", requireSession(account.Me))
	mux.HandleFunc("PUT /api/v1/me/profile", requireSession(account.UpdateProfile))
	mux.HandleFunc("PUT /api/v1/me/password", requireSession(account.ChangePassword))
	mux.HandleFunc("POST /api/v1/me/become-tutor", requireSession(account.BecomeTutor))
	mux.HandleFunc("GET /api/v1/me/preferences", requireSession(account.Preferences))
	mux.HandleFunc("PUT /api/v1/me/preferences", requireSession(account.UpdatePreferences))
	mux.HandleFunc("GET /api/v1/me/enrollments", requireSession(account.Enrollments))
	mux.HandleFunc("GET /api/v1/me/saved", requireSession(account.Saved))
	mux.HandleFunc("GET /api/v1/me/history", requireSession(account.History))
	mux.HandleFunc("DELETE /api/v1/me/history", requireSession(account.ClearHistory))
	mux.HandleFunc("GET /api/v1/me/courses", requireSession(account.TeachingCourses))

	mux.HandleFunc("GET /api/v1/courses", courses.List)
	mux.HandleFunc("GET /api/v1/courses/featured", courses.Featured)
	mux.HandleFunc("GET /api/v1/courses/categories", courses.Categories)
	mux.HandleFunc("GET /api/v1/courses/{id}", courses.Get)
	mux.HandleFunc("POST /api/v1/courses", requireSession(courses.Create))
	mux.HandleFunc("PATCH /api/v1/courses/{id}", requireSession(courses.Update))
	mux.HandleFunc("POST /api/v1/courses/{id}/enroll", requireSession(courses.Enroll))
	mux.Handle("POST /api/v1/courses/{id}/thumbnail", limitBody(maxUpload, requireSession(courses.UploadThumbnail)))
	mux.Handle("POST /api/v1/courses/{id}/videos", limitBody(maxUpload, requireSession(courses.UploadVideo)))
	mux.Handle("POST /api/v1/courses/{id}/books", limitBody(maxUpload, requireSession(courses.UploadBook)))
	mux.HandleFunc("DELETE /api/v1/courses/{id}/videos/{videoID}", requireSession(courses.DeleteVideo))
	mux.HandleFunc("DELETE /api/v1/courses/{id}/books/{bookID}", requireSession(courses.DeleteBook))

	mux.HandleFunc("GET /api/v1/videos/{id}", requireSession(videos.Watch))
	mux.HandleFunc("POST /api/v1/videos/{id}/progress", requireSession(videos.Progress))
	mux.HandleFunc("POST /api/v1/videos/{id}/save", requireSession(videos.Save))
	mux.HandleFunc("DELETE /api/v1/videos/{id}/save", requireSession(videos.Unsave))

	mux.HandleFunc("GET /api/v1/admin/dashboard", adminOnly.wrap(admin.Dashboard))
	mux.HandleFunc("GET /api/v1/admin/users", adminOnly.wrap(admin.Users))
	mux.HandleFunc("POST /api/v1/admin/users", adminOnly.wrap(admin.CreateAdmin))
	mux.HandleFunc("PATCH /api/v1/admin/users/{id}", adminOnly.wrap(admin.UpdateUser))
	mux.HandleFunc("PUT /api/v1/admin/users/{id}/password", adminOnly.wrap(admin.UpdateUserPassword))
	mux.HandleFunc("DELETE /api/v1/admin/users/{id}", adminOnly.wrap(admin.DeleteUser))
	mux.HandleFunc("GET /api/v1/admin/admins", adminOnly.wrap(admin.Admins))
	mux.HandleFunc("GET /api/v1/admin/courses", adminOnly.wrap(admin.Courses))
	mux.HandleFunc("GET /api/v1/admin/logins", adminOnly.wrap(admin.LoginActivity))
	mux.HandleFunc("GET /api/v1/admin/settings", adminOnly.wrap(admin.Settings))
	mux.HandleFunc("PUT /api/v1/admin/settings/{key}", adminOnly.wrap(admin.UpdateSetting))
}

// sessionHandler is a handler that runs only for signed-in callers.
type sessionHandler func(w http.ResponseWriter, r *http.Request, session auth.Session)

// requireSession rejects anonymous callers and, for state-changing methods, requests
// whose CSRF token does not match the session.
func requireSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		session, ok := auth.SessionFromContext(ctx)
		if !ok {
			respondMessage(ctx, w, http.StatusUnauthorized, "authentication required")
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead && !auth.ValidCSRF(session, csrfToken(r)) {
			respondMessage(ctx, w, http.StatusForbidden, "invalid csrf token")
			return
		}
		next(w, r, session)
	}
}

func csrfToken(r *http.Request) string {
	if token := r.Header.Get("X-CSRF-Token"); token != "" {
		return token
	}
	return r.FormValue("csrf_token")
}

type adminGuard struct {
	admins Admin
}

// wrap checks the account's current role in storage rather than the role cached
// in the session.
func (g adminGuard) wrap(next sessionHandler) http.HandlerFunc {
	return requireSession(func(w http.ResponseWriter, r *http.Request, session auth.Session) {
		ctx := r.Context()
		ok, err := g.admins.IsAdmin(ctx, session.UserID)
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		if !ok {
			respondMessage(ctx, w, http.StatusForbidden, "admin access required")
			return
		}
		next(w, r, session)
	})
}

func limitBody(max int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, max)
		next.ServeHTTP(w, r)
	})
}

type cookieConfig struct {
	secure bool
	maxAge time.Duration
}

func (c cookieConfig) set(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c cookieConfig) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
