package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/studybud/backend/internal/auth"
	"github.com/studybud/backend/internal/logging"
	"github.com/studybud/backend/internal/models"
)

type stubLookup struct {
	sessions map[string]auth.Session
}

func (s stubLookup) Lookup(_ context.Context, id string) (auth.Session, error) {
	session, ok := s.sessions[id]
	if !ok {
		return auth.Session{}, auth.ErrSessionNotFound
	}
	return session, nil
}

type stubFlag bool

func (f stubFlag) MaintenanceEnabled(context.Context) bool { return bool(f) }

func sessionEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := auth.SessionFromContext(r.Context())
		if !ok {
			_, _ = io.WriteString(w, "anonymous")
			return
		}
		_, _ = io.WriteString(w, session.Username)
	})
}

func TestSessionsAttachesLiveSession(t *testing.T) {
	lookup := stubLookup{sessions: map[string]auth.Session{
		"abc": {ID: "abc", UserID: 7, Username: "ana", Role: models.RoleStudent},
	}}
	handler := Sessions(lookup)(sessionEcho())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "abc"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Body.String(); got != "ana" {
		t.Fatalf("expected session user, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "stale"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Body.String(); got != "anonymous" {
		t.Fatalf("expected anonymous request, got %q", got)
	}
	if cookie := rec.Header().Get("Set-Cookie"); !strings.Contains(cookie, SessionCookieName+"=;") {
		t.Fatalf("expected stale cookie to be cleared, got %q", cookie)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Body.String(); got != "anonymous" {
		t.Fatalf("expected anonymous request without cookie, got %q", got)
	}
}

func TestMaintenanceBlocksNonAdmins(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	handler := Maintenance(stubFlag(true), "/api/v1/auth/")(ok)

	cases := []struct {
		name    string
		path    string
		session *auth.Session
		want    int
	}{
		{name: "anonymous api", path: "/api/v1/courses", want: http.StatusServiceUnavailable},
		{name: "student api", path: "/api/v1/courses", session: &auth.Session{Role: models.RoleStudent}, want: http.StatusServiceUnavailable},
		{name: "admin api", path: "/api/v1/courses", session: &auth.Session{Role: models.RoleAdmin}, want: http.StatusNoContent},
		{name: "login stays open", path: "/api/v1/auth/login", want: http.StatusNoContent},
		{name: "health stays open", path: "/healthz", want: http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.session != nil {
				req = req.WithContext(auth.WithSession(req.Context(), *tc.session))
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected status %d got %d", tc.want, rec.Code)
			}
		})
	}

	rec := httptest.NewRecorder()
	Maintenance(stubFlag(false))(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected requests to pass when maintenance is off, got %d", rec.Code)
	}
}

func TestMetricsExposesRequestCounts(t *testing.T) {
	metrics := NewMetrics()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/courses/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := metrics.Middleware(mux)

	for _, path := range []string{"/api/v1/courses/1", "/api/v1/courses/2"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	want := `studybud_http_requests_total{method="GET",route="GET /api/v1/courses/{id}",status="200"} 2`
	if !strings.Contains(body, want) {
		t.Fatalf("expected metrics output to contain %q\n%s", want, body)
	}
}

func TestRequestLoggerRecoversPanics(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := RequestLogger(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rec.Code)
	}
}

func TestRequestLoggerAssignsRequestID(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var seen string
	handler := RequestLogger(logger)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = logging.RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || rec.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("expected generated id %q to be echoed, got %q", seen, rec.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "from-proxy")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "from-proxy" || rec.Header().Get(RequestIDHeader) != "from-proxy" {
		t.Fatalf("expected proxy id to be kept, got %q", seen)
	}
}

func TestClientIPIgnoresHeadersFromUntrustedPeers(t *testing.T) {
	var seen string
	handler := RealIP(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClientIP(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.20:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	req.Header.Set("X-Real-IP", "203.0.113.10")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "198.51.100.20" {
		t.Fatalf("expected socket address, got %q", seen)
	}
}

func TestClientIPBehindTrustedProxy(t *testing.T) {
	trusted := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}
	var seen string
	handler := RealIP(trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClientIP(r)
	}))

	cases := []struct {
		name      string
		forwarded string
		realIP    string
		want      string
	}{
		{name: "no headers", want: "10.0.0.2"},
		{name: "real ip", realIP: "198.51.100.7", want: "198.51.100.7"},
		{name: "single hop", forwarded: "203.0.113.9", want: "203.0.113.9"},
		{name: "spoofed prefix", forwarded: "1.2.3.4, 203.0.113.9, 10.0.0.1", want: "203.0.113.9"},
		{name: "all trusted", forwarded: "10.0.0.7, 10.0.0.1", want: "10.0.0.7"},
		{name: "garbage hop", forwarded: "nonsense", want: "10.0.0.2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "10.0.0.2:5555"
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)
			if seen != tc.want {
				t.Fatalf("expected %q got %q", tc.want, seen)
			}
		})
	}
}

func TestClientIPWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	if got := ClientIP(req); got != "10.0.0.2" {
		t.Fatalf("expected socket address, got %q", got)
	}
}

func TestKeyedLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewKeyedLimiter(2, time.Minute, 2, time.Minute)
	limiter.now = func() time.Time { return now }

	if !limiter.Allow("login:1.2.3.4") || !limiter.Allow("login:1.2.3.4") {
		t.Fatal("expected burst to be allowed")
	}
	if limiter.Allow("login:1.2.3.4") {
		t.Fatal("expected third request to be limited")
	}
	if !limiter.Allow("login:5.6.7.8") {
		t.Fatal("expected other keys to have their own budget")
	}

	now = now.Add(30 * time.Second)
	if !limiter.Allow("login:1.2.3.4") {
		t.Fatal("expected a token to refill after half the window")
	}

	now = now.Add(5 * time.Minute)
	limiter.Allow("login:9.9.9.9")
	if got := limiter.Len(); got != 1 {
		t.Fatalf("expected idle keys to be swept, %d remain", got)
	}
}
