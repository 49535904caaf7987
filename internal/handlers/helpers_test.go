package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/studybud/backend/internal/auth"
	"github.com/studybud/backend/internal/models"
)

var learnerSession = auth.Session{
	ID:        "sess-1",
	UserID:    7,
	Username:  "alice",
	Role:      models.RoleStudent,
	CSRFToken: "csrf-1",
	ExpiresAt: time.Now().Add(time.Hour),
}

func newMux(deps Dependencies) *http.ServeMux {
	mux := http.NewServeMux()
	RegisterRoutes(mux, deps)
	return mux
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(b)
}

// signedIn attaches session to req the way the session middleware does and sets
// the matching CSRF header.
func signedIn(req *http.Request, session auth.Session) *http.Request {
	req.Header.Set("X-CSRF-Token", session.CSRFToken)
	return req.WithContext(auth.WithSession(req.Context(), session))
}

func serve(mux http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
