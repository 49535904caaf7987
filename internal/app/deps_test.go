package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studybud/backend/internal/auth"
	"github.com/studybud/backend/internal/config"
	"github.com/studybud/backend/internal/db/dbtest"
	"github.com/studybud/backend/internal/identity"
	"github.com/studybud/backend/internal/models"
	"github.com/studybud/backend/internal/repositories"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		AppPort: 8080,
		BaseURL: "http://localhost:8080",
		Session: config.SessionConfig{Lifetime: time.Hour, Backend: "memory"},
		Security: config.SecurityConfig{
			PasswordPepper:  "test-pepper",
			LoginRateLimit:  100,
			LoginRateWindow: time.Minute,
		},
		Storage: config.StorageConfig{Backend: "local", UploadDir: t.TempDir(), BaseURL: "/uploads"},
		Probe:   config.ProbeConfig{FFProbePath: "ffprobe", Timeout: time.Second, Workers: 1, QueueSize: 1},
		Server:  config.ServerConfig{MaxUploadBytes: 1 << 20},

		JanitorSchedule:  "@every 1h",
		SettingsCacheTTL: time.Minute,
	}
}

func newTestApplication(t *testing.T) *application {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := newApplication(ctx, dbtest.Open(t), testConfig(t), logger)
	require.NoError(t, err)
	require.NoError(t, a.withContent(ctx))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, step := range a.stops {
			_ = step.Stop(ctx)
		}
	})
	return a
}

func TestNewSessionStore(t *testing.T) {
	ctx := context.Background()
	d := dbtest.Open(t)

	store, err := newSessionStore(ctx, d, config.SessionConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &auth.InMemorySessionStore{}, store)

	store, err = newSessionStore(ctx, d, config.SessionConfig{Backend: "database"})
	require.NoError(t, err)
	assert.IsType(t, &repositories.SessionStore{}, store)

	_, err = newSessionStore(ctx, d, config.SessionConfig{Backend: "cookie"})
	assert.Error(t, err)
}

func TestApplicationWiring(t *testing.T) {
	a := newTestApplication(t)

	assert.NotNil(t, a.identity)
	assert.NotNil(t, a.admin)
	assert.NotNil(t, a.catalog)
	assert.NotNil(t, a.probes)
	assert.NotNil(t, a.janitor)

	deps := a.routes(nil)
	assert.NotNil(t, deps.Uploads, "local storage should be served")
	assert.Equal(t, "/uploads", deps.UploadsPrefix)
	assert.Equal(t, time.Hour, deps.SessionMaxAge)
	assert.False(t, deps.SecureCookies)
}

func postJSON(t *testing.T, client *http.Client, url, csrf string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if csrf != "" {
		req.Header.Set("X-CSRF-Token", csrf)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestServeAccountFlow(t *testing.T) {
	a := newTestApplication(t)
	srv := httptest.NewServer(a.handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	resp := postJSON(t, client, srv.URL+"/api/v1/auth/register", "", identity.RegisterInput{
		Email:    "alice@example.com",
		Username: "alice",
		Password: "Secret123!",
		FullName: "Alice Learner",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, client, srv.URL+"/api/v1/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "Secret123!",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var session struct {
		UserID    int64  `json:"userId"`
		CSRFToken string `json:"csrfToken"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	require.NotEmpty(t, session.CSRFToken)

	me, err := client.Get(srv.URL + "/api/v1/me")
	require.NoError(t, err)
	defer me.Body.Close()
	require.Equal(t, http.StatusOK, me.StatusCode)

	var profile struct {
		User models.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(me.Body).Decode(&profile))
	assert.Equal(t, "alice", profile.User.Username)
	assert.Equal(t, session.UserID, profile.User.ID)

	resp = postJSON(t, client, srv.URL+"/api/v1/courses", "wrong-token", map[string]string{"title": "Algebra"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = postJSON(t, client, srv.URL+"/api/v1/auth/logout", session.CSRFToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	me, err = client.Get(srv.URL + "/api/v1/me")
	require.NoError(t, err)
	defer me.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, me.StatusCode)
}

func TestServeMaintenanceAndMetrics(t *testing.T) {
	a := newTestApplication(t)
	srv := httptest.NewServer(a.handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/api/v1/courses")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, a.admin.UpdateSetting(context.Background(), "maintenance_mode", "1"))

	resp, err = http.Get(srv.URL + "/api/v1/courses")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `route="GET /api/v1/courses"`), "expected route label in metrics output")
}

func TestParseAdminFlags(t *testing.T) {
	in, err := parseAdminFlags([]string{"-email", "root@example.com", "-username", "root", "-password", "Secret123!"})
	require.NoError(t, err)
	assert.Equal(t, "root", in.FullName)

	_, err = parseAdminFlags([]string{"-email", "root@example.com"})
	assert.Error(t, err)
}

func TestCreateAdminAndMigrate(t *testing.T) {
	ctx := context.Background()
	a := newTestApplication(t)

	var out bytes.Buffer
	require.NoError(t, a.createAdmin(ctx, identity.RegisterInput{
		Email:    "root@example.com",
		Username: "root",
		Password: "Secret123!",
		FullName: "Root",
	}, &out))
	assert.Contains(t, out.String(), "created admin root")

	count, err := a.admin.AdminCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	out.Reset()
	require.NoError(t, migrate(ctx, a.db, "up", &out))
	assert.Contains(t, out.String(), "no migrations to apply")

	out.Reset()
	require.NoError(t, migrate(ctx, a.db, "status", &out))
	assert.Contains(t, out.String(), "[x]")
	assert.NotContains(t, out.String(), "[ ]")
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	assert.Error(t, Run(context.Background(), nil))
	assert.Error(t, Run(context.Background(), []string{"seed"}))
}
