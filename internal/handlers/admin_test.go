package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/studybud/backend/internal/apperr"
	"github.com/studybud/backend/internal/auth"
	"github.com/studybud/backend/internal/models"
)

type stubAdmin struct {
	Admin

	admins  map[int64]bool
	deleted []int64
	setting [2]string
}

func (s *stubAdmin) IsAdmin(_ context.Context, userID int64) (bool, error) {
	return s.admins[userID], nil
}

func (s *stubAdmin) DashboardStats(context.Context) (models.DashboardStats, error) {
	return models.DashboardStats{TotalUsers: 3, ActiveUsers: 2}, nil
}

func (s *stubAdmin) DeleteUser(_ context.Context, userID int64) error {
	if userID == 1 {
		return apperr.ErrCannotDeleteLastAdmin
	}
	s.deleted = append(s.deleted, userID)
	return nil
}

func (s *stubAdmin) UpdateSetting(_ context.Context, key, value string) error {
	if key == "" {
		return apperr.Validation("Setting key is required")
	}
	s.setting = [2]string{key, value}
	return nil
}

var adminSession = auth.Session{
	ID:        "sess-admin",
	UserID:    1,
	Username:  "root",
	Role:      models.RoleAdmin,
	CSRFToken: "csrf-admin",
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	mux := newMux(Dependencies{Admin: &stubAdmin{admins: map[int64]bool{1: true}}})

	rec := serve(mux, httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous caller got %d", rec.Code)
	}

	rec = serve(mux, signedIn(httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard", nil), learnerSession))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", rec.Code)
	}

	// A session that still claims the admin role is not enough once the account is demoted.
	demoted := adminSession
	demoted.UserID = 2
	rec = serve(mux, signedIn(httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard", nil), demoted))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for demoted admin got %d", rec.Code)
	}

	rec = serve(mux, signedIn(httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard", nil), adminSession))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var stats models.DashboardStats
	decode(t, rec, &stats)
	if stats.TotalUsers != 3 || stats.ActiveUsers != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestAdminDeleteUser(t *testing.T) {
	admin := &stubAdmin{admins: map[int64]bool{1: true}}
	mux := newMux(Dependencies{Admin: admin})

	rec := serve(mux, signedIn(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/users/1", nil), adminSession))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 when deleting the last admin got %d", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["error"] != apperr.Message(apperr.ErrCannotDeleteLastAdmin) {
		t.Fatalf("unexpected error message %q", body["error"])
	}

	rec = serve(mux, signedIn(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/users/5", nil), adminSession))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if len(admin.deleted) != 1 || admin.deleted[0] != 5 {
		t.Fatalf("unexpected deletions %v", admin.deleted)
	}
}

func TestAdminUpdateSetting(t *testing.T) {
	admin := &stubAdmin{admins: map[int64]bool{1: true}}
	mux := newMux(Dependencies{Admin: admin})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/settings/maintenance_mode", strings.NewReader(`{"value":"1"}`))
	rec := serve(mux, signedIn(req, adminSession))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if admin.setting != [2]string{"maintenance_mode", "1"} {
		t.Fatalf("unexpected setting update %v", admin.setting)
	}
}
