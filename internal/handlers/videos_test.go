package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/studybud/backend/internal/apperr"
	"github.com/studybud/backend/internal/catalog"
	"github.com/studybud/backend/internal/models"
)

type progressCall struct {
	userID, videoID int64
	position        int
	completed       bool
}

type stubLearning struct {
	Learning

	progress []progressCall
	saved    map[int64]bool
}

func (s *stubLearning) WatchVideo(_ context.Context, userID, videoID int64) (catalog.WatchResult, error) {
	if videoID == 404 {
		return catalog.WatchResult{}, apperr.NotFound("Video not found")
	}
	if videoID == 403 {
		return catalog.WatchResult{}, apperr.Forbidden("You must enroll in this course to watch this video")
	}
	return catalog.WatchResult{Video: models.Video{ID: videoID, Title: "Intro"}, Enrolled: true}, nil
}

func (s *stubLearning) UpdateVideoProgress(_ context.Context, userID, videoID int64, position int, completed bool) error {
	if videoID == 404 {
		return apperr.NotFound("Video not found")
	}
	s.progress = append(s.progress, progressCall{userID, videoID, position, completed})
	return nil
}

func (s *stubLearning) SaveVideo(_ context.Context, userID, videoID int64) error {
	if s.saved == nil {
		s.saved = map[int64]bool{}
	}
	s.saved[videoID] = true
	return nil
}

func (s *stubLearning) UnsaveVideo(_ context.Context, userID, videoID int64) error {
	delete(s.saved, videoID)
	return nil
}

func TestProgressEndpointRecordsPosition(t *testing.T) {
	learning := &stubLearning{}
	mux := newMux(Dependencies{Learning: learning})

	req := signedIn(httptest.NewRequest(http.MethodPost, "/api/v1/videos/12/progress",
		strings.NewReader(`{"position": 95.7, "is_completed": true}`)), learnerSession)
	rec := serve(mux, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	var resp successResponse
	decode(t, rec, &resp)
	if !resp.Success {
		t.Fatalf("expected success response, got %+v", resp)
	}

	if len(learning.progress) != 1 {
		t.Fatalf("expected one progress call, got %d", len(learning.progress))
	}
	got := learning.progress[0]
	want := progressCall{userID: learnerSession.UserID, videoID: 12, position: 95, completed: true}
	if got != want {
		t.Fatalf("expected %+v got %+v", want, got)
	}
}

func TestProgressEndpointReportsFailures(t *testing.T) {
	mux := newMux(Dependencies{Learning: &stubLearning{}})

	cases := map[string]struct {
		path   string
		body   string
		status int
	}{
		"bad id":        {"/api/v1/videos/abc/progress", `{"position": 1}`, http.StatusBadRequest},
		"bad body":      {"/api/v1/videos/3/progress", `{"position":`, http.StatusBadRequest},
		"missing video": {"/api/v1/videos/404/progress", `{"position": 1}`, http.StatusNotFound},
		"huge position": {"/api/v1/videos/3/progress", `{"position": 1e10}`, http.StatusBadRequest},
		"negative":      {"/api/v1/videos/3/progress", `{"position": -5}`, http.StatusBadRequest},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := signedIn(httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body)), learnerSession)
			rec := serve(mux, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d got %d", tc.status, rec.Code)
			}
			var resp successResponse
			decode(t, rec, &resp)
			if resp.Success || resp.Error == "" {
				t.Fatalf("expected failure response, got %+v", resp)
			}
		})
	}
}

func TestWatchMapsAccessErrors(t *testing.T) {
	mux := newMux(Dependencies{Learning: &stubLearning{}})

	rec := serve(mux, signedIn(httptest.NewRequest(http.MethodGet, "/api/v1/videos/5", nil), learnerSession))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var result catalog.WatchResult
	decode(t, rec, &result)
	if result.Video.ID != 5 || !result.Enrolled {
		t.Fatalf("unexpected watch result %+v", result)
	}

	rec = serve(mux, signedIn(httptest.NewRequest(http.MethodGet, "/api/v1/videos/403", nil), learnerSession))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}

	rec = serve(mux, httptest.NewRequest(http.MethodGet, "/api/v1/videos/5", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous viewer got %d", rec.Code)
	}
}

func TestSaveAndUnsave(t *testing.T) {
	learning := &stubLearning{}
	mux := newMux(Dependencies{Learning: learning})

	rec := serve(mux, signedIn(httptest.NewRequest(http.MethodPost, "/api/v1/videos/9/save", nil), learnerSession))
	if rec.Code != http.StatusOK || !learning.saved[9] {
		t.Fatalf("expected video to be saved, status %d", rec.Code)
	}

	rec = serve(mux, signedIn(httptest.NewRequest(http.MethodDelete, "/api/v1/videos/9/save", nil), learnerSession))
	if rec.Code != http.StatusOK || learning.saved[9] {
		t.Fatalf("expected video to be unsaved, status %d", rec.Code)
	}
}
