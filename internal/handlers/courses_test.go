package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/studybud/backend/internal/apperr"
	"github.com/studybud/backend/internal/catalog"
	"github.com/studybud/backend/internal/models"
)

type stubCourses struct {
	Courses

	video     catalog.VideoUpload
	videoBody string
	filter    models.CourseFilter
}

func (s *stubCourses) ListCourses(_ context.Context, filter models.CourseFilter) (models.Paginated[models.CourseSummary], error) {
	s.filter = filter
	return models.Paginated[models.CourseSummary]{Items: []models.CourseSummary{}}, nil
}

func (s *stubCourses) AddVideo(_ context.Context, uploaderID, courseID int64, in catalog.VideoUpload) (models.Video, error) {
	if courseID == 99 {
		return models.Video{}, apperr.Forbidden("Only the course instructor can upload videos")
	}
	body, err := io.ReadAll(in.File.Body)
	if err != nil {
		return models.Video{}, err
	}
	s.video = in
	s.videoBody = string(body)
	return models.Video{ID: 1, CourseID: courseID, Title: in.Title, IsFree: in.IsFree, UploadedBy: uploaderID}, nil
}

func videoForm(t *testing.T, withFile bool) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("title", "Lesson 1")
	_ = mw.WriteField("description", "Basics")
	_ = mw.WriteField("is_free", "true")
	if withFile {
		part, err := mw.CreateFormFile("video", "lesson1.mp4")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = part.Write([]byte("fake-video-bytes"))
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadVideo(t *testing.T) {
	courses := &stubCourses{}
	mux := newMux(Dependencies{Courses: courses})

	body, contentType := videoForm(t, true)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/courses/3/videos", body)
	req.Header.Set("Content-Type", contentType)
	rec := serve(mux, signedIn(req, learnerSession))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if courses.video.Title != "Lesson 1" || !courses.video.IsFree {
		t.Fatalf("unexpected upload metadata %+v", courses.video)
	}
	if courses.video.File.Filename != "lesson1.mp4" || courses.videoBody != "fake-video-bytes" {
		t.Fatalf("unexpected file %q with body %q", courses.video.File.Filename, courses.videoBody)
	}
}

func TestUploadVideoRejections(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		mux := newMux(Dependencies{Courses: &stubCourses{}})
		body, contentType := videoForm(t, false)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/courses/3/videos", body)
		req.Header.Set("Content-Type", contentType)

		rec := serve(mux, signedIn(req, learnerSession))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 got %d", rec.Code)
		}
	})

	t.Run("not the instructor", func(t *testing.T) {
		mux := newMux(Dependencies{Courses: &stubCourses{}})
		body, contentType := videoForm(t, true)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/courses/99/videos", body)
		req.Header.Set("Content-Type", contentType)

		rec := serve(mux, signedIn(req, learnerSession))
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403 got %d", rec.Code)
		}
	})

	t.Run("too large", func(t *testing.T) {
		mux := newMux(Dependencies{Courses: &stubCourses{}, MaxUploadBytes: 64})
		body, contentType := videoForm(t, true)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/courses/3/videos", body)
		req.Header.Set("Content-Type", contentType)

		rec := serve(mux, signedIn(req, learnerSession))
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected 413 got %d", rec.Code)
		}
	})
}

func TestListCoursesReadsQuery(t *testing.T) {
	courses := &stubCourses{}
	mux := newMux(Dependencies{Courses: courses})

	rec := serve(mux, httptest.NewRequest(http.MethodGet, "/api/v1/courses?category=Math&search=alg&page=2&per_page=5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if courses.filter.Category != "Math" || courses.filter.Search != "alg" {
		t.Fatalf("unexpected filter %+v", courses.filter)
	}
	if courses.filter.Page.Number != 2 || courses.filter.Page.PerPage != 5 {
		t.Fatalf("unexpected page %+v", courses.filter.Page)
	}
}
