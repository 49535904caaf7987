package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/studybud/backend/internal/auth"
	"github.com/studybud/backend/internal/catalog"
	"github.com/studybud/backend/internal/logging"
	"github.com/studybud/backend/internal/models"
)

const multipartMemory = 32 << 20

// CourseHandler serves course browsing, authoring and uploads.
type CourseHandler struct {
	Courses  Courses
	Learning Learning
}

// List handles GET /api/v1/courses?category=&search=&page=&per_page=.
func (h CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	courses, err := h.Courses.ListCourses(ctx, models.CourseFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Page:     pageFromQuery(r),
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, courses)
}

// Featured handles GET /api/v1/courses/featured.
func (h CourseHandler) Featured(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	courses, err := h.Courses.FeaturedCourses(ctx, queryInt(r, "limit"))
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"courses": courses})
}

// Categories handles GET /api/v1/courses/categories.
func (h CourseHandler) Categories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	categories, err := h.Courses.Categories(ctx)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"categories": categories})
}

// Get handles GET /api/v1/courses/{id}. Anonymous callers see published courses only.
func (h CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	courseID, err := pathID(r, "id")
	if err != nil {
		respondMessage(ctx, w, http.StatusBadRequest, "invalid course id")
		return
	}

	var viewerID int64
	session, signedIn := auth.SessionFromContext(ctx)
	if signedIn {
		viewerID = session.UserID
	}

	course, err := h.Courses.GetCourse(ctx, courseID, viewerID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	videos, err := h.Courses.CourseVideos(ctx, courseID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	books, err := h.Courses.CourseBooks(ctx, courseID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	enrolled := false
	if signedIn {
		if enrolled, err = h.Learning.IsUserEnrolled(ctx, viewerID, courseID); err != nil {
			respondError(ctx, w, err)
			return
		}
	}

	respondJSON(ctx, w, http.StatusOK, map[string]any{
		"course":   course,
		"videos":   videos,
		"books":    books,
		"enrolled": enrolled,
	})
}

// Create handles POST /api/v1/courses.
func (h CourseHandler) Create(w http.ResponseWriter, r *http.Request, session auth.Session) {
	ctx := r.Context()

	var req catalog.CourseInput
	if err := decodeJSON(r, &req); err != nil {
		logging.FromContext(ctx).Warn("invalid course payload", "error", err)
		respondMessage(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	course, err := h.Courses.CreateCourse(ctx, session.UserID, req)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, map[string]any{"course": course})
}

// Update handles PATCH /api/v1/courses/{id}.
func (h CourseHandler) Update(w http.ResponseWriter, r *http.Request, session auth.Session) {
	ctx := r.Context()

	courseID, err := pathID(r, "id")
	if err != nil {
		respondMessage(ctx, w, http.StatusBadRequest, "invalid course id")
		return
	}

	var req models.CourseUpdate
	if err := decodeJSON(r, &req); err != nil {
		logging.FromContext(ctx).Warn("invalid course update payload", "error", err)
		respondMessage(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	// Thumbnails change only through the upload endpoint.
	req.Thumbnail = nil

	course, err := h.Courses.UpdateCourse(ctx, session.UserID, courseID, req)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"course": course})
}

// Enroll handles POST /api/v1/courses/{id}/enroll.
func (h CourseHandler) Enroll(w http.ResponseWriter, r *http.Request, session auth.Session) {
	ctx := r.Context()

	courseID, err := pathID(r, "id")
	if err != nil {
		respondMessage(ctx, w, http.StatusBadRequest, "invalid course id")
		return
	}
	if err := h.Learning.EnrollUser(ctx, session.UserID, courseID); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, successResponse{Success: true})
}

// UploadThumbnail handles multipart POST /api/v1/courses/{id}/thumbnail with a
// "thumbnail" file field.
func (h CourseHandler) UploadThumbnail(w http.ResponseWriter, r *http.Request, session auth.Session) {
	ctx := r.Context()

	courseID, err := pathID(r, "id")
	if err != nil {
		respondMessage(ctx, w, http.StatusBadRequest, "invalid course id")
		return
	}
	upload, closeFile, ok := formUpload(w, r, "thumbnail")
	if !ok {
		return
	}
	defer closeFile()

	course, err := h.Courses.SetThumbnail(ctx, session.UserID, courseID, upload)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, map[string]any{"course": course})
}

// UploadVideo handles multipart POST /api/v1/courses/{id}/videos with title,
// description, is_free and a "video" file field.
func (h CourseHandler) UploadVideo(w http.ResponseWriter, r *http.Request, session auth.Session) {
	ctx := r.Context()

	courseID, err := pathID(r, "id")
	if err != nil {
		respondMessage(ctx, w, http.StatusBadRequest, "invalid course id")
		return
	}
	upload, closeFile, ok := formUpload(w, r, "video")
	if !ok {
		return
	}
	defer closeFile()

	isFree, _ := strconv.ParseBool(r.FormValue("is_free"))
	video, err := h.Courses.AddVideo(ctx, session.UserID, courseID, catalog.VideoUpload{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		IsFree:      isFree,
		File:        upload,
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, map[string]any{"video": video})
}

// UploadBook handles multipart POST /api/v1/courses/{id}/books with title,
// description and a "book" file field.
func (h CourseHandler) UploadBook(w http.ResponseWriter, r *http.Request, session auth.Session) {
	ctx := r.Context()

	courseID, err := pathID(r, "id")
	if err != nil {
		respondMessage(ctx, w, http.StatusBadRequest, "invalid course id")
		return
	}
	upload, closeFile, ok := formUpload(w, r, "book")
	if !ok {
		return
	}
	defer closeFile()

	book, err := h.Courses.AddBook(ctx, session.UserID, courseID, catalog.BookUpload{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		File:        upload,
	})
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, map[string]any{"book": book})
}

// DeleteVideo handles DELETE /api/v1/courses/{id}/videos/{videoID}.
func (h CourseHandler) DeleteVideo(w http.ResponseWriter, r *http.Request, session auth.Session) {
	ctx := r.Context()

	courseID, err := pathID(r, "id")
	if err != nil {
		respondMessage(ctx, w, http.StatusBadRequest, "invalid course id")
		return
	}
	videoID, err := pathID(r, "videoID")
	if err != nil {
		respondMessage(ctx, w, http.StatusBadRequest, "invalid video id")
		return
	}
	if err := h.Courses.DeleteVideo(ctx, videoID, courseID, session.UserID); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, successResponse{Success: true})
}

// DeleteBook handles DELETE /api/v1/courses/{id}/books/{bookID}.
func (h CourseHandler) DeleteBook(w http.ResponseWriter, r *http.Request, session auth.Session) {
	ctx := r.Context()

	courseID, err := pathID(r, "id")
	if err != nil {
		respondMessage(ctx, w, http.StatusBadRequest, "invalid course id")
		return
	}
	bookID, err := pathID(r, "bookID")
	if err != nil {
		respondMessage(ctx, w, http.StatusBadRequest, "invalid book id")
		return
	}
	if err := h.Courses.DeleteBook(ctx, bookID, courseID, session.UserID); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, successResponse{Success: true})
}

// formUpload parses the multipart form and opens field. It writes the error response
// itself and reports false when the request carries no usable file.
func formUpload(w http.ResponseWriter, r *http.Request, field string) (catalog.Upload, func(), bool) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondMessage(ctx, w, http.StatusRequestEntityTooLarge, "upload is too large")
			return catalog.Upload{}, nil, false
		}
		logging.FromContext(ctx).Warn("invalid multipart form", "error", err)
		respondMessage(ctx, w, http.StatusBadRequest, "expected a multipart form")
		return catalog.Upload{}, nil, false
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			respondMessage(ctx, w, http.StatusBadRequest, "a "+field+" file is required")
			return catalog.Upload{}, nil, false
		}
		logging.FromContext(ctx).Warn("open upload failed", "field", field, "error", err)
		respondMessage(ctx, w, http.StatusBadRequest, "unable to read uploaded file")
		return catalog.Upload{}, nil, false
	}

	closeFile := func() { _ = file.Close() }
	return catalog.Upload{
		Filename: strings.TrimSpace(header.Filename),
		Size:     header.Size,
		Body:     file,
	}, closeFile, true
}
