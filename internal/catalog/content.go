package catalog

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/studybud/backend/internal/apperr"
	"github.com/studybud/backend/internal/logging"
	"github.com/studybud/backend/internal/models"
	"github.com/studybud/backend/internal/storage"
)

// Upload is a file received from a client. Body may also implement io.ReaderAt, which
// lets PDF uploads be inspected before they are stored.
type Upload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// VideoUpload carries a new course video.
type VideoUpload struct {
	Title       string
	Description string
	IsFree      bool
	File        Upload
}

// BookUpload carries a new course book.
type BookUpload struct {
	Title       string
	Description string
	File        Upload
}

// AddVideo stores a video file for a course owned by uploaderID and appends it to the
// end of the course. The duration is filled in later by the probe queue.
func (s *Service) AddVideo(ctx context.Context, uploaderID, courseID int64, in VideoUpload) (models.Video, error) {
	ctx, span := logging.StartSpan(ctx, "catalog.AddVideo")
	defer span.End()
	logger := logging.FromContext(ctx)

	if _, err := s.ownedCourse(ctx, uploaderID, courseID); err != nil {
		return models.Video{}, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Video{}, apperr.Validation("title is required")
	}

	count, err := s.videos.CountByCourse(ctx, courseID)
	if err != nil {
		return models.Video{}, readFailure(ctx, err, "videos")
	}

	location, err := s.store(ctx, storage.KindVideo, in.File)
	if err != nil {
		return models.Video{}, err
	}

	video := models.Video{
		CourseID:    courseID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		VideoURL:    location,
		Position:    count + 1,
		IsFree:      in.IsFree,
		UploadedBy:  uploaderID,
	}
	if err := s.videos.Create(ctx, &video); err != nil {
		s.discard(ctx, location)
		return models.Video{}, writeFailure(ctx, err, "course", "save video")
	}

	if s.probes != nil {
		if err := s.probes.Enqueue(ctx, video.ID, location); err != nil {
			logger.Warn("failed to queue duration probe", "videoId", video.ID, "error", err)
		}
	}

	logger.Info("video uploaded", "videoId", video.ID, "courseId", courseID, "position", video.Position)
	return video, nil
}

// AddBook stores a PDF for a course owned by uploaderID, recording its size and, when
// readable, its page count.
func (s *Service) AddBook(ctx context.Context, uploaderID, courseID int64, in BookUpload) (models.Book, error) {
	ctx, span := logging.StartSpan(ctx, "catalog.AddBook")
	defer span.End()
	logger := logging.FromContext(ctx)

	if _, err := s.ownedCourse(ctx, uploaderID, courseID); err != nil {
		return models.Book{}, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Book{}, apperr.Validation("title is required")
	}
	if in.File.Body == nil || strings.TrimSpace(in.File.Filename) == "" {
		return models.Book{}, apperr.Validation("a %s file is required", storage.KindBook)
	}
	if err := storage.CheckExtension(storage.KindBook, in.File.Filename); err != nil {
		return models.Book{}, unsupported(storage.KindBook)
	}

	pages := 0
	if ra, ok := in.File.Body.(io.ReaderAt); ok && in.File.Size > 0 {
		n, err := storage.PageCount(ra, in.File.Size)
		if err != nil {
			logger.Warn("could not read pdf page count", "filename", in.File.Filename, "error", err)
		} else {
			pages = n
		}
	}

	count, err := s.books.CountByCourse(ctx, courseID)
	if err != nil {
		return models.Book{}, readFailure(ctx, err, "books")
	}

	counter := &countingReader{r: in.File.Body}
	location, err := s.store(ctx, storage.KindBook, Upload{Filename: in.File.Filename, Size: in.File.Size, Body: counter})
	if err != nil {
		return models.Book{}, err
	}

	book := models.Book{
		CourseID:    courseID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		FilePath:    location,
		FileSize:    counter.n,
		PageCount:   pages,
		Position:    count + 1,
		UploadedBy:  uploaderID,
	}
	if err := s.books.Create(ctx, &book); err != nil {
		s.discard(ctx, location)
		return models.Book{}, writeFailure(ctx, err, "course", "save book")
	}

	logger.Info("book uploaded", "bookId", book.ID, "courseId", courseID, "pages", pages)
	return book, nil
}

// DeleteVideo removes a video when videoID, courseID and uploaderID all match. The
// stored file is removed on a best-effort basis.
func (s *Service) DeleteVideo(ctx context.Context, videoID, courseID, uploaderID int64) error {
	video, err := s.videos.DeleteOwned(ctx, videoID, courseID, uploaderID)
	if err != nil {
		return writeFailure(ctx, err, "video", "delete video")
	}
	s.discard(ctx, video.VideoURL)
	logging.FromContext(ctx).Info("video deleted", "videoId", videoID, "courseId", courseID)
	return nil
}

// DeleteBook removes a book when bookID, courseID and uploaderID all match.
func (s *Service) DeleteBook(ctx context.Context, bookID, courseID, uploaderID int64) error {
	book, err := s.books.DeleteOwned(ctx, bookID, courseID, uploaderID)
	if err != nil {
		return writeFailure(ctx, err, "book", "delete book")
	}
	s.discard(ctx, book.FilePath)
	logging.FromContext(ctx).Info("book deleted", "bookId", bookID, "courseId", courseID)
	return nil
}

// CourseVideos returns a course's videos in display order.
func (s *Service) CourseVideos(ctx context.Context, courseID int64) ([]models.Video, error) {
	videos, err := s.videos.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, readFailure(ctx, err, "videos")
	}
	return nonNil(videos), nil
}

// CourseBooks returns a course's books in display order.
func (s *Service) CourseBooks(ctx context.Context, courseID int64) ([]models.Book, error) {
	books, err := s.books.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, readFailure(ctx, err, "books")
	}
	return nonNil(books), nil
}

// store validates and writes an upload, returning its public location.
func (s *Service) store(ctx context.Context, kind storage.Kind, file Upload) (string, error) {
	if file.Body == nil || strings.TrimSpace(file.Filename) == "" {
		return "", apperr.Validation("a %s file is required", kind)
	}

	key, err := storage.ObjectKey(kind, file.Filename)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			return "", unsupported(kind)
		}
		return "", apperr.Validation("invalid %s file", kind)
	}

	location, err := s.files.Save(ctx, key, file.Body)
	if err != nil {
		logging.FromContext(ctx).Error("failed to store upload", "kind", kind, "key", key, "error", err)
		return "", apperr.OperationFailed(err, "unable to store the %s file", kind)
	}
	return location, nil
}

// discard removes a stored file, logging failures.
func (s *Service) discard(ctx context.Context, location string) {
	if location == "" || s.files == nil {
		return
	}
	if err := s.files.Delete(ctx, location); err != nil {
		logging.FromContext(ctx).Warn("failed to remove stored file", "location", location, "error", err)
	}
}

func unsupported(kind storage.Kind) error {
	return apperr.Validation("unsupported %s format, allowed: %s", kind, strings.Join(storage.Extensions(kind), ", "))
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
