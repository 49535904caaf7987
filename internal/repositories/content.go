package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/studybud/backend/internal/db"
	"github.com/studybud/backend/internal/models"
)

const (
	videoColumns = `id, course_id, title, description, video_url, duration, position, is_free, uploaded_by, created_at`
	bookColumns  = `id, course_id, title, description, file_path, file_size, page_count, position, uploaded_by, created_at`
)

// VideoRepository persists course videos.
type VideoRepository struct {
	base
}

// NewVideoRepository constructs a video repository over the shared pool.
func NewVideoRepository(d *db.DB) *VideoRepository {
	return &VideoRepository{base: newBase(d)}
}

// Create inserts video and fills in its generated id.
func (r *VideoRepository) Create(ctx context.Context, video *models.Video) error {
	now := r.now()
	id, err := r.insert(ctx, `
        INSERT INTO videos (course_id, title, description, video_url, duration, position, is_free, uploaded_by, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        RETURNING id
    `, video.CourseID, video.Title, video.Description, video.VideoURL, video.Duration, video.Position, video.IsFree, video.UploadedBy, now)
	if err != nil {
		return translate(err, "insert video")
	}
	video.ID = id
	video.CreatedAt = now
	return nil
}

// FindByID fetches a video by primary key.
func (r *VideoRepository) FindByID(ctx context.Context, id int64) (models.Video, error) {
	var video models.Video
	if err := r.get(ctx, r.db, &video, `SELECT `+videoColumns+` FROM videos WHERE id = ?`, id); err != nil {
		return models.Video{}, translate(err, "select video")
	}
	return video, nil
}

// ListByCourse returns the videos of a course in display order.
func (r *VideoRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.Video, error) {
	var videos []models.Video
	err := r.selectAll(ctx, &videos, `SELECT `+videoColumns+` FROM videos WHERE course_id = ? ORDER BY position, id`, courseID)
	if err != nil {
		return nil, translate(err, "list course videos")
	}
	return videos, nil
}

// CountByCourse returns how many videos a course has.
func (r *VideoRepository) CountByCourse(ctx context.Context, courseID int64) (int, error) {
	n, err := r.count(ctx, `SELECT COUNT(*) FROM videos WHERE course_id = ?`, courseID)
	if err != nil {
		return 0, translate(err, "count course videos")
	}
	return n, nil
}

// Count returns the total number of videos.
func (r *VideoRepository) Count(ctx context.Context) (int, error) {
	n, err := r.count(ctx, `SELECT COUNT(*) FROM videos`)
	if err != nil {
		return 0, translate(err, "count videos")
	}
	return n, nil
}

// UpdateDuration stores the probed length of a video in seconds.
func (r *VideoRepository) UpdateDuration(ctx context.Context, id int64, seconds int) error {
	res, err := r.exec(ctx, `UPDATE videos SET duration = ? WHERE id = ?`, seconds, id)
	if err != nil {
		return translate(err, "update video duration")
	}
	if rowsAffected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOwned removes a video only when id, course and uploader all match, returning
// the deleted row so its file can be cleaned up.
func (r *VideoRepository) DeleteOwned(ctx context.Context, id, courseID, uploaderID int64) (models.Video, error) {
	var video models.Video
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := r.get(ctx, tx, &video, `SELECT `+videoColumns+` FROM videos WHERE id = ? AND course_id = ? AND uploaded_by = ?`, id, courseID, uploaderID); err != nil {
			return translate(err, "select owned video")
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM videos WHERE id = ?`), id); err != nil {
			return translate(err, "delete video")
		}
		return nil
	})
	if err != nil {
		return models.Video{}, err
	}
	return video, nil
}

// BookRepository persists course books.
type BookRepository struct {
	base
}

// NewBookRepository constructs a book repository over the shared pool.
func NewBookRepository(d *db.DB) *BookRepository {
	return &BookRepository{base: newBase(d)}
}

// Create inserts book and fills in its generated id.
func (r *BookRepository) Create(ctx context.Context, book *models.Book) error {
	now := r.now()
	id, err := r.insert(ctx, `
        INSERT INTO books (course_id, title, description, file_path, file_size, page_count, position, uploaded_by, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        RETURNING id
    `, book.CourseID, book.Title, book.Description, book.FilePath, book.FileSize, book.PageCount, book.Position, book.UploadedBy, now)
	if err != nil {
		return translate(err, "insert book")
	}
	book.ID = id
	book.CreatedAt = now
	return nil
}

// FindByID fetches a book by primary key.
func (r *BookRepository) FindByID(ctx context.Context, id int64) (models.Book, error) {
	var book models.Book
	if err := r.get(ctx, r.db, &book, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id); err != nil {
		return models.Book{}, translate(err, "select book")
	}
	return book, nil
}

// ListByCourse returns the books of a course in display order.
func (r *BookRepository) ListByCourse(ctx context.Context, courseID int64) ([]models.Book, error) {
	var books []models.Book
	err := r.selectAll(ctx, &books, `SELECT `+bookColumns+` FROM books WHERE course_id = ? ORDER BY position, id`, courseID)
	if err != nil {
		return nil, translate(err, "list course books")
	}
	return books, nil
}

// CountByCourse returns how many books a course has.
func (r *BookRepository) CountByCourse(ctx context.Context, courseID int64) (int, error) {
	n, err := r.count(ctx, `SELECT COUNT(*) FROM books WHERE course_id = ?`, courseID)
	if err != nil {
		return 0, translate(err, "count course books")
	}
	return n, nil
}

// DeleteOwned removes a book only when id, course and uploader all match.
func (r *BookRepository) DeleteOwned(ctx context.Context, id, courseID, uploaderID int64) (models.Book, error) {
	var book models.Book
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := r.get(ctx, tx, &book, `SELECT `+bookColumns+` FROM books WHERE id = ? AND course_id = ? AND uploaded_by = ?`, id, courseID, uploaderID); err != nil {
			return translate(err, "select owned book")
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM books WHERE id = ?`), id); err != nil {
			return translate(err, "delete book")
		}
		return nil
	})
	if err != nil {
		return models.Book{}, err
	}
	return book, nil
}
