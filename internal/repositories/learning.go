package repositories

import (
	"context"

	"github.com/studybud/backend/internal/db"
	"github.com/studybud/backend/internal/models"
)

// EnrollmentRepository persists course enrollments.
type EnrollmentRepository struct {
	base
}

// NewEnrollmentRepository constructs an enrollment repository over the shared pool.
func NewEnrollmentRepository(d *db.DB) *EnrollmentRepository {
	return &EnrollmentRepository{base: newBase(d)}
}

// Enroll grants userID access to courseID. Enrolling twice is a no-op.
func (r *EnrollmentRepository) Enroll(ctx context.Context, userID, courseID int64) error {
	_, err := r.exec(ctx, `
        INSERT INTO enrollments (user_id, course_id, enrolled_at, completed)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (user_id, course_id) DO NOTHING
    `, userID, courseID, r.now(), false)
	if err != nil {
		return translate(err, "insert enrollment")
	}
	return nil
}

// IsEnrolled reports whether userID is enrolled in courseID.
func (r *EnrollmentRepository) IsEnrolled(ctx context.Context, userID, courseID int64) (bool, error) {
	n, err := r.count(ctx, `SELECT COUNT(*) FROM enrollments WHERE user_id = ? AND course_id = ?`, userID, courseID)
	if err != nil {
		return false, translate(err, "check enrollment")
	}
	return n > 0, nil
}

// ListForUser returns a page of the courses userID is enrolled in with video
// completion counts, most recent enrollment first.
func (r *EnrollmentRepository) ListForUser(ctx context.Context, userID int64, page models.Page) ([]models.EnrolledCourse, error) {
	var courses []models.EnrolledCourse
	err := r.selectAll(ctx, &courses, `
        SELECT c.id, c.title, c.description, c.instructor_id, c.thumbnail, c.category, c.level, c.price,
               c.status, c.is_featured, c.created_at, c.updated_at,
               CASE WHEN u.full_name = '' THEN u.username ELSE u.full_name END AS instructor_name,
               e.enrolled_at,
               (SELECT COUNT(*) FROM videos v WHERE v.course_id = c.id) AS total_videos,
               (SELECT COUNT(*) FROM user_progress p
                  JOIN videos v ON v.id = p.video_id
                 WHERE v.course_id = c.id AND p.user_id = e.user_id AND p.is_completed = ?) AS completed_videos
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        JOIN users u ON u.id = c.instructor_id
        WHERE e.user_id = ?
        ORDER BY e.enrolled_at DESC, e.id DESC
        LIMIT ? OFFSET ?`, true, userID, page.Limit(), page.Offset())
	if err != nil {
		return nil, translate(err, "list enrollments")
	}
	return courses, nil
}

// CountForUser returns how many courses userID is enrolled in.
func (r *EnrollmentRepository) CountForUser(ctx context.Context, userID int64) (int, error) {
	n, err := r.count(ctx, `SELECT COUNT(*) FROM enrollments WHERE user_id = ?`, userID)
	if err != nil {
		return 0, translate(err, "count enrollments")
	}
	return n, nil
}

// ProgressRepository persists per-video watch progress.
type ProgressRepository struct {
	base
}

// NewProgressRepository constructs a progress repository over the shared pool.
func NewProgressRepository(d *db.DB) *ProgressRepository {
	return &ProgressRepository{base: newBase(d)}
}

// Upsert records the latest position for (userID, videoID), creating the row on first
// use. Positions may move backwards.
func (r *ProgressRepository) Upsert(ctx context.Context, userID, videoID int64, position int, completed bool) error {
	_, err := r.exec(ctx, `
        INSERT INTO user_progress (user_id, video_id, position, is_completed, last_watched)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (user_id, video_id)
        DO UPDATE SET position = excluded.position, is_completed = excluded.is_completed, last_watched = excluded.last_watched
    `, userID, videoID, position, completed, r.now())
	if err != nil {
		return translate(err, "upsert progress")
	}
	return nil
}

// Find returns the progress row for (userID, videoID).
func (r *ProgressRepository) Find(ctx context.Context, userID, videoID int64) (models.VideoProgress, error) {
	var progress models.VideoProgress
	err := r.get(ctx, r.db, &progress, `
        SELECT user_id, video_id, position, is_completed, last_watched
        FROM user_progress WHERE user_id = ? AND video_id = ?`, userID, videoID)
	if err != nil {
		return models.VideoProgress{}, translate(err, "select progress")
	}
	return progress, nil
}

// SavedVideoRepository persists video bookmarks.
type SavedVideoRepository struct {
	base
}

// NewSavedVideoRepository constructs a bookmark repository over the shared pool.
func NewSavedVideoRepository(d *db.DB) *SavedVideoRepository {
	return &SavedVideoRepository{base: newBase(d)}
}

// Save bookmarks a video. Saving twice is a no-op.
func (r *SavedVideoRepository) Save(ctx context.Context, userID, videoID int64) error {
	_, err := r.exec(ctx, `
        INSERT INTO saved_videos (user_id, video_id, saved_at)
        VALUES (?, ?, ?)
        ON CONFLICT (user_id, video_id) DO NOTHING
    `, userID, videoID, r.now())
	if err != nil {
		return translate(err, "insert saved video")
	}
	return nil
}

// Unsave removes a bookmark. Removing a missing bookmark is a no-op.
func (r *SavedVideoRepository) Unsave(ctx context.Context, userID, videoID int64) error {
	if _, err := r.exec(ctx, `DELETE FROM saved_videos WHERE user_id = ? AND video_id = ?`, userID, videoID); err != nil {
		return translate(err, "delete saved video")
	}
	return nil
}

// IsSaved reports whether userID bookmarked videoID.
func (r *SavedVideoRepository) IsSaved(ctx context.Context, userID, videoID int64) (bool, error) {
	n, err := r.count(ctx, `SELECT COUNT(*) FROM saved_videos WHERE user_id = ? AND video_id = ?`, userID, videoID)
	if err != nil {
		return false, translate(err, "check saved video")
	}
	return n > 0, nil
}

// List returns a page of userID's bookmarks, newest first.
func (r *SavedVideoRepository) List(ctx context.Context, userID int64, page models.Page) ([]models.SavedVideo, error) {
	var saved []models.SavedVideo
	err := r.selectAll(ctx, &saved, `
        SELECT v.id, v.course_id, v.title, v.description, v.video_url, v.duration, v.position, v.is_free,
               v.uploaded_by, v.created_at, c.title AS course_title, s.saved_at
        FROM saved_videos s
        JOIN videos v ON v.id = s.video_id
        JOIN courses c ON c.id = v.course_id
        WHERE s.user_id = ?
        ORDER BY s.saved_at DESC, s.id DESC
        LIMIT ? OFFSET ?`, userID, page.Limit(), page.Offset())
	if err != nil {
		return nil, translate(err, "list saved videos")
	}
	return saved, nil
}

// Count returns how many videos userID bookmarked.
func (r *SavedVideoRepository) Count(ctx context.Context, userID int64) (int, error) {
	n, err := r.count(ctx, `SELECT COUNT(*) FROM saved_videos WHERE user_id = ?`, userID)
	if err != nil {
		return 0, translate(err, "count saved videos")
	}
	return n, nil
}

// HistoryRepository persists the append-only viewing log.
type HistoryRepository struct {
	base
}

// NewHistoryRepository constructs a history repository over the shared pool.
func NewHistoryRepository(d *db.DB) *HistoryRepository {
	return &HistoryRepository{base: newBase(d)}
}

// Append records a view of videoID with the viewer's completion percentage.
func (r *HistoryRepository) Append(ctx context.Context, userID, videoID int64, progress int) error {
	_, err := r.exec(ctx, `INSERT INTO history (user_id, video_id, viewed_at, progress) VALUES (?, ?, ?, ?)`,
		userID, videoID, r.now(), progress)
	if err != nil {
		return translate(err, "insert history")
	}
	return nil
}

// List returns userID's most recent views.
func (r *HistoryRepository) List(ctx context.Context, userID int64, limit int) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	err := r.selectAll(ctx, &entries, `
        SELECT h.id, h.user_id, h.video_id, h.viewed_at, h.progress,
               v.title AS video_title, v.course_id, c.title AS course_title
        FROM history h
        JOIN videos v ON v.id = h.video_id
        JOIN courses c ON c.id = v.course_id
        WHERE h.user_id = ?
        ORDER BY h.viewed_at DESC, h.id DESC
        LIMIT ?`, userID, limit)
	if err != nil {
		return nil, translate(err, "list history")
	}
	return entries, nil
}

// Clear deletes userID's viewing history.
func (r *HistoryRepository) Clear(ctx context.Context, userID int64) error {
	if _, err := r.exec(ctx, `DELETE FROM history WHERE user_id = ?`, userID); err != nil {
		return translate(err, "clear history")
	}
	return nil
}
