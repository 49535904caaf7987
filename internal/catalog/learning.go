package catalog

import (
	"context"
	"errors"
	"math"

	"github.com/studybud/backend/internal/apperr"
	"github.com/studybud/backend/internal/logging"
	"github.com/studybud/backend/internal/models"
	"github.com/studybud/backend/internal/repositories"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// WatchResult is everything the player needs for one video.
type WatchResult struct {
	Video    models.Video          `json:"video"`
	Course   models.CourseSummary  `json:"course"`
	Progress *models.VideoProgress `json:"progress,omitempty"`
	Saved    bool                  `json:"saved"`
	Enrolled bool                  `json:"enrolled"`
	Previous *models.Video         `json:"previous,omitempty"`
	Next     *models.Video         `json:"next,omitempty"`
}

// WatchVideo opens a video for userID. Free videos are open to everyone; the rest need
// an enrollment or ownership of the course. Each call appends to the viewing history.
func (s *Service) WatchVideo(ctx context.Context, userID, videoID int64) (WatchResult, error) {
	ctx, span := logging.StartSpan(ctx, "catalog.WatchVideo")
	defer span.End()
	logger := logging.FromContext(ctx)

	video, err := s.videos.FindByID(ctx, videoID)
	if err != nil {
		return WatchResult{}, readFailure(ctx, err, "video")
	}
	course, err := s.courses.FindByID(ctx, video.CourseID)
	if err != nil {
		return WatchResult{}, readFailure(ctx, err, "course")
	}

	owner := course.InstructorID == userID
	if course.Status != models.CoursePublished && !owner {
		return WatchResult{}, apperr.NotFound("video not found")
	}

	enrolled, err := s.enrollments.IsEnrolled(ctx, userID, course.ID)
	if err != nil {
		return WatchResult{}, readFailure(ctx, err, "enrollment")
	}
	if !video.IsFree && !enrolled && !owner {
		return WatchResult{}, apperr.Forbidden("enroll in this course to watch this video")
	}

	result := WatchResult{Video: video, Course: course, Enrolled: enrolled}

	progress, err := s.VideoProgress(ctx, userID, videoID)
	if err != nil {
		return WatchResult{}, err
	}
	result.Progress = progress

	if result.Saved, err = s.saved.IsSaved(ctx, userID, videoID); err != nil {
		return WatchResult{}, readFailure(ctx, err, "saved videos")
	}

	siblings, err := s.videos.ListByCourse(ctx, course.ID)
	if err != nil {
		return WatchResult{}, readFailure(ctx, err, "videos")
	}
	for i := range siblings {
		if siblings[i].ID != videoID {
			continue
		}
		if i > 0 {
			prev := siblings[i-1]
			result.Previous = &prev
		}
		if i+1 < len(siblings) {
			next := siblings[i+1]
			result.Next = &next
		}
		break
	}

	if err := s.history.Append(ctx, userID, videoID, percentWatched(video, progress)); err != nil {
		logger.Warn("failed to record history", "videoId", videoID, "error", err)
	}

	return result, nil
}

func percentWatched(video models.Video, progress *models.VideoProgress) int {
	switch {
	case progress == nil:
		return 0
	case progress.IsCompleted:
		return 100
	case video.Duration <= 0:
		return 0
	}
	pct := progress.Position * 100 / video.Duration
	if pct > 100 {
		pct = 100
	}
	return pct
}

// EnrollUser enrolls userID in a published course. Enrolling twice succeeds.
func (s *Service) EnrollUser(ctx context.Context, userID, courseID int64) error {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return readFailure(ctx, err, "course")
	}
	if course.Status != models.CoursePublished && course.InstructorID != userID {
		return apperr.NotFound("course not found")
	}

	if err := s.enrollments.Enroll(ctx, userID, courseID); err != nil {
		return writeFailure(ctx, err, "course", "enroll in course")
	}
	logging.FromContext(ctx).Info("user enrolled", "userId", userID, "courseId", courseID)
	return nil
}

// IsUserEnrolled reports whether userID is enrolled in courseID.
func (s *Service) IsUserEnrolled(ctx context.Context, userID, courseID int64) (bool, error) {
	enrolled, err := s.enrollments.IsEnrolled(ctx, userID, courseID)
	if err != nil {
		return false, readFailure(ctx, err, "enrollment")
	}
	return enrolled, nil
}

// UserEnrollments returns a page of userID's courses with per-course completion counts.
func (s *Service) UserEnrollments(ctx context.Context, userID int64, page models.Page) (models.Paginated[models.EnrolledCourse], error) {
	page = page.Normalize()
	courses, err := s.enrollments.ListForUser(ctx, userID, page)
	if err != nil {
		return models.Paginated[models.EnrolledCourse]{}, readFailure(ctx, err, "enrollments")
	}
	total, err := s.enrollments.CountForUser(ctx, userID)
	if err != nil {
		return models.Paginated[models.EnrolledCourse]{}, readFailure(ctx, err, "enrollments")
	}
	return models.NewPaginated(courses, total, page), nil
}

// EnrollmentCount returns how many courses userID is enrolled in.
func (s *Service) EnrollmentCount(ctx context.Context, userID int64) (int, error) {
	n, err := s.enrollments.CountForUser(ctx, userID)
	if err != nil {
		return 0, readFailure(ctx, err, "enrollments")
	}
	return n, nil
}

// UpdateVideoProgress records userID's position in a video. Positions may move
// backwards; the latest report wins.
func (s *Service) UpdateVideoProgress(ctx context.Context, userID, videoID int64, position int, completed bool) error {
	if position < 0 {
		return apperr.Validation("position must be greater than or equal to 0")
	}
	if position > math.MaxInt32 {
		return apperr.Validation("position is out of range")
	}
	if err := s.progress.Upsert(ctx, userID, videoID, position, completed); err != nil {
		return writeFailure(ctx, err, "video", "save progress")
	}
	return nil
}

// VideoProgress returns userID's progress on videoID, or nil when they have none.
func (s *Service) VideoProgress(ctx context.Context, userID, videoID int64) (*models.VideoProgress, error) {
	progress, err := s.progress.Find(ctx, userID, videoID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil
		}
		return nil, readFailure(ctx, err, "progress")
	}
	return &progress, nil
}

// SaveVideo bookmarks a video. Saving twice succeeds.
func (s *Service) SaveVideo(ctx context.Context, userID, videoID int64) error {
	if err := s.saved.Save(ctx, userID, videoID); err != nil {
		return writeFailure(ctx, err, "video", "save video")
	}
	return nil
}

// UnsaveVideo removes a bookmark. Removing a missing bookmark succeeds.
func (s *Service) UnsaveVideo(ctx context.Context, userID, videoID int64) error {
	if err := s.saved.Unsave(ctx, userID, videoID); err != nil {
		return writeFailure(ctx, err, "video", "remove saved video")
	}
	return nil
}

// IsVideoSaved reports whether userID bookmarked videoID.
func (s *Service) IsVideoSaved(ctx context.Context, userID, videoID int64) (bool, error) {
	saved, err := s.saved.IsSaved(ctx, userID, videoID)
	if err != nil {
		return false, readFailure(ctx, err, "saved videos")
	}
	return saved, nil
}

// SavedVideos returns a page of userID's bookmarks.
func (s *Service) SavedVideos(ctx context.Context, userID int64, page models.Page) (models.Paginated[models.SavedVideo], error) {
	page = page.Normalize()
	videos, err := s.saved.List(ctx, userID, page)
	if err != nil {
		return models.Paginated[models.SavedVideo]{}, readFailure(ctx, err, "saved videos")
	}
	total, err := s.saved.Count(ctx, userID)
	if err != nil {
		return models.Paginated[models.SavedVideo]{}, readFailure(ctx, err, "saved videos")
	}
	return models.NewPaginated(videos, total, page), nil
}

// SavedVideoCount returns how many videos userID bookmarked.
func (s *Service) SavedVideoCount(ctx context.Context, userID int64) (int, error) {
	n, err := s.saved.Count(ctx, userID)
	if err != nil {
		return 0, readFailure(ctx, err, "saved videos")
	}
	return n, nil
}

// History returns userID's latest views, newest first.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	entries, err := s.history.List(ctx, userID, limit)
	if err != nil {
		return nil, readFailure(ctx, err, "history")
	}
	return nonNil(entries), nil
}

// ClearHistory deletes userID's viewing history.
func (s *Service) ClearHistory(ctx context.Context, userID int64) error {
	if err := s.history.Clear(ctx, userID); err != nil {
		return writeFailure(ctx, err, "history", "clear history")
	}
	return nil
}
