package catalog

import (
	"context"

	"github.com/studybud/backend/internal/models"
)

// CourseStore captures the course persistence used by the catalog.
type CourseStore interface {
	Create(ctx context.Context, course *models.Course) error
	FindByID(ctx context.Context, id int64) (models.CourseSummary, error)
	Update(ctx context.Context, id int64, update models.CourseUpdate) error
	ListPublished(ctx context.Context, filter models.CourseFilter) ([]models.CourseSummary, error)
	CountPublished(ctx context.Context, filter models.CourseFilter) (int, error)
	Featured(ctx context.Context, limit int) ([]models.CourseSummary, error)
	ListByInstructor(ctx context.Context, instructorID int64) ([]models.CourseSummary, error)
	Categories(ctx context.Context) ([]string, error)
}

// VideoStore captures video persistence.
type VideoStore interface {
	Create(ctx context.Context, video *models.Video) error
	FindByID(ctx context.Context, id int64) (models.Video, error)
	ListByCourse(ctx context.Context, courseID int64) ([]models.Video, error)
	CountByCourse(ctx context.Context, courseID int64) (int, error)
	DeleteOwned(ctx context.Context, id, courseID, uploaderID int64) (models.Video, error)
}

// BookStore captures book persistence.
type BookStore interface {
	Create(ctx context.Context, book *models.Book) error
	ListByCourse(ctx context.Context, courseID int64) ([]models.Book, error)
	CountByCourse(ctx context.Context, courseID int64) (int, error)
	DeleteOwned(ctx context.Context, id, courseID, uploaderID int64) (models.Book, error)
}

// EnrollmentStore captures enrollment persistence.
type EnrollmentStore interface {
	Enroll(ctx context.Context, userID, courseID int64) error
	IsEnrolled(ctx context.Context, userID, courseID int64) (bool, error)
	ListForUser(ctx context.Context, userID int64, page models.Page) ([]models.EnrolledCourse, error)
	CountForUser(ctx context.Context, userID int64) (int, error)
}

// ProgressStore captures watch progress persistence.
type ProgressStore interface {
	Upsert(ctx context.Context, userID, videoID int64, position int, completed bool) error
	Find(ctx context.Context, userID, videoID int64) (models.VideoProgress, error)
}

// SavedVideoStore captures bookmark persistence.
type SavedVideoStore interface {
	Save(ctx context.Context, userID, videoID int64) error
	Unsave(ctx context.Context, userID, videoID int64) error
	IsSaved(ctx context.Context, userID, videoID int64) (bool, error)
	List(ctx context.Context, userID int64, page models.Page) ([]models.SavedVideo, error)
	Count(ctx context.Context, userID int64) (int, error)
}

// HistoryStore captures the viewing log.
type HistoryStore interface {
	Append(ctx context.Context, userID, videoID int64, progress int) error
	List(ctx context.Context, userID int64, limit int) ([]models.HistoryEntry, error)
	Clear(ctx context.Context, userID int64) error
}

// UserLookup resolves the role of a course author.
type UserLookup interface {
	FindByID(ctx context.Context, id int64) (models.User, error)
}

// ProbeScheduler queues uploaded videos for duration probing.
type ProbeScheduler interface {
	Enqueue(ctx context.Context, videoID int64, location string) error
}
