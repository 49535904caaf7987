package handlers

import (
	"context"

	"github.com/studybud/backend/internal/auth"
	"github.com/studybud/backend/internal/catalog"
	"github.com/studybud/backend/internal/identity"
	"github.com/studybud/backend/internal/models"
)

// Accounts captures the identity operations exposed over HTTP.
type Accounts interface {
	Register(ctx context.Context, in identity.RegisterInput) (models.User, error)
	Login(ctx context.Context, in identity.LoginInput) (auth.Session, error)
	Logout(ctx context.Context, sessionID string)
	CreatePasswordResetToken(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password, confirm string) error
	ChangePassword(ctx context.Context, userID int64, current, password, confirm string) error
	GetUser(ctx context.Context, id int64) (models.User, error)
	UpdateProfile(ctx context.Context, userID int64, in identity.ProfileInput) (models.User, error)
	BecomeTutor(ctx context.Context, userID int64, sessionID string) (models.User, error)
	Preferences(ctx context.Context, userID int64) (models.UserPreferences, error)
	UpdatePreferences(ctx context.Context, userID int64, emailNotifications, marketingEmails bool) (models.UserPreferences, error)
}

// Courses captures course browsing and authoring.
type Courses interface {
	ListCourses(ctx context.Context, filter models.CourseFilter) (models.Paginated[models.CourseSummary], error)
	FeaturedCourses(ctx context.Context, limit int) ([]models.CourseSummary, error)
	Categories(ctx context.Context) ([]string, error)
	GetCourse(ctx context.Context, courseID, viewerID int64) (models.CourseSummary, error)
	CourseVideos(ctx context.Context, courseID int64) ([]models.Video, error)
	CourseBooks(ctx context.Context, courseID int64) ([]models.Book, error)
	InstructorCourses(ctx context.Context, instructorID int64) ([]models.CourseSummary, error)
	CreateCourse(ctx context.Context, instructorID int64, in catalog.CourseInput) (models.CourseSummary, error)
	UpdateCourse(ctx context.Context, instructorID, courseID int64, update models.CourseUpdate) (models.CourseSummary, error)
	SetThumbnail(ctx context.Context, instructorID, courseID int64, file catalog.Upload) (models.CourseSummary, error)
	AddVideo(ctx context.Context, uploaderID, courseID int64, in catalog.VideoUpload) (models.Video, error)
	AddBook(ctx context.Context, uploaderID, courseID int64, in catalog.BookUpload) (models.Book, error)
	DeleteVideo(ctx context.Context, videoID, courseID, uploaderID int64) error
	DeleteBook(ctx context.Context, bookID, courseID, uploaderID int64) error
}

// Learning captures what a signed-in learner does with courses and videos.
type Learning interface {
	EnrollUser(ctx context.Context, userID, courseID int64) error
	IsUserEnrolled(ctx context.Context, userID, courseID int64) (bool, error)
	UserEnrollments(ctx context.Context, userID int64, page models.Page) (models.Paginated[models.EnrolledCourse], error)
	EnrollmentCount(ctx context.Context, userID int64) (int, error)
	WatchVideo(ctx context.Context, userID, videoID int64) (catalog.WatchResult, error)
	UpdateVideoProgress(ctx context.Context, userID, videoID int64, position int, completed bool) error
	SaveVideo(ctx context.Context, userID, videoID int64) error
	UnsaveVideo(ctx context.Context, userID, videoID int64) error
	SavedVideos(ctx context.Context, userID int64, page models.Page) (models.Paginated[models.SavedVideo], error)
	SavedVideoCount(ctx context.Context, userID int64) (int, error)
	History(ctx context.Context, userID int64, limit int) ([]models.HistoryEntry, error)
	ClearHistory(ctx context.Context, userID int64) error
}

// Admin captures the back office operations.
type Admin interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	DashboardStats(ctx context.Context) (models.DashboardStats, error)
	Users(ctx context.Context, page models.Page) (models.Paginated[models.User], error)
	Courses(ctx context.Context, page models.Page) (models.Paginated[models.CourseSummary], error)
	LoginActivity(ctx context.Context, page models.Page) (models.Paginated[models.LoginActivity], error)
	CreateAdminUser(ctx context.Context, in identity.RegisterInput) (models.User, error)
	UpdateUser(ctx context.Context, userID int64, update models.UserUpdate) (models.User, error)
	UpdateUserPassword(ctx context.Context, userID int64, password string) error
	DeleteUser(ctx context.Context, userID int64) error
	Admins(ctx context.Context) ([]models.User, error)
	Settings(ctx context.Context) ([]models.Setting, error)
	UpdateSetting(ctx context.Context, key, value string) error
}

// HealthChecker verifies that a backing service is reachable.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}
