package models

import "time"

// User represents an account within the StudyBud platform.
type User struct {
	ID           int64      `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"fullName"`
	Role         Role       `db:"role" json:"role"`
	IsActive     bool       `db:"is_active" json:"isActive"`
	Bio          string     `db:"bio" json:"bio"`
	ProfileImage string     `db:"profile_image" json:"profileImage"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
	LastLogin    *time.Time `db:"last_login" json:"lastLogin,omitempty"`
}

// Course is owned by its instructor and groups ordered videos and books.
type Course struct {
	ID           int64        `db:"id" json:"id"`
	Title        string       `db:"title" json:"title"`
	Description  string       `db:"description" json:"description"`
	InstructorID int64        `db:"instructor_id" json:"instructorId"`
	Thumbnail    string       `db:"thumbnail" json:"thumbnail"`
	Category     string       `db:"category" json:"category"`
	Level        Level        `db:"level" json:"level"`
	Price        float64      `db:"price" json:"price"`
	Status       CourseStatus `db:"status" json:"status"`
	IsFeatured   bool         `db:"is_featured" json:"isFeatured"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updatedAt"`
}

// CourseSummary is a course row decorated with listing aggregates.
type CourseSummary struct {
	Course
	InstructorName  string `db:"instructor_name" json:"instructorName"`
	VideoCount      int    `db:"video_count" json:"videoCount"`
	EnrollmentCount int    `db:"enrollment_count" json:"enrollmentCount"`
}

// Video is a lesson within a course. Position orders videos ascending.
type Video struct {
	ID          int64     `db:"id" json:"id"`
	CourseID    int64     `db:"course_id" json:"courseId"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	VideoURL    string    `db:"video_url" json:"videoUrl"`
	Duration    int       `db:"duration" json:"duration"`
	Position    int       `db:"position" json:"position"`
	IsFree      bool      `db:"is_free" json:"isFree"`
	UploadedBy  int64     `db:"uploaded_by" json:"uploadedBy"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Book is a PDF attached to a course.
type Book struct {
	ID          int64     `db:"id" json:"id"`
	CourseID    int64     `db:"course_id" json:"courseId"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	FilePath    string    `db:"file_path" json:"filePath"`
	FileSize    int64     `db:"file_size" json:"fileSize"`
	PageCount   int       `db:"page_count" json:"pageCount"`
	Position    int       `db:"position" json:"position"`
	UploadedBy  int64     `db:"uploaded_by" json:"uploadedBy"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Enrollment grants a user access to the paid content of a course.
type Enrollment struct {
	ID         int64     `db:"id" json:"id"`
	UserID     int64     `db:"user_id" json:"userId"`
	CourseID   int64     `db:"course_id" json:"courseId"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolledAt"`
	Completed  bool      `db:"completed" json:"completed"`
}

// EnrolledCourse is a course seen from an enrolled learner.
type EnrolledCourse struct {
	Course
	InstructorName  string    `db:"instructor_name" json:"instructorName"`
	EnrolledAt      time.Time `db:"enrolled_at" json:"enrolledAt"`
	TotalVideos     int       `db:"total_videos" json:"totalVideos"`
	CompletedVideos int       `db:"completed_videos" json:"completedVideos"`
}

// VideoProgress is the watch position of one user on one video.
type VideoProgress struct {
	UserID      int64     `db:"user_id" json:"userId"`
	VideoID     int64     `db:"video_id" json:"videoId"`
	Position    int       `db:"position" json:"position"`
	IsCompleted bool      `db:"is_completed" json:"isCompleted"`
	LastWatched time.Time `db:"last_watched" json:"lastWatched"`
}

// SavedVideo is a bookmarked video together with its course title.
type SavedVideo struct {
	Video
	CourseTitle string    `db:"course_title" json:"courseTitle"`
	SavedAt     time.Time `db:"saved_at" json:"savedAt"`
}

// HistoryEntry records a single view of a video.
type HistoryEntry struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"userId"`
	VideoID     int64     `db:"video_id" json:"videoId"`
	ViewedAt    time.Time `db:"viewed_at" json:"viewedAt"`
	Progress    int       `db:"progress" json:"progress"`
	VideoTitle  string    `db:"video_title" json:"videoTitle"`
	CourseID    int64     `db:"course_id" json:"courseId"`
	CourseTitle string    `db:"course_title" json:"courseTitle"`
}

// LoginActivity is an audit row written for every recorded login attempt.
type LoginActivity struct {
	ID        int64       `db:"id" json:"id"`
	UserID    *int64      `db:"user_id" json:"userId,omitempty"`
	Email     string      `db:"email" json:"email"`
	Username  string      `db:"username" json:"username"`
	FullName  string      `db:"full_name" json:"fullName"`
	IPAddress string      `db:"ip_address" json:"ipAddress"`
	UserAgent string      `db:"user_agent" json:"userAgent"`
	Status    LoginStatus `db:"status" json:"status"`
	LoginTime time.Time   `db:"login_time" json:"loginTime"`
}

// PasswordResetToken is a single-use credential for resetting a password.
type PasswordResetToken struct {
	UserID    int64     `db:"user_id"`
	Token     string    `db:"token"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// Setting is one admin-configurable site setting.
type Setting struct {
	Key       string    `db:"setting_key" json:"key"`
	Value     string    `db:"setting_value" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// UserPreferences stores per-user notification choices.
type UserPreferences struct {
	UserID             int64     `db:"user_id" json:"userId"`
	EmailNotifications bool      `db:"email_notifications" json:"emailNotifications"`
	MarketingEmails    bool      `db:"marketing_emails" json:"marketingEmails"`
	UpdatedAt          time.Time `db:"updated_at" json:"updatedAt"`
}

// DashboardStats aggregates the admin overview counters.
type DashboardStats struct {
	TotalUsers   int             `json:"totalUsers"`
	ActiveUsers  int             `json:"activeUsers"`
	TotalCourses int             `json:"totalCourses"`
	TotalVideos  int             `json:"totalVideos"`
	RecentUsers  []User          `json:"recentUsers"`
	RecentLogins []LoginActivity `json:"recentLogins"`
}
