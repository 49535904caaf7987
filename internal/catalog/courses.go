package catalog

import (
	"context"
	"strings"

	"github.com/studybud/backend/internal/apperr"
	"github.com/studybud/backend/internal/logging"
	"github.com/studybud/backend/internal/models"
	"github.com/studybud/backend/internal/storage"
	"github.com/studybud/backend/internal/validation"
)

const (
	defaultFeaturedLimit = 6
	maxFeaturedLimit     = 50
)

// CourseInput carries the fields of a new course.
type CourseInput struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	Category    string  `json:"category" validate:"max=100"`
	Level       string  `json:"level"`
	Price       float64 `json:"price" validate:"gte=0"`
	Status      string  `json:"status"`
	IsFeatured  bool    `json:"is_featured"`
}

// CreateCourse creates a course owned by instructorID. Level defaults to Beginner and
// status to draft.
func (s *Service) CreateCourse(ctx context.Context, instructorID int64, in CourseInput) (models.CourseSummary, error) {
	ctx, span := logging.StartSpan(ctx, "catalog.CreateCourse")
	defer span.End()

	author, err := s.users.FindByID(ctx, instructorID)
	if err != nil {
		return models.CourseSummary{}, readFailure(ctx, err, "user")
	}
	if !author.Role.CanTeach() {
		return models.CourseSummary{}, apperr.Forbidden("only tutors and instructors can create courses")
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	if err := validation.Struct(in); err != nil {
		return models.CourseSummary{}, err
	}

	level := models.LevelBeginner
	if strings.TrimSpace(in.Level) != "" {
		if level, err = models.ParseLevel(in.Level); err != nil {
			return models.CourseSummary{}, apperr.Validation("invalid level %q", in.Level)
		}
	}
	status := models.CourseDraft
	if strings.TrimSpace(in.Status) != "" {
		if status, err = models.ParseCourseStatus(in.Status); err != nil {
			return models.CourseSummary{}, apperr.Validation("invalid status %q", in.Status)
		}
	}

	course := models.Course{
		Title:        in.Title,
		Description:  strings.TrimSpace(in.Description),
		InstructorID: instructorID,
		Category:     in.Category,
		Level:        level,
		Price:        in.Price,
		Status:       status,
		IsFeatured:   in.IsFeatured,
	}
	if err := s.courses.Create(ctx, &course); err != nil {
		return models.CourseSummary{}, writeFailure(ctx, err, "instructor", "create course")
	}

	logging.FromContext(ctx).Info("course created", "courseId", course.ID, "instructorId", instructorID)
	return s.reloadCourse(ctx, course.ID)
}

// UpdateCourse applies update to a course owned by instructorID.
func (s *Service) UpdateCourse(ctx context.Context, instructorID, courseID int64, update models.CourseUpdate) (models.CourseSummary, error) {
	if _, err := s.ownedCourse(ctx, instructorID, courseID); err != nil {
		return models.CourseSummary{}, err
	}
	if err := normalizeCourseUpdate(&update); err != nil {
		return models.CourseSummary{}, err
	}

	if err := s.courses.Update(ctx, courseID, update); err != nil {
		return models.CourseSummary{}, writeFailure(ctx, err, "course", "update course")
	}
	return s.reloadCourse(ctx, courseID)
}

func (s *Service) reloadCourse(ctx context.Context, courseID int64) (models.CourseSummary, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return models.CourseSummary{}, readFailure(ctx, err, "course")
	}
	return course, nil
}

func normalizeCourseUpdate(u *models.CourseUpdate) error {
	if u.Title != nil {
		title := strings.TrimSpace(*u.Title)
		if title == "" {
			return apperr.Validation("title is required")
		}
		u.Title = &title
	}
	if u.Category != nil {
		category := strings.TrimSpace(*u.Category)
		u.Category = &category
	}
	if u.Level != nil {
		level, err := models.ParseLevel(string(*u.Level))
		if err != nil {
			return apperr.Validation("invalid level %q", *u.Level)
		}
		u.Level = &level
	}
	if u.Status != nil {
		status, err := models.ParseCourseStatus(string(*u.Status))
		if err != nil {
			return apperr.Validation("invalid status %q", *u.Status)
		}
		u.Status = &status
	}
	if u.Price != nil && *u.Price < 0 {
		return apperr.Validation("price must be greater than or equal to 0")
	}
	return nil
}

// ownedCourse loads a course and checks that instructorID owns it.
func (s *Service) ownedCourse(ctx context.Context, instructorID, courseID int64) (models.CourseSummary, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return models.CourseSummary{}, readFailure(ctx, err, "course")
	}
	if course.InstructorID != instructorID {
		logging.FromContext(ctx).Warn("course ownership check failed", "courseId", courseID, "userId", instructorID)
		return models.CourseSummary{}, apperr.Forbidden("you do not own this course")
	}
	return course, nil
}

// SetThumbnail stores a cover image for a course owned by instructorID.
func (s *Service) SetThumbnail(ctx context.Context, instructorID, courseID int64, file Upload) (models.CourseSummary, error) {
	if _, err := s.ownedCourse(ctx, instructorID, courseID); err != nil {
		return models.CourseSummary{}, err
	}

	location, err := s.store(ctx, storage.KindThumbnail, file)
	if err != nil {
		return models.CourseSummary{}, err
	}

	if err := s.courses.Update(ctx, courseID, models.CourseUpdate{Thumbnail: &location}); err != nil {
		s.discard(ctx, location)
		return models.CourseSummary{}, writeFailure(ctx, err, "course", "update thumbnail")
	}
	return s.reloadCourse(ctx, courseID)
}

// GetCourse returns a published course, or any course to its own instructor.
func (s *Service) GetCourse(ctx context.Context, courseID, viewerID int64) (models.CourseSummary, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return models.CourseSummary{}, readFailure(ctx, err, "course")
	}
	if course.Status != models.CoursePublished && course.InstructorID != viewerID {
		return models.CourseSummary{}, apperr.NotFound("course not found")
	}
	return course, nil
}

// ListCourses returns a page of published courses matching filter.
func (s *Service) ListCourses(ctx context.Context, filter models.CourseFilter) (models.Paginated[models.CourseSummary], error) {
	filter.Page = filter.Page.Normalize()

	courses, err := s.courses.ListPublished(ctx, filter)
	if err != nil {
		return models.Paginated[models.CourseSummary]{}, readFailure(ctx, err, "courses")
	}
	total, err := s.courses.CountPublished(ctx, filter)
	if err != nil {
		return models.Paginated[models.CourseSummary]{}, readFailure(ctx, err, "courses")
	}
	return models.NewPaginated(courses, total, filter.Page), nil
}

// FeaturedCourses returns up to limit featured published courses.
func (s *Service) FeaturedCourses(ctx context.Context, limit int) ([]models.CourseSummary, error) {
	if limit <= 0 {
		limit = defaultFeaturedLimit
	}
	if limit > maxFeaturedLimit {
		limit = maxFeaturedLimit
	}
	courses, err := s.courses.Featured(ctx, limit)
	if err != nil {
		return nil, readFailure(ctx, err, "courses")
	}
	return nonNil(courses), nil
}

// InstructorCourses returns every course owned by instructorID.
func (s *Service) InstructorCourses(ctx context.Context, instructorID int64) ([]models.CourseSummary, error) {
	courses, err := s.courses.ListByInstructor(ctx, instructorID)
	if err != nil {
		return nil, readFailure(ctx, err, "courses")
	}
	return nonNil(courses), nil
}

// Categories returns the categories used by published courses.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.courses.Categories(ctx)
	if err != nil {
		return nil, readFailure(ctx, err, "categories")
	}
	return nonNil(categories), nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
