package repositories

import (
	"context"
	"strings"

	"github.com/studybud/backend/internal/db"
	"github.com/studybud/backend/internal/models"
)

const courseSummarySelect = `
        SELECT c.id, c.title, c.description, c.instructor_id, c.thumbnail, c.category, c.level, c.price,
               c.status, c.is_featured, c.created_at, c.updated_at,
               CASE WHEN u.full_name = '' THEN u.username ELSE u.full_name END AS instructor_name,
               (SELECT COUNT(*) FROM videos v WHERE v.course_id = c.id) AS video_count,
               (SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id) AS enrollment_count
        FROM courses c
        JOIN users u ON u.id = c.instructor_id`

// CourseRepository persists courses.
type CourseRepository struct {
	base
}

// NewCourseRepository constructs a course repository over the shared pool.
func NewCourseRepository(d *db.DB) *CourseRepository {
	return &CourseRepository{base: newBase(d)}
}

// Create inserts course and fills in its generated id and timestamps.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	now := r.now()
	id, err := r.insert(ctx, `
        INSERT INTO courses (title, description, instructor_id, thumbnail, category, level, price, status, is_featured, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        RETURNING id
    `, course.Title, course.Description, course.InstructorID, course.Thumbnail, course.Category, course.Level,
		course.Price, course.Status, course.IsFeatured, now, now)
	if err != nil {
		return translate(err, "insert course")
	}

	course.ID = id
	course.CreatedAt = now
	course.UpdatedAt = now
	return nil
}

// FindByID fetches a course with its listing aggregates regardless of status.
func (r *CourseRepository) FindByID(ctx context.Context, id int64) (models.CourseSummary, error) {
	var course models.CourseSummary
	if err := r.get(ctx, r.db, &course, courseSummarySelect+` WHERE c.id = ?`, id); err != nil {
		return models.CourseSummary{}, translate(err, "select course")
	}
	return course, nil
}

// Update applies the allow-listed fields of update.
func (r *CourseRepository) Update(ctx context.Context, id int64, update models.CourseUpdate) error {
	if update.Empty() {
		return nil
	}

	var sets []string
	var args []any
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if update.Title != nil {
		add("title", *update.Title)
	}
	if update.Description != nil {
		add("description", *update.Description)
	}
	if update.Category != nil {
		add("category", *update.Category)
	}
	if update.Level != nil {
		add("level", *update.Level)
	}
	if update.Price != nil {
		add("price", *update.Price)
	}
	if update.Status != nil {
		add("status", *update.Status)
	}
	if update.IsFeatured != nil {
		add("is_featured", *update.IsFeatured)
	}
	if update.Thumbnail != nil {
		add("thumbnail", *update.Thumbnail)
	}
	add("updated_at", r.now())
	args = append(args, id)

	res, err := r.exec(ctx, `UPDATE courses SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return translate(err, "update course")
	}
	if rowsAffected(res) == 0 {
		return ErrNotFound
	}
	return nil
}

// likeEscaper makes user text match literally inside a LIKE pattern using '!' as the
// escape character, which both engines read the same way.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func publishedFilter(filter models.CourseFilter) (string, []any) {
	where := []string{"c.status = ?"}
	args := []any{models.CoursePublished}

	if category := strings.TrimSpace(filter.Category); category != "" {
		where = append(where, "c.category = ?")
		args = append(args, category)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
		where = append(where, "(LOWER(c.title) LIKE ? ESCAPE '!' OR LOWER(c.description) LIKE ? ESCAPE '!')")
		args = append(args, pattern, pattern)
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// ListPublished returns a page of published courses matching filter, featured
// courses first and then newest first.
func (r *CourseRepository) ListPublished(ctx context.Context, filter models.CourseFilter) ([]models.CourseSummary, error) {
	where, args := publishedFilter(filter)
	args = append(args, filter.Page.Limit(), filter.Page.Offset())

	var courses []models.CourseSummary
	err := r.selectAll(ctx, &courses, courseSummarySelect+where+`
        ORDER BY c.is_featured DESC, c.created_at DESC, c.id DESC
        LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, translate(err, "list courses")
	}
	return courses, nil
}

// CountPublished returns how many published courses match filter.
func (r *CourseRepository) CountPublished(ctx context.Context, filter models.CourseFilter) (int, error) {
	where, args := publishedFilter(filter)
	n, err := r.count(ctx, `SELECT COUNT(*) FROM courses c`+where, args...)
	if err != nil {
		return 0, translate(err, "count courses")
	}
	return n, nil
}

// Featured returns up to limit featured published courses, newest first.
func (r *CourseRepository) Featured(ctx context.Context, limit int) ([]models.CourseSummary, error) {
	var courses []models.CourseSummary
	err := r.selectAll(ctx, &courses, courseSummarySelect+`
        WHERE c.status = ? AND c.is_featured = ?
        ORDER BY c.created_at DESC, c.id DESC
        LIMIT ?`, models.CoursePublished, true, limit)
	if err != nil {
		return nil, translate(err, "list featured courses")
	}
	return courses, nil
}

// ListByInstructor returns every course owned by instructorID in any status.
func (r *CourseRepository) ListByInstructor(ctx context.Context, instructorID int64) ([]models.CourseSummary, error) {
	var courses []models.CourseSummary
	err := r.selectAll(ctx, &courses, courseSummarySelect+`
        WHERE c.instructor_id = ?
        ORDER BY c.created_at DESC, c.id DESC`, instructorID)
	if err != nil {
		return nil, translate(err, "list instructor courses")
	}
	return courses, nil
}

// ListAll returns a page of courses in any status, newest first.
func (r *CourseRepository) ListAll(ctx context.Context, page models.Page) ([]models.CourseSummary, error) {
	var courses []models.CourseSummary
	err := r.selectAll(ctx, &courses, courseSummarySelect+`
        ORDER BY c.created_at DESC, c.id DESC
        LIMIT ? OFFSET ?`, page.Limit(), page.Offset())
	if err != nil {
		return nil, translate(err, "list all courses")
	}
	return courses, nil
}

// Count returns the number of courses in any status.
func (r *CourseRepository) Count(ctx context.Context) (int, error) {
	n, err := r.count(ctx, `SELECT COUNT(*) FROM courses`)
	if err != nil {
		return 0, translate(err, "count all courses")
	}
	return n, nil
}

// Categories returns the distinct non-empty categories of published courses.
func (r *CourseRepository) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.selectAll(ctx, &categories, `
        SELECT DISTINCT category FROM courses
        WHERE status = ? AND category <> ''
        ORDER BY category`, models.CoursePublished)
	if err != nil {
		return nil, translate(err, "list categories")
	}
	return categories, nil
}
