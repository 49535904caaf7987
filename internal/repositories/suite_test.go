package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studybud/backend/internal/auth"
	"github.com/studybud/backend/internal/db"
	"github.com/studybud/backend/internal/models"
)

// runRepositorySuite exercises the repositories against a freshly migrated database.
// open must return an empty database for every call.
func runRepositorySuite(t *testing.T, open func(t *testing.T) *db.DB) {
	t.Run("users", func(t *testing.T) { testUsers(t, open(t)) })
	t.Run("last admin guard", func(t *testing.T) { testLastAdminGuard(t, open(t)) })
	t.Run("inactive admin is not last", func(t *testing.T) { testInactiveAdminIsNotLast(t, open(t)) })
	t.Run("sessions", func(t *testing.T) { testSessions(t, open(t)) })
	t.Run("learning", func(t *testing.T) { testLearning(t, open(t)) })
	t.Run("course search", func(t *testing.T) { testCourseSearch(t, open(t)) })
	t.Run("reset tokens", func(t *testing.T) { testResetTokens(t, open(t)) })
}

func createUser(t *testing.T, d *db.DB, username string, role models.Role) models.User {
	t.Helper()
	user := models.User{
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: "hash",
		FullName:     username,
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, NewUserRepository(d).Create(context.Background(), &user))
	return user
}

func testUsers(t *testing.T, d *db.DB) {
	ctx := context.Background()
	repo := NewUserRepository(d)

	alice := createUser(t, d, "alice", models.RoleStudent)
	assert.NotZero(t, alice.ID)

	dup := models.User{Email: alice.Email, Username: "alice2", PasswordHash: "hash", Role: models.RoleStudent, IsActive: true}
	assert.ErrorIs(t, repo.Create(ctx, &dup), ErrConflict)

	found, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.ID)
	assert.Nil(t, found.LastLogin)

	require.NoError(t, repo.TouchLastLogin(ctx, alice.ID))
	found, err = repo.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.NotNil(t, found.LastLogin)

	_, err = repo.FindByID(ctx, alice.ID+1000)
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func testLastAdminGuard(t *testing.T, d *db.DB) {
	ctx := context.Background()
	repo := NewUserRepository(d)

	root := createUser(t, d, "root", models.RoleAdmin)
	assert.ErrorIs(t, repo.Delete(ctx, root.ID), ErrLastAdmin)

	second := createUser(t, d, "second", models.RoleAdmin)
	require.NoError(t, repo.Delete(ctx, root.ID))
	assert.ErrorIs(t, repo.Delete(ctx, second.ID), ErrLastAdmin)
	assert.ErrorIs(t, repo.Delete(ctx, root.ID), ErrNotFound)
}

func testInactiveAdminIsNotLast(t *testing.T, d *db.DB) {
	ctx := context.Background()
	repo := NewUserRepository(d)

	active := createUser(t, d, "active", models.RoleAdmin)
	dormant := createUser(t, d, "dormant", models.RoleAdmin)
	inactive := false
	require.NoError(t, repo.Update(ctx, dormant.ID, models.UserUpdate{IsActive: &inactive}))

	student := models.RoleStudent
	require.NoError(t, repo.Update(ctx, dormant.ID, models.UserUpdate{Role: &student}), "demoting an inactive admin leaves the active one")
	admin := models.RoleAdmin
	require.NoError(t, repo.Update(ctx, dormant.ID, models.UserUpdate{Role: &admin}))

	require.NoError(t, repo.Delete(ctx, dormant.ID))
	assert.ErrorIs(t, repo.Delete(ctx, active.ID), ErrLastAdmin)
	assert.ErrorIs(t, repo.Update(ctx, active.ID, models.UserUpdate{IsActive: &inactive}), ErrLastAdmin)
}

func testSessions(t *testing.T, d *db.DB) {
	ctx := context.Background()
	store := NewSessionStore(d)
	user := createUser(t, d, "bob", models.RoleStudent)

	live := auth.Session{ID: "live", UserID: user.ID, Username: "bob", Role: models.RoleStudent, CSRFToken: "t1", ExpiresAt: time.Now().Add(time.Hour)}
	stale := auth.Session{ID: "stale", UserID: user.ID, Username: "bob", Role: models.RoleStudent, CSRFToken: "t2", ExpiresAt: time.Now().Add(-time.Hour)}
	require.NoError(t, store.Save(ctx, live))
	require.NoError(t, store.Save(ctx, stale))

	live.Role = models.RoleTutor
	require.NoError(t, store.Save(ctx, live))

	got, err := store.Find(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, models.RoleTutor, got.Role)
	assert.Equal(t, "t1", got.CSRFToken)

	removed, err := store.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	_, err = store.Find(ctx, "stale")
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)

	require.NoError(t, store.DeleteByUser(ctx, user.ID))
	_, err = store.Find(ctx, "live")
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
}

func testLearning(t *testing.T, d *db.DB) {
	ctx := context.Background()
	instructor := createUser(t, d, "teach", models.RoleInstructor)
	learner := createUser(t, d, "learn", models.RoleStudent)

	course := models.Course{Title: "Algebra", InstructorID: instructor.ID, Level: models.LevelBeginner, Status: models.CoursePublished}
	require.NoError(t, NewCourseRepository(d).Create(ctx, &course))

	videos := NewVideoRepository(d)
	video := models.Video{CourseID: course.ID, Title: "Intro", VideoURL: "/uploads/videos/intro.mp4", Position: 1, UploadedBy: instructor.ID}
	require.NoError(t, videos.Create(ctx, &video))

	enrollments := NewEnrollmentRepository(d)
	require.NoError(t, enrollments.Enroll(ctx, learner.ID, course.ID))
	require.NoError(t, enrollments.Enroll(ctx, learner.ID, course.ID))
	n, err := enrollments.CountForUser(ctx, learner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.ErrorIs(t, enrollments.Enroll(ctx, learner.ID, course.ID+1000), ErrNotFound)

	progress := NewProgressRepository(d)
	require.NoError(t, progress.Upsert(ctx, learner.ID, video.ID, 120, false))
	require.NoError(t, progress.Upsert(ctx, learner.ID, video.ID, 30, true))
	got, err := progress.Find(ctx, learner.ID, video.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, got.Position)
	assert.True(t, got.IsCompleted)

	enrolled, err := enrollments.ListForUser(ctx, learner.ID, models.Page{Number: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, enrolled, 1)
	assert.Equal(t, 1, enrolled[0].TotalVideos)
	assert.Equal(t, 1, enrolled[0].CompletedVideos)

	require.NoError(t, videos.UpdateDuration(ctx, video.ID, 95))
	video, err = videos.FindByID(ctx, video.ID)
	require.NoError(t, err)
	assert.Equal(t, 95, video.Duration)
}

func testCourseSearch(t *testing.T, d *db.DB) {
	ctx := context.Background()
	instructor := createUser(t, d, "teach", models.RoleInstructor)
	repo := NewCourseRepository(d)

	for _, title := range []string{"Save 50% on Algebra", "500 Geometry Drills", "snake_case naming", "Escape Rooms", "Wow! Physics"} {
		course := models.Course{Title: title, InstructorID: instructor.ID, Level: models.LevelBeginner, Status: models.CoursePublished}
		require.NoError(t, repo.Create(ctx, &course))
	}

	search := func(text string) []string {
		t.Helper()
		courses, err := repo.ListPublished(ctx, models.CourseFilter{Search: text, Page: models.Page{Number: 1, PerPage: 10}})
		require.NoError(t, err)
		n, err := repo.CountPublished(ctx, models.CourseFilter{Search: text})
		require.NoError(t, err)
		require.Equal(t, len(courses), n)
		titles := make([]string, 0, len(courses))
		for _, c := range courses {
			titles = append(titles, c.Title)
		}
		return titles
	}

	assert.Equal(t, []string{"Save 50% on Algebra"}, search("50%"))
	assert.Equal(t, []string{"snake_case naming"}, search("e_c"))
	assert.Equal(t, []string{"Wow! Physics"}, search("wow!"))
	assert.Len(t, search("50"), 2)
}

func testResetTokens(t *testing.T, d *db.DB) {
	ctx := context.Background()
	repo := NewResetTokenRepository(d)
	user := createUser(t, d, "carol", models.RoleStudent)

	require.NoError(t, repo.Replace(ctx, user.ID, "first", time.Now().Add(time.Hour)))
	require.NoError(t, repo.Replace(ctx, user.ID, "second", time.Now().Add(-time.Minute)))

	_, err := repo.Find(ctx, "first")
	assert.ErrorIs(t, err, ErrNotFound, "a new token supersedes the previous one")

	token, err := repo.Find(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, user.ID, token.UserID)

	_, err = repo.Consume(ctx, "second", time.Now())
	assert.ErrorIs(t, err, ErrNotFound, "expired tokens cannot be consumed")

	removed, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	require.NoError(t, repo.Replace(ctx, user.ID, "third", time.Now().Add(time.Hour)))
	owner, err := repo.Consume(ctx, "third", time.Now())
	require.NoError(t, err)
	assert.Equal(t, user.ID, owner)
	_, err = repo.Consume(ctx, "third", time.Now())
	assert.ErrorIs(t, err, ErrNotFound, "a token is consumed once")
}
