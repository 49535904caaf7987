// Package catalog implements courses, their videos and books, and everything a learner
// does with them: enrollment, progress, bookmarks and viewing history.
package catalog

import (
	"context"
	"errors"

	"github.com/studybud/backend/internal/apperr"
	"github.com/studybud/backend/internal/logging"
	"github.com/studybud/backend/internal/repositories"
	"github.com/studybud/backend/internal/storage"
)

// Dependencies wires the catalog service. Probes may be nil.
type Dependencies struct {
	Courses     CourseStore
	Videos      VideoStore
	Books       BookStore
	Enrollments EnrollmentStore
	Progress    ProgressStore
	Saved       SavedVideoStore
	History     HistoryStore
	Users       UserLookup
	Files       storage.Store
	Probes      ProbeScheduler
}

// Service implements the content domain.
type Service struct {
	courses     CourseStore
	videos      VideoStore
	books       BookStore
	enrollments EnrollmentStore
	progress    ProgressStore
	saved       SavedVideoStore
	history     HistoryStore
	users       UserLookup
	files       storage.Store
	probes      ProbeScheduler
}

// NewService constructs the catalog service.
func NewService(deps Dependencies) *Service {
	return &Service{
		courses:     deps.Courses,
		videos:      deps.Videos,
		books:       deps.Books,
		enrollments: deps.Enrollments,
		progress:    deps.Progress,
		saved:       deps.Saved,
		history:     deps.History,
		users:       deps.Users,
		files:       deps.Files,
		probes:      deps.Probes,
	}
}

// readFailure converts a failed read into NotFound or Persistence.
func readFailure(ctx context.Context, err error, entity string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound("%s not found", entity)
	}
	logging.FromContext(ctx).Error("catalog read failed", "entity", entity, "error", err)
	return apperr.Persistence(err, "unable to load %s", entity)
}

// writeFailure converts a failed write into NotFound or OperationFailed.
func writeFailure(ctx context.Context, err error, entity, action string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return apperr.NotFound("%s not found", entity)
	}
	logging.FromContext(ctx).Error("catalog write failed", "entity", entity, "action", action, "error", err)
	return apperr.OperationFailed(err, "unable to %s", action)
}
