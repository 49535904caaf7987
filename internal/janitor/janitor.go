// Package janitor runs scheduled cleanup of expired sessions and reset tokens.
package janitor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/studybud/backend/internal/logging"
)

// Purger deletes rows that expired before now and reports how many were removed.
type Purger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Task is one named purge run on every tick.
type Task struct {
	Name   string
	Purger Purger
}

// Janitor runs its tasks on a cron schedule.
type Janitor struct {
	cron    *cron.Cron
	tasks   []Task
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// New validates schedule and returns a stopped janitor. Schedules use the standard
// five-field cron syntax or descriptors such as "@every 15m".
func New(schedule string, logger *slog.Logger, tasks ...Task) (*Janitor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(tasks) == 0 {
		return nil, errors.New("janitor: no tasks configured")
	}

	j := &Janitor{
		cron:    cron.New(),
		tasks:   tasks,
		logger:  logger,
		timeout: time.Minute,
		now:     func() time.Time { return time.Now().UTC() },
	}
	if _, err := j.cron.AddFunc(schedule, func() { j.RunOnce(context.Background()) }); err != nil {
		return nil, err
	}
	return j, nil
}

// Start begins running tasks in the background.
func (j *Janitor) Start() {
	j.logger.Info("janitor started", "tasks", len(j.tasks))
	j.cron.Start()
}

// Stop halts the schedule and waits for a running purge to finish or ctx to end.
func (j *Janitor) Stop(ctx context.Context) error {
	done := j.cron.Stop()
	select {
	case <-done.Done():
		j.logger.Info("janitor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce executes every task once. A failing task does not stop the others.
func (j *Janitor) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(logging.WithLogger(ctx, j.logger), j.timeout)
	defer cancel()

	now := j.now()
	for _, task := range j.tasks {
		removed, err := task.Purger.DeleteExpired(ctx, now)
		if err != nil {
			j.logger.Error("janitor task failed", "task", task.Name, "error", err)
			continue
		}
		if removed > 0 {
			j.logger.Info("purged expired rows", "task", task.Name, "removed", removed)
		}
	}
}
