package media

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Prober reports the duration of a media file in seconds.
type Prober interface {
	Duration(ctx context.Context, source string) (int, error)
}

// DurationUpdater persists probed durations.
type DurationUpdater interface {
	UpdateDuration(ctx context.Context, videoID int64, seconds int) error
}

// SourceResolver maps a stored location to something the prober can open.
type SourceResolver func(location string) (string, error)

// QueueConfig controls the concurrency characteristics of the probe queue.
type QueueConfig struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

// ProbeQueue probes uploaded videos on a fixed pool of workers and stores their durations.
type ProbeQueue struct {
	prober  Prober
	updater DurationUpdater
	resolve SourceResolver
	timeout time.Duration
	logger  *slog.Logger

	jobs   chan probeJob
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

type probeJob struct {
	videoID  int64
	location string
}

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("probe queue closed")

// NewProbeQueue starts cfg.Workers workers. A nil resolve passes locations through unchanged.
func NewProbeQueue(prober Prober, updater DurationUpdater, resolve SourceResolver, cfg QueueConfig, logger *slog.Logger) *ProbeQueue {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Minute
	}
	if resolve == nil {
		resolve = func(location string) (string, error) { return location, nil }
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &ProbeQueue{
		prober:  prober,
		updater: updater,
		resolve: resolve,
		timeout: cfg.Timeout,
		logger:  logger,
		jobs:    make(chan probeJob, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}

	q.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go q.worker()
	}

	return q
}

// Enqueue schedules a duration probe for the video stored at location.
func (q *ProbeQueue) Enqueue(ctx context.Context, videoID int64, location string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.ctx.Done():
		return ErrQueueClosed
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.ctx.Done():
		return ErrQueueClosed
	case q.jobs <- probeJob{videoID: videoID, location: location}:
		return nil
	}
}

// Shutdown stops the workers and waits for in-flight probes to finish. Jobs still
// buffered are dropped. The jobs channel is never closed, so an Enqueue racing
// Shutdown either lands in the dead buffer or returns ErrQueueClosed.
func (q *ProbeQueue) Shutdown(ctx context.Context) error {
	q.once.Do(q.cancel)

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (q *ProbeQueue) worker() {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			if q.ctx.Err() != nil {
				return
			}
			q.handle(job)
		}
	}
}

func (q *ProbeQueue) handle(job probeJob) {
	if q.prober == nil || q.updater == nil {
		q.logger.Error("probe queue missing dependencies", "hasProber", q.prober != nil, "hasUpdater", q.updater != nil)
		return
	}

	source, err := q.resolve(job.location)
	if err != nil {
		q.logger.Error("resolve video source", "videoId", job.videoID, "location", job.location, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	seconds, err := q.prober.Duration(ctx, source)
	if err != nil {
		q.logger.Warn("video probe failed", "videoId", job.videoID, "error", err)
		return
	}

	if err := q.updater.UpdateDuration(ctx, job.videoID, seconds); err != nil {
		q.logger.Error("store video duration", "videoId", job.videoID, "error", err)
		return
	}
	q.logger.Info("video duration probed", "videoId", job.videoID, "seconds", seconds)
}
