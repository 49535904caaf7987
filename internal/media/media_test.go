package media

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func TestFFProbeDuration(t *testing.T) {
	probe := NewFFProbe("ffprobe", time.Second)
	probe.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		if binary != "ffprobe" {
			t.Fatalf("unexpected binary %q", binary)
		}
		if got := args[len(args)-1]; got != "/data/uploads/videos/a.mp4" {
			t.Fatalf("expected source as last arg, got %q", got)
		}
		return []byte(`{"format":{"duration":"125.600000"}}`), nil
	}

	seconds, err := probe.Duration(context.Background(), "/data/uploads/videos/a.mp4")
	if err != nil {
		t.Fatalf("Duration() error = %v", err)
	}
	if seconds != 126 {
		t.Fatalf("expected 126 seconds, got %d", seconds)
	}
}

func TestFFProbeDurationErrors(t *testing.T) {
	cases := map[string]CommandRunner{
		"command failure": func(context.Context, string, ...string) ([]byte, error) { return nil, errors.New("exit status 1") },
		"bad json":        func(context.Context, string, ...string) ([]byte, error) { return []byte("nope"), nil },
		"no duration":     func(context.Context, string, ...string) ([]byte, error) { return []byte(`{"format":{}}`), nil },
		"bad duration": func(context.Context, string, ...string) ([]byte, error) {
			return []byte(`{"format":{"duration":"N/A"}}`), nil
		},
	}

	for name, run := range cases {
		t.Run(name, func(t *testing.T) {
			probe := NewFFProbe("", time.Second)
			probe.Run = run
			if _, err := probe.Duration(context.Background(), "x.mp4"); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	var nilProbe *FFProbe
	if _, err := nilProbe.Duration(context.Background(), "x.mp4"); !errors.Is(err, ErrProberUnavailable) {
		t.Fatalf("expected ErrProberUnavailable, got %v", err)
	}
}

type proberFunc func(ctx context.Context, source string) (int, error)

func (f proberFunc) Duration(ctx context.Context, source string) (int, error) {
	return f(ctx, source)
}

type durationRecorder struct {
	mu      sync.Mutex
	updates map[int64]int
}

func (r *durationRecorder) UpdateDuration(_ context.Context, videoID int64, seconds int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updates == nil {
		r.updates = make(map[int64]int)
	}
	r.updates[videoID] = seconds
	return nil
}

func (r *durationRecorder) get(videoID int64) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.updates[videoID]
	return v, ok
}

func TestProbeQueueStoresDuration(t *testing.T) {
	var mu sync.Mutex
	var sources []string
	prober := proberFunc(func(_ context.Context, source string) (int, error) {
		mu.Lock()
		sources = append(sources, source)
		mu.Unlock()
		if source == "/srv/bad.mp4" {
			return 0, errors.New("corrupt")
		}
		return 42, nil
	})
	resolve := func(location string) (string, error) { return "/srv" + location[len("/uploads"):], nil }

	updater := &durationRecorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	queue := NewProbeQueue(prober, updater, resolve, QueueConfig{QueueSize: 4, Workers: 2}, logger)

	if err := queue.Enqueue(context.Background(), 7, "/uploads/videos/a.mp4"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := queue.Enqueue(context.Background(), 8, "/uploads/bad.mp4"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	waitForCondition(t, func() bool {
		_, ok := updater.get(7)
		mu.Lock()
		defer mu.Unlock()
		return ok && len(sources) == 2
	}, time.Second)

	if seconds, _ := updater.get(7); seconds != 42 {
		t.Fatalf("expected 42 seconds, got %d", seconds)
	}
	if _, ok := updater.get(8); ok {
		t.Fatal("failed probes must not store a duration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := queue.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := queue.Enqueue(context.Background(), 9, "/uploads/c.mp4"); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("expected ErrQueueClosed, got %v", err)
	}
}

func TestProbeQueueEnqueueDuringShutdown(t *testing.T) {
	prober := proberFunc(func(context.Context, string) (int, error) { return 1, nil })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	for round := 0; round < 20; round++ {
		queue := NewProbeQueue(prober, &durationRecorder{}, nil, QueueConfig{QueueSize: 1, Workers: 1}, logger)

		var wg sync.WaitGroup
		errs := make(chan error, 64)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(id int64) {
				defer wg.Done()
				for j := 0; j < 8; j++ {
					errs <- queue.Enqueue(context.Background(), id, "/uploads/videos/x.mp4")
				}
			}(int64(i))
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := queue.Shutdown(ctx); err != nil {
			cancel()
			t.Fatalf("shutdown: %v", err)
		}
		cancel()
		wg.Wait()
		close(errs)

		for err := range errs {
			if err != nil && !errors.Is(err, ErrQueueClosed) {
				t.Fatalf("unexpected enqueue error: %v", err)
			}
		}
	}
}

func waitForCondition(t *testing.T, predicate func() bool, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if predicate() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
