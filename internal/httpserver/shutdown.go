package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ShutdownTimeout controls how long to wait for graceful shutdowns when no
// timeout is configured.
var ShutdownTimeout = 10 * time.Second

// Step is one stage of a graceful shutdown.
type Step struct {
	Name string
	Stop func(ctx context.Context) error
}

// Shutdown runs steps in order under a shared deadline. A failing step does not stop
// the ones after it; all failures are joined into the returned error.
func Shutdown(timeout time.Duration, logger *slog.Logger, steps ...Step) error {
	if timeout <= 0 {
		timeout = ShutdownTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for _, step := range steps {
		if step.Stop == nil {
			continue
		}
		start := time.Now()
		if err := step.Stop(ctx); err != nil {
			logger.Error("shutdown step failed", "step", step.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
			continue
		}
		logger.Info("shutdown step completed", "step", step.Name, "duration", time.Since(start))
	}
	return errors.Join(errs...)
}
