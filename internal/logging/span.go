package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// SlowSpan is the duration above which a finished span is logged as a warning.
var SlowSpan = 500 * time.Millisecond

type spanKey struct{}

// spanScope is what a span leaves on the context for its children: its id and the
// logger as it was before the span tagged it.
type spanScope struct {
	id   string
	base *slog.Logger
}

// Span times one service operation.
type Span struct {
	logger *slog.Logger
	start  time.Time
}

// StartSpan derives a child span named name (conventionally "package.Operation").
// The returned context carries a logger tagged with the operation and the parent
// span, and the request id as trace id when one is set.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	base := FromContext(ctx)
	parent, nested := ctx.Value(spanKey{}).(spanScope)
	if nested {
		base = parent.base
	} else {
		traceID := RequestID(ctx)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		base = base.With(slog.String("trace_id", traceID))
	}

	spanID := uuid.NewString()
	logger := base.With(slog.String("op", name), slog.String("span_id", spanID))
	if nested {
		logger = logger.With(slog.String("parent_span_id", parent.id))
	}

	ctx = context.WithValue(WithLogger(ctx, logger), spanKey{}, spanScope{id: spanID, base: base})
	return ctx, &Span{logger: logger, start: time.Now()}
}

// End logs the span duration: at debug level normally, as a warning when slow.
func (s *Span) End() {
	if s == nil {
		return
	}
	elapsed := time.Since(s.start)
	if elapsed > SlowSpan {
		s.logger.Warn("slow operation", slog.Duration("duration", elapsed))
		return
	}
	s.logger.Debug("operation completed", slog.Duration("duration", elapsed))
}
