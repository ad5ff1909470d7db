package observability

import (
	"context"
	"log/slog"
)

// LogContext holds the collection attributes carried through a context.
type LogContext struct {
	JobID   string
	Key     string
	Source  string
	Stage   string
	Attempt int
}

type logContextKeyType string

const logContextKey logContextKeyType = "log-context"

// WithJob attaches the job identity and attempt number to the context.
func WithJob(ctx context.Context, jobID, key string, attempt int) context.Context {
	lc := extractLogContext(ctx)
	lc.JobID = jobID
	lc.Key = key
	lc.Attempt = attempt
	return context.WithValue(ctx, logContextKey, lc)
}

// WithSource adds a source description to the context.
func WithSource(ctx context.Context, source string) context.Context {
	lc := extractLogContext(ctx)
	lc.Source = source
	return context.WithValue(ctx, logContextKey, lc)
}

// WithStage adds a stage name to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	lc := extractLogContext(ctx)
	lc.Stage = stage
	return context.WithValue(ctx, logContextKey, lc)
}

func extractLogContext(ctx context.Context) LogContext {
	if ctx == nil {
		return LogContext{}
	}
	if lc, ok := ctx.Value(logContextKey).(LogContext); ok {
		return lc
	}
	return LogContext{}
}

// GetContext returns the log context stored in ctx.
func GetContext(ctx context.Context) LogContext {
	return extractLogContext(ctx)
}

func getLogAttrs(ctx context.Context) []slog.Attr {
	lc := extractLogContext(ctx)
	var attrs []slog.Attr

	if lc.JobID != "" {
		attrs = append(attrs, slog.String("job_id", lc.JobID))
	}
	if lc.Key != "" {
		attrs = append(attrs, slog.String("job_key", lc.Key))
	}
	if lc.Attempt > 0 {
		attrs = append(attrs, slog.Int("attempt", lc.Attempt))
	}
	if lc.Source != "" {
		attrs = append(attrs, slog.String("source", lc.Source))
	}
	if lc.Stage != "" {
		attrs = append(attrs, slog.String("stage", lc.Stage))
	}
	return attrs
}

// ContextHandler decorates records logged with a *Context method with the
// attributes stored in that context.
type ContextHandler struct {
	next slog.Handler
}

// NewContextHandler wraps next.
func NewContextHandler(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := getLogAttrs(ctx); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name)}
}
