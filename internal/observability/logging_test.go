package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithJob(t *testing.T) {
	ctx := WithJob(context.Background(), "job-1", "auto-update", 2)

	lc := GetContext(ctx)
	assert.Equal(t, "job-1", lc.JobID)
	assert.Equal(t, "auto-update", lc.Key)
	assert.Equal(t, 2, lc.Attempt)
}

func TestContextValuesAccumulate(t *testing.T) {
	ctx := WithJob(context.Background(), "job-1", "", 1)
	ctx = WithSource(ctx, "excel:/data/cases.xlsx")
	ctx = WithStage(ctx, "parse")

	lc := GetContext(ctx)
	assert.Equal(t, "job-1", lc.JobID)
	assert.Equal(t, "excel:/data/cases.xlsx", lc.Source)
	assert.Equal(t, "parse", lc.Stage)
}

func TestEmptyContext(t *testing.T) {
	assert.Equal(t, LogContext{}, GetContext(context.Background()))
	assert.Empty(t, getLogAttrs(context.Background()))
}

func TestContextHandlerAddsAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewTextHandler(&buf, nil)))

	ctx := WithJob(context.Background(), "job-9", "watch", 3)
	ctx = WithStage(ctx, "push")
	logger.InfoContext(ctx, "Pushed batch", slog.Int("count", 4))

	out := buf.String()
	assert.Contains(t, out, "job_id=job-9")
	assert.Contains(t, out, "job_key=watch")
	assert.Contains(t, out, "attempt=3")
	assert.Contains(t, out, "stage=push")
	assert.Contains(t, out, "count=4")
}

func TestContextHandlerWithoutContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewContextHandler(slog.NewTextHandler(&buf, nil))).With("component", "queue")

	logger.Info("Queue paused")

	out := buf.String()
	assert.Contains(t, out, "component=queue")
	assert.NotContains(t, out, "job_id")
}

func TestContextHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	h := NewContextHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}
