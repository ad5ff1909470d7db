package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/tccollector/internal/alerts"
	"git.home.luguber.info/inful/tccollector/internal/collector"
	"git.home.luguber.info/inful/tccollector/internal/config"
	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
	"git.home.luguber.info/inful/tccollector/internal/scheduler"
	"git.home.luguber.info/inful/tccollector/internal/server/httpserver"
	"git.home.luguber.info/inful/tccollector/internal/store"
	"git.home.luguber.info/inful/tccollector/internal/testcase"
)

type blockingRunner struct{ release chan struct{} }

func (r blockingRunner) Run(ctx context.Context, loc testcase.Locator, _ collector.ProgressFunc) (*collector.Outcome, error) {
	select {
	case <-r.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &collector.Outcome{Source: loc.String()}, nil
}

type env struct {
	client *Client
	store  *store.Store
	sched  *scheduler.Scheduler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(t.Context(), ":memory:")
	require.NoError(t, err)

	release := make(chan struct{})
	sched, err := scheduler.New(st, blockingRunner{release: release}, scheduler.Options{Logger: logger})
	require.NoError(t, err)

	srv := httptest.NewServer(httpserver.New(config.Default(), httpserver.Options{
		Collection: sched,
		Alerts:     st,
		Logger:     logger,
	}).Handler())

	c, err := New(srv.URL, time.Second)
	require.NoError(t, err)

	t.Cleanup(func() {
		close(release)
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sched.Stop(ctx)
		_ = st.Close()
	})
	return &env{client: c, store: st, sched: sched}
}

func TestNew_AcceptsHostPort(t *testing.T) {
	c, err := New("127.0.0.1:8090", 0)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8090", c.base.String())

	_, err = New("http://", 0)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestClient_AutoUpdateLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := t.Context()

	_, err := e.client.UpdateInterval(ctx, 5)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotEnabled))

	// queue is not started, so the immediate first run stays waiting
	resp, err := e.client.Enable(ctx, scheduler.AutoUpdateConfig{
		Interval: 30, Source: testcase.SourceExcel, FilePath: "/tmp/tc.xlsx",
	})
	require.NoError(t, err)
	assert.True(t, resp.Settings.AutoUpdateEnabled)
	assert.Equal(t, 30, resp.Settings.CollectionInterval)

	resp, err = e.client.UpdateInterval(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, resp.Settings.CollectionInterval)

	status, err := e.client.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status.Registrations, 1)
	assert.Equal(t, 5, status.Registrations[0].Interval)

	resp, err = e.client.Disable(ctx)
	require.NoError(t, err)
	assert.False(t, resp.Settings.AutoUpdateEnabled)
}

func TestClient_ValidationErrorRoundTrip(t *testing.T) {
	e := newEnv(t)

	_, err := e.client.Enable(t.Context(), scheduler.AutoUpdateConfig{Interval: 0, Source: "csv"})
	require.Error(t, err)
	c, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.Equal(t, errors.CategoryValidation, c.Category())
}

func TestClient_EnableSendsValidate(t *testing.T) {
	e := newEnv(t)

	// the test daemon has no structure validator, so a validate request fails server-side
	_, err := e.client.Enable(t.Context(), scheduler.AutoUpdateConfig{
		Interval: 30, Source: testcase.SourceExcel, FilePath: "/tmp/tc.xlsx", CheckStructure: true,
	})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryInternal))
	assert.Empty(t, e.sched.Registrations())
}

func TestClient_TriggerAndJobs(t *testing.T) {
	e := newEnv(t)
	ctx := t.Context()

	trig, err := e.client.Trigger(ctx, testcase.Locator{})
	require.NoError(t, err)
	assert.Equal(t, "queued", trig.Status)

	job, err := e.client.Job(ctx, trig.JobID)
	require.NoError(t, err)
	assert.True(t, job.Manual)
	assert.Equal(t, config.DefaultSourcePath, job.Source.FilePath)

	jobs, err := e.client.Jobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	_, err = e.client.Job(ctx, "missing")
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))

	counts, err := e.client.Pause(ctx)
	require.NoError(t, err)
	assert.True(t, counts.Paused)
	counts, err = e.client.Resume(ctx)
	require.NoError(t, err)
	assert.False(t, counts.Paused)

	cleaned, err := e.client.Clean(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, cleaned.Days)
}

func TestClient_Alerts(t *testing.T) {
	e := newEnv(t)
	ctx := t.Context()

	a, err := e.store.CreateAlert(ctx, alerts.CollectionFailed("j1", testcase.Locator{Type: testcase.SourceExcel, FilePath: "/x.xlsx"}, "boom", 3, time.Now()))
	require.NoError(t, err)

	list, err := e.client.Alerts(ctx, alerts.Filter{UnacknowledgedOnly: true})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Data collection failed after 3 attempts", list[0].Message)

	require.NoError(t, e.client.Acknowledge(ctx, a.ID))
	list, err = e.client.Alerts(ctx, alerts.Filter{UnacknowledgedOnly: true})
	require.NoError(t, err)
	assert.Empty(t, list)

	err = e.client.Acknowledge(ctx, 999)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestClient_NonJSONErrorAndUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	c, err := New(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = c.Status(t.Context())
	assert.True(t, errors.HasCategory(err, errors.CategoryTransport))
	srv.Close()

	_, err = c.Status(t.Context())
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryTransport))
	assert.Contains(t, err.Error(), "daemon is not reachable")
}
