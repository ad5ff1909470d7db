package daemon

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/tccollector/internal/collector"
	"git.home.luguber.info/inful/tccollector/internal/config"
	"git.home.luguber.info/inful/tccollector/internal/queue"
	"git.home.luguber.info/inful/tccollector/internal/scheduler"
	"git.home.luguber.info/inful/tccollector/internal/testcase"
)

type countingRunner struct{ calls atomic.Int32 }

func (r *countingRunner) Run(_ context.Context, loc testcase.Locator, progress collector.ProgressFunc) (*collector.Outcome, error) {
	r.calls.Add(1)
	progress(collector.StagePushed, 100)
	return &collector.Outcome{Records: 1, Source: loc.String(), CollectedAt: time.Now()}, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Daemon.AdminAddr = "127.0.0.1:0"
	cfg.Daemon.ShutdownTimeout = config.Duration(5 * time.Second)
	cfg.Store.Path = filepath.Join(dir, "state", "tccollector.db")
	cfg.Source.Path = filepath.Join(dir, "testcases.xlsx")
	return cfg
}

func newDaemon(t *testing.T, cfg *config.Config, runner scheduler.Runner) *Daemon {
	t.Helper()
	d, err := New(t.Context(), cfg, Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Runner: runner,
	})
	require.NoError(t, err)
	return d
}

func stop(t *testing.T, d *Daemon) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))
}

func TestDaemon_StartServesAdminAPI(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = true
	d := newDaemon(t, cfg, &countingRunner{})

	require.NoError(t, d.Start(t.Context()))
	assert.Equal(t, StatusRunning, d.GetStatus())
	assert.FileExists(t, cfg.Store.Path)

	resp, err := http.Get("http://" + d.AdminAddr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get("http://" + d.AdminAddr() + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "go_goroutines")

	require.Error(t, d.Start(t.Context()), "second start must be rejected")

	stop(t, d)
	assert.Equal(t, StatusStopped, d.GetStatus())
	require.NoError(t, d.Stop(t.Context()))
}

func TestDaemon_StopWithoutStartClosesStore(t *testing.T) {
	d := newDaemon(t, testConfig(t), &countingRunner{})
	require.NoError(t, d.Stop(t.Context()))
	require.Error(t, d.Start(t.Context()))
}

func TestDaemon_RestoresScheduleAfterRestart(t *testing.T) {
	cfg := testConfig(t)
	runner := &countingRunner{}

	first := newDaemon(t, cfg, runner)
	require.NoError(t, first.Start(t.Context()))
	_, err := first.Scheduler().EnableAutoUpdate(t.Context(), scheduler.AutoUpdateConfig{
		Interval: 60,
		Source:   testcase.SourceExcel,
		FilePath: cfg.Source.Path,
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return runner.calls.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)
	stop(t, first)

	second := newDaemon(t, cfg, runner)
	require.NoError(t, second.Start(t.Context()))
	defer stop(t, second)

	regs := second.Scheduler().Registrations()
	require.Len(t, regs, 1)
	assert.Equal(t, scheduler.AutoUpdateKey, regs[0].Key)
	assert.Equal(t, 60, regs[0].Interval)

	// the completed run from the first process is part of the restored history
	var completed int
	for _, j := range second.Scheduler().RecentJobs(50) {
		if j.State == queue.StateCompleted {
			completed++
		}
	}
	assert.GreaterOrEqual(t, completed, 1)
}

func TestDaemon_WatchedSourceTriggersCollection(t *testing.T) {
	cfg := testConfig(t)
	cfg.Source.Watch = true
	cfg.Source.WatchDebounce = config.Duration(20 * time.Millisecond)
	require.NoError(t, os.WriteFile(cfg.Source.Path, []byte("v1"), 0o600))

	runner := &countingRunner{}
	d := newDaemon(t, cfg, runner)
	require.NoError(t, d.Start(t.Context()))
	defer stop(t, d)

	require.NoError(t, os.WriteFile(cfg.Source.Path, []byte("v2"), 0o600))

	require.Eventually(t, func() bool {
		for _, j := range d.Scheduler().RecentJobs(20) {
			if j.Key == scheduler.WatchKey && j.State == queue.StateCompleted {
				return true
			}
		}
		return false
	}, 5*time.Second, 10*time.Millisecond)
}
