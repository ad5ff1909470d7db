package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/tccollector/internal/alerts"
	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
	"git.home.luguber.info/inful/tccollector/internal/queue"
	"git.home.luguber.info/inful/tccollector/internal/testcase"
)

var epoch = time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) (*Store, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(epoch)
	s, err := Open(t.Context(), ":memory:", WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func TestSettings_DefaultsWhenEmpty(t *testing.T) {
	s, _ := openTestStore(t)

	got, err := s.Settings(t.Context())
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), got)
	assert.False(t, got.AutoUpdateEnabled)
	assert.Nil(t, got.NextCollectionAt())
}

func TestSettings_UpsertKeepsSingleRow(t *testing.T) {
	s, clock := openTestStore(t)
	ctx := t.Context()

	_, err := s.SaveSettings(ctx, Settings{
		AutoUpdateEnabled:  true,
		CollectionInterval: 30,
		SourceType:         testcase.SourceExcel,
		SourcePath:         "/data/testcases.xlsx",
	})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	saved, err := s.SaveSettings(ctx, Settings{
		AutoUpdateEnabled:  true,
		CollectionInterval: 5,
		SourceType:         testcase.SourceExcel,
		SourcePath:         "/data/other.xlsx",
		SheetName:          "Run 2",
	})
	require.NoError(t, err)

	assert.Equal(t, 5, saved.CollectionInterval)
	assert.Equal(t, "/data/other.xlsx", saved.SourcePath)
	assert.Equal(t, "Run 2", saved.SheetName)
	assert.Equal(t, epoch.Add(time.Minute), saved.UpdatedAt)
	assert.Equal(t, testcase.Locator{Type: testcase.SourceExcel, FilePath: "/data/other.xlsx", SheetName: "Run 2"}, saved.Locator())

	var rows int
	require.NoError(t, s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM settings").Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestSettings_LastCollectionSurvivesSave(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := t.Context()

	require.NoError(t, s.UpdateLastCollection(ctx, epoch))
	_, err := s.SaveSettings(ctx, Settings{AutoUpdateEnabled: true, CollectionInterval: 15, SourceType: testcase.SourceExcel, SourcePath: "/x.xlsx"})
	require.NoError(t, err)

	got, err := s.Settings(ctx)
	require.NoError(t, err)
	require.NotNil(t, got.LastCollectionAt)
	assert.Equal(t, epoch, *got.LastCollectionAt)
	require.NotNil(t, got.NextCollectionAt())
	assert.Equal(t, epoch.Add(15*time.Minute), *got.NextCollectionAt())
}

func TestSettings_SetAutoUpdate(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := t.Context()

	// Creates the row when missing.
	require.NoError(t, s.SetAutoUpdate(ctx, false))
	got, err := s.Settings(ctx)
	require.NoError(t, err)
	assert.False(t, got.AutoUpdateEnabled)
	assert.Equal(t, DefaultCollectionInterval, got.CollectionInterval)

	_, err = s.SaveSettings(ctx, Settings{AutoUpdateEnabled: true, CollectionInterval: 10, SourceType: testcase.SourceGSheet, SpreadsheetID: "abc"})
	require.NoError(t, err)
	require.NoError(t, s.SetAutoUpdate(ctx, false))

	got, err = s.Settings(ctx)
	require.NoError(t, err)
	assert.False(t, got.AutoUpdateEnabled)
	assert.Equal(t, 10, got.CollectionInterval, "disable keeps the stored source fields")
	assert.Equal(t, "abc", got.SpreadsheetID)
}

func TestAlerts_CreateListAcknowledge(t *testing.T) {
	s, clock := openTestStore(t)
	ctx := t.Context()
	src := testcase.Locator{Type: testcase.SourceExcel, FilePath: "/data/testcases.xlsx"}

	first, err := s.CreateAlert(ctx, alerts.CollectionFailed("job-1", src, "boom", 3, clock.Now()))
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	clock.Advance(time.Hour)
	second, err := s.CreateAlert(ctx, alerts.CollectionFailed("job-2", src, "bang", 3, clock.Now()))
	require.NoError(t, err)

	all, err := s.ListAlerts(ctx, alerts.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")
	assert.Equal(t, "job-1", all[1].Details.JobID)
	assert.Equal(t, src, all[1].Details.Source)
	assert.Equal(t, alerts.SeverityCritical, all[1].Severity)
	assert.Equal(t, epoch, all[1].CreatedAt)

	require.NoError(t, s.AcknowledgeAlert(ctx, first.ID))
	open, err := s.ListAlerts(ctx, alerts.Filter{UnacknowledgedOnly: true})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)

	limited, err := s.ListAlerts(ctx, alerts.Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestAlerts_AcknowledgeUnknown(t *testing.T) {
	s, _ := openTestStore(t)

	err := s.AcknowledgeAlert(t.Context(), 99)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))
}

func TestJobs_PersistRoundTrip(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := t.Context()
	finished := epoch.Add(time.Minute)

	jobs := []*queue.Job{
		{ID: "b", Name: "collect-data", Key: "auto-update-job", State: queue.StateWaiting, Seq: 2, CreatedAt: epoch},
		{ID: "a", Name: "collect-data", State: queue.StateCompleted, Seq: 1, CreatedAt: epoch, FinishedAt: &finished, Attempts: 1},
	}
	for _, j := range jobs {
		require.NoError(t, s.SaveJob(ctx, j))
	}

	jobs[0].State = queue.StateActive
	jobs[0].Attempts = 1
	require.NoError(t, s.SaveJob(ctx, jobs[0]))

	loaded, err := s.LoadJobs(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "a", loaded[0].ID, "ordered by seq")
	assert.Equal(t, queue.StateActive, loaded[1].State)
	assert.Equal(t, 1, loaded[1].Attempts)
	assert.Equal(t, "auto-update-job", loaded[1].Key)

	require.NoError(t, s.DeleteJobs(ctx, []string{"a", "missing"}))
	loaded, err = s.LoadJobs(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "b", loaded[0].ID)
}

func TestQueueRestoresFromStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tccollector.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.SaveJob(ctx, &queue.Job{ID: "j1", Name: "collect-data", State: queue.StateActive, Attempts: 1, Seq: 1, CreatedAt: epoch}))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	q := queue.New(queue.ProcessorFunc(func(context.Context, *queue.Job, queue.ProgressFunc) (any, error) { return nil, nil }),
		queue.Options{Persister: s})
	require.NoError(t, q.Restore(ctx))

	j, ok := q.Get("j1")
	require.True(t, ok)
	assert.Equal(t, queue.StateWaiting, j.State)
	assert.Equal(t, 0, j.Attempts)
	q.Stop(ctx)
}
