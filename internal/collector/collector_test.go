package collector

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/tccollector/internal/fingerprint"
	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
	"git.home.luguber.info/inful/tccollector/internal/sheet"
	"git.home.luguber.info/inful/tccollector/internal/syncclient"
	"git.home.luguber.info/inful/tccollector/internal/testcase"
	"git.home.luguber.info/inful/tccollector/internal/testutil"
)

type fakePusher struct {
	mu      sync.Mutex
	batches []syncclient.Batch
	err     error
}

func (f *fakePusher) Push(_ context.Context, b syncclient.Batch) (*syncclient.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, b)
	if f.err != nil {
		return nil, f.err
	}
	return &syncclient.Ack{StatusCode: 200}, nil
}

func (f *fakePusher) last(t *testing.T) syncclient.Batch {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.batches)
	return f.batches[len(f.batches)-1]
}

// writeSheet creates an xlsx with the default header block followed by rows
// (each a slice of values for columns A..).
func writeSheet(t *testing.T, sheetName string, rows [][]any) string {
	t.Helper()
	wb := testutil.NewWorkbook(t).Sheet(sheetName).Headers(DefaultHeaderRows)
	for _, r := range rows {
		wb.Row(r...)
	}
	return wb.Save()
}

// row builds columns A..P: id, content, status marker, actual exec date.
func row(id, content, status string, execDate any) []any {
	r := make([]any, NumColumns)
	r[ColTestID] = id
	r[ColSummary] = "summary " + id
	r[ColTestContent] = content
	r[ColStatus] = status
	r[ColActualExecDate] = execDate
	return r
}

func newCollector(p syncclient.Pusher, clock clockwork.Clock) *Collector {
	return New(p, WithClock(clock), WithReadTimeout(5*time.Second))
}

func TestCollectKeepsValidRowsInOrder(t *testing.T) {
	rows := [][]any{
		row("TC-1", "open login page", "○", 45306),
		row("TC-2", "", "○", nil),
		row("TC-3", "submit form", "NG", "2024/01/16"),
		row("TC-4", "   ", "X", nil),
		row("TC-5", "check logout", "×", nil),
		row("TC-6", "reset password", "削除", nil),
		row("TC-7", "", "", nil),
		row("TC-8", "change email", "", nil),
		row("TC-9", "delete account", "▲", nil),
		row("TC-10", "export csv", "??", nil),
	}
	path := writeSheet(t, "Sheet1", rows)
	clock := clockwork.NewFakeClockAt(time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC))
	p := &fakePusher{}

	out, err := newCollector(p, clock).Collect(context.Background(), testcase.Locator{Type: testcase.SourceExcel, FilePath: path})
	require.NoError(t, err)
	assert.Equal(t, 7, out.Records)
	assert.Equal(t, 200, out.AckStatus)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fingerprint.Sum(data), out.Fingerprint)

	batch := p.last(t)
	assert.Equal(t, syncclient.SourceExcel, batch.Source)
	assert.Equal(t, out.Fingerprint, batch.FileHash)
	assert.Equal(t, clock.Now(), batch.Timestamp)

	var ids []string
	for _, rec := range batch.TestCases {
		ids = append(ids, rec.TestID)
		assert.Equal(t, clock.Now(), rec.CollectedAt)
	}
	assert.Equal(t, []string{"TC-1", "TC-3", "TC-5", "TC-6", "TC-8", "TC-9", "TC-10"}, ids)

	byID := map[string]testcase.Record{}
	for _, rec := range batch.TestCases {
		byID[rec.TestID] = rec
	}
	assert.Equal(t, testcase.StatusPassed, byID["TC-1"].Status)
	assert.Equal(t, testcase.StatusFailed, byID["TC-3"].Status)
	assert.Equal(t, testcase.StatusBlocked, byID["TC-5"].Status)
	assert.Equal(t, testcase.StatusDeleted, byID["TC-6"].Status)
	assert.Equal(t, testcase.StatusPending, byID["TC-8"].Status)
	assert.Equal(t, testcase.StatusFailed, byID["TC-9"].Status)
	assert.Equal(t, testcase.StatusPending, byID["TC-10"].Status)

	require.NotNil(t, byID["TC-1"].ActualExecDate)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), *byID["TC-1"].ActualExecDate)
	require.NotNil(t, byID["TC-3"].ActualExecDate)
	assert.Equal(t, time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC), *byID["TC-3"].ActualExecDate)
	assert.Nil(t, byID["TC-5"].ActualExecDate)
	assert.Equal(t, "summary TC-1", byID["TC-1"].Summary)
}

func TestCollectEmptySheetStillPushes(t *testing.T) {
	path := writeSheet(t, "Sheet1", nil)
	p := &fakePusher{}

	out, err := newCollector(p, clockwork.NewFakeClock()).Collect(context.Background(), testcase.Locator{Type: testcase.SourceExcel, FilePath: path})
	require.NoError(t, err)
	assert.Zero(t, out.Records)

	batch := p.last(t)
	assert.Empty(t, batch.TestCases)
	assert.NotEmpty(t, batch.FileHash)
}

func TestCollectNamedSheet(t *testing.T) {
	path := writeSheet(t, "Results", [][]any{row("TC-1", "x", "O", nil)})
	p := &fakePusher{}
	c := newCollector(p, clockwork.NewFakeClock())

	out, err := c.Collect(context.Background(), testcase.Locator{Type: testcase.SourceExcel, FilePath: path, SheetName: "Results"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Records)

	_, err = c.Collect(context.Background(), testcase.Locator{Type: testcase.SourceExcel, FilePath: path, SheetName: "Missing"})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategorySourceNotFound))
}

func TestCollectMissingFile(t *testing.T) {
	p := &fakePusher{}
	_, err := newCollector(p, clockwork.NewFakeClock()).Collect(context.Background(), testcase.Locator{
		Type:     testcase.SourceExcel,
		FilePath: filepath.Join(t.TempDir(), "nope.xlsx"),
	})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategorySourceNotFound))
	assert.True(t, errors.IsRetryable(err))
	assert.Empty(t, p.batches)
}

func TestCollectCorruptWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("half written"), 0o600))

	_, err := newCollector(&fakePusher{}, clockwork.NewFakeClock()).Collect(context.Background(), testcase.Locator{Type: testcase.SourceExcel, FilePath: path})
	require.Error(t, err)
	assert.True(t, errors.IsRetryable(err))
}

func TestCollectPropagatesTransportError(t *testing.T) {
	path := writeSheet(t, "Sheet1", [][]any{row("TC-1", "x", "O", nil)})
	p := &fakePusher{err: errors.TransportError("sync rejected").WithContext("status_code", 502).Build()}

	_, err := newCollector(p, clockwork.NewFakeClock()).Collect(context.Background(), testcase.Locator{Type: testcase.SourceExcel, FilePath: path})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryTransport))
	assert.Len(t, p.batches, 1, "no retry inside the collector")
}

func TestCollectRejectsRemoteLocator(t *testing.T) {
	_, err := newCollector(&fakePusher{}, clockwork.NewFakeClock()).Collect(context.Background(), testcase.Locator{Type: testcase.SourceGSheet, SpreadsheetID: "abc"})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestRunReportsProgress(t *testing.T) {
	path := writeSheet(t, "Sheet1", [][]any{row("TC-1", "x", "O", nil)})
	var stages []string
	_, err := newCollector(&fakePusher{}, clockwork.NewFakeClock()).Run(context.Background(),
		testcase.Locator{Type: testcase.SourceExcel, FilePath: path},
		func(stage string, _ int) { stages = append(stages, stage) })
	require.NoError(t, err)
	assert.Equal(t, []string{StageRead, StageParsed, StagePushed}, stages)
}

func TestValidateStructure(t *testing.T) {
	c := newCollector(&fakePusher{}, clockwork.NewFakeClock())
	ctx := context.Background()

	ok := writeSheet(t, "Sheet1", [][]any{row("TC-1", "x", "O", nil)})
	require.NoError(t, c.ValidateStructure(ctx, ok, ""))

	headerOnly := writeSheet(t, "Sheet1", nil)
	err := c.ValidateStructure(ctx, headerOnly, "")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
	assert.False(t, errors.IsRetryable(err))

	err = c.ValidateStructure(ctx, ok, "Other")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))

	err = c.ValidateStructure(ctx, filepath.Join(t.TempDir(), "missing.xlsx"), "")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestTransformTrimsAndComposes(t *testing.T) {
	path := writeSheet(t, "Sheet1", [][]any{{"  TC-1 ", nil, nil, nil, nil, "  \u30ed\u30b0\u30a4\u30f3\u30c8\u3099  ", nil, nil, " ○ "}})
	p := &fakePusher{}
	_, err := newCollector(p, clockwork.NewFakeClock()).Collect(context.Background(), testcase.Locator{Type: testcase.SourceExcel, FilePath: path})
	require.NoError(t, err)

	rec := p.last(t).TestCases[0]
	assert.Equal(t, "TC-1", rec.TestID)
	assert.Equal(t, "\u30ed\u30b0\u30a4\u30f3\u30c9", rec.TestContent)
	assert.Equal(t, testcase.StatusPassed, rec.Status)
	assert.Empty(t, rec.Summary)
}

func TestTransformBooleanCells(t *testing.T) {
	var r RawRow
	r[ColTestID] = sheet.Text("TC-1")
	r[ColTestContent] = sheet.Text("open page")
	r[ColNotes] = sheet.Bool(true)
	r[ColRemarks] = sheet.Bool(false)

	rec := Transform(r, time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC))
	assert.Equal(t, "true", rec.Notes)
	assert.Empty(t, rec.Remarks)

	r[ColTestContent] = sheet.Bool(false)
	assert.False(t, r.Valid(), "a false cell is no test content")
}
