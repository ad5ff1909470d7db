// Package collector reads a test-case spreadsheet, converts its data rows
// into canonical records and pushes them to the ingestion boundary.
package collector

import (
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/tccollector/internal/fingerprint"
	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
	"git.home.luguber.info/inful/tccollector/internal/logfields"
	"git.home.luguber.info/inful/tccollector/internal/metrics"
	"git.home.luguber.info/inful/tccollector/internal/sheet"
	"git.home.luguber.info/inful/tccollector/internal/syncclient"
	"git.home.luguber.info/inful/tccollector/internal/testcase"
)

const (
	DefaultReadTimeout = 60 * time.Second
	DefaultHeaderRows  = 8
)

// Stage names reported through ProgressFunc.
const (
	StageRead   = "read"
	StageParsed = "parsed"
	StagePushed = "pushed"
)

// ProgressFunc receives a stage name and a completion percentage.
type ProgressFunc func(stage string, percent int)

// Outcome summarizes a successful collection.
type Outcome struct {
	Records     int       `json:"records"`
	Fingerprint string    `json:"fingerprint"`
	Source      string    `json:"source"`
	CollectedAt time.Time `json:"collectedAt"`
	AckStatus   int       `json:"ackStatus"`
}

// Collector turns a spreadsheet file into a pushed batch.
type Collector struct {
	pusher      syncclient.Pusher
	clock       clockwork.Clock
	readTimeout time.Duration
	headerRows  int
	logger      *slog.Logger
	recorder    metrics.Recorder
}

// Option customizes a Collector.
type Option func(*Collector)

func WithClock(c clockwork.Clock) Option     { return func(col *Collector) { col.clock = c } }
func WithLogger(l *slog.Logger) Option       { return func(col *Collector) { col.logger = l } }
func WithRecorder(r metrics.Recorder) Option { return func(col *Collector) { col.recorder = r } }

// WithReadTimeout bounds how long reading the source file may take.
func WithReadTimeout(d time.Duration) Option {
	return func(col *Collector) {
		if d > 0 {
			col.readTimeout = d
		}
	}
}

// WithHeaderRows sets how many leading rows are skipped.
func WithHeaderRows(n int) Option {
	return func(col *Collector) {
		if n >= 0 {
			col.headerRows = n
		}
	}
}

// New returns a Collector pushing through pusher.
func New(pusher syncclient.Pusher, opts ...Option) *Collector {
	c := &Collector{
		pusher:      pusher,
		clock:       clockwork.NewRealClock(),
		readTimeout: DefaultReadTimeout,
		headerRows:  DefaultHeaderRows,
		logger:      slog.Default(),
		recorder:    metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect reads, parses and pushes the spreadsheet addressed by loc.
func (c *Collector) Collect(ctx context.Context, loc testcase.Locator) (*Outcome, error) {
	return c.Run(ctx, loc, nil)
}

// Run is Collect with progress reporting. An empty sheet is still pushed.
func (c *Collector) Run(ctx context.Context, loc testcase.Locator, progress ProgressFunc) (*Outcome, error) {
	if progress == nil {
		progress = func(string, int) {}
	}
	if loc.Type.Kind() != testcase.KindFile {
		return nil, errors.ValidationError(fmt.Sprintf("collector reads files, got source type %q", loc.Type)).Build()
	}

	start := c.clock.Now()
	out, err := c.run(ctx, loc, progress)
	c.recorder.ObserveCollectionDuration(c.clock.Since(start), metrics.ResultOf(err))
	if err != nil {
		return nil, err
	}
	c.recorder.AddRecordsCollected(out.Records)
	return out, nil
}

func (c *Collector) run(ctx context.Context, loc testcase.Locator, progress ProgressFunc) (*Outcome, error) {
	data, err := c.readSource(ctx, loc.FilePath)
	if err != nil {
		return nil, err
	}
	hash := fingerprint.Sum(data)
	progress(StageRead, 10)

	rows, sheetName, err := c.readRows(data, loc.SheetName)
	if err != nil {
		return nil, err
	}

	raw := Extract(rows)
	valid := Filter(raw)
	now := c.clock.Now().UTC()
	records := make([]testcase.Record, 0, len(valid))
	for _, r := range valid {
		records = append(records, Transform(r, now))
	}
	progress(StageParsed, 50)

	c.logger.InfoContext(ctx, "Parsed test cases",
		logfields.Source(loc.String()),
		logfields.Sheet(sheetName),
		slog.Int("rows", len(raw)),
		logfields.Records(len(records)),
		logfields.Fingerprint(hash))

	ack, err := c.pusher.Push(ctx, syncclient.Batch{
		TestCases: records,
		Source:    syncclient.SourceExcel,
		Timestamp: now,
		FileHash:  hash,
	})
	c.recorder.IncSyncResult(metrics.ResultOf(err))
	if err != nil {
		return nil, err
	}
	progress(StagePushed, 100)

	return &Outcome{
		Records:     len(records),
		Fingerprint: hash,
		Source:      loc.String(),
		CollectedAt: now,
		AckStatus:   ack.StatusCode,
	}, nil
}

func (c *Collector) readRows(data []byte, sheetName string) ([][]sheet.Cell, string, error) {
	wb, err := sheet.OpenBytes(data)
	if err != nil {
		return nil, "", errors.RuntimeError("source is not a readable workbook").
			WithCause(err).
			Retryable().
			Build()
	}
	defer func() { _ = wb.Close() }()

	name, err := wb.Resolve(sheetName)
	if err != nil {
		return nil, "", errors.SourceNotFound("sheet not found").
			WithCause(err).
			WithContext("sheet", sheetName).
			Build()
	}
	rows, err := wb.Rows(name, c.headerRows, NumColumns)
	if err != nil {
		return nil, "", errors.RuntimeError("failed to read sheet rows").
			WithCause(err).
			WithContext("sheet", name).
			Retryable().
			Build()
	}
	return rows, name, nil
}

type readResult struct {
	data []byte
	err  error
}

// readSource reads the whole file, bounded by the read timeout.
func (c *Collector) readSource(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()

	done := make(chan readResult, 1)
	go func() {
		b, err := os.ReadFile(path)
		done <- readResult{data: b, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, errors.RuntimeError("reading source timed out").
			WithCause(ctx.Err()).
			WithContext("path", path).
			Retryable().
			Build()
	case res := <-done:
		switch {
		case res.err == nil:
			return res.data, nil
		case stderrors.Is(res.err, fs.ErrNotExist):
			return nil, errors.SourceNotFound("source file not found").
				WithCause(res.err).
				WithContext("path", path).
				Build()
		default:
			return nil, errors.RuntimeError("failed to read source").
				WithCause(res.err).
				WithContext("path", path).
				Retryable().
				Build()
		}
	}
}

// ValidateStructure checks that the file has the named sheet (or any sheet),
// reaches past the header rows, and has at least one non-empty data row.
func (c *Collector) ValidateStructure(ctx context.Context, path, sheetName string) error {
	data, err := c.readSource(ctx, path)
	if err != nil {
		return errors.WrapError(err, errors.CategoryValidation, "source cannot be read").
			WithContext("path", path).
			UserAction().
			Build()
	}
	wb, err := sheet.OpenBytes(data)
	if err != nil {
		return errors.WrapError(err, errors.CategoryValidation, "source is not a readable workbook").
			WithContext("path", path).
			UserAction().
			Build()
	}
	defer func() { _ = wb.Close() }()

	name, err := wb.Resolve(sheetName)
	if err != nil {
		return errors.WrapError(err, errors.CategoryValidation, "sheet not found").
			WithContext("sheet", sheetName).
			UserAction().
			Build()
	}
	n, err := wb.RowCount(name)
	if err != nil {
		return errors.WrapError(err, errors.CategoryValidation, "sheet rows cannot be read").UserAction().Build()
	}
	if n <= c.headerRows {
		return errors.ValidationError(fmt.Sprintf("sheet has %d rows, data starts at row %d", n, c.headerRows+1)).
			WithContext("sheet", name).
			Build()
	}
	rows, err := wb.Rows(name, c.headerRows, NumColumns)
	if err != nil {
		return errors.WrapError(err, errors.CategoryValidation, "sheet rows cannot be read").UserAction().Build()
	}
	for _, row := range rows {
		for _, cell := range row {
			if !cell.Blank() {
				return nil
			}
		}
	}
	return errors.ValidationError("no data rows after the header").
		WithContext("sheet", name).
		Build()
}
