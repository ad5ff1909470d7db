// Package watch triggers a collection when the source spreadsheet changes on disk.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
	"git.home.luguber.info/inful/tccollector/internal/logfields"
	"git.home.luguber.info/inful/tccollector/internal/queue"
	"git.home.luguber.info/inful/tccollector/internal/testcase"
)

// DefaultDebounce coalesces the bursts of events a spreadsheet save produces.
const DefaultDebounce = 2 * time.Second

// Trigger enqueues a collection for a changed source.
type Trigger interface {
	TriggerSourceChanged(ctx context.Context, loc testcase.Locator) (*queue.Job, error)
}

// SourceWatcher watches the directory of a file source; watching the
// directory survives editors that save by rename.
type SourceWatcher struct {
	source   testcase.Locator
	path     string
	trigger  Trigger
	debounce time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	timer   clockwork.Timer
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// Option configures a SourceWatcher.
type Option func(*SourceWatcher)

func WithDebounce(d time.Duration) Option {
	return func(w *SourceWatcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithClock(c clockwork.Clock) Option { return func(w *SourceWatcher) { w.clock = c } }

func WithLogger(l *slog.Logger) Option { return func(w *SourceWatcher) { w.logger = l } }

// New creates a watcher for a file source.
func New(source testcase.Locator, trigger Trigger, opts ...Option) (*SourceWatcher, error) {
	if source.Type.Kind() != testcase.KindFile || source.FilePath == "" {
		return nil, errors.ValidationError("only file sources can be watched").
			WithContext("source", source.String()).Build()
	}
	abs, err := filepath.Abs(source.FilePath)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to resolve source path").
			WithContext("path", source.FilePath).Build()
	}

	w := &SourceWatcher{
		source:   source,
		path:     abs,
		trigger:  trigger,
		debounce: DefaultDebounce,
		clock:    clockwork.NewRealClock(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching. Stop or ctx cancellation ends it.
func (w *SourceWatcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "failed to create file watcher").Build()
	}
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return errors.WrapError(err, errors.CategorySourceNotFound, "failed to watch source directory").
			WithContext("path", dir).Build()
	}
	w.watcher = fw

	wctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	go w.loop(wctx)

	w.logger.Info("Watching source file", logfields.Path(w.path), logfields.Delay(w.debounce))
	return nil
}

// Stop ends watching and drops any pending trigger.
func (w *SourceWatcher) Stop() error {
	if w.cancel == nil {
		return nil
	}
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	return err
}

func (w *SourceWatcher) loop(ctx context.Context) {
	defer w.wg.Done()
	name := filepath.Base(w.path)

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(evt.Name) != name {
				continue
			}
			switch {
			case evt.Has(fsnotify.Write), evt.Has(fsnotify.Create), evt.Has(fsnotify.Rename):
				w.logger.Debug("Source file changed", logfields.Path(evt.Name), slog.String("op", evt.Op.String()))
				w.schedule(ctx)
			case evt.Has(fsnotify.Remove):
				w.logger.Warn("Source file removed", logfields.Path(evt.Name))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Source watcher error", logfields.Error(err))
		}
	}
}

// schedule (re)arms the debounce timer.
func (w *SourceWatcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = w.clock.AfterFunc(w.debounce, func() { w.fire(ctx) })
}

func (w *SourceWatcher) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	job, err := w.trigger.TriggerSourceChanged(ctx, w.source)
	switch {
	case err != nil:
		w.logger.Error("Failed to enqueue collection for changed source", logfields.Path(w.path), logfields.Error(err))
	case job == nil:
		w.logger.Debug("Collection for changed source already pending", logfields.Path(w.path))
	default:
		w.logger.Info("Source changed; collection enqueued", logfields.Path(w.path), logfields.JobID(job.ID))
	}
}
