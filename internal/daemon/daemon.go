// Package daemon wires the collection scheduler, its store and the admin
// API into one long-running process.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/tccollector/internal/alerts"
	"git.home.luguber.info/inful/tccollector/internal/collector"
	"git.home.luguber.info/inful/tccollector/internal/config"
	"git.home.luguber.info/inful/tccollector/internal/events"
	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
	"git.home.luguber.info/inful/tccollector/internal/logfields"
	"git.home.luguber.info/inful/tccollector/internal/metrics"
	"git.home.luguber.info/inful/tccollector/internal/queue"
	"git.home.luguber.info/inful/tccollector/internal/retry"
	"git.home.luguber.info/inful/tccollector/internal/scheduler"
	"git.home.luguber.info/inful/tccollector/internal/server/httpserver"
	"git.home.luguber.info/inful/tccollector/internal/store"
	"git.home.luguber.info/inful/tccollector/internal/syncclient"
	"git.home.luguber.info/inful/tccollector/internal/version"
	"git.home.luguber.info/inful/tccollector/internal/watch"
)

// Status represents the current state of the daemon
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

// Options overrides parts of the wiring, mostly for tests.
type Options struct {
	Logger *slog.Logger
	Clock  clockwork.Clock
	// Runner replaces the collector built from the configuration.
	Runner scheduler.Runner
}

// Daemon represents the main daemon service
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	status    atomic.Value // Status
	startTime time.Time
	mu        sync.Mutex

	store      *store.Store
	bus        *events.Bus
	registry   *metrics.Registry
	scheduler  *scheduler.Scheduler
	nats       *alerts.NATSPublisher
	watcher    *watch.SourceWatcher
	httpServer *httpserver.Server

	stopProgress context.CancelFunc
	progressDone <-chan struct{}
}

// New opens the store and builds every component. Nothing runs until Start.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Daemon, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	d := &Daemon{cfg: cfg, logger: logger}
	d.status.Store(StatusStopped)

	if dir := filepath.Dir(cfg.Store.Path); dir != "" && cfg.Store.Path != ":memory:" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, errors.WrapError(err, errors.CategoryStore, "failed to create data directory").
				WithContext("dir", dir).Build()
		}
	}
	st, err := store.Open(ctx, cfg.Store.Path, store.WithClock(clock))
	if err != nil {
		return nil, err
	}
	d.store = st

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Enabled {
		d.registry = metrics.NewRegistry()
		recorder = d.registry.Recorder()
	}

	runner := opts.Runner
	if runner == nil {
		runner, err = newCollector(cfg, clock, logger, recorder)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
	}

	sink, err := d.alertSink(ctx, logger)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	validator, _ := runner.(scheduler.StructureValidator)

	d.bus = events.NewBus()
	d.scheduler, err = scheduler.New(st, runner, scheduler.Options{
		Policy: retry.FromConfig(cfg.Retry),
		Queue: queue.Options{
			Workers:        cfg.Queue.Workers,
			MaxSize:        cfg.Queue.MaxSize,
			StallThreshold: cfg.Queue.StallThreshold.Duration(),
			KeepCompleted:  cfg.Queue.KeepCompleted,
			KeepFailed:     cfg.Queue.KeepFailed,
			Persister:      st,
		},
		Clock:     clock,
		Bus:       d.bus,
		Alerts:    sink,
		Recorder:  recorder,
		Logger:    logger,
		Validator: validator,
	})
	if err != nil {
		_ = d.closeBackends()
		return nil, err
	}

	if cfg.Source.Watch {
		d.watcher, err = watch.New(cfg.Source.Locator(), d.scheduler,
			watch.WithDebounce(cfg.Source.WatchDebounce.Duration()),
			watch.WithClock(clock),
			watch.WithLogger(logger))
		if err != nil {
			_ = d.closeBackends()
			return nil, err
		}
	}

	srvOpts := httpserver.Options{Collection: d.scheduler, Alerts: st, Logger: logger}
	if d.registry != nil {
		srvOpts.Metrics = d.registry.Handler()
	}
	d.httpServer = httpserver.New(cfg, srvOpts)
	return d, nil
}

func newCollector(cfg *config.Config, clock clockwork.Clock, logger *slog.Logger, recorder metrics.Recorder) (*collector.Collector, error) {
	pusher, err := syncclient.New(cfg.Sync.BaseURL,
		syncclient.WithPath(cfg.Sync.Path),
		syncclient.WithTimeout(cfg.Sync.Timeout.Duration()))
	if err != nil {
		return nil, err
	}
	return collector.New(pusher,
		collector.WithClock(clock),
		collector.WithLogger(logger),
		collector.WithRecorder(recorder),
		collector.WithReadTimeout(cfg.Collector.ReadTimeout.Duration()),
		collector.WithHeaderRows(cfg.Collector.HeaderRows)), nil
}

// alertSink persists alerts and, when configured, also publishes them to NATS.
func (d *Daemon) alertSink(ctx context.Context, logger *slog.Logger) (alerts.Sink, error) {
	primary := alerts.NewStoreSink(d.store)
	if !d.cfg.Alerts.NATS.Enabled {
		return alerts.NewFanout(logger, primary), nil
	}
	pub, err := alerts.NewNATSPublisher(ctx, d.cfg.Alerts.NATS)
	if err != nil {
		return nil, err
	}
	d.nats = pub
	return alerts.NewFanout(logger, primary, pub), nil
}

// Start restores persisted jobs and the schedule, then starts the queue,
// the registry, the optional source watcher and the admin API.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s := d.GetStatus(); s != StatusStopped {
		return fmt.Errorf("daemon is not in stopped state: %s", s)
	}
	if d.store == nil {
		return errors.RuntimeError("daemon has been stopped and cannot be restarted").Build()
	}
	d.status.Store(StatusStarting)
	d.startTime = time.Now()
	d.logger.Info("Starting tccollector daemon", logfields.Version(version.Version))

	if err := d.scheduler.Restore(ctx); err != nil {
		d.status.Store(StatusError)
		return err
	}
	d.scheduler.Start(ctx)
	d.watchProgress()

	if d.watcher != nil {
		if err := d.watcher.Start(ctx); err != nil {
			// The scheduler keeps running; watching is best-effort.
			d.logger.Error("Failed to start source watcher", logfields.Error(err))
			d.watcher = nil
		}
	}

	if err := d.httpServer.Start(ctx); err != nil {
		d.status.Store(StatusError)
		return err
	}

	d.status.Store(StatusRunning)
	d.logger.Info("tccollector daemon started",
		logfields.URL("http://"+d.httpServer.Addr()),
		logfields.Path(d.cfg.Store.Path),
		logfields.Source(d.cfg.Source.Locator().String()))
	return nil
}

// Run starts the daemon and blocks until ctx is cancelled, then stops it
// within the configured shutdown timeout.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		_ = d.Stop(context.Background())
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), d.cfg.Daemon.ShutdownTimeout.Duration())
	defer cancel()
	return d.Stop(stopCtx)
}

// Stop shuts components down in reverse start order and closes the store.
// A stopped daemon cannot be started again.
func (d *Daemon) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.GetStatus() {
	case StatusStopping:
		return nil
	case StatusStopped:
		// never started, or already stopped
		return d.closeBackends()
	}
	d.status.Store(StatusStopping)
	d.logger.Info("Stopping tccollector daemon")

	var result *multierror.Error
	if err := d.httpServer.Stop(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if d.watcher != nil {
		if err := d.watcher.Stop(); err != nil {
			result = multierror.Append(result, fmt.Errorf("source watcher: %w", err))
		}
	}
	if err := d.scheduler.Stop(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if d.stopProgress != nil {
		d.stopProgress()
		<-d.progressDone
		d.stopProgress = nil
	}
	d.bus.Close()
	if err := d.closeBackends(); err != nil {
		result = multierror.Append(result, err)
	}

	d.status.Store(StatusStopped)
	if err := result.ErrorOrNil(); err != nil {
		d.logger.Error("tccollector daemon stopped with errors", logfields.Error(err))
		return err
	}
	d.logger.Info("tccollector daemon stopped")
	return nil
}

func (d *Daemon) closeBackends() error {
	var result *multierror.Error
	if d.nats != nil {
		if err := d.nats.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("nats: %w", err))
		}
		d.nats = nil
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("store: %w", err))
		}
		d.store = nil
	}
	return result.ErrorOrNil()
}

// watchProgress logs job progress at debug level.
func (d *Daemon) watchProgress() {
	ctx, cancel := context.WithCancel(context.Background())
	d.stopProgress = cancel
	d.progressDone = events.Listen(ctx, d.bus, 16, func(evt events.JobProgress) {
		d.logger.Debug("Job progress",
			logfields.JobID(evt.Ref.ID),
			logfields.Stage(evt.Stage),
			slog.Int("percent", evt.Percent))
	})
}

// GetStatus returns the lifecycle state.
func (d *Daemon) GetStatus() Status {
	return d.status.Load().(Status)
}

// GetStartTime returns when Start was last called.
func (d *Daemon) GetStartTime() time.Time { return d.startTime }

// Scheduler exposes the collection scheduler.
func (d *Daemon) Scheduler() *scheduler.Scheduler { return d.scheduler }

// AdminAddr is the bound admin API address, or empty before Start.
func (d *Daemon) AdminAddr() string { return d.httpServer.Addr() }
