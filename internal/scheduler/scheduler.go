// Package scheduler drives collection: it owns the repeatable auto-update
// registration, enqueues one-shot jobs, executes jobs from the queue and
// raises alerts when a scheduled job gives up.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/tccollector/internal/alerts"
	"git.home.luguber.info/inful/tccollector/internal/collector"
	"git.home.luguber.info/inful/tccollector/internal/events"
	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
	"git.home.luguber.info/inful/tccollector/internal/logfields"
	"git.home.luguber.info/inful/tccollector/internal/metrics"
	"git.home.luguber.info/inful/tccollector/internal/queue"
	"git.home.luguber.info/inful/tccollector/internal/retry"
	"git.home.luguber.info/inful/tccollector/internal/store"
	"git.home.luguber.info/inful/tccollector/internal/testcase"
)

const (
	// AutoUpdateKey is the fixed key of the repeatable collection.
	AutoUpdateKey = "auto-update-job"
	// WatchKey keys jobs enqueued by the source file watcher.
	WatchKey = "watch"
	// JobName is the name of every collection job.
	JobName = "collect-data"

	DefaultRecentJobs = 10
	DefaultCleanDays  = 30

	alertTimeout   = 10 * time.Second
	enqueueTimeout = 5 * time.Second
)

// SettingsStore persists the auto-update settings.
type SettingsStore interface {
	Settings(ctx context.Context) (store.Settings, error)
	SaveSettings(ctx context.Context, s store.Settings) (store.Settings, error)
	SetAutoUpdate(ctx context.Context, enabled bool) error
	UpdateLastCollection(ctx context.Context, at time.Time) error
}

// Runner performs one collection.
type Runner interface {
	Run(ctx context.Context, loc testcase.Locator, progress collector.ProgressFunc) (*collector.Outcome, error)
}

// StructureValidator checks a spreadsheet before it is scheduled.
type StructureValidator interface {
	ValidateStructure(ctx context.Context, path, sheet string) error
}

// Options configures a Scheduler. Zero values take defaults.
type Options struct {
	// Policy is the retry policy of scheduled and watch jobs.
	Policy retry.Policy
	// Validator serves AutoUpdateConfig.CheckStructure.
	Validator StructureValidator
	Queue     queue.Options
	Clock     clockwork.Clock
	Bus       *events.Bus
	Alerts    alerts.Sink
	Recorder  metrics.Recorder
	Logger    *slog.Logger
}

type registration struct {
	id       uuid.UUID
	interval int
	source   testcase.Locator
	since    time.Time
}

// Scheduler coordinates the registry, the queue and the collector.
type Scheduler struct {
	cron      gocron.Scheduler
	queue     *queue.Queue
	settings  SettingsStore
	runner    Runner
	validator StructureValidator
	alerts    alerts.Sink
	bus       *events.Bus
	ownsBus   bool
	policy    retry.Policy
	clock     clockwork.Clock
	logger    *slog.Logger
	// unit converts interval values into durations.
	unit time.Duration

	// mu guards registry and serializes enable, disable and restore.
	mu       sync.Mutex
	registry map[string]registration

	stopListeners context.CancelFunc
	listeners     []<-chan struct{}
}

// New builds a Scheduler and its queue.
func New(settings SettingsStore, runner Runner, opts Options) (*Scheduler, error) {
	if settings == nil || runner == nil {
		return nil, errors.InternalError("scheduler requires a settings store and a runner").Build()
	}
	s := &Scheduler{
		settings:  settings,
		runner:    runner,
		validator: opts.Validator,
		alerts:    opts.Alerts,
		bus:       opts.Bus,
		policy:    opts.Policy,
		clock:     opts.Clock,
		logger:    opts.Logger,
		unit:      time.Minute,
		registry:  make(map[string]registration),
	}
	if s.policy.MaxAttempts < 1 {
		s.policy = retry.DefaultPolicy()
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.bus == nil {
		s.bus = events.NewBus()
		s.ownsBus = true
	}

	cron, err := gocron.NewScheduler(
		gocron.WithClock(s.clock),
		gocron.WithLogger(s.logger.With(slog.String("component", "gocron"))),
	)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRuntime, "failed to create gocron scheduler").Build()
	}
	s.cron = cron

	qopts := opts.Queue
	qopts.Clock = s.clock
	qopts.Bus = s.bus
	qopts.Logger = s.logger
	if opts.Recorder != nil {
		qopts.Recorder = opts.Recorder
	}
	s.queue = queue.New(queue.ProcessorFunc(s.process), qopts)
	return s, nil
}

// Bus returns the event bus job lifecycle events are published on.
func (s *Scheduler) Bus() *events.Bus { return s.bus }

// Restore reloads persisted jobs and re-creates the auto-update
// registration when the stored settings have it enabled. Call before Start.
func (s *Scheduler) Restore(ctx context.Context) error {
	if err := s.queue.Restore(ctx); err != nil {
		return err
	}
	settings, err := s.settings.Settings(ctx)
	if err != nil {
		return err
	}
	if !settings.AutoUpdateEnabled {
		return nil
	}

	cfg := configFromSettings(settings, settings.CollectionInterval)
	if err := cfg.Validate(); err != nil {
		s.logger.Warn("Stored auto-update settings are invalid; not restoring schedule", logfields.Error(err))
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.registerLocked(AutoUpdateKey, cfg); err != nil {
		return err
	}
	s.logger.Info("Restored auto-update schedule",
		logfields.Interval(cfg.Interval),
		logfields.Source(cfg.Locator().String()))
	return nil
}

// Start launches the queue workers, the alert listener and the registry.
func (s *Scheduler) Start(ctx context.Context) {
	lctx, cancel := context.WithCancel(context.Background())
	s.stopListeners = cancel
	s.listeners = append(s.listeners,
		events.Listen(lctx, s.bus, 16, s.onJobFailed),
	)
	s.queue.Start(ctx)
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop shuts the registry down, then stops the queue and the listeners.
// In-flight attempts are interrupted and requeued.
func (s *Scheduler) Stop(ctx context.Context) error {
	var result *multierror.Error
	if err := s.cron.Shutdown(); err != nil {
		result = multierror.Append(result, errors.WrapError(err, errors.CategoryRuntime, "failed to stop gocron scheduler").Build())
	}
	s.queue.Stop(ctx)
	if s.stopListeners != nil {
		s.stopListeners()
		for _, done := range s.listeners {
			select {
			case <-done:
			case <-ctx.Done():
			}
		}
	}
	if s.ownsBus {
		s.bus.Close()
	}
	s.logger.Info("Scheduler stopped")
	return result.ErrorOrNil()
}

func (s *Scheduler) onJobFailed(evt events.JobFailed) {
	if evt.Ref.Manual {
		return
	}
	if s.alerts == nil {
		s.logger.Warn("No alert sink configured; dropping collection failure alert")
		return
	}

	var source testcase.Locator
	if j, ok := s.queue.Get(evt.Ref.ID); ok {
		source = j.Source
	}
	a := alerts.CollectionFailed(evt.Ref.ID, source, evt.Error, evt.Ref.Attempt, s.clock.Now())

	ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
	defer cancel()
	if _, err := s.alerts.Raise(ctx, a); err != nil {
		s.logger.Error("Failed to raise collection alert", logfields.JobID(evt.Ref.ID), logfields.Error(err))
	}
}
