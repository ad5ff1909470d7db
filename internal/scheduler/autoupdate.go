package scheduler

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
	"git.home.luguber.info/inful/tccollector/internal/logfields"
	"git.home.luguber.info/inful/tccollector/internal/queue"
	"git.home.luguber.info/inful/tccollector/internal/retry"
	"git.home.luguber.info/inful/tccollector/internal/store"
	"git.home.luguber.info/inful/tccollector/internal/testcase"
)

// MaxInterval is the longest accepted collection interval in minutes (one week).
const MaxInterval = 7 * 24 * 60

// AutoUpdateConfig is the request to enable recurring collection.
type AutoUpdateConfig struct {
	Interval      int                 `json:"interval"` // minutes
	Source        testcase.SourceType `json:"source"`
	FilePath      string              `json:"filePath,omitempty"`
	SpreadsheetID string              `json:"spreadsheetId,omitempty"`
	SheetName     string              `json:"sheetName,omitempty"`
	// CheckStructure runs ValidateStructure on the source before enabling.
	CheckStructure bool `json:"validate,omitempty"`
}

// Locator returns the source the config points at.
func (c AutoUpdateConfig) Locator() testcase.Locator {
	return testcase.Locator{
		Type:          c.Source,
		FilePath:      c.FilePath,
		SpreadsheetID: c.SpreadsheetID,
		SheetName:     c.SheetName,
	}
}

// Validate checks the interval range and the source fields.
func (c AutoUpdateConfig) Validate() error {
	if c.Interval < 1 || c.Interval > MaxInterval {
		return errors.ValidationError(fmt.Sprintf("interval must be between 1 and %d minutes", MaxInterval)).
			WithContext("interval", c.Interval).Build()
	}
	return c.Locator().Validate()
}

func configFromSettings(s store.Settings, interval int) AutoUpdateConfig {
	return AutoUpdateConfig{
		Interval:      interval,
		Source:        s.SourceType,
		FilePath:      s.SourcePath,
		SpreadsheetID: s.SpreadsheetID,
		SheetName:     s.SheetName,
	}
}

// EnableAutoUpdate stores cfg as the enabled settings and replaces the
// repeatable registration. The first collection runs immediately. If the
// registration cannot be created the previous settings are written back.
func (s *Scheduler) EnableAutoUpdate(ctx context.Context, cfg AutoUpdateConfig) (store.Settings, error) {
	if err := cfg.Validate(); err != nil {
		return store.Settings{}, err
	}
	if err := s.checkStructure(ctx, cfg); err != nil {
		return store.Settings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.settings.Settings(ctx)
	if err != nil {
		return store.Settings{}, err
	}
	return s.enableLocked(ctx, prev, cfg)
}

// enableLocked persists cfg and swaps the registration. s.mu must be held
// and prev must be the settings read under it.
func (s *Scheduler) enableLocked(ctx context.Context, prev store.Settings, cfg AutoUpdateConfig) (store.Settings, error) {
	saved, err := s.settings.SaveSettings(ctx, store.Settings{
		AutoUpdateEnabled:  true,
		CollectionInterval: cfg.Interval,
		SourceType:         cfg.Source,
		SourcePath:         cfg.FilePath,
		SpreadsheetID:      cfg.SpreadsheetID,
		SheetName:          cfg.SheetName,
	})
	if err != nil {
		return store.Settings{}, err
	}

	// The new registration fires at once; retries of another source must
	// be gone by then or the firing is refused as busy.
	s.discardStale(ctx, AutoUpdateKey, cfg.Locator())
	if err := s.registerLocked(AutoUpdateKey, cfg); err != nil {
		if _, rerr := s.settings.SaveSettings(ctx, prev); rerr != nil {
			s.logger.Error("Failed to restore previous settings", logfields.Error(rerr))
		}
		return store.Settings{}, err
	}

	s.logger.Info("Auto-update enabled",
		logfields.Interval(cfg.Interval),
		logfields.Source(cfg.Locator().String()))
	return saved, nil
}

// checkStructure runs the pre-flight check requested by cfg.CheckStructure.
func (s *Scheduler) checkStructure(ctx context.Context, cfg AutoUpdateConfig) error {
	if !cfg.CheckStructure {
		return nil
	}
	if cfg.Source.Kind() != testcase.KindFile {
		return errors.NotImplemented("structure validation is only available for file sources").
			WithContext("source_type", string(cfg.Source)).Build()
	}
	if s.validator == nil {
		return errors.InternalError("no structure validator configured").Build()
	}
	return s.validator.ValidateStructure(ctx, cfg.FilePath, cfg.SheetName)
}

// discardStale drops queued jobs of key that collect a source other than
// current. A job already running is left to finish.
func (s *Scheduler) discardStale(ctx context.Context, key string, current testcase.Locator) {
	ids, err := s.queue.DiscardPending(ctx, key, func(j *queue.Job) bool { return j.Source != current })
	if err != nil {
		s.logger.Warn("Failed to discard pending collection of previous source",
			logfields.ScheduleName(key), logfields.Error(err))
		return
	}
	if len(ids) > 0 {
		s.logger.Info("Discarded pending collection of previous source",
			logfields.ScheduleName(key),
			logfields.Source(current.String()),
			slog.Int("jobs", len(ids)))
	}
}

// DisableAutoUpdate removes every repeatable registration and stores
// autoUpdateEnabled=false. Jobs already queued or running are left alone.
func (s *Scheduler) DisableAutoUpdate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.registry {
		s.removeLocked(key)
	}
	if err := s.settings.SetAutoUpdate(ctx, false); err != nil {
		return err
	}
	s.logger.Info("Auto-update disabled")
	return nil
}

// UpdateInterval re-enables auto-update with a new interval and the stored
// source. It fails with a not-enabled error while auto-update is off. The
// enabled check and the re-registration both run under s.mu.
func (s *Scheduler) UpdateInterval(ctx context.Context, minutes int) (store.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.settings.Settings(ctx)
	if err != nil {
		return store.Settings{}, err
	}
	if !current.AutoUpdateEnabled {
		return store.Settings{}, errors.NotEnabled("auto-update is not enabled").Build()
	}
	cfg := configFromSettings(current, minutes)
	if err := cfg.Validate(); err != nil {
		return store.Settings{}, err
	}
	return s.enableLocked(ctx, current, cfg)
}

// TriggerManual enqueues a one-shot, high priority, single attempt
// collection that is removed once it completes.
func (s *Scheduler) TriggerManual(ctx context.Context, loc testcase.Locator) (*queue.Job, error) {
	job, err := s.queue.Enqueue(ctx, queue.Spec{
		Name:             JobName,
		Source:           loc,
		Manual:           true,
		Priority:         queue.PriorityHigh,
		Policy:           retry.Once(),
		RemoveOnComplete: true,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Manual collection triggered", logfields.JobID(job.ID), logfields.Source(loc.String()))
	return job, nil
}

// TriggerSourceChanged enqueues a collection after the source file changed.
// It is a no-op while a previous watch job is still pending.
func (s *Scheduler) TriggerSourceChanged(ctx context.Context, loc testcase.Locator) (*queue.Job, error) {
	job, err := s.queue.Enqueue(ctx, queue.Spec{
		Name:     JobName,
		Key:      WatchKey,
		Source:   loc,
		Schedule: "on change",
		Policy:   s.policy,
	})
	if stderrors.Is(err, queue.ErrKeyBusy) {
		return nil, nil
	}
	return job, err
}

// registerLocked replaces the registration under key. The old registration
// is removed before the new one is added so two never coexist.
func (s *Scheduler) registerLocked(key string, cfg AutoUpdateConfig) error {
	prev, hadPrev := s.registry[key]
	s.removeLocked(key)

	job, err := s.newCronJob(key, cfg.Locator(), cfg.Interval)
	if err != nil {
		if hadPrev {
			if old, rerr := s.newCronJob(key, prev.source, prev.interval); rerr == nil {
				s.registry[key] = registration{id: old.ID(), interval: prev.interval, source: prev.source, since: prev.since}
			}
		}
		return errors.WrapError(err, errors.CategoryRuntime, "failed to register repeatable collection").
			WithContext("key", key).Build()
	}

	s.registry[key] = registration{id: job.ID(), interval: cfg.Interval, source: cfg.Locator(), since: s.clock.Now()}
	s.logger.Debug("Registered repeatable collection",
		logfields.ScheduleName(key),
		logfields.ScheduleID(job.ID().String()),
		logfields.Interval(cfg.Interval))
	return nil
}

func (s *Scheduler) newCronJob(key string, loc testcase.Locator, interval int) (gocron.Job, error) {
	return s.cron.NewJob(
		gocron.DurationJob(time.Duration(interval)*s.unit),
		gocron.NewTask(s.fire, key, loc, interval),
		gocron.WithName(key),
		gocron.WithTags(key),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
}

func (s *Scheduler) removeLocked(key string) {
	reg, ok := s.registry[key]
	if !ok {
		return
	}
	delete(s.registry, key)
	if err := s.cron.RemoveJob(reg.id); err != nil && !stderrors.Is(err, gocron.ErrJobNotFound) {
		s.logger.Warn("Failed to remove repeatable collection", logfields.ScheduleName(key), logfields.Error(err))
	}
}

// fire runs on every tick of a registration.
func (s *Scheduler) fire(key string, loc testcase.Locator, interval int) {
	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()

	_, err := s.queue.Enqueue(ctx, queue.Spec{
		Name:     JobName,
		Key:      key,
		Source:   loc,
		Schedule: fmt.Sprintf("every %d minutes", interval),
		Policy:   s.policy,
	})
	switch {
	case err == nil:
	case stderrors.Is(err, queue.ErrKeyBusy):
		s.logger.Info("Skipping scheduled collection; previous run still pending", logfields.ScheduleName(key))
	default:
		s.logger.Error("Failed to enqueue scheduled collection", logfields.ScheduleName(key), logfields.Error(err))
	}
}
