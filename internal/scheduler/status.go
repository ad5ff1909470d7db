package scheduler

import (
	"context"
	"sort"
	"time"

	"git.home.luguber.info/inful/tccollector/internal/queue"
	"git.home.luguber.info/inful/tccollector/internal/store"
	"git.home.luguber.info/inful/tccollector/internal/testcase"
)

// Registration describes an active repeatable collection.
type Registration struct {
	Key          string           `json:"key"`
	Interval     int              `json:"interval"`
	Source       testcase.Locator `json:"source"`
	RegisteredAt time.Time        `json:"registeredAt"`
	NextRun      *time.Time       `json:"nextRun,omitempty"`
}

// Status is the combined queue, settings and registry view.
type Status struct {
	Queue            queue.Counts   `json:"queue"`
	Settings         store.Settings `json:"settings"`
	NextCollectionAt *time.Time     `json:"nextCollectionAt,omitempty"`
	Registrations    []Registration `json:"registrations"`
}

// Status reports queue counts, the stored settings and the registry.
func (s *Scheduler) Status(ctx context.Context) (Status, error) {
	settings, err := s.settings.Settings(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Queue:            s.queue.Counts(),
		Settings:         settings,
		NextCollectionAt: settings.NextCollectionAt(),
		Registrations:    s.Registrations(),
	}, nil
}

// Counts returns the number of jobs per state and the paused flag.
func (s *Scheduler) Counts() queue.Counts {
	return s.queue.Counts()
}

// Registrations lists the repeatable collections, ordered by key.
func (s *Scheduler) Registrations() []Registration {
	s.mu.Lock()
	out := make([]Registration, 0, len(s.registry))
	for key, reg := range s.registry {
		out = append(out, Registration{
			Key:          key,
			Interval:     reg.interval,
			Source:       reg.source,
			RegisteredAt: reg.since,
		})
	}
	s.mu.Unlock()

	next := make(map[string]time.Time)
	for _, j := range s.cron.Jobs() {
		if t, err := j.NextRun(); err == nil && !t.IsZero() {
			next[j.Name()] = t
		}
	}
	for i := range out {
		if t, ok := next[out[i].Key]; ok {
			out[i].NextRun = &t
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Key < out[b].Key })
	return out
}

// RecentJobs returns up to n jobs across all states, newest first.
func (s *Scheduler) RecentJobs(n int) []*queue.Job {
	if n <= 0 {
		n = DefaultRecentJobs
	}
	return s.queue.Recent(n)
}

// Job returns one job by ID.
func (s *Scheduler) Job(id string) (*queue.Job, bool) {
	return s.queue.Get(id)
}

// CleanOldJobs removes completed and failed jobs that finished more than
// days ago and returns how many were removed.
func (s *Scheduler) CleanOldJobs(ctx context.Context, days int) (int, error) {
	if days <= 0 {
		days = DefaultCleanDays
	}
	n, err := s.queue.Clean(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		return n, err
	}
	s.logger.Info("Cleaned old jobs", "days", days, "removed", n)
	return n, nil
}

// Pause stops workers from taking new jobs.
func (s *Scheduler) Pause() { s.queue.Pause() }

// Resume restarts job pickup after Pause.
func (s *Scheduler) Resume() { s.queue.Resume() }
