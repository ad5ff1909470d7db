// Package queue is the durable job queue behind collection scheduling: a
// worker pool over prioritized jobs with bounded retries, delayed
// re-attempts, per-key exclusivity, stall detection and bounded retention.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/tccollector/internal/events"
	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
	"git.home.luguber.info/inful/tccollector/internal/logfields"
	"git.home.luguber.info/inful/tccollector/internal/metrics"
	"git.home.luguber.info/inful/tccollector/internal/observability"
	"git.home.luguber.info/inful/tccollector/internal/retry"
)

const (
	DefaultWorkers        = 1
	DefaultMaxSize        = 100
	DefaultStallThreshold = 30 * time.Second
	DefaultKeepCompleted  = 20
	DefaultKeepFailed     = 50

	publishTimeout = 5 * time.Second
)

var (
	// ErrKeyBusy is returned by Enqueue when the key already has a pending job.
	ErrKeyBusy = errors.QueueError("a job with this key is already pending").Build()
	// ErrQueueFull is returned by Enqueue when MaxSize pending jobs are held.
	ErrQueueFull = errors.QueueError("queue is full").Retryable().Build()
	// ErrStopped is returned by Enqueue after Stop.
	ErrStopped = errors.QueueError("queue is stopped").Build()
)

// ProgressFunc reports processing progress. Each call refreshes the job heartbeat.
type ProgressFunc func(stage string, percent int)

// Processor executes one attempt of a job. The job is a copy.
type Processor interface {
	Process(ctx context.Context, job *Job, progress ProgressFunc) (any, error)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, job *Job, progress ProgressFunc) (any, error)

func (f ProcessorFunc) Process(ctx context.Context, job *Job, progress ProgressFunc) (any, error) {
	return f(ctx, job, progress)
}

// Options configures a Queue. Zero values take defaults.
type Options struct {
	Workers        int
	MaxSize        int
	StallThreshold time.Duration
	KeepCompleted  int
	KeepFailed     int
	Clock          clockwork.Clock
	Bus            *events.Bus
	Recorder       metrics.Recorder
	Persister      Persister
	Logger         *slog.Logger
}

// Queue manages collection jobs.
type Queue struct {
	processor      Processor
	workers        int
	maxSize        int
	stallThreshold time.Duration
	keepCompleted  int
	keepFailed     int
	clock          clockwork.Clock
	bus            *events.Bus
	recorder       metrics.Recorder
	persister      Persister
	logger         *slog.Logger

	mu       sync.Mutex
	jobs     map[string]*Job
	timers   map[string]clockwork.Timer
	cancels  map[string]context.CancelFunc
	seq      int64
	paused   bool
	started  bool
	stopping bool

	wake     chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a queue that runs jobs through processor.
func New(processor Processor, opts Options) *Queue {
	if processor == nil {
		panic("queue.New: processor is required")
	}
	q := &Queue{
		processor:      processor,
		workers:        opts.Workers,
		maxSize:        opts.MaxSize,
		stallThreshold: opts.StallThreshold,
		keepCompleted:  opts.KeepCompleted,
		keepFailed:     opts.KeepFailed,
		clock:          opts.Clock,
		bus:            opts.Bus,
		recorder:       opts.Recorder,
		persister:      opts.Persister,
		logger:         opts.Logger,
		jobs:           make(map[string]*Job),
		timers:         make(map[string]clockwork.Timer),
		cancels:        make(map[string]context.CancelFunc),
		wake:           make(chan struct{}, 1),
		stopCh:         make(chan struct{}),
	}
	if q.workers <= 0 {
		q.workers = DefaultWorkers
	}
	if q.maxSize <= 0 {
		q.maxSize = DefaultMaxSize
	}
	if q.stallThreshold <= 0 {
		q.stallThreshold = DefaultStallThreshold
	}
	if q.keepCompleted <= 0 {
		q.keepCompleted = DefaultKeepCompleted
	}
	if q.keepFailed <= 0 {
		q.keepFailed = DefaultKeepFailed
	}
	if q.clock == nil {
		q.clock = clockwork.NewRealClock()
	}
	if q.recorder == nil {
		q.recorder = metrics.NoopRecorder{}
	}
	if q.persister == nil {
		q.persister = NoopPersister{}
	}
	if q.logger == nil {
		q.logger = slog.Default()
	}
	return q
}

// Restore reloads persisted jobs. Jobs found active were interrupted and go
// back to waiting; delayed jobs are re-armed. Call before Start.
func (q *Queue) Restore(ctx context.Context) error {
	loaded, err := q.persister.LoadJobs(ctx)
	if err != nil {
		return errors.WrapError(err, errors.CategoryQueue, "failed to restore jobs").Build()
	}
	now := q.clock.Now()

	q.mu.Lock()
	var changed []*Job
	for _, j := range loaded {
		if _, exists := q.jobs[j.ID]; exists {
			continue
		}
		switch j.State {
		case StateActive:
			j.State = StateWaiting
			if j.Attempts > 0 {
				j.Attempts--
			}
			j.HeartbeatAt = nil
			changed = append(changed, j)
		case StateDelayed:
			if j.RunAt == nil || !j.RunAt.After(now) {
				j.State = StateWaiting
				j.RunAt = nil
				changed = append(changed, j)
			} else {
				q.armTimerLocked(j.ID, j.RunAt.Sub(now))
			}
		}
		if j.Seq > q.seq {
			q.seq = j.Seq
		}
		q.jobs[j.ID] = j
	}
	removed := append(q.trimLocked(StateCompleted, q.keepCompleted), q.trimLocked(StateFailed, q.keepFailed)...)
	snaps := cloneAll(changed)
	q.mu.Unlock()

	for _, s := range snaps {
		q.persist(ctx, s)
	}
	q.forget(ctx, removed)
	q.logger.Info("Restored queue", slog.Int("jobs", len(loaded)), slog.Int("requeued", len(snaps)))
	q.signal()
	q.reportDepth()
	return nil
}

// Start launches the workers and the stall monitor.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	q.logger.Info("Starting job queue", slog.Int("workers", q.workers), slog.Int("max_size", q.maxSize))
	for i := range q.workers {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
	q.wg.Add(1)
	go q.monitorStalls(ctx)
}

// Stop cancels active attempts, which return to waiting, and waits for the
// workers until ctx is done.
func (q *Queue) Stop(ctx context.Context) {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.stopping = true
		for _, cancel := range q.cancels {
			cancel()
		}
		for id, t := range q.timers {
			t.Stop()
			delete(q.timers, id)
		}
		q.mu.Unlock()
		close(q.stopCh)
	})

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		q.logger.Warn("Queue stop timed out with active jobs")
	}
}

// Enqueue adds a job. A keyed job is refused with ErrKeyBusy while another
// job with the same key is waiting, delayed or active.
func (q *Queue) Enqueue(ctx context.Context, spec Spec) (*Job, error) {
	if spec.Name == "" {
		return nil, errors.ValidationError("job name is required").Build()
	}
	policy := spec.Policy
	if policy.MaxAttempts < 1 {
		policy = retry.DefaultPolicy()
	}
	priority := spec.Priority
	if priority == 0 {
		priority = PriorityNormal
	}
	now := q.clock.Now()

	q.mu.Lock()
	if q.stopping {
		q.mu.Unlock()
		return nil, ErrStopped
	}
	if spec.Key != "" {
		if existing := q.pendingByKeyLocked(spec.Key); existing != nil {
			ref := existing.Ref()
			q.mu.Unlock()
			q.recorder.IncJobOutcome(metrics.OutcomeSkipped)
			q.publish(events.JobSkipped{Ref: ref, At: now})
			return nil, ErrKeyBusy.WithContext("key", spec.Key).WithContext("job_id", existing.ID)
		}
	}
	if q.pendingCountLocked() >= q.maxSize {
		q.mu.Unlock()
		return nil, ErrQueueFull.WithContext("max_size", q.maxSize)
	}

	q.seq++
	job := &Job{
		ID:               uuid.NewString(),
		Name:             spec.Name,
		Key:              spec.Key,
		Source:           spec.Source,
		Manual:           spec.Manual,
		Priority:         priority,
		Schedule:         spec.Schedule,
		Policy:           policy,
		RemoveOnComplete: spec.RemoveOnComplete,
		State:            StateWaiting,
		CreatedAt:        now,
		Seq:              q.seq,
	}
	if job.Schedule == "" {
		job.Schedule = "once"
	}
	if spec.Delay > 0 {
		runAt := now.Add(spec.Delay)
		job.RunAt = &runAt
		job.State = StateDelayed
		q.armTimerLocked(job.ID, spec.Delay)
	}
	q.jobs[job.ID] = job
	snap := job.Clone()
	q.mu.Unlock()

	q.persist(ctx, snap)
	q.publish(events.JobAdded{Ref: snap.Ref(), RunAt: derefTime(snap.RunAt), At: now})
	q.logger.Debug("Job enqueued",
		logfields.JobID(snap.ID),
		logfields.JobName(snap.Name),
		logfields.JobKey(snap.Key),
		logfields.JobPriority(int(snap.Priority)),
		logfields.Source(snap.Source.String()))
	q.signal()
	q.reportDepth()
	return snap, nil
}

// Get returns a copy of the job.
func (q *Queue) Get(id string) (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.jobs[id]
	if !ok {
		return nil, false
	}
	return j.Clone(), true
}

// HasPending reports whether key has a waiting, delayed or active job.
func (q *Queue) HasPending(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pendingByKeyLocked(key) != nil
}

// Counts returns the number of jobs per state.
func (q *Queue) Counts() Counts {
	q.mu.Lock()
	defer q.mu.Unlock()
	c := Counts{Paused: q.paused}
	for _, j := range q.jobs {
		switch j.State {
		case StateWaiting:
			c.Waiting++
		case StateActive:
			c.Active++
		case StateDelayed:
			c.Delayed++
		case StateCompleted:
			c.Completed++
		case StateFailed:
			c.Failed++
		}
	}
	return c
}

// Recent returns up to n jobs across all states, newest first. n <= 0 returns all.
func (q *Queue) Recent(n int) []*Job {
	q.mu.Lock()
	out := make([]*Job, 0, len(q.jobs))
	for _, j := range q.jobs {
		out = append(out, j.Clone())
	}
	q.mu.Unlock()

	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.After(out[b].CreatedAt)
		}
		return out[a].Seq > out[b].Seq
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Clean removes completed and failed jobs that finished more than age ago.
func (q *Queue) Clean(ctx context.Context, age time.Duration) (int, error) {
	cutoff := q.clock.Now().Add(-age)

	q.mu.Lock()
	var ids []string
	for id, j := range q.jobs {
		if j.State.Finished() && j.FinishedAt != nil && j.FinishedAt.Before(cutoff) {
			ids = append(ids, id)
			delete(q.jobs, id)
		}
	}
	q.mu.Unlock()

	if len(ids) > 0 {
		if err := q.persister.DeleteJobs(ctx, ids); err != nil {
			return len(ids), errors.WrapError(err, errors.CategoryQueue, "failed to delete cleaned jobs").Build()
		}
	}
	q.reportDepth()
	return len(ids), nil
}

// DiscardPending removes the waiting and delayed jobs of key accepted by
// match (nil matches all) and returns their ids. Active jobs are not touched.
func (q *Queue) DiscardPending(ctx context.Context, key string, match func(*Job) bool) ([]string, error) {
	q.mu.Lock()
	var ids []string
	for id, j := range q.jobs {
		if j.Key != key || (j.State != StateWaiting && j.State != StateDelayed) {
			continue
		}
		if match != nil && !match(j) {
			continue
		}
		if t, ok := q.timers[id]; ok {
			t.Stop()
			delete(q.timers, id)
		}
		delete(q.jobs, id)
		ids = append(ids, id)
	}
	q.mu.Unlock()

	if len(ids) == 0 {
		return nil, nil
	}
	q.reportDepth()
	if err := q.persister.DeleteJobs(ctx, ids); err != nil {
		return ids, errors.WrapError(err, errors.CategoryQueue, "failed to delete discarded jobs").Build()
	}
	return ids, nil
}

// Pause stops workers from picking up new jobs. Active jobs finish.
func (q *Queue) Pause() {
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
	q.logger.Info("Queue paused")
}

// Resume lets workers pick up jobs again.
func (q *Queue) Resume() {
	q.mu.Lock()
	q.paused = false
	q.mu.Unlock()
	q.logger.Info("Queue resumed")
	q.signal()
}

// Paused reports whether the queue is paused.
func (q *Queue) Paused() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.paused
}

func (q *Queue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stopCh:
			return
		default:
		}

		if job := q.next(); job != nil {
			q.process(ctx, job, id)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-q.stopCh:
			return
		case <-q.wake:
		}
	}
}

// next activates the highest-priority, oldest waiting job.
func (q *Queue) next() *Job {
	q.mu.Lock()
	if q.paused || q.stopping {
		q.mu.Unlock()
		return nil
	}
	var best *Job
	waiting := 0
	for _, j := range q.jobs {
		if j.State != StateWaiting {
			continue
		}
		waiting++
		if best == nil || j.Priority > best.Priority || (j.Priority == best.Priority && j.Seq < best.Seq) {
			best = j
		}
	}
	if best == nil {
		q.mu.Unlock()
		return nil
	}
	now := q.clock.Now()
	best.State = StateActive
	best.Attempts++
	best.ProcessedAt = &now
	hb := now
	best.HeartbeatAt = &hb
	best.stalled = false
	best.Progress = 0
	best.Stage = ""
	snap := best.Clone()
	q.mu.Unlock()

	if waiting > 1 {
		q.signal()
	}
	q.persist(context.Background(), snap)
	q.publish(events.JobActive{Ref: snap.Ref(), At: now})
	q.reportDepth()
	return snap
}

func (q *Queue) process(ctx context.Context, job *Job, worker int) {
	jobCtx, cancel := context.WithCancel(observability.WithJob(ctx, job.ID, job.Key, job.Attempts))
	q.mu.Lock()
	q.cancels[job.ID] = cancel
	q.mu.Unlock()
	defer func() {
		q.mu.Lock()
		delete(q.cancels, job.ID)
		q.mu.Unlock()
		cancel()
	}()

	q.logger.Info("Processing job",
		logfields.JobID(job.ID),
		logfields.JobName(job.Name),
		logfields.Attempt(job.Attempts),
		logfields.MaxAttempts(job.MaxAttempts()),
		logfields.Worker(worker),
		logfields.Source(job.Source.String()))

	start := q.clock.Now()
	result, err := q.run(jobCtx, job)
	switch {
	case err == nil:
		q.complete(job.ID, result, q.clock.Since(start))
	case q.isStopping():
		q.requeue(job.ID)
	default:
		q.fail(job.ID, err)
	}
}

func (q *Queue) run(ctx context.Context, job *Job) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.InternalError(fmt.Sprintf("processor panic: %v", r)).Build()
		}
	}()
	return q.processor.Process(ctx, job, q.progressFunc(job.ID))
}

func (q *Queue) progressFunc(id string) ProgressFunc {
	return func(stage string, percent int) {
		now := q.clock.Now()
		q.mu.Lock()
		j, ok := q.jobs[id]
		if !ok || j.State != StateActive {
			q.mu.Unlock()
			return
		}
		j.Stage = stage
		j.Progress = percent
		j.HeartbeatAt = &now
		j.stalled = false
		snap := j.Clone()
		q.mu.Unlock()

		q.persist(context.Background(), snap)
		q.publish(events.JobProgress{Ref: snap.Ref(), Stage: stage, Percent: percent, At: now})
	}
}

func (q *Queue) complete(id string, result any, d time.Duration) {
	var raw json.RawMessage
	if result != nil {
		if b, err := json.Marshal(result); err == nil {
			raw = b
		}
	}
	now := q.clock.Now()

	q.mu.Lock()
	j, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	j.State = StateCompleted
	j.FinishedAt = &now
	j.Result = raw
	var removed []string
	if j.RemoveOnComplete {
		delete(q.jobs, id)
		removed = []string{id}
	} else {
		removed = q.trimLocked(StateCompleted, q.keepCompleted)
	}
	snap := j.Clone()
	q.mu.Unlock()

	if !snap.RemoveOnComplete {
		q.persist(context.Background(), snap)
	}
	q.forget(context.Background(), removed)

	q.recorder.IncJobOutcome(metrics.OutcomeCompleted)
	q.publish(events.JobCompleted{Ref: snap.Ref(), Result: result, Duration: d, At: now})
	q.logger.Info("Job completed",
		logfields.JobID(snap.ID),
		logfields.JobName(snap.Name),
		logfields.Attempt(snap.Attempts),
		logfields.DurationMS(float64(d.Milliseconds())))
	q.reportDepth()
}

func (q *Queue) fail(id string, cause error) {
	category := string(errors.GetCategory(cause))
	retryable := errors.IsRetryable(cause)
	now := q.clock.Now()

	q.mu.Lock()
	j, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	j.LastError = cause.Error()
	j.ErrorCategory = category

	if retryable && j.Policy.CanRetry(j.Attempts) {
		delay := j.Policy.Delay(j.Attempts)
		runAt := now.Add(delay)
		j.RunAt = &runAt
		j.State = StateDelayed
		q.armTimerLocked(id, delay)
		snap := j.Clone()
		q.mu.Unlock()

		q.persist(context.Background(), snap)
		q.recorder.IncRetry(snap.Name)
		q.recorder.IncJobOutcome(metrics.OutcomeRetrying)
		q.publish(events.JobRetryScheduled{Ref: snap.Ref(), Delay: delay, Error: snap.LastError, Category: category, At: now})
		q.logger.Warn("Job attempt failed, retrying",
			logfields.JobID(snap.ID),
			logfields.JobName(snap.Name),
			logfields.Attempt(snap.Attempts),
			logfields.MaxAttempts(snap.MaxAttempts()),
			logfields.Delay(delay),
			logfields.Category(category),
			logfields.Error(cause))
		q.reportDepth()
		return
	}

	j.State = StateFailed
	j.FinishedAt = &now
	removed := q.trimLocked(StateFailed, q.keepFailed)
	snap := j.Clone()
	q.mu.Unlock()

	q.persist(context.Background(), snap)
	q.forget(context.Background(), removed)
	if retryable {
		q.recorder.IncRetryExhausted(snap.Name)
	}
	q.recorder.IncJobOutcome(metrics.OutcomeFailed)
	q.publish(events.JobFailed{Ref: snap.Ref(), Error: snap.LastError, Category: category, At: now})
	q.logger.Error("Job failed",
		logfields.JobID(snap.ID),
		logfields.JobName(snap.Name),
		logfields.Attempt(snap.Attempts),
		logfields.MaxAttempts(snap.MaxAttempts()),
		logfields.Category(category),
		logfields.Error(cause))
	q.reportDepth()
}

// requeue returns an interrupted attempt to waiting without spending it.
func (q *Queue) requeue(id string) {
	q.mu.Lock()
	j, ok := q.jobs[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	j.State = StateWaiting
	if j.Attempts > 0 {
		j.Attempts--
	}
	j.HeartbeatAt = nil
	snap := j.Clone()
	q.mu.Unlock()
	q.persist(context.Background(), snap)
}

func (q *Queue) promote(id string) {
	q.mu.Lock()
	delete(q.timers, id)
	j, ok := q.jobs[id]
	if !ok || j.State != StateDelayed || q.stopping {
		q.mu.Unlock()
		return
	}
	j.State = StateWaiting
	j.RunAt = nil
	snap := j.Clone()
	q.mu.Unlock()

	q.persist(context.Background(), snap)
	q.signal()
	q.reportDepth()
}

func (q *Queue) monitorStalls(ctx context.Context) {
	defer q.wg.Done()
	interval := q.stallThreshold / 2
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := q.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.stopCh:
			return
		case <-ticker.Chan():
			q.checkStalls()
		}
	}
}

// checkStalls flags active jobs whose heartbeat is older than the threshold.
// A job is reported once per stall; it is never failed for stalling.
func (q *Queue) checkStalls() {
	now := q.clock.Now()
	var stalled []events.JobStalled

	q.mu.Lock()
	for _, j := range q.jobs {
		if j.State != StateActive || j.stalled || j.HeartbeatAt == nil {
			continue
		}
		if now.Sub(*j.HeartbeatAt) >= q.stallThreshold {
			j.stalled = true
			stalled = append(stalled, events.JobStalled{Ref: j.Ref(), LastHeartbeat: *j.HeartbeatAt, At: now})
		}
	}
	q.mu.Unlock()

	for _, evt := range stalled {
		q.recorder.IncJobOutcome(metrics.OutcomeStalled)
		q.publish(evt)
		q.logger.Warn("Job stalled",
			logfields.JobID(evt.Ref.ID),
			logfields.JobName(evt.Ref.Name),
			slog.Time("last_heartbeat", evt.LastHeartbeat))
	}
}

func (q *Queue) armTimerLocked(id string, d time.Duration) {
	if t, ok := q.timers[id]; ok {
		t.Stop()
	}
	q.timers[id] = q.clock.AfterFunc(d, func() { q.promote(id) })
}

func (q *Queue) pendingByKeyLocked(key string) *Job {
	for _, j := range q.jobs {
		if j.Key == key && j.State.Pending() {
			return j
		}
	}
	return nil
}

func (q *Queue) pendingCountLocked() int {
	n := 0
	for _, j := range q.jobs {
		if j.State == StateWaiting || j.State == StateDelayed {
			n++
		}
	}
	return n
}

// trimLocked drops the oldest jobs in state beyond keep and returns their ids.
func (q *Queue) trimLocked(state State, keep int) []string {
	var finished []*Job
	for _, j := range q.jobs {
		if j.State == state {
			finished = append(finished, j)
		}
	}
	if len(finished) <= keep {
		return nil
	}
	sort.Slice(finished, func(a, b int) bool {
		ta, tb := derefTime(finished[a].FinishedAt), derefTime(finished[b].FinishedAt)
		if !ta.Equal(tb) {
			return ta.After(tb)
		}
		return finished[a].Seq > finished[b].Seq
	})
	ids := make([]string, 0, len(finished)-keep)
	for _, j := range finished[keep:] {
		delete(q.jobs, j.ID)
		ids = append(ids, j.ID)
	}
	return ids
}

func (q *Queue) isStopping() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopping
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) persist(ctx context.Context, job *Job) {
	if err := q.persister.SaveJob(ctx, job); err != nil {
		q.logger.Warn("Failed to persist job", logfields.JobID(job.ID), logfields.Error(err))
	}
}

func (q *Queue) forget(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	if err := q.persister.DeleteJobs(ctx, ids); err != nil {
		q.logger.Warn("Failed to delete pruned jobs", slog.Int("jobs", len(ids)), logfields.Error(err))
	}
}

func (q *Queue) publish(evt any) {
	if q.bus == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := q.bus.Publish(ctx, evt); err != nil {
		q.logger.Debug("Event not delivered", slog.String("event", fmt.Sprintf("%T", evt)), logfields.Error(err))
	}
}

func (q *Queue) reportDepth() {
	c := q.Counts()
	q.recorder.SetQueueDepth(string(StateWaiting), c.Waiting)
	q.recorder.SetQueueDepth(string(StateActive), c.Active)
	q.recorder.SetQueueDepth(string(StateDelayed), c.Delayed)
	q.recorder.SetQueueDepth(string(StateCompleted), c.Completed)
	q.recorder.SetQueueDepth(string(StateFailed), c.Failed)
}

func cloneAll(jobs []*Job) []*Job {
	out := make([]*Job, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Clone())
	}
	return out
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
