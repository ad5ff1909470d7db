package events

import "time"

// JobRef identifies the job an event is about.
type JobRef struct {
	ID          string
	Name        string
	Key         string // logical key of repeatable jobs; empty for one-shot jobs
	Manual      bool
	Source      string
	Attempt     int // attempts made so far, including the current one
	MaxAttempts int
}

// JobEvent is implemented by every job lifecycle event. Subscribe to it to
// receive all of them on one channel.
type JobEvent interface {
	Job() JobRef
}

// JobAdded is emitted when a job enters the queue.
type JobAdded struct {
	Ref   JobRef
	RunAt time.Time // zero when runnable immediately
	At    time.Time
}

// JobSkipped is emitted when a keyed job is refused because its key is busy.
type JobSkipped struct {
	Ref JobRef
	At  time.Time
}

// JobActive is emitted when a worker picks a job up.
type JobActive struct {
	Ref JobRef
	At  time.Time
}

// JobProgress reports processor progress. It also refreshes the heartbeat.
type JobProgress struct {
	Ref     JobRef
	Stage   string
	Percent int
	At      time.Time
}

// JobCompleted is emitted after a successful attempt.
type JobCompleted struct {
	Ref      JobRef
	Result   any
	Duration time.Duration
	At       time.Time
}

// JobRetryScheduled is emitted when a failed attempt will be retried after Delay.
type JobRetryScheduled struct {
	Ref      JobRef
	Delay    time.Duration
	Error    string
	Category string
	At       time.Time
}

// JobFailed is emitted once when a job reaches its terminal failed state.
type JobFailed struct {
	Ref      JobRef
	Error    string
	Category string
	At       time.Time
}

// JobStalled is emitted once per stall of an active job.
type JobStalled struct {
	Ref           JobRef
	LastHeartbeat time.Time
	At            time.Time
}

func (e JobAdded) Job() JobRef          { return e.Ref }
func (e JobSkipped) Job() JobRef        { return e.Ref }
func (e JobActive) Job() JobRef         { return e.Ref }
func (e JobProgress) Job() JobRef       { return e.Ref }
func (e JobCompleted) Job() JobRef      { return e.Ref }
func (e JobRetryScheduled) Job() JobRef { return e.Ref }
func (e JobFailed) Job() JobRef         { return e.Ref }
func (e JobStalled) Job() JobRef        { return e.Ref }
