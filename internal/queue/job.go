package queue

import (
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/tccollector/internal/events"
	"git.home.luguber.info/inful/tccollector/internal/retry"
	"git.home.luguber.info/inful/tccollector/internal/testcase"
)

// State is the lifecycle position of a job.
type State string

const (
	StateWaiting   State = "waiting"
	StateActive    State = "active"
	StateDelayed   State = "delayed"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Finished reports whether s is terminal.
func (s State) Finished() bool {
	return s == StateCompleted || s == StateFailed
}

// Pending reports whether a job in state s still holds its key.
func (s State) Pending() bool {
	return s == StateWaiting || s == StateActive || s == StateDelayed
}

// Priority orders waiting jobs; higher runs first.
type Priority int

const (
	PriorityNormal Priority = 2
	PriorityHigh   Priority = 3
)

// Job is one collection job.
type Job struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Key              string           `json:"key,omitempty"`
	Source           testcase.Locator `json:"source"`
	Manual           bool             `json:"manual"`
	Priority         Priority         `json:"priority"`
	Schedule         string           `json:"schedule"`
	Policy           retry.Policy     `json:"policy"`
	RemoveOnComplete bool             `json:"removeOnComplete,omitempty"`
	State            State            `json:"state"`
	Attempts         int              `json:"attempts"`
	Progress         int              `json:"progress"`
	Stage            string           `json:"stage,omitempty"`
	LastError        string           `json:"lastError,omitempty"`
	ErrorCategory    string           `json:"errorCategory,omitempty"`
	Result           json.RawMessage  `json:"result,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	RunAt            *time.Time       `json:"runAt,omitempty"`
	ProcessedAt      *time.Time       `json:"processedAt,omitempty"`
	HeartbeatAt      *time.Time       `json:"heartbeatAt,omitempty"`
	FinishedAt       *time.Time       `json:"finishedAt,omitempty"`
	Seq              int64            `json:"seq"`

	stalled bool
}

// MaxAttempts is the attempt budget of the job's policy.
func (j *Job) MaxAttempts() int {
	return j.Policy.MaxAttempts
}

// Clone returns a deep copy safe to hand outside the queue lock.
func (j *Job) Clone() *Job {
	cp := *j
	cp.Result = append(json.RawMessage(nil), j.Result...)
	cp.RunAt = cloneTime(j.RunAt)
	cp.ProcessedAt = cloneTime(j.ProcessedAt)
	cp.HeartbeatAt = cloneTime(j.HeartbeatAt)
	cp.FinishedAt = cloneTime(j.FinishedAt)
	return &cp
}

// Ref is the event view of the job.
func (j *Job) Ref() events.JobRef {
	return events.JobRef{
		ID:          j.ID,
		Name:        j.Name,
		Key:         j.Key,
		Manual:      j.Manual,
		Source:      j.Source.String(),
		Attempt:     j.Attempts,
		MaxAttempts: j.Policy.MaxAttempts,
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// Spec describes a job to enqueue.
type Spec struct {
	Name             string
	Key              string // at most one pending job per key
	Source           testcase.Locator
	Manual           bool
	Priority         Priority
	Schedule         string
	Policy           retry.Policy
	RemoveOnComplete bool
	Delay            time.Duration
}

// Counts is the number of jobs per state.
type Counts struct {
	Waiting   int  `json:"waiting"`
	Active    int  `json:"active"`
	Completed int  `json:"completed"`
	Failed    int  `json:"failed"`
	Delayed   int  `json:"delayed"`
	Paused    bool `json:"paused"`
}
