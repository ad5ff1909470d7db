package metrics

import "time"

// ResultLabel enumerates result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
)

// JobOutcome enumerates queue job lifecycle outcomes.
type JobOutcome string

const (
	OutcomeCompleted JobOutcome = "completed"
	OutcomeFailed    JobOutcome = "failed"
	OutcomeRetrying  JobOutcome = "retrying"
	OutcomeStalled   JobOutcome = "stalled"
	OutcomeSkipped   JobOutcome = "skipped"
)

// Recorder defines observability hooks for collection and queue metrics.
type Recorder interface {
	ObserveCollectionDuration(d time.Duration, result ResultLabel)
	AddRecordsCollected(n int)
	IncJobOutcome(outcome JobOutcome)
	IncRetry(jobName string)
	IncRetryExhausted(jobName string)
	IncSyncResult(result ResultLabel)
	SetQueueDepth(state string, n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveCollectionDuration(time.Duration, ResultLabel) {}
func (NoopRecorder) AddRecordsCollected(int)                              {}
func (NoopRecorder) IncJobOutcome(JobOutcome)                             {}
func (NoopRecorder) IncRetry(string)                                      {}
func (NoopRecorder) IncRetryExhausted(string)                             {}
func (NoopRecorder) IncSyncResult(ResultLabel)                            {}
func (NoopRecorder) SetQueueDepth(string, int)                            {}

// ResultOf maps an error to its result label.
func ResultOf(err error) ResultLabel {
	if err != nil {
		return ResultFailed
	}
	return ResultSuccess
}
