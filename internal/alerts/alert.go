// Package alerts records and publishes operator alerts raised when
// scheduled collection gives up on a job.
package alerts

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/tccollector/internal/testcase"
)

// Type classifies an alert.
type Type string

const TypeCollectionFailed Type = "COLLECTION_FAILED"

// Severity ranks an alert.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Details describes the job that caused the alert.
type Details struct {
	JobID     string           `json:"jobId"`
	Source    testcase.Locator `json:"source"`
	Error     string           `json:"error"`
	Attempts  int              `json:"attempts"`
	Timestamp time.Time        `json:"timestamp"`
}

// Alert is a persisted operator notification.
type Alert struct {
	ID           int64     `json:"id"`
	Type         Type      `json:"type"`
	Severity     Severity  `json:"severity"`
	Message      string    `json:"message"`
	Details      Details   `json:"details"`
	Acknowledged bool      `json:"acknowledged"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CollectionFailed builds the alert raised when a scheduled job exhausts its attempts.
func CollectionFailed(jobID string, source testcase.Locator, cause string, attempts int, at time.Time) Alert {
	return Alert{
		Type:     TypeCollectionFailed,
		Severity: SeverityCritical,
		Message:  fmt.Sprintf("Data collection failed after %d attempts", attempts),
		Details: Details{
			JobID:     jobID,
			Source:    source,
			Error:     cause,
			Attempts:  attempts,
			Timestamp: at,
		},
		CreatedAt: at,
	}
}

// Filter narrows ListAlerts.
type Filter struct {
	UnacknowledgedOnly bool
	Limit              int
}

// Repository persists alerts.
type Repository interface {
	CreateAlert(ctx context.Context, a Alert) (Alert, error)
	ListAlerts(ctx context.Context, f Filter) ([]Alert, error)
	AcknowledgeAlert(ctx context.Context, id int64) error
}

// Sink receives raised alerts.
type Sink interface {
	Raise(ctx context.Context, a Alert) (Alert, error)
}
