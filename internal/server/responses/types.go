// Package responses defines request and response types of the tccollector admin API.
package responses

import (
	"time"

	"git.home.luguber.info/inful/tccollector/internal/alerts"
	"git.home.luguber.info/inful/tccollector/internal/queue"
	"git.home.luguber.info/inful/tccollector/internal/store"
	"git.home.luguber.info/inful/tccollector/internal/testcase"
)

// HealthResponse represents the health check API response.
type HealthResponse struct {
	Status    string       `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
	Version   string       `json:"version"`
	Uptime    float64      `json:"uptime"`
	Queue     queue.Counts `json:"queue"`
}

// TriggerRequest is the body of a manual collection trigger. An empty body
// collects from the configured default source.
type TriggerRequest struct {
	Source        testcase.SourceType `json:"source"`
	FilePath      string              `json:"filePath,omitempty"`
	SpreadsheetID string              `json:"spreadsheetId,omitempty"`
	SheetName     string              `json:"sheetName,omitempty"`
}

// Locator converts the request into a collection locator.
func (r TriggerRequest) Locator() testcase.Locator {
	return testcase.Locator{
		Type:          r.Source,
		FilePath:      r.FilePath,
		SpreadsheetID: r.SpreadsheetID,
		SheetName:     r.SheetName,
	}
}

// TriggerResponse represents the response for trigger operations.
type TriggerResponse struct {
	Status string `json:"status"`
	JobID  string `json:"jobId"`
}

// IntervalRequest changes the interval of the active schedule.
type IntervalRequest struct {
	Interval int `json:"interval"`
}

// SettingsResponse is returned by the auto-update endpoints.
type SettingsResponse struct {
	Status           string         `json:"status"`
	Settings         store.Settings `json:"settings"`
	NextCollectionAt *time.Time     `json:"nextCollectionAt,omitempty"`
}

// JobsResponse lists recent jobs, newest first.
type JobsResponse struct {
	Jobs  []*queue.Job `json:"jobs"`
	Count int          `json:"count"`
}

// CleanResponse reports how many finished jobs were removed.
type CleanResponse struct {
	Removed int `json:"removed"`
	Days    int `json:"days"`
}

// QueueStateResponse is returned by pause and resume.
type QueueStateResponse struct {
	Status string       `json:"status"`
	Queue  queue.Counts `json:"queue"`
}

// AlertsResponse lists alerts, newest first.
type AlertsResponse struct {
	Alerts []alerts.Alert `json:"alerts"`
	Count  int            `json:"count"`
}

// AckResponse confirms an acknowledgement.
type AckResponse struct {
	Status string `json:"status"`
	ID     int64  `json:"id"`
}
