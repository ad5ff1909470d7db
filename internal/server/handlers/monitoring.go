package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
	"git.home.luguber.info/inful/tccollector/internal/queue"
	"git.home.luguber.info/inful/tccollector/internal/server/responses"
	"git.home.luguber.info/inful/tccollector/internal/version"
)

// QueueCounter reports job counts for the health endpoint.
type QueueCounter interface {
	Counts() queue.Counts
}

// MonitoringHandlers contains monitoring-related HTTP handlers.
type MonitoringHandlers struct {
	queue        QueueCounter
	startTime    time.Time
	errorAdapter *errors.HTTPErrorAdapter
}

// NewMonitoringHandlers creates a new monitoring handlers instance.
func NewMonitoringHandlers(q QueueCounter, startTime time.Time, logger *slog.Logger) *MonitoringHandlers {
	return &MonitoringHandlers{
		queue:        q,
		startTime:    startTime,
		errorAdapter: errors.NewHTTPErrorAdapter(logger),
	}
}

// HandleHealthCheck handles the health check endpoint.
func (h *MonitoringHandlers) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := responses.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Uptime:    time.Since(h.startTime).Seconds(),
	}
	if h.queue != nil {
		health.Queue = h.queue.Counts()
		if health.Queue.Paused {
			health.Status = "paused"
		}
	}
	writeOrFail(h.errorAdapter, w, r, http.StatusOK, health, "health")
}
