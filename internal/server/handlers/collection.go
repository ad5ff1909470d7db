package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
	"git.home.luguber.info/inful/tccollector/internal/queue"
	"git.home.luguber.info/inful/tccollector/internal/scheduler"
	"git.home.luguber.info/inful/tccollector/internal/server/responses"
	"git.home.luguber.info/inful/tccollector/internal/store"
	"git.home.luguber.info/inful/tccollector/internal/testcase"
)

const defaultJobsCount = 20

// Collection is the scheduler surface the collection endpoints drive.
type Collection interface {
	Status(ctx context.Context) (scheduler.Status, error)
	Counts() queue.Counts
	RecentJobs(n int) []*queue.Job
	Job(id string) (*queue.Job, bool)
	EnableAutoUpdate(ctx context.Context, cfg scheduler.AutoUpdateConfig) (store.Settings, error)
	DisableAutoUpdate(ctx context.Context) error
	UpdateInterval(ctx context.Context, minutes int) (store.Settings, error)
	TriggerManual(ctx context.Context, loc testcase.Locator) (*queue.Job, error)
	CleanOldJobs(ctx context.Context, days int) (int, error)
	Pause()
	Resume()
}

// Defaults fill in requests that omit a source or interval.
type Defaults struct {
	Source   testcase.Locator
	Interval int
}

// CollectionHandlers serves /api/collection.
type CollectionHandlers struct {
	collection   Collection
	defaults     Defaults
	errorAdapter *errors.HTTPErrorAdapter
}

// NewCollectionHandlers creates the collection endpoint handlers.
func NewCollectionHandlers(collection Collection, defaults Defaults, logger *slog.Logger) *CollectionHandlers {
	if defaults.Interval <= 0 {
		defaults.Interval = store.DefaultCollectionInterval
	}
	return &CollectionHandlers{
		collection:   collection,
		defaults:     defaults,
		errorAdapter: errors.NewHTTPErrorAdapter(logger),
	}
}

// HandleStatus handles GET /api/collection/status.
func (h *CollectionHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.collection.Status(r.Context())
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	writeOrFail(h.errorAdapter, w, r, http.StatusOK, status, "status")
}

// HandleJobs handles GET /api/collection/jobs?count=N.
func (h *CollectionHandlers) HandleJobs(w http.ResponseWriter, r *http.Request) {
	count, err := intQuery(r, "count", defaultJobsCount)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	jobs := h.collection.RecentJobs(count)
	writeOrFail(h.errorAdapter, w, r, http.StatusOK, responses.JobsResponse{Jobs: jobs, Count: len(jobs)}, "jobs")
}

// HandleJob handles GET /api/collection/jobs/{id}.
func (h *CollectionHandlers) HandleJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, ok := h.collection.Job(id)
	if !ok {
		h.errorAdapter.WriteErrorResponse(w, r, errors.NotFoundError("job not found").WithContext("job_id", id).Build())
		return
	}
	writeOrFail(h.errorAdapter, w, r, http.StatusOK, job, "job")
}

// HandleEnable handles POST /api/collection/auto-update. A body without a
// source enables collection from the configured default source.
func (h *CollectionHandlers) HandleEnable(w http.ResponseWriter, r *http.Request) {
	var cfg scheduler.AutoUpdateConfig
	present, err := decodeJSON(r, &cfg)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if !present || cfg.Source == "" {
		cfg.Source = h.defaults.Source.Type
		cfg.FilePath = h.defaults.Source.FilePath
		cfg.SpreadsheetID = h.defaults.Source.SpreadsheetID
		cfg.SheetName = h.defaults.Source.SheetName
	}
	if cfg.Interval == 0 {
		cfg.Interval = h.defaults.Interval
	}

	settings, err := h.collection.EnableAutoUpdate(r.Context(), cfg)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	writeOrFail(h.errorAdapter, w, r, http.StatusOK, responses.SettingsResponse{
		Status:           "enabled",
		Settings:         settings,
		NextCollectionAt: settings.NextCollectionAt(),
	}, "enable")
}

// HandleDisable handles DELETE /api/collection/auto-update.
func (h *CollectionHandlers) HandleDisable(w http.ResponseWriter, r *http.Request) {
	if err := h.collection.DisableAutoUpdate(r.Context()); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	status, err := h.collection.Status(r.Context())
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	writeOrFail(h.errorAdapter, w, r, http.StatusOK, responses.SettingsResponse{
		Status:   "disabled",
		Settings: status.Settings,
	}, "disable")
}

// HandleUpdateInterval handles PUT /api/collection/auto-update/interval.
func (h *CollectionHandlers) HandleUpdateInterval(w http.ResponseWriter, r *http.Request) {
	var req responses.IntervalRequest
	present, err := decodeJSON(r, &req)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if !present {
		h.errorAdapter.WriteErrorResponse(w, r, errors.ValidationError("request body with interval is required").Build())
		return
	}

	settings, err := h.collection.UpdateInterval(r.Context(), req.Interval)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	writeOrFail(h.errorAdapter, w, r, http.StatusOK, responses.SettingsResponse{
		Status:           "updated",
		Settings:         settings,
		NextCollectionAt: settings.NextCollectionAt(),
	}, "interval")
}

// HandleTrigger handles POST /api/collection/trigger and answers 202 with the job id.
func (h *CollectionHandlers) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	var req responses.TriggerRequest
	present, err := decodeJSON(r, &req)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	loc := req.Locator()
	if !present || req.Source == "" {
		loc = h.defaults.Source
	}

	job, err := h.collection.TriggerManual(r.Context(), loc)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	writeOrFail(h.errorAdapter, w, r, http.StatusAccepted, responses.TriggerResponse{Status: "queued", JobID: job.ID}, "trigger")
}

// HandleClean handles POST /api/collection/clean?days=N.
func (h *CollectionHandlers) HandleClean(w http.ResponseWriter, r *http.Request) {
	days, err := intQuery(r, "days", scheduler.DefaultCleanDays)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if days <= 0 {
		days = scheduler.DefaultCleanDays
	}
	removed, err := h.collection.CleanOldJobs(r.Context(), days)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	writeOrFail(h.errorAdapter, w, r, http.StatusOK, responses.CleanResponse{Removed: removed, Days: days}, "clean")
}

// HandlePause handles POST /api/collection/pause.
func (h *CollectionHandlers) HandlePause(w http.ResponseWriter, r *http.Request) {
	h.collection.Pause()
	writeOrFail(h.errorAdapter, w, r, http.StatusOK, responses.QueueStateResponse{Status: "paused", Queue: h.collection.Counts()}, "pause")
}

// HandleResume handles POST /api/collection/resume.
func (h *CollectionHandlers) HandleResume(w http.ResponseWriter, r *http.Request) {
	h.collection.Resume()
	writeOrFail(h.errorAdapter, w, r, http.StatusOK, responses.QueueStateResponse{Status: "resumed", Queue: h.collection.Counts()}, "resume")
}
