package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"git.home.luguber.info/inful/tccollector/internal/alerts"
	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
	"git.home.luguber.info/inful/tccollector/internal/server/responses"
)

// AlertHandlers serves /api/alerts.
type AlertHandlers struct {
	repo         alerts.Repository
	errorAdapter *errors.HTTPErrorAdapter
}

// NewAlertHandlers creates the alert endpoint handlers.
func NewAlertHandlers(repo alerts.Repository, logger *slog.Logger) *AlertHandlers {
	return &AlertHandlers{repo: repo, errorAdapter: errors.NewHTTPErrorAdapter(logger)}
}

// HandleList handles GET /api/alerts?unacknowledged=true&limit=N.
func (h *AlertHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	unack, err := boolQuery(r, "unacknowledged")
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	limit, err := intQuery(r, "limit", 0)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	list, err := h.repo.ListAlerts(r.Context(), alerts.Filter{UnacknowledgedOnly: unack, Limit: limit})
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if list == nil {
		list = []alerts.Alert{}
	}
	writeOrFail(h.errorAdapter, w, r, http.StatusOK, responses.AlertsResponse{Alerts: list, Count: len(list)}, "alerts")
}

// HandleAck handles POST /api/alerts/{id}/ack.
func (h *AlertHandlers) HandleAck(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.errorAdapter.WriteErrorResponse(w, r, errors.ValidationError("alert id must be a positive integer").
			WithContext("id", raw).Build())
		return
	}
	if err := h.repo.AcknowledgeAlert(r.Context(), id); err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	writeOrFail(h.errorAdapter, w, r, http.StatusOK, responses.AckResponse{Status: "acknowledged", ID: id}, "ack")
}
