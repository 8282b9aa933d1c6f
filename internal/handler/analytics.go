package handler

import (
	"errors"
	"net/http"

	"github.com/thebackstage/backstage/internal/ctxkeys"
	"github.com/thebackstage/backstage/internal/model"
	"github.com/thebackstage/backstage/internal/service"
)

// AnalyticsHandler takes fire-and-forget counter hits from the gate page
// and serves per-gate totals to the owning artist.
type AnalyticsHandler struct {
	analyticsService  *service.AnalyticsService
	gateService       *service.GateService
	submissionService *service.SubmissionService
}

func NewAnalyticsHandler(
	analyticsService *service.AnalyticsService,
	gateService *service.GateService,
	submissionService *service.SubmissionService,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService:  analyticsService,
		gateService:       gateService,
		submissionService: submissionService,
	}
}

type eventRequest struct {
	GateID    string `json:"gateId"`
	EventType string `json:"type"`
}

// Record handles POST /api/events. The contract with the gate page is
// loose on purpose: a missing gateId is the only 400, everything else is a
// 200 with success true or false. A broken counter must never surface as a
// funnel error.
func (h *AnalyticsHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	err := decodeJSON(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ok, err := h.analyticsService.Record(req.GateID, req.EventType)
	if err != nil {
		if errors.Is(err, service.ErrGateIDRequired) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		ok = false
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": ok})
}

type gateStatsResponse struct {
	Views       int64 `json:"views"`
	Submits     int64 `json:"submits"`
	Downloads   int64 `json:"downloads"`
	Submissions int   `json:"submissions"`
}

// Stats handles GET /api/dashboard/gates/{id}/stats
func (h *AnalyticsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	gateID := r.PathValue("id")

	gate, err := h.gateService.ByID(gateID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if gate.UserID != user.ID {
		writeError(w, http.StatusNotFound, service.ErrGateNotFound.Error())
		return
	}

	totals, err := h.analyticsService.Totals(gate.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	subs, err := h.submissionService.ListForGate(gate.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, gateStatsResponse{
		Views:       totals[model.EventTypeView],
		Submits:     totals[model.EventTypeSubmit],
		Downloads:   totals[model.EventTypeDownload],
		Submissions: len(subs),
	})
}
