package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ipo_applier/internal/apply"
	apperrors "ipo_applier/internal/errors"
	"ipo_applier/internal/models"
	"ipo_applier/internal/repository"
)

// RunsHandler serves run history and triggers runs.
type RunsHandler struct {
	runs    RunStore
	reports ReportIndex
	trigger RunTrigger
	logger  *zap.Logger
}

// NewRunsHandler creates a new RunsHandler.
func NewRunsHandler(deps *Dependencies) *RunsHandler {
	return &RunsHandler{
		runs:    deps.Runs,
		reports: deps.Reports,
		trigger: deps.Trigger,
		logger:  deps.Logger.Named("runs"),
	}
}

// RunDetail is a run with its account reports.
type RunDetail struct {
	*models.Run
	Reports []*models.AccountReport `json:"reports"`
}

// TriggerResponse is returned when a run was started.
type TriggerResponse struct {
	RunID  string `json:"runId"`
	Status string `json:"status"`
}

// List returns run history, newest first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	p := repository.PageToPagination(page, perPage)

	runs, total, err := h.runs.List(r.Context(), p)
	if err != nil {
		respondError(w, h.logger, apperrors.Internal("listing runs", err))
		return
	}
	respondJSON(w, http.StatusOK, repository.NewPaginatedResult(runs, total, p))
}

// Get returns one run and its reports.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.runs.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, apperrors.Internal("loading run", err))
		return
	}
	if run == nil {
		respondError(w, h.logger, apperrors.NotFound("run"))
		return
	}

	reports, err := h.reports.ListByRun(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, apperrors.Internal("loading reports", err))
		return
	}
	respondJSON(w, http.StatusOK, RunDetail{Run: run, Reports: reports})
}

// Trigger starts a run in the background. Responds 409 while another run is active.
func (h *RunsHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	runID, err := h.trigger.Start(apply.TriggerAPI)
	if err != nil {
		if errors.Is(err, apperrors.ErrRunInProgress) {
			current, _ := h.trigger.Running()
			respondJSON(w, http.StatusConflict, TriggerResponse{RunID: current, Status: "in_progress"})
			return
		}
		respondError(w, h.logger, err)
		return
	}

	h.logger.Info("Run triggered", zap.String("run_id", runID))
	w.Header().Set("Location", "/api/runs/"+runID)
	respondJSON(w, http.StatusAccepted, TriggerResponse{RunID: runID, Status: "started"})
}
