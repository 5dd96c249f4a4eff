package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/fortuna/huddle/internal/ingest"
	"github.com/fortuna/huddle/internal/runs"
)

const ingestFailedMessage = "Failed to fetch or process games"

// IngestHandler exposes run triggers and run history
type IngestHandler struct {
	runs      RunService
	summaries SummaryReader
	scheduler SchedulerStatus
}

// NewIngestHandler wires the REST layer to the run service. summaries and scheduler may be nil.
func NewIngestHandler(runService RunService, summaries SummaryReader, sched SchedulerStatus) *IngestHandler {
	return &IngestHandler{
		runs:      runService,
		summaries: summaries,
		scheduler: sched,
	}
}

// TriggerDay handles POST /api/fetchAllSports and /api/v1/ingest/day
func (h *IngestHandler) TriggerDay(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, ingest.VariantDay)
}

// TriggerSeason handles POST /api/fetchSchedulesOld and /api/v1/ingest/season
func (h *IngestHandler) TriggerSeason(w http.ResponseWriter, r *http.Request) {
	h.trigger(w, r, ingest.VariantSeason)
}

// trigger runs synchronously; a client disconnect does not abort the run.
func (h *IngestHandler) trigger(w http.ResponseWriter, r *http.Request, variant ingest.Variant) {
	run, summary, err := h.runs.Execute(context.WithoutCancel(r.Context()), variant, runs.TriggerAPI)
	if err != nil {
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": ingestFailedMessage})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Games fetched and processed",
		"count":   summary.Count(),
		"written": summary.Written,
		"run_id":  run.RunID,
	})
}

// ListRuns handles GET /api/v1/ingest/runs
func (h *IngestHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = l
	}

	list, err := h.runs.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch runs", err)
		return
	}
	if list == nil {
		list = []*runs.Run{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  list,
		"count": len(list),
	})
}

// GetRun handles GET /api/v1/ingest/runs/{runID}
func (h *IngestHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.Get(r.Context(), mux.Vars(r)["runID"])
	if errors.Is(err, runs.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Run not found", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch run", err)
		return
	}

	respondJSON(w, http.StatusOK, run)
}

// LastSummary handles GET /api/v1/ingest/last/{variant}
func (h *IngestHandler) LastSummary(w http.ResponseWriter, r *http.Request) {
	variant, err := ingest.ParseVariant(mux.Vars(r)["variant"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Unknown variant", err)
		return
	}

	if h.summaries == nil {
		respondError(w, http.StatusServiceUnavailable, "Summary cache not configured", nil)
		return
	}

	summary, found, err := h.summaries.GetLastSummary(r.Context(), variant)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to read summary", err)
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "No completed run yet", nil)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// SchedulerStatus handles GET /api/v1/scheduler
func (h *IngestHandler) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if h.scheduler == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"enabled": false})
		return
	}
	respondJSON(w, http.StatusOK, h.scheduler.Status())
}
