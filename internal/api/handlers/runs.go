package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Mutombwa/bard-reco/internal/api/dto"
	"github.com/Mutombwa/bard-reco/internal/infrastructure/storage"
)

// RunsHandler handles run-history HTTP requests.
type RunsHandler struct {
	*Base
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(repo storage.Repository) *RunsHandler {
	return &RunsHandler{
		Base: NewBase(repo),
	}
}

// List handles GET /api/runs - returns recorded runs, newest first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := storage.RunFilters{
		Mode:     r.URL.Query().Get("mode"),
		DaysBack: ParseIntParam(r, "days", 0),
		Limit:    ParseIntParam(r, "limit", 50),
		Offset:   ParseIntParam(r, "offset", 0),
	}

	result, err := h.repo.ListRuns(filters)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	response := dto.RunListResponse{
		Runs:       make([]dto.RunResponse, 0, len(result.Runs)),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	}
	for _, run := range result.Runs {
		response.Runs = append(response.Runs, toRunResponse(run))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/runs/{id} - returns a single run by run ID.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("run ID is required"))
		return
	}

	run, err := h.repo.GetRun(id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	if run == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("run"))
		return
	}

	h.WriteJSON(w, http.StatusOK, toRunResponse(run))
}

// toRunResponse converts a storage RunRecord to an API response.
func toRunResponse(run *storage.RunRecord) dto.RunResponse {
	return dto.RunResponse{
		RunID:              run.RunID,
		Mode:               run.Mode,
		StartedAt:          run.StartedAt.UTC().Format(time.RFC3339),
		DurationMs:         run.DurationMs,
		TotalLedger:        run.TotalLedger,
		TotalStatement:     run.TotalStatement,
		PerfectMatches:     run.PerfectMatches,
		FuzzyMatches:       run.FuzzyMatches,
		SplitMatches:       run.SplitMatches,
		ForeignCredits:     run.ForeignCredits,
		SettlementMatches:  run.SettlementMatches,
		UnmatchedLedger:    run.UnmatchedLedger,
		UnmatchedStatement: run.UnmatchedStatement,
		Excluded:           run.Excluded,
		Incomplete:         run.Incomplete,
	}
}
