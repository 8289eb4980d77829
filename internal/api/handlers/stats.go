package handlers

import (
	"net/http"

	"github.com/Mutombwa/bard-reco/internal/api/dto"
	"github.com/Mutombwa/bard-reco/internal/infrastructure/storage"
)

// StatsHandler handles statistics requests.
type StatsHandler struct {
	*Base
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(repo storage.Repository) *StatsHandler {
	return &StatsHandler{
		Base: NewBase(repo),
	}
}

// Get handles GET /api/stats - returns aggregate run statistics.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetStats()
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.StatsResponse{
		TotalRuns:       stats.TotalRuns,
		IncompleteRuns:  stats.IncompleteRuns,
		TotalGroups:     stats.TotalGroups,
		AvgDurationMs:   stats.AvgDurationMs,
		TotalLedgerRows: stats.TotalLedgerRows,
	})
}
