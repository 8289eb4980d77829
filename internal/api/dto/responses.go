package dto

import (
	"time"

	"github.com/Mutombwa/bard-reco/internal/domain/recon"
)

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// ReconcileResponse wraps a completed engine run.
type ReconcileResponse struct {
	Result *recon.Result `json:"result"`
}

// RunResponse represents a recorded run in API responses.
type RunResponse struct {
	RunID              string `json:"run_id"`
	Mode               string `json:"mode"`
	StartedAt          string `json:"started_at"`
	DurationMs         int64  `json:"duration_ms"`
	TotalLedger        int    `json:"total_ledger"`
	TotalStatement     int    `json:"total_statement"`
	PerfectMatches     int    `json:"perfect_matches"`
	FuzzyMatches       int    `json:"fuzzy_matches"`
	SplitMatches       int    `json:"split_matches"`
	ForeignCredits     int    `json:"foreign_credits"`
	SettlementMatches  int    `json:"settlement_matches"`
	UnmatchedLedger    int    `json:"unmatched_ledger"`
	UnmatchedStatement int    `json:"unmatched_statement"`
	Excluded           int    `json:"excluded"`
	Incomplete         bool   `json:"incomplete"`
}

// RunListResponse is returned when listing runs.
type RunListResponse struct {
	Runs       []RunResponse `json:"runs"`
	TotalCount int           `json:"total_count"`
	Limit      int           `json:"limit"`
	Offset     int           `json:"offset"`
}

// StatsResponse is returned by the stats endpoint.
type StatsResponse struct {
	TotalRuns       int   `json:"total_runs"`
	IncompleteRuns  int   `json:"incomplete_runs"`
	TotalGroups     int   `json:"total_groups"`
	AvgDurationMs   int64 `json:"avg_duration_ms"`
	TotalLedgerRows int   `json:"total_ledger_rows"`
}
