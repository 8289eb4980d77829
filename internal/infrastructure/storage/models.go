package storage

import (
	"encoding/json"
	"time"

	"github.com/Mutombwa/bard-reco/internal/domain/recon"
)

// Run modes recorded in the audit trail.
const (
	ModeReconcile = "reconcile"
	ModeSettle    = "settle"
)

// RunRecord is the audit summary of one engine run. Only summaries are
// stored; full results stay in memory with the caller.
type RunRecord struct {
	RunID              string    `json:"run_id"`
	Mode               string    `json:"mode"`
	StartedAt          time.Time `json:"started_at"`
	DurationMs         int64     `json:"duration_ms"`
	ConfigJSON         string    `json:"config_json"`
	TotalLedger        int       `json:"total_ledger"`
	TotalStatement     int       `json:"total_statement"`
	PerfectMatches     int       `json:"perfect_matches"`
	FuzzyMatches       int       `json:"fuzzy_matches"`
	SplitMatches       int       `json:"split_matches"`
	ForeignCredits     int       `json:"foreign_credits"`
	SettlementMatches  int       `json:"settlement_matches"`
	UnmatchedLedger    int       `json:"unmatched_ledger"`
	UnmatchedStatement int       `json:"unmatched_statement"`
	Excluded           int       `json:"excluded"`
	Incomplete         bool      `json:"incomplete"`
}

// NewRunRecord builds an audit record from an engine result.
func NewRunRecord(mode string, res *recon.Result) *RunRecord {
	cfgJSON, _ := json.Marshal(res.Config)
	s := res.Summary
	return &RunRecord{
		RunID:              res.RunID,
		Mode:               mode,
		StartedAt:          time.Now().Add(-res.Duration).UTC(),
		DurationMs:         res.Duration.Milliseconds(),
		ConfigJSON:         string(cfgJSON),
		TotalLedger:        s.TotalLedger,
		TotalStatement:     s.TotalStatement,
		PerfectMatches:     s.PerfectMatches,
		FuzzyMatches:       s.FuzzyMatches,
		SplitMatches:       s.SplitMatches,
		ForeignCredits:     s.ForeignCredits,
		SettlementMatches:  s.SettlementMatches,
		UnmatchedLedger:    s.UnmatchedLedger,
		UnmatchedStatement: s.UnmatchedStatement,
		Excluded:           s.Excluded,
		Incomplete:         res.Incomplete,
	}
}

// Stats holds aggregate statistics across all recorded runs.
type Stats struct {
	TotalRuns       int   `json:"total_runs"`
	IncompleteRuns  int   `json:"incomplete_runs"`
	TotalGroups     int   `json:"total_groups"`
	AvgDurationMs   int64 `json:"avg_duration_ms"`
	TotalLedgerRows int   `json:"total_ledger_rows"`
}

// RunListResult contains paginated run results.
type RunListResult struct {
	Runs       []*RunRecord `json:"runs"`
	TotalCount int          `json:"total_count"`
	Limit      int          `json:"limit"`
	Offset     int          `json:"offset"`
}
