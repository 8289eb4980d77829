// Package recon implements the multi-tier transaction reconciliation engine.
//
// Two collections — a ledger (internal books) and a statement (external bank
// feed) — are matched tier by tier: exact key lookup first, then fuzzy
// reference similarity, then combinatorial split matching, with high-value
// statement entries segregated into a foreign-credit bucket. Each tier sees
// only what previous tiers left unmatched, and the match ledger guarantees no
// record is ever consumed twice.
package recon

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side identifies which dataset a record belongs to.
type Side int

const (
	SideLedger Side = iota
	SideStatement
)

func (s Side) String() string {
	if s == SideLedger {
		return "ledger"
	}
	return "statement"
}

// Record is one normalized transaction row. Immutable once ingested; the
// consumed flag lives in the match ledger, not here.
type Record struct {
	ID           int             // original row index, stable across re-runs
	Side         Side            //
	Date         time.Time       // midnight UTC
	Reference    string          // normalized form used for matching
	RawReference string          // original cell value, kept for display
	Amount       decimal.Decimal // signed; ledger debits collapse to negative
}

// MatchKind labels the tier (or settlement stage) that produced a group.
type MatchKind string

const (
	KindPerfect        MatchKind = "perfect"
	KindFuzzy          MatchKind = "fuzzy"
	KindForeignCredit  MatchKind = "foreign_credit"
	KindSplit          MatchKind = "split"
	KindToleranceTier2 MatchKind = "tolerance_tier2"
	KindThresholdTier3 MatchKind = "threshold_tier3"
	KindGroupedTier4   MatchKind = "grouped_tier4"
)

// MatchGroup is one accepted correspondence between ledger and statement
// records. Never modified after registration with the match ledger.
type MatchGroup struct {
	ID           string          `json:"id"`
	Kind         MatchKind       `json:"kind"`
	LedgerIDs    []int           `json:"ledger_ids"`
	StatementIDs []int           `json:"statement_ids"`
	Confidence   int             `json:"confidence"`   // 0..100
	AmountDelta  decimal.Decimal `json:"amount_delta"` // signed residual between sides
}

// Diagnostic records a row excluded from matching because a field failed
// normalization. Excluded rows are reported, never silently dropped.
type Diagnostic struct {
	Side  Side   `json:"-"`
	RowID int    `json:"row_id"`
	Field string `json:"field"`
	Value string `json:"value"`
	Cause string `json:"cause"`
}

// Summary aggregates counts for one run.
type Summary struct {
	TotalLedger        int             `json:"total_ledger"`
	TotalStatement     int             `json:"total_statement"`
	PerfectMatches     int             `json:"perfect_matches"`
	FuzzyMatches       int             `json:"fuzzy_matches"`
	SplitMatches       int             `json:"split_matches"`
	ForeignCredits     int             `json:"foreign_credits"`
	SettlementMatches  int             `json:"settlement_matches"`
	UnmatchedLedger    int             `json:"unmatched_ledger"`
	UnmatchedStatement int             `json:"unmatched_statement"`
	Excluded           int             `json:"excluded"`
	MatchedAmount      decimal.Decimal `json:"matched_amount"`
	UnmatchedAmount    decimal.Decimal `json:"unmatched_amount"`
}

// Result is everything a run produced. Handed back in memory; the engine
// does not persist it.
type Result struct {
	RunID              string        `json:"run_id"`
	Groups             []MatchGroup  `json:"groups"`
	ForeignCredits     []int         `json:"foreign_credits"`     // statement ids
	UnmatchedLedger    []int         `json:"unmatched_ledger"`    // record ids
	UnmatchedStatement []int         `json:"unmatched_statement"` //
	Diagnostics        []Diagnostic  `json:"diagnostics,omitempty"`
	Summary            Summary       `json:"summary"`
	Config             Config        `json:"config"` // configuration actually applied
	Incomplete         bool          `json:"incomplete"`
	Duration           time.Duration `json:"duration"`
}

// ByKind returns the groups produced by one tier, in acceptance order.
func (r *Result) ByKind(kind MatchKind) []MatchGroup {
	var out []MatchGroup
	for _, g := range r.Groups {
		if g.Kind == kind {
			out = append(out, g)
		}
	}
	return out
}
