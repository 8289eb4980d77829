package recon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Engine runs the tier cascade. One Engine is safe for concurrent runs; all
// per-run state lives in the runState it creates.
type Engine struct {
	cfg Config
	log *slog.Logger
}

// New validates the configuration and returns an engine. Configuration
// problems surface here, before anything runs.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, log: logger}, nil
}

// runState carries one run's mutable state: the shrinking unmatched pools
// and the match ledger. Tiers never touch consumed flags directly.
type runState struct {
	cfg       *Config
	log       *slog.Logger
	ml        *matchLedger
	ledger    []*Record // current unmatched ledger pool, id order
	stmt      []*Record // current unmatched statement pool, id order
	allLedger []*Record // full ingested ledger side, untouched by pruning
	foreign   []int     // statement ids routed to the foreign-credit bucket
}

func newRunState(cfg *Config, log *slog.Logger, ledger, stmt []*Record) *runState {
	return &runState{
		cfg:       cfg,
		log:       log,
		ml:        newMatchLedger(),
		ledger:    append([]*Record(nil), ledger...),
		stmt:      append([]*Record(nil), stmt...),
		allLedger: ledger,
	}
}

// accept registers a group with the match ledger. A rejected registration
// means engine code proposed an already-consumed record: a logic defect that
// aborts the run instead of producing a silently wrong result.
func (rs *runState) accept(tier string, g MatchGroup) error {
	if !rs.ml.TryConsume(g) {
		return &ConsistencyError{Tier: tier, LedgerIDs: g.LedgerIDs, StatementIDs: g.StatementIDs}
	}
	return nil
}

// prune drops consumed records from both pools so the next tier sees only
// the unmatched remainder.
func (rs *runState) prune() {
	rs.ledger = rs.unconsumed(rs.ledger)
	rs.stmt = rs.unconsumed(rs.stmt)
}

func (rs *runState) unconsumed(pool []*Record) []*Record {
	out := pool[:0]
	for _, r := range pool {
		if !rs.ml.Consumed(r.Side, r.ID) {
			out = append(out, r)
		}
	}
	return out
}

// Reconcile matches a ledger dataset against a statement dataset through the
// configured tier order. Malformed rows are excluded with diagnostics; a bad
// column mapping fails the run before any matching. When ctx is cancelled
// the run stops between tiers (and inside split search steps) and returns
// everything committed so far with Incomplete set.
func (e *Engine) Reconcile(ctx context.Context, ledger, statement Dataset) (*Result, error) {
	start := time.Now()
	cfg := e.cfg

	ledgerRecs, ledgerDiags, err := ingest(ledger, SideLedger, &cfg)
	if err != nil {
		return nil, err
	}
	stmtRecs, stmtDiags, err := ingest(statement, SideStatement, &cfg)
	if err != nil {
		return nil, err
	}
	diags := append(ledgerDiags, stmtDiags...)

	rs := newRunState(&cfg, e.log, ledgerRecs, stmtRecs)
	total := struct{ ledger, stmt int }{len(ledgerRecs), len(stmtRecs)}
	e.log.Info("reconciliation started",
		"ledger_rows", total.ledger, "statement_rows", total.stmt,
		"excluded", len(diags), "tiers", cfg.EnabledTiers)

	incomplete := false
	for _, name := range cfg.EnabledTiers {
		if len(rs.ledger) == 0 && len(rs.stmt) == 0 {
			break
		}
		tierErr := rs.runTier(ctx, name)
		if isCancellation(tierErr) {
			incomplete = true
			e.log.Warn("reconciliation cancelled", "tier", name)
			break
		}
		if tierErr != nil {
			return nil, tierErr
		}
		rs.prune()
		e.log.Debug("tier complete", "tier", name,
			"open_ledger", len(rs.ledger), "open_statement", len(rs.stmt))
	}
	rs.prune()

	res := rs.finalize(cfg, diags, total.ledger, total.stmt, incomplete, time.Since(start))
	e.log.Info("reconciliation finished",
		"run_id", res.RunID,
		"groups", len(res.Groups),
		"unmatched_ledger", len(res.UnmatchedLedger),
		"unmatched_statement", len(res.UnmatchedStatement),
		"incomplete", res.Incomplete,
		"duration", res.Duration)
	return res, nil
}

// Settle runs the five-stage settlement cascade over a single debit/credit
// file. Rows with a negative collapsed amount form the debit pool, positive
// the credit pool.
func (e *Engine) Settle(ctx context.Context, ds Dataset) (*Result, error) {
	start := time.Now()
	cfg := e.cfg
	// Credits balance debits of opposite sign.
	cfg.Polarity = PolarityInverted

	recs, diags, err := ingest(ds, SideLedger, &cfg)
	if err != nil {
		return nil, err
	}
	var debits, credits []*Record
	for _, r := range recs {
		if r.Amount.IsPositive() {
			r.Side = SideStatement
			credits = append(credits, r)
		} else {
			debits = append(debits, r)
		}
	}

	rs := newRunState(&cfg, e.log, debits, credits)
	e.log.Info("settlement started", "debits", len(debits), "credits", len(credits), "excluded", len(diags))

	incomplete := false
	cascadeErr := rs.runSettlementCascade(ctx)
	if isCancellation(cascadeErr) {
		incomplete = true
		e.log.Warn("settlement cancelled")
	} else if cascadeErr != nil {
		return nil, cascadeErr
	}
	rs.prune()

	res := rs.finalize(cfg, diags, len(debits), len(credits), incomplete, time.Since(start))
	e.log.Info("settlement finished", "run_id", res.RunID, "groups", len(res.Groups),
		"open_debits", len(res.UnmatchedLedger), "open_credits", len(res.UnmatchedStatement))
	return res, nil
}

// runTier dispatches one tier by name. Config validation already vetted the
// names, so an unknown one here is a programming error.
func (rs *runState) runTier(ctx context.Context, name string) error {
	switch name {
	case TierForeignCredit:
		return rs.runForeignCredit(ctx)
	case TierPerfect:
		return rs.runPerfect(ctx)
	case TierFuzzy:
		return rs.runFuzzy(ctx)
	case TierSplit:
		return rs.runSplit(ctx)
	default:
		return fmt.Errorf("unknown tier %q", name)
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// finalize assembles the categorized result and summary.
func (rs *runState) finalize(cfg Config, diags []Diagnostic, totalLedger, totalStmt int, incomplete bool, dur time.Duration) *Result {
	res := &Result{
		RunID:          uuid.NewString(),
		Groups:         rs.ml.Groups(),
		ForeignCredits: rs.foreign,
		Diagnostics:    diags,
		Config:         cfg,
		Incomplete:     incomplete,
		Duration:       dur,
	}
	for _, r := range rs.ledger {
		res.UnmatchedLedger = append(res.UnmatchedLedger, r.ID)
	}
	for _, r := range rs.stmt {
		res.UnmatchedStatement = append(res.UnmatchedStatement, r.ID)
	}

	s := Summary{
		TotalLedger:        totalLedger,
		TotalStatement:     totalStmt,
		UnmatchedLedger:    len(res.UnmatchedLedger),
		UnmatchedStatement: len(res.UnmatchedStatement),
		Excluded:           len(diags),
		MatchedAmount:      decimal.Zero,
		UnmatchedAmount:    decimal.Zero,
	}
	for _, g := range res.Groups {
		switch g.Kind {
		case KindPerfect:
			s.PerfectMatches++
		case KindFuzzy:
			s.FuzzyMatches++
		case KindSplit:
			s.SplitMatches++
		case KindForeignCredit:
			s.ForeignCredits++
		case KindToleranceTier2, KindThresholdTier3, KindGroupedTier4:
			s.SettlementMatches++
		}
	}
	for _, r := range rs.ledger {
		s.UnmatchedAmount = s.UnmatchedAmount.Add(r.Amount.Abs())
	}
	s.MatchedAmount = rs.matchedLedgerAmount()
	res.Summary = s
	return res
}

// matchedLedgerAmount sums the magnitudes of all consumed ledger records.
func (rs *runState) matchedLedgerAmount() decimal.Decimal {
	total := decimal.Zero
	for _, r := range rs.allLedger {
		if rs.ml.Consumed(SideLedger, r.ID) {
			total = total.Add(r.Amount.Abs())
		}
	}
	return total
}
