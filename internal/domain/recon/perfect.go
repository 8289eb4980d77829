package recon

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// runPerfect executes the exact-key tier: normalized reference equality,
// exact amount equality under the configured polarity, and date within the
// day window. One ledger record to one statement record.
//
// Tie-break when several statement candidates qualify: smallest absolute
// date difference, then lexicographically smallest reference, then lowest
// id. Reproducible across runs by construction.
func (rs *runState) runPerfect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Statement records keyed by (reference, polarity-adjusted amount),
	// id order preserved within each bucket.
	buckets := make(map[string][]*Record, len(rs.stmt))
	for _, s := range rs.stmt {
		key := s.Reference + "\x00" + rs.cfg.statementAmount(s.Amount).String()
		buckets[key] = append(buckets[key], s)
	}

	for _, l := range rs.ledger {
		key := l.Reference + "\x00" + l.Amount.String()
		best := pickPerfect(l, buckets[key], rs.cfg.DateToleranceDays, rs.ml)
		if best == nil {
			continue
		}
		g := MatchGroup{
			ID:           uuid.NewString(),
			Kind:         KindPerfect,
			LedgerIDs:    []int{l.ID},
			StatementIDs: []int{best.ID},
			Confidence:   100,
			AmountDelta:  decimal.Zero,
		}
		if err := rs.accept(TierPerfect, g); err != nil {
			return err
		}
	}
	return nil
}

// pickPerfect applies the deterministic tie-break over qualifying candidates.
// The reference comparison is vestigial for this tier (all candidates share
// the bucket key) but kept so the ordering matches the fuzzy tier's.
func pickPerfect(l *Record, candidates []*Record, dateTol int, ml *matchLedger) *Record {
	var best *Record
	var bestDiff int64
	for _, s := range candidates {
		if ml.Consumed(SideStatement, s.ID) {
			continue
		}
		diff := dayDiff(l.Date, s.Date)
		if diff > int64(dateTol) {
			continue
		}
		if best == nil || diff < bestDiff ||
			(diff == bestDiff && (s.Reference < best.Reference ||
				(s.Reference == best.Reference && s.ID < best.ID))) {
			best = s
			bestDiff = diff
		}
	}
	return best
}
