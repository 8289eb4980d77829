package recon

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// runSplit executes the combinatorial tier: for each remaining target record
// (ledger or statement, per configured direction) it searches for 2 to
// SplitMaxGroupSize records on the opposite side whose amounts sum to the
// target within tolerance. Bounded subset-sum: candidates sorted ascending,
// branches pruned once the partial sum exceeds target+tolerance, and total
// explored combinations per target capped by SplitSearchCeiling.
func (rs *runState) runSplit(ctx context.Context) error {
	targets := rs.ledger
	others := rs.stmt
	targetSide := SideLedger
	if rs.cfg.SplitDirection == SplitStatementTarget {
		targets, others = rs.stmt, rs.ledger
		targetSide = SideStatement
	}

	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		targetEff := rs.effectiveAmount(t)
		if targetEff.IsZero() {
			continue
		}
		tol := rs.cfg.amountToleranceFor(targetEff)

		cands, mags := rs.splitCandidates(t, targetEff, tol, others)
		if len(cands) < 2 {
			continue
		}

		combo, sum, err := findCombination(ctx, targetEff.Abs(), tol, cands, mags,
			rs.cfg.SplitMaxGroupSize, rs.cfg.SplitSearchCeiling)
		if err != nil {
			return err
		}
		if combo == nil {
			continue
		}

		delta := targetEff.Abs().Sub(sum)
		g := MatchGroup{
			ID:          uuid.NewString(),
			Kind:        KindSplit,
			Confidence:  derivedConfidence(delta, tol),
			AmountDelta: delta,
		}
		comboIDs := recordIDs(combo)
		if targetSide == SideLedger {
			g.LedgerIDs = []int{t.ID}
			g.StatementIDs = comboIDs
		} else {
			g.LedgerIDs = comboIDs
			g.StatementIDs = []int{t.ID}
		}
		if err := rs.accept(TierSplit, g); err != nil {
			return err
		}
	}
	return nil
}

// splitCandidates returns unconsumed opposite-side records whose effective
// amount has the target's sign and a magnitude small enough to participate,
// sorted by magnitude then id, with magnitudes alongside.
func (rs *runState) splitCandidates(t *Record, targetEff, tol decimal.Decimal, others []*Record) ([]*Record, []decimal.Decimal) {
	maxMag := targetEff.Abs().Add(tol)
	wantNegative := targetEff.IsNegative()

	var cands []*Record
	var mags []decimal.Decimal
	for _, o := range others {
		if rs.ml.Consumed(o.Side, o.ID) {
			continue
		}
		eff := rs.effectiveAmount(o)
		if eff.IsZero() || eff.IsNegative() != wantNegative {
			continue
		}
		mag := eff.Abs()
		if mag.GreaterThan(maxMag) {
			continue
		}
		cands = append(cands, o)
		mags = append(mags, mag)
	}

	// Insertion sort by (magnitude, id); candidate lists are already nearly
	// ordered by id and stay small after the window filter.
	for i := 1; i < len(cands); i++ {
		for j := i; j > 0; j-- {
			if mags[j].LessThan(mags[j-1]) ||
				(mags[j].Equal(mags[j-1]) && cands[j].ID < cands[j-1].ID) {
				mags[j], mags[j-1] = mags[j-1], mags[j]
				cands[j], cands[j-1] = cands[j-1], cands[j]
				continue
			}
			break
		}
	}
	return cands, mags
}

// effectiveAmount applies polarity so both sides compare in ledger terms.
func (rs *runState) effectiveAmount(r *Record) decimal.Decimal {
	if r.Side == SideStatement {
		return rs.cfg.statementAmount(r.Amount)
	}
	return r.Amount
}

// findCombination searches for the first combination of 2..maxSize candidate
// magnitudes summing to target within tol. Exploration order is smallest
// combination size first, then lexicographic over the sorted candidate
// sequence, so the accepted combination is deterministic. Returns the
// records, their magnitude sum, or nil when nothing qualifies or the
// exploration ceiling is hit. Cancellation is checked between search steps.
func findCombination(ctx context.Context, target, tol decimal.Decimal, cands []*Record, mags []decimal.Decimal, maxSize, ceiling int) ([]*Record, decimal.Decimal, error) {
	if maxSize > len(cands) {
		maxSize = len(cands)
	}
	upper := target.Add(tol)
	lower := target.Sub(tol)

	explored := 0
	picked := make([]int, 0, maxSize)

	var dfs func(start int, size int, partial decimal.Decimal) ([]*Record, decimal.Decimal, error)
	dfs = func(start, size int, partial decimal.Decimal) ([]*Record, decimal.Decimal, error) {
		for i := start; i < len(cands); i++ {
			explored++
			if explored > ceiling {
				return nil, decimal.Zero, nil
			}
			if explored%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return nil, decimal.Zero, err
				}
			}

			sum := partial.Add(mags[i])
			if sum.GreaterThan(upper) {
				// Candidates are sorted ascending; no later branch fits.
				break
			}
			picked = append(picked, i)
			if len(picked) == size {
				if sum.GreaterThanOrEqual(lower) {
					combo := make([]*Record, size)
					for k, idx := range picked {
						combo[k] = cands[idx]
					}
					picked = picked[:len(picked)-1]
					return combo, sum, nil
				}
			} else {
				combo, total, err := dfs(i+1, size, sum)
				if combo != nil || err != nil {
					picked = picked[:len(picked)-1]
					return combo, total, err
				}
				if explored > ceiling {
					picked = picked[:len(picked)-1]
					return nil, decimal.Zero, nil
				}
			}
			picked = picked[:len(picked)-1]
		}
		return nil, decimal.Zero, nil
	}

	for size := 2; size <= maxSize; size++ {
		combo, sum, err := dfs(0, size, decimal.Zero)
		if combo != nil || err != nil {
			return combo, sum, err
		}
		if explored > ceiling {
			return nil, decimal.Zero, nil
		}
	}
	return nil, decimal.Zero, nil
}

// derivedConfidence maps a residual inside the tolerance window onto
// [90, 100]: exact balance scores 100, a residual at the tolerance edge 90.
func derivedConfidence(delta, tol decimal.Decimal) int {
	if delta.IsZero() || tol.IsZero() {
		return 100
	}
	ratio := delta.Abs().Mul(decimal.NewFromInt(10)).Div(tol).Round(0).IntPart()
	conf := 100 - int(ratio)
	if conf < 90 {
		conf = 90
	}
	return conf
}

func recordIDs(recs []*Record) []int {
	ids := make([]int, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids
}
