package recon

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// The settlement cascade serves the grouped corporate workflow: one file of
// debits and credits settled against each other in five stages, each stage
// consuming only what prior stages left behind.
//
//  1. exact zero-sum balance between one debit and one credit
//  2. balance within the absolute amount tolerance
//  3. balance within the percentage-of-amount threshold
//  4. grouped combinatorial balance (same bounded search as the split tier)
//  5. everything else reported unmatched
//
// Debits live in the ledger pool and credits in the statement pool; the run
// uses inverted polarity so a +100 credit balances a -100 debit exactly.
func (rs *runState) runSettlementCascade(ctx context.Context) error {
	stages := []struct {
		name string
		run  func(context.Context) error
	}{
		{"settle_exact", rs.settleExact},
		{"settle_tolerance", rs.settleTolerance},
		{"settle_threshold", rs.settleThreshold},
		{"settle_grouped", rs.settleGrouped},
	}
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := stage.run(ctx); err != nil {
			return err
		}
		rs.prune()
		rs.log.Debug("settlement stage complete", "stage", stage.name,
			"open_debits", len(rs.ledger), "open_credits", len(rs.stmt))
	}
	return nil
}

// settleExact pairs each debit with the lowest-id credit of identical
// magnitude.
func (rs *runState) settleExact(ctx context.Context) error {
	ix := buildIndex(rs.stmt)

	for _, d := range rs.ledger {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Credits carry positive raw amounts; an exact zero-sum partner
		// has the debit's negated amount.
		for _, c := range ix.exactAmount(d.Amount.Neg()) {
			if rs.ml.Consumed(SideStatement, c.ID) {
				continue
			}
			g := MatchGroup{
				ID:           uuid.NewString(),
				Kind:         KindPerfect,
				LedgerIDs:    []int{d.ID},
				StatementIDs: []int{c.ID},
				Confidence:   100,
				AmountDelta:  decimal.Zero,
			}
			if err := rs.accept("settle_exact", g); err != nil {
				return err
			}
			break
		}
	}
	return nil
}

// settleTolerance pairs debits and credits whose balance falls within the
// absolute amount tolerance. Smallest residual wins, then lowest credit id.
func (rs *runState) settleTolerance(ctx context.Context) error {
	return rs.settleWithin(ctx, KindToleranceTier2, "settle_tolerance",
		func(decimal.Decimal) decimal.Decimal { return rs.cfg.AmountTolerance })
}

// settleThreshold pairs debits and credits whose balance falls within the
// percentage-of-amount threshold. Skipped when no percentage is configured.
func (rs *runState) settleThreshold(ctx context.Context) error {
	if !rs.cfg.AmountTolerancePercent.IsPositive() {
		return nil
	}
	pct := rs.cfg.AmountTolerancePercent.Div(decimal.NewFromInt(100))
	return rs.settleWithin(ctx, KindThresholdTier3, "settle_threshold",
		func(mag decimal.Decimal) decimal.Decimal { return mag.Mul(pct) })
}

// settleWithin pairs each debit with the closest credit inside the
// per-target tolerance window.
func (rs *runState) settleWithin(ctx context.Context, kind MatchKind, tier string, tolFor func(decimal.Decimal) decimal.Decimal) error {
	ix := buildIndex(rs.stmt)

	for _, d := range rs.ledger {
		if err := ctx.Err(); err != nil {
			return err
		}
		mag := d.Amount.Abs()
		tol := tolFor(mag)
		if !tol.IsPositive() {
			continue
		}

		// Credits carry positive raw amounts, so the raw window is the
		// debit magnitude plus or minus the tolerance.
		var best *Record
		var bestDelta decimal.Decimal
		for _, c := range ix.amountWindow(mag.Sub(tol), mag.Add(tol)) {
			if rs.ml.Consumed(SideStatement, c.ID) {
				continue
			}
			delta := mag.Sub(c.Amount).Abs()
			if best == nil || delta.LessThan(bestDelta) ||
				(delta.Equal(bestDelta) && c.ID < best.ID) {
				best = c
				bestDelta = delta
			}
		}
		if best == nil {
			continue
		}
		g := MatchGroup{
			ID:           uuid.NewString(),
			Kind:         kind,
			LedgerIDs:    []int{d.ID},
			StatementIDs: []int{best.ID},
			Confidence:   derivedConfidence(bestDelta, tol),
			AmountDelta:  mag.Sub(best.Amount),
		}
		if err := rs.accept(tier, g); err != nil {
			return err
		}
	}
	return nil
}

// settleGrouped runs the bounded combinatorial search in both directions:
// credits grouped against each remaining debit, then debits grouped against
// each remaining credit.
func (rs *runState) settleGrouped(ctx context.Context) error {
	if err := rs.settleGroupedDirection(ctx, rs.ledger, rs.stmt, SideLedger); err != nil {
		return err
	}
	return rs.settleGroupedDirection(ctx, rs.stmt, rs.ledger, SideStatement)
}

func (rs *runState) settleGroupedDirection(ctx context.Context, targets, others []*Record, targetSide Side) error {
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rs.ml.Consumed(t.Side, t.ID) {
			continue
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
			Kind:        KindGroupedTier4,
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
		if err := rs.accept("settle_grouped", g); err != nil {
			return err
		}
	}
	return nil
}
