package recon

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// runForeignCredit is a classification pass, not a matcher: any statement
// record whose amount magnitude exceeds the configured threshold is pulled
// out of the general pool into the foreign-credits bucket so high-value
// items are never silently absorbed by the looser tiers. Its position in
// the tier order (before or after perfect) is deployment policy.
func (rs *runState) runForeignCredit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, s := range rs.stmt {
		if s.Amount.Abs().LessThanOrEqual(rs.cfg.ForeignCreditThreshold) {
			continue
		}
		g := MatchGroup{
			ID:           uuid.NewString(),
			Kind:         KindForeignCredit,
			StatementIDs: []int{s.ID},
			Confidence:   100,
			AmountDelta:  decimal.Zero,
		}
		if err := rs.accept(TierForeignCredit, g); err != nil {
			return err
		}
		rs.foreign = append(rs.foreign, s.ID)
	}
	return nil
}
