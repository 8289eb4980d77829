package recon

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var settleMapping = ColumnMapping{Date: "date", Reference: "ref", Debit: "dr", Credit: "cr"}

func debitRow(date, ref, amount string) Row {
	return Row{"date": date, "ref": ref, "dr": amount, "cr": ""}
}

func creditRow(date, ref, amount string) Row {
	return Row{"date": date, "ref": ref, "dr": "", "cr": amount}
}

func settleDataset(rows ...Row) Dataset {
	return Dataset{Rows: rows, Mapping: settleMapping}
}

func TestSettle_ExactZeroSum(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	res, err := e.Settle(context.Background(), settleDataset(
		debitRow("2025-04-01", "d1", "500.00"),
		creditRow("2025-04-01", "c1", "500.00"),
	))
	require.NoError(t, err)

	exact := res.ByKind(KindPerfect)
	require.Len(t, exact, 1)
	assert.Equal(t, []int{0}, exact[0].LedgerIDs)
	assert.Equal(t, []int{1}, exact[0].StatementIDs)
	assert.True(t, exact[0].AmountDelta.IsZero())
	assert.Empty(t, res.UnmatchedLedger)
	assert.Empty(t, res.UnmatchedStatement)
}

func TestSettle_ExactPrefersLowestCreditID(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	res, err := e.Settle(context.Background(), settleDataset(
		debitRow("2025-04-01", "d1", "500.00"),
		creditRow("2025-04-02", "c-later", "500.00"),
		creditRow("2025-04-03", "c-latest", "500.00"),
	))
	require.NoError(t, err)

	exact := res.ByKind(KindPerfect)
	require.Len(t, exact, 1)
	assert.Equal(t, []int{1}, exact[0].StatementIDs)
	assert.Equal(t, []int{2}, res.UnmatchedStatement)
}

func TestSettle_ToleranceStage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AmountTolerance = decimal.RequireFromString("0.10")
	e := newTestEngine(t, cfg)

	res, err := e.Settle(context.Background(), settleDataset(
		debitRow("2025-04-01", "d1", "100.00"),
		creditRow("2025-04-01", "c1", "100.05"),
	))
	require.NoError(t, err)

	tier2 := res.ByKind(KindToleranceTier2)
	require.Len(t, tier2, 1)
	assert.Equal(t, "-0.05", tier2[0].AmountDelta.String())
	assert.Empty(t, res.ByKind(KindPerfect))
}

func TestSettle_PercentageStage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AmountTolerance = decimal.Zero
	cfg.AmountTolerancePercent = decimal.NewFromInt(2)
	e := newTestEngine(t, cfg)

	// 1% off: outside any absolute tolerance, inside the 2% threshold.
	res, err := e.Settle(context.Background(), settleDataset(
		debitRow("2025-04-01", "d1", "1000.00"),
		creditRow("2025-04-01", "c1", "990.00"),
	))
	require.NoError(t, err)

	tier3 := res.ByKind(KindThresholdTier3)
	require.Len(t, tier3, 1)
	assert.Equal(t, "10", tier3[0].AmountDelta.String())
}

func TestSettle_GroupedStage(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	res, err := e.Settle(context.Background(), settleDataset(
		debitRow("2025-04-01", "bulk", "300.00"),
		creditRow("2025-04-01", "c1", "120.00"),
		creditRow("2025-04-02", "c2", "180.00"),
	))
	require.NoError(t, err)

	grouped := res.ByKind(KindGroupedTier4)
	require.Len(t, grouped, 1)
	assert.Equal(t, []int{0}, grouped[0].LedgerIDs)
	assert.ElementsMatch(t, []int{1, 2}, grouped[0].StatementIDs)
	assert.Empty(t, res.UnmatchedLedger)
	assert.Empty(t, res.UnmatchedStatement)
}

func TestSettle_GroupedDebitsAgainstCredit(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	res, err := e.Settle(context.Background(), settleDataset(
		debitRow("2025-04-01", "d1", "120.00"),
		debitRow("2025-04-01", "d2", "180.00"),
		creditRow("2025-04-02", "lump", "300.00"),
	))
	require.NoError(t, err)

	grouped := res.ByKind(KindGroupedTier4)
	require.Len(t, grouped, 1)
	assert.ElementsMatch(t, []int{0, 1}, grouped[0].LedgerIDs)
	assert.Equal(t, []int{2}, grouped[0].StatementIDs)
}

func TestSettle_RemainderUnmatched(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	res, err := e.Settle(context.Background(), settleDataset(
		debitRow("2025-04-01", "d1", "500.00"),
		creditRow("2025-04-01", "c1", "500.00"),
		debitRow("2025-04-01", "orphan debit", "77.77"),
		creditRow("2025-04-01", "orphan credit", "12.34"),
	))
	require.NoError(t, err)

	require.Len(t, res.Groups, 1)
	assert.Equal(t, []int{2}, res.UnmatchedLedger)
	assert.Equal(t, []int{3}, res.UnmatchedStatement)
}

func TestSettle_StagesConsumeSequentially(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AmountTolerance = decimal.RequireFromString("0.10")
	e := newTestEngine(t, cfg)

	// One exact pair and one near pair: stage 1 must take the exact pair,
	// stage 2 the near one.
	res, err := e.Settle(context.Background(), settleDataset(
		debitRow("2025-04-01", "d-exact", "100.00"),
		debitRow("2025-04-01", "d-near", "200.00"),
		creditRow("2025-04-01", "c-exact", "100.00"),
		creditRow("2025-04-01", "c-near", "200.08"),
	))
	require.NoError(t, err)

	require.Len(t, res.ByKind(KindPerfect), 1)
	require.Len(t, res.ByKind(KindToleranceTier2), 1)
	assert.Equal(t, []int{2}, res.ByKind(KindPerfect)[0].StatementIDs)
	assert.Equal(t, []int{3}, res.ByKind(KindToleranceTier2)[0].StatementIDs)
}
