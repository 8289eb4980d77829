package recon

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMapping = ColumnMapping{Date: "date", Reference: "ref", Amount: "amount"}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func row(date, ref, amount string) Row {
	return Row{"date": date, "ref": ref, "amount": amount}
}

func dataset(rows ...Row) Dataset {
	return Dataset{Rows: rows, Mapping: testMapping}
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(cfg, testLogger())
	require.NoError(t, err)
	return e
}

func TestEngine_PerfectMatch(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	ledger := dataset(row("2025-01-05", "INV-1001", "250.00"))
	statement := dataset(row("2025-01-06", "inv/1001", "250.00"))

	res, err := e.Reconcile(context.Background(), ledger, statement)
	require.NoError(t, err)

	perfect := res.ByKind(KindPerfect)
	require.Len(t, perfect, 1)
	assert.Equal(t, []int{0}, perfect[0].LedgerIDs)
	assert.Equal(t, []int{0}, perfect[0].StatementIDs)
	assert.Equal(t, 100, perfect[0].Confidence)
	assert.True(t, perfect[0].AmountDelta.IsZero())
	assert.Empty(t, res.UnmatchedLedger)
	assert.Empty(t, res.UnmatchedStatement)
}

func TestEngine_PerfectTieBreak_ClosestDateWins(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	ledger := dataset(row("2025-01-05", "REF9", "50.00"))
	statement := dataset(
		row("2025-01-08", "REF9", "50.00"), // id 0, 3 days off
		row("2025-01-05", "REF9", "50.00"), // id 1, same day
	)

	res, err := e.Reconcile(context.Background(), ledger, statement)
	require.NoError(t, err)

	perfect := res.ByKind(KindPerfect)
	require.Len(t, perfect, 1)
	assert.Equal(t, []int{1}, perfect[0].StatementIDs)
}

func TestEngine_FuzzyMatch_SpaceVariant(t *testing.T) {
	// Reference differs only by an internal space after normalization, so the
	// perfect tier rejects it and the fuzzy tier accepts at score 86.
	e := newTestEngine(t, DefaultConfig())

	ledger := dataset(row("2025-01-05", "ABC123", "100.00"))
	statement := dataset(row("2025-01-06", "abc 123", "100.00"))

	res, err := e.Reconcile(context.Background(), ledger, statement)
	require.NoError(t, err)

	assert.Empty(t, res.ByKind(KindPerfect))
	fuzzy := res.ByKind(KindFuzzy)
	require.Len(t, fuzzy, 1)
	assert.GreaterOrEqual(t, fuzzy[0].Confidence, 85)
	assert.Empty(t, res.UnmatchedLedger)
}

func TestEngine_FuzzyMatch_BelowThresholdStaysUnmatched(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	ledger := dataset(row("2025-01-05", "SALARY MARCH", "100.00"))
	statement := dataset(row("2025-01-05", "completely different", "100.00"))

	res, err := e.Reconcile(context.Background(), ledger, statement)
	require.NoError(t, err)

	assert.Empty(t, res.Groups)
	assert.Equal(t, []int{0}, res.UnmatchedLedger)
	assert.Equal(t, []int{0}, res.UnmatchedStatement)
}

func TestEngine_SplitMatch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AmountTolerance = decimal.RequireFromString("0.50")
	cfg.SplitMaxGroupSize = 3
	e := newTestEngine(t, cfg)

	ledger := dataset(row("2025-02-01", "BATCH PAYMENT", "300.00"))
	statement := dataset(
		row("2025-02-01", "part one", "100.00"),
		row("2025-02-02", "part two", "100.00"),
		row("2025-02-03", "part three", "99.50"),
	)

	res, err := e.Reconcile(context.Background(), ledger, statement)
	require.NoError(t, err)

	split := res.ByKind(KindSplit)
	require.Len(t, split, 1)
	assert.Equal(t, []int{0}, split[0].LedgerIDs)
	assert.ElementsMatch(t, []int{0, 1, 2}, split[0].StatementIDs)
	assert.Equal(t, "0.5", split[0].AmountDelta.String())
	assert.Empty(t, res.UnmatchedLedger)
	assert.Empty(t, res.UnmatchedStatement)
}

func TestEngine_ForeignCreditSegregation(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	ledger := dataset(row("2025-03-01", "BIG TRANSFER", "15000.00"))
	statement := dataset(row("2025-03-01", "BIG TRANSFER", "15000.00"))

	res, err := e.Reconcile(context.Background(), ledger, statement)
	require.NoError(t, err)

	// The statement entry crosses the 10000 threshold before the perfect
	// tier sees it; the ledger entry has nothing left to match.
	assert.Equal(t, []int{0}, res.ForeignCredits)
	assert.Empty(t, res.ByKind(KindPerfect))
	assert.Empty(t, res.ByKind(KindFuzzy))
	assert.Empty(t, res.ByKind(KindSplit))
	assert.Equal(t, []int{0}, res.UnmatchedLedger)
	assert.Empty(t, res.UnmatchedStatement)
}

func TestEngine_ForeignCreditAfterPerfect(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnabledTiers = []string{TierPerfect, TierForeignCredit, TierFuzzy, TierSplit}
	e := newTestEngine(t, cfg)

	ledger := dataset(row("2025-03-01", "BIG TRANSFER", "15000.00"))
	statement := dataset(row("2025-03-01", "BIG TRANSFER", "15000.00"))

	res, err := e.Reconcile(context.Background(), ledger, statement)
	require.NoError(t, err)

	// With the pass moved after perfect, the high-value pair matches first.
	require.Len(t, res.ByKind(KindPerfect), 1)
	assert.Empty(t, res.ForeignCredits)
}

func TestEngine_MalformedRowsExcluded(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	ledger := dataset(
		row("32/13/2025", "BAD DATE", "10.00"),
		row("2025-01-05", "GOOD", "20.00"),
		row("2025-01-05", "BAD AMOUNT", "1,23,45"),
	)
	statement := dataset(row("2025-01-05", "GOOD", "20.00"))

	res, err := e.Reconcile(context.Background(), ledger, statement)
	require.NoError(t, err)

	require.Len(t, res.Diagnostics, 2)
	assert.Equal(t, 0, res.Diagnostics[0].RowID)
	assert.Equal(t, "date", res.Diagnostics[0].Field)
	assert.Equal(t, 2, res.Diagnostics[1].RowID)
	assert.Equal(t, "amount", res.Diagnostics[1].Field)

	// Excluded rows appear in neither matches nor unmatched pools.
	require.Len(t, res.ByKind(KindPerfect), 1)
	assert.Empty(t, res.UnmatchedLedger)
	assert.NotContains(t, res.UnmatchedLedger, 0)
	assert.NotContains(t, res.UnmatchedLedger, 2)
}

func TestEngine_InvalidColumnMapping(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	bad := Dataset{
		Rows:    []Row{{"date": "2025-01-05", "ref": "X", "amount": "1.00"}},
		Mapping: ColumnMapping{Date: "date", Reference: "ref", Amount: "value"},
	}

	_, err := e.Reconcile(context.Background(), bad, dataset())
	require.Error(t, err)
	var mapErr *MappingError
	assert.ErrorAs(t, err, &mapErr)
	assert.Equal(t, "amount", mapErr.Role)
}

func TestEngine_Determinism(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AmountTolerance = decimal.RequireFromString("0.50")
	e := newTestEngine(t, cfg)

	ledger := dataset(
		row("2025-01-05", "alpha", "100.00"),
		row("2025-01-05", "beta", "100.00"),
		row("2025-01-06", "split me", "300.00"),
	)
	statement := dataset(
		row("2025-01-05", "alpha", "100.00"),
		row("2025-01-05", "betta", "100.00"),
		row("2025-01-06", "s1", "150.00"),
		row("2025-01-06", "s2", "150.00"),
	)

	first, err := e.Reconcile(context.Background(), ledger, statement)
	require.NoError(t, err)
	second, err := e.Reconcile(context.Background(), ledger, statement)
	require.NoError(t, err)

	require.Len(t, second.Groups, len(first.Groups))
	for i := range first.Groups {
		assert.Equal(t, first.Groups[i].Kind, second.Groups[i].Kind)
		assert.Equal(t, first.Groups[i].LedgerIDs, second.Groups[i].LedgerIDs)
		assert.Equal(t, first.Groups[i].StatementIDs, second.Groups[i].StatementIDs)
		assert.Equal(t, first.Groups[i].Confidence, second.Groups[i].Confidence)
	}
	assert.Equal(t, first.UnmatchedLedger, second.UnmatchedLedger)
	assert.Equal(t, first.UnmatchedStatement, second.UnmatchedStatement)
}

func TestEngine_DisjointConsumption(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AmountTolerance = decimal.RequireFromString("0.50")
	e := newTestEngine(t, cfg)

	ledger := dataset(
		row("2025-01-05", "a", "100.00"),
		row("2025-01-05", "b", "200.00"),
		row("2025-01-05", "c", "300.00"),
	)
	statement := dataset(
		row("2025-01-05", "a", "100.00"),
		row("2025-01-05", "x1", "100.00"),
		row("2025-01-05", "x2", "100.00"),
		row("2025-01-05", "x3", "150.00"),
		row("2025-01-05", "x4", "150.00"),
	)

	res, err := e.Reconcile(context.Background(), ledger, statement)
	require.NoError(t, err)

	seenLedger := map[int]bool{}
	seenStmt := map[int]bool{}
	for _, g := range res.Groups {
		for _, id := range g.LedgerIDs {
			assert.False(t, seenLedger[id], "ledger id %d consumed twice", id)
			seenLedger[id] = true
		}
		for _, id := range g.StatementIDs {
			assert.False(t, seenStmt[id], "statement id %d consumed twice", id)
			seenStmt[id] = true
		}
	}
}

func TestEngine_Completeness(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	ledger := dataset(
		row("2025-01-05", "a", "100.00"),
		row("bad", "b", "200.00"),
		row("2025-01-05", "c", "300.00"),
	)
	statement := dataset(row("2025-01-05", "a", "100.00"))

	res, err := e.Reconcile(context.Background(), ledger, statement)
	require.NoError(t, err)

	// Every ledger row lands in exactly one of: a group, the unmatched
	// pool, or the diagnostics list.
	location := map[int]int{}
	for _, g := range res.Groups {
		for _, id := range g.LedgerIDs {
			location[id]++
		}
	}
	for _, id := range res.UnmatchedLedger {
		location[id]++
	}
	for _, d := range res.Diagnostics {
		if d.Side == SideLedger {
			location[d.RowID]++
		}
	}
	require.Len(t, location, 3)
	for id, n := range location {
		assert.Equal(t, 1, n, "ledger id %d appears %d times", id, n)
	}
}

func TestEngine_Cancellation(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.Reconcile(ctx, dataset(row("2025-01-05", "a", "1.00")), dataset(row("2025-01-05", "a", "1.00")))
	require.NoError(t, err)
	assert.True(t, res.Incomplete)
	assert.Empty(t, res.Groups)
}

func TestEngine_SkippedTierPassesPoolThrough(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnabledTiers = []string{TierPerfect}
	e := newTestEngine(t, cfg)

	ledger := dataset(row("2025-01-05", "ABC123", "100.00"))
	statement := dataset(row("2025-01-05", "abc 123", "100.00"))

	res, err := e.Reconcile(context.Background(), ledger, statement)
	require.NoError(t, err)

	// Fuzzy is disabled, so the near-miss pair stays unmatched.
	assert.Empty(t, res.Groups)
	assert.Equal(t, []int{0}, res.UnmatchedLedger)
	assert.Equal(t, []int{0}, res.UnmatchedStatement)
}

func TestEngine_InvertedPolarity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Polarity = PolarityInverted
	e := newTestEngine(t, cfg)

	ledger := dataset(row("2025-01-05", "PAY 77", "-120.00"))
	statement := dataset(row("2025-01-05", "PAY 77", "120.00"))

	res, err := e.Reconcile(context.Background(), ledger, statement)
	require.NoError(t, err)
	require.Len(t, res.ByKind(KindPerfect), 1)
}

func TestNew_RejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SplitMaxGroupSize = 1

	_, err := New(cfg, testLogger())
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "split_max_group_size", cfgErr.Field)
}
