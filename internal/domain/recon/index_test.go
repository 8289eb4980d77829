package recon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCandidateIndex_AmountWindow(t *testing.T) {
	pool := []*Record{
		{ID: 0, Amount: dec("10.00"), Date: day(2025, 1, 1)},
		{ID: 1, Amount: dec("20.00"), Date: day(2025, 1, 1)},
		{ID: 2, Amount: dec("20.00"), Date: day(2025, 1, 2)},
		{ID: 3, Amount: dec("30.00"), Date: day(2025, 1, 3)},
		{ID: 4, Amount: dec("-5.00"), Date: day(2025, 1, 3)},
	}
	ix := buildIndex(pool)

	got := ix.amountWindow(dec("15.00"), dec("25.00"))
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, 2, got[1].ID)

	assert.Empty(t, ix.amountWindow(dec("100"), dec("200")))
	assert.Len(t, ix.amountWindow(dec("-10"), dec("40")), 5)
}

func TestCandidateIndex_ExactAmount(t *testing.T) {
	pool := []*Record{
		{ID: 0, Amount: dec("20.00"), Date: day(2025, 1, 1)},
		{ID: 1, Amount: dec("20.00"), Date: day(2025, 1, 2)},
	}
	ix := buildIndex(pool)

	// "20.00" and "20" are the same value and must share a bucket.
	got := ix.exactAmount(dec("20"))
	assert.Len(t, got, 2)
}

func TestWithinDateWindow(t *testing.T) {
	pool := []*Record{
		{ID: 0, Date: day(2025, 1, 1)},
		{ID: 1, Date: day(2025, 1, 4)},
		{ID: 2, Date: day(2025, 1, 10)},
	}

	got := withinDateWindow(pool, day(2025, 1, 3), 3)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].ID)
	assert.Equal(t, 1, got[1].ID)

	assert.Len(t, withinDateWindow(pool, day(2025, 1, 3), 0), 0)
}

func TestDayDiff(t *testing.T) {
	assert.EqualValues(t, 0, dayDiff(day(2025, 1, 5), day(2025, 1, 5)))
	assert.EqualValues(t, 3, dayDiff(day(2025, 1, 5), day(2025, 1, 8)))
	assert.EqualValues(t, 3, dayDiff(day(2025, 1, 8), day(2025, 1, 5)))
	assert.EqualValues(t, 31, dayDiff(day(2025, 1, 1), day(2025, 2, 1)))
}
