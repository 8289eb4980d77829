package recon

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// candidateIndex answers amount-window and exact-amount queries over one
// side's unmatched pool in O(log n + k). It indexes an immutable snapshot:
// every tier builds a fresh index from the pool it receives at entry, so a
// pre-tier index can never be queried against a post-tier pool.
type candidateIndex struct {
	byAmount []*Record            // sorted by amount, then id
	byExact  map[string][]*Record // amount.String() -> records, id order
}

func buildIndex(pool []*Record) *candidateIndex {
	ix := &candidateIndex{
		byAmount: make([]*Record, len(pool)),
		byExact:  make(map[string][]*Record),
	}
	copy(ix.byAmount, pool)
	sort.SliceStable(ix.byAmount, func(i, j int) bool {
		if !ix.byAmount[i].Amount.Equal(ix.byAmount[j].Amount) {
			return ix.byAmount[i].Amount.LessThan(ix.byAmount[j].Amount)
		}
		return ix.byAmount[i].ID < ix.byAmount[j].ID
	})
	for _, r := range pool {
		key := r.Amount.String()
		ix.byExact[key] = append(ix.byExact[key], r)
	}
	return ix
}

// amountWindow returns records with min <= amount <= max, ordered by amount
// then id.
func (ix *candidateIndex) amountWindow(min, max decimal.Decimal) []*Record {
	start := sort.Search(len(ix.byAmount), func(i int) bool {
		return ix.byAmount[i].Amount.GreaterThanOrEqual(min)
	})
	var out []*Record
	for i := start; i < len(ix.byAmount); i++ {
		if ix.byAmount[i].Amount.GreaterThan(max) {
			break
		}
		out = append(out, ix.byAmount[i])
	}
	return out
}

// exactAmount returns records whose amount equals a exactly, in id order.
func (ix *candidateIndex) exactAmount(a decimal.Decimal) []*Record {
	return ix.byExact[a.String()]
}

// withinDateWindow returns the subset of candidates whose date lies within
// tol days of day, preserving input order.
func withinDateWindow(candidates []*Record, day time.Time, tol int) []*Record {
	target := unixDay(day)
	var out []*Record
	for _, r := range candidates {
		if withinDays(unixDay(r.Date), target, tol) {
			out = append(out, r)
		}
	}
	return out
}

// unixDay converts a midnight-UTC date to a day ordinal.
func unixDay(t time.Time) int64 {
	return t.Unix() / 86400
}

// dayDiff returns the absolute distance in days between two dates.
func dayDiff(a, b time.Time) int64 {
	d := unixDay(a) - unixDay(b)
	if d < 0 {
		d = -d
	}
	return d
}
