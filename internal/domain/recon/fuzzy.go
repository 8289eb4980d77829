package recon

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Mutombwa/bard-reco/internal/domain/similarity"
)

// fuzzyCandidate is one scored statement candidate for a ledger record.
type fuzzyCandidate struct {
	rec     *Record
	score   int
	dayDiff int64
}

// runFuzzy executes the similarity tier. Candidates are restricted to
// amount-within-tolerance and date-within-window; references are compared
// with the Levenshtein-ratio scorer and the highest-scoring candidate at or
// above the threshold wins.
//
// Scoring is embarrassingly parallel over the immutable tier-entry snapshot,
// so it fans out across workers. Acceptance happens afterwards on a single
// goroutine in ascending ledger-id order, which keeps the greedy
// first-found-wins semantics bit-for-bit identical to a sequential scan.
func (rs *runState) runFuzzy(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ix := buildIndex(rs.stmt)
	proposals := make([][]fuzzyCandidate, len(rs.ledger))

	workers := rs.cfg.workerCount()
	if workers > len(rs.ledger) {
		workers = len(rs.ledger)
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	chunk := (len(rs.ledger) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(rs.ledger) {
			hi = len(rs.ledger)
		}
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				if ctx.Err() != nil {
					return
				}
				proposals[i] = rs.scoreFuzzyCandidates(rs.ledger[i], ix)
			}
		}(lo, hi)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	// Serial application in ledger-id order preserves determinism.
	for i, l := range rs.ledger {
		for _, c := range proposals[i] {
			if rs.ml.Consumed(SideStatement, c.rec.ID) {
				continue
			}
			g := MatchGroup{
				ID:           uuid.NewString(),
				Kind:         KindFuzzy,
				LedgerIDs:    []int{l.ID},
				StatementIDs: []int{c.rec.ID},
				Confidence:   c.score,
				AmountDelta:  l.Amount.Sub(rs.cfg.statementAmount(c.rec.Amount)),
			}
			if err := rs.accept(TierFuzzy, g); err != nil {
				return err
			}
			break
		}
	}
	return nil
}

// scoreFuzzyCandidates returns the ranked candidate list for one ledger
// record: all statement records within amount tolerance and date window
// scoring at or above the threshold, best first. Pure read-only work.
func (rs *runState) scoreFuzzyCandidates(l *Record, ix *candidateIndex) []fuzzyCandidate {
	tol := rs.cfg.AmountTolerance

	// The index stores raw statement amounts; translate the polarity-adjusted
	// window back into raw terms.
	lo, hi := l.Amount.Sub(tol), l.Amount.Add(tol)
	if rs.cfg.Polarity == PolarityInverted {
		lo, hi = hi.Neg(), lo.Neg()
	}

	var out []fuzzyCandidate
	for _, s := range withinDateWindow(ix.amountWindow(lo, hi), l.Date, rs.cfg.DateToleranceDays) {
		diff := dayDiff(l.Date, s.Date)
		score := similarity.Score(l.Reference, s.Reference)
		if score < rs.cfg.FuzzyThreshold {
			continue
		}
		out = append(out, fuzzyCandidate{rec: s, score: score, dayDiff: diff})
	}

	// Same tie-break chain as the perfect tier, led by the score.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		if out[i].dayDiff != out[j].dayDiff {
			return out[i].dayDiff < out[j].dayDiff
		}
		if out[i].rec.Reference != out[j].rec.Reference {
			return out[i].rec.Reference < out[j].rec.Reference
		}
		return out[i].rec.ID < out[j].rec.ID
	})
	return out
}
