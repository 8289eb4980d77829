package recon

import "sync"

// matchLedger is the sole owner of consumed state. Every accepted MatchGroup
// goes through TryConsume, which flips all member records atomically; no tier
// touches consumption flags directly. This single serialization point is what
// makes parallel candidate generation safe and the no-double-match invariant
// auditable in one place.
type matchLedger struct {
	mu                sync.Mutex
	ledgerConsumed    map[int]bool
	statementConsumed map[int]bool
	groups            []MatchGroup
}

func newMatchLedger() *matchLedger {
	return &matchLedger{
		ledgerConsumed:    make(map[int]bool),
		statementConsumed: make(map[int]bool),
	}
}

// TryConsume registers g if and only if none of its members are already
// consumed. Returns false without side effects otherwise. Tiers only ever
// propose records drawn from the unmatched pool, so a false return signals a
// logic defect upstream, not a recoverable condition.
func (ml *matchLedger) TryConsume(g MatchGroup) bool {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	for _, id := range g.LedgerIDs {
		if ml.ledgerConsumed[id] {
			return false
		}
	}
	for _, id := range g.StatementIDs {
		if ml.statementConsumed[id] {
			return false
		}
	}

	for _, id := range g.LedgerIDs {
		ml.ledgerConsumed[id] = true
	}
	for _, id := range g.StatementIDs {
		ml.statementConsumed[id] = true
	}
	ml.groups = append(ml.groups, g)
	return true
}

// Consumed reports whether a record has been assigned to an accepted group.
func (ml *matchLedger) Consumed(side Side, id int) bool {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	if side == SideLedger {
		return ml.ledgerConsumed[id]
	}
	return ml.statementConsumed[id]
}

// Groups returns all registered groups in acceptance order.
func (ml *matchLedger) Groups() []MatchGroup {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	out := make([]MatchGroup, len(ml.groups))
	copy(out, ml.groups)
	return out
}
