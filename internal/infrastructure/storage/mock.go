package storage

import (
	"sort"
	"time"
)

// MockRepository is an in-memory implementation of Repository for testing.
// It stores all data in a map, making tests fast and isolated.
type MockRepository struct {
	runs map[string]*RunRecord

	// Hooks for test assertions
	SaveRunCalled  bool
	LastSavedRun   *RunRecord
	GetRunCalled   bool
	ListRunsCalled bool

	// Error injection for testing error paths
	SaveRunErr  error
	GetRunErr   error
	ListRunsErr error
	GetStatsErr error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		runs: make(map[string]*RunRecord),
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// SaveRun saves a run to the in-memory map
func (m *MockRepository) SaveRun(run *RunRecord) error {
	m.SaveRunCalled = true
	m.LastSavedRun = run
	if m.SaveRunErr != nil {
		return m.SaveRunErr
	}
	// Deep copy to avoid test mutations
	copied := *run
	m.runs[run.RunID] = &copied
	return nil
}

// GetRun retrieves a run from the in-memory map
func (m *MockRepository) GetRun(runID string) (*RunRecord, error) {
	m.GetRunCalled = true
	if m.GetRunErr != nil {
		return nil, m.GetRunErr
	}
	run, ok := m.runs[runID]
	if !ok {
		return nil, nil
	}
	copied := *run
	return &copied, nil
}

// ListRuns returns runs matching the filters, newest first
func (m *MockRepository) ListRuns(filters RunFilters) (*RunListResult, error) {
	m.ListRunsCalled = true
	if m.ListRunsErr != nil {
		return nil, m.ListRunsErr
	}

	var cutoff time.Time
	if filters.DaysBack > 0 {
		cutoff = time.Now().UTC().AddDate(0, 0, -filters.DaysBack)
	}

	matched := make([]*RunRecord, 0)
	for _, run := range m.runs {
		if filters.Mode != "" && run.Mode != filters.Mode {
			continue
		}
		if filters.DaysBack > 0 && run.StartedAt.Before(cutoff) {
			continue
		}
		copied := *run
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartedAt.After(matched[j].StartedAt)
	})

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	total := len(matched)
	if filters.Offset < len(matched) {
		matched = matched[filters.Offset:]
	} else {
		matched = matched[:0]
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}

	return &RunListResult{
		Runs:       matched,
		TotalCount: total,
		Limit:      limit,
		Offset:     filters.Offset,
	}, nil
}

// GetStats computes aggregate stats over the in-memory runs
func (m *MockRepository) GetStats() (*Stats, error) {
	if m.GetStatsErr != nil {
		return nil, m.GetStatsErr
	}
	stats := &Stats{}
	var totalMs int64
	for _, run := range m.runs {
		stats.TotalRuns++
		if run.Incomplete {
			stats.IncompleteRuns++
		}
		stats.TotalGroups += run.PerfectMatches + run.FuzzyMatches + run.SplitMatches + run.SettlementMatches
		stats.TotalLedgerRows += run.TotalLedger
		totalMs += run.DurationMs
	}
	if stats.TotalRuns > 0 {
		stats.AvgDurationMs = totalMs / int64(stats.TotalRuns)
	}
	return stats, nil
}
