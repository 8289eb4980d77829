package storage

// Repository defines the run-history storage interface.
// This interface allows swapping implementations (SQLite, PostgreSQL, etc.)
// and makes testing with mocks straightforward.
type Repository interface {
	// SaveRun persists the audit record of a completed run
	SaveRun(run *RunRecord) error

	// GetRun retrieves a run by its run ID
	GetRun(runID string) (*RunRecord, error)

	// ListRuns returns runs matching the given filters with pagination
	ListRuns(filters RunFilters) (*RunListResult, error)

	// GetStats returns aggregate statistics across all runs
	GetStats() (*Stats, error)

	Close() error
}

// RunFilters defines filters for listing runs
type RunFilters struct {
	Mode     string // Filter by mode (empty = all)
	DaysBack int    // How many days back to look (0 = all time)
	Limit    int    // Max results (0 = default 50)
	Offset   int    // Pagination offset
}
