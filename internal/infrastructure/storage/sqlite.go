package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage provides SQLite database access for run history.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints (SQLite-specific)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Storage{db: db}

	// Run all pending migrations
	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveRun persists the audit record of a completed run
func (s *Storage) SaveRun(run *RunRecord) error {
	query := `
	INSERT OR REPLACE INTO runs
	(run_id, mode, started_at, duration_ms, config_json,
	 total_ledger, total_statement, perfect_matches, fuzzy_matches,
	 split_matches, foreign_credits, settlement_matches,
	 unmatched_ledger, unmatched_statement, excluded, incomplete)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		run.RunID,
		run.Mode,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.DurationMs,
		run.ConfigJSON,
		run.TotalLedger,
		run.TotalStatement,
		run.PerfectMatches,
		run.FuzzyMatches,
		run.SplitMatches,
		run.ForeignCredits,
		run.SettlementMatches,
		run.UnmatchedLedger,
		run.UnmatchedStatement,
		run.Excluded,
		run.Incomplete,
	)

	return err
}

const runColumns = `run_id, mode, started_at, duration_ms, config_json,
       total_ledger, total_statement, perfect_matches, fuzzy_matches,
       split_matches, foreign_credits, settlement_matches,
       unmatched_ledger, unmatched_statement, excluded, incomplete`

// GetRun retrieves a run by its run ID
func (s *Storage) GetRun(runID string) (*RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE run_id = ?`

	run, err := scanRun(s.db.QueryRow(query, runID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns runs matching the given filters with pagination
func (s *Storage) ListRuns(filters RunFilters) (*RunListResult, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}

	where := "WHERE 1=1"
	args := []interface{}{}

	if filters.Mode != "" {
		where += " AND mode = ?"
		args = append(args, filters.Mode)
	}
	if filters.DaysBack > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -filters.DaysBack)
		where += " AND started_at >= ?"
		args = append(args, cutoff.Format(time.RFC3339))
	}

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM runs "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}

	query := `SELECT ` + runColumns + ` FROM runs ` + where +
		` ORDER BY started_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, filters.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	result := &RunListResult{
		Runs:       []*RunRecord{},
		TotalCount: total,
		Limit:      limit,
		Offset:     filters.Offset,
	}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		result.Runs = append(result.Runs, run)
	}
	return result, rows.Err()
}

// GetStats returns aggregate statistics across all runs
func (s *Storage) GetStats() (*Stats, error) {
	query := `
	SELECT COUNT(*),
	       COALESCE(SUM(CASE WHEN incomplete THEN 1 ELSE 0 END), 0),
	       COALESCE(SUM(perfect_matches + fuzzy_matches + split_matches + settlement_matches), 0),
	       COALESCE(AVG(duration_ms), 0),
	       COALESCE(SUM(total_ledger), 0)
	FROM runs
	`

	stats := &Stats{}
	var avgMs float64
	err := s.db.QueryRow(query).Scan(
		&stats.TotalRuns,
		&stats.IncompleteRuns,
		&stats.TotalGroups,
		&avgMs,
		&stats.TotalLedgerRows,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	stats.AvgDurationMs = int64(avgMs)
	return stats, nil
}

// scanner abstracts *sql.Row and *sql.Rows for shared scanning
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(sc scanner) (*RunRecord, error) {
	run := &RunRecord{}
	var startedAt string
	err := sc.Scan(
		&run.RunID,
		&run.Mode,
		&startedAt,
		&run.DurationMs,
		&run.ConfigJSON,
		&run.TotalLedger,
		&run.TotalStatement,
		&run.PerfectMatches,
		&run.FuzzyMatches,
		&run.SplitMatches,
		&run.ForeignCredits,
		&run.SettlementMatches,
		&run.UnmatchedLedger,
		&run.UnmatchedStatement,
		&run.Excluded,
		&run.Incomplete,
	)
	if err != nil {
		return nil, err
	}
	if t, perr := time.Parse(time.RFC3339, startedAt); perr == nil {
		run.StartedAt = t
	}
	return run, nil
}
