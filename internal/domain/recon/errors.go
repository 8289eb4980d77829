package recon

import (
	"fmt"
	"strings"
)

// ConfigError reports an invalid Config. Surfaced before any tier
// runs; a run never starts on a bad configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// MappingError reports a column role that does not exist in the input rows.
type MappingError struct {
	Side   Side
	Role   string
	Column string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("invalid column mapping: %s role %q refers to missing column %q",
		e.Side, e.Role, e.Column)
}

// ConsistencyError means a record was consumed twice. This is a logic defect
// in the engine, never bad input, and aborts the run rather than producing a
// silently wrong result.
type ConsistencyError struct {
	Tier         string
	LedgerIDs    []int
	StatementIDs []int
}

func (e *ConsistencyError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "internal consistency violation in %s tier: double consumption", e.Tier)
	if len(e.LedgerIDs) > 0 {
		fmt.Fprintf(&b, " (ledger ids %v)", e.LedgerIDs)
	}
	if len(e.StatementIDs) > 0 {
		fmt.Fprintf(&b, " (statement ids %v)", e.StatementIDs)
	}
	return b.String()
}
