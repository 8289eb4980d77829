package recon

import (
	"fmt"
	"runtime"

	"github.com/shopspring/decimal"
)

// Tier names accepted in Config.EnabledTiers.
const (
	TierForeignCredit = "foreign_credit"
	TierPerfect       = "perfect"
	TierFuzzy         = "fuzzy"
	TierSplit         = "split"
)

// Polarity is the sign convention used when comparing ledger and statement
// amounts.
type Polarity string

const (
	// PolaritySame compares amounts as-is.
	PolaritySame Polarity = "same"
	// PolarityInverted negates statement amounts before comparison, for
	// feeds where a ledger debit appears as a statement credit.
	PolarityInverted Polarity = "inverted"
)

// SplitDirection selects which side provides the target amount for the
// combinatorial split tier.
type SplitDirection string

const (
	// SplitLedgerTarget searches statement combinations balancing each
	// remaining ledger amount.
	SplitLedgerTarget SplitDirection = "ledger"
	// SplitStatementTarget searches ledger combinations balancing each
	// remaining statement amount.
	SplitStatementTarget SplitDirection = "statement"
)

// Config holds every knob the matching engine recognizes.
type Config struct {
	DateToleranceDays      int             `yaml:"date_tolerance_days" json:"date_tolerance_days"`
	AmountTolerance        decimal.Decimal `yaml:"amount_tolerance" json:"amount_tolerance"`
	AmountTolerancePercent decimal.Decimal `yaml:"amount_tolerance_percent" json:"amount_tolerance_percent"`
	FuzzyThreshold         int             `yaml:"fuzzy_threshold" json:"fuzzy_threshold"`
	ForeignCreditThreshold decimal.Decimal `yaml:"foreign_credit_threshold" json:"foreign_credit_threshold"`
	SplitMaxGroupSize      int             `yaml:"split_max_group_size" json:"split_max_group_size"`
	SplitSearchCeiling     int             `yaml:"split_search_ceiling" json:"split_search_ceiling"`
	SplitDirection         SplitDirection  `yaml:"split_direction" json:"split_direction"`
	Polarity               Polarity        `yaml:"polarity" json:"polarity"`
	ReferenceStrip         string          `yaml:"reference_strip" json:"reference_strip,omitempty"`
	EnabledTiers           []string        `yaml:"enabled_tiers" json:"enabled_tiers"`
	Workers                int             `yaml:"workers" json:"workers"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		DateToleranceDays:      3,
		AmountTolerance:        decimal.RequireFromString("0.01"),
		AmountTolerancePercent: decimal.Zero,
		FuzzyThreshold:         85,
		ForeignCreditThreshold: decimal.NewFromInt(10000),
		SplitMaxGroupSize:      6,
		SplitSearchCeiling:     100000,
		SplitDirection:         SplitLedgerTarget,
		Polarity:               PolaritySame,
		EnabledTiers:           []string{TierForeignCredit, TierPerfect, TierFuzzy, TierSplit},
		Workers:                0, // 0 means one per CPU
	}
}

// Validate fails fast on a bad configuration, before any matching starts.
func (c *Config) Validate() error {
	if c.DateToleranceDays < 0 {
		return &ConfigError{Field: "date_tolerance_days", Reason: "must be >= 0"}
	}
	if c.AmountTolerance.IsNegative() {
		return &ConfigError{Field: "amount_tolerance", Reason: "must be >= 0"}
	}
	if c.AmountTolerancePercent.IsNegative() || c.AmountTolerancePercent.GreaterThan(decimal.NewFromInt(100)) {
		return &ConfigError{Field: "amount_tolerance_percent", Reason: "must be in [0, 100]"}
	}
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 100 {
		return &ConfigError{Field: "fuzzy_threshold", Reason: "must be in [0, 100]"}
	}
	if c.ForeignCreditThreshold.IsNegative() {
		return &ConfigError{Field: "foreign_credit_threshold", Reason: "must be >= 0"}
	}
	if c.SplitMaxGroupSize < 2 || c.SplitMaxGroupSize > 6 {
		return &ConfigError{Field: "split_max_group_size", Reason: "must be in [2, 6]"}
	}
	if c.SplitSearchCeiling <= 0 {
		return &ConfigError{Field: "split_search_ceiling", Reason: "must be > 0"}
	}
	switch c.SplitDirection {
	case SplitLedgerTarget, SplitStatementTarget:
	default:
		return &ConfigError{Field: "split_direction", Reason: fmt.Sprintf("unknown value %q", c.SplitDirection)}
	}
	switch c.Polarity {
	case PolaritySame, PolarityInverted:
	default:
		return &ConfigError{Field: "polarity", Reason: fmt.Sprintf("unknown value %q", c.Polarity)}
	}
	if c.Workers < 0 {
		return &ConfigError{Field: "workers", Reason: "must be >= 0"}
	}
	return c.validateTiers()
}

// validateTiers checks EnabledTiers is an ordered subset of the known tiers.
// Relative order perfect -> fuzzy -> split is fixed; foreign_credit may run
// before or after perfect but always before fuzzy.
func (c *Config) validateTiers() error {
	rank := map[string]int{}
	for i, name := range c.EnabledTiers {
		switch name {
		case TierForeignCredit, TierPerfect, TierFuzzy, TierSplit:
		default:
			return &ConfigError{Field: "enabled_tiers", Reason: fmt.Sprintf("unknown tier %q", name)}
		}
		if _, dup := rank[name]; dup {
			return &ConfigError{Field: "enabled_tiers", Reason: fmt.Sprintf("duplicate tier %q", name)}
		}
		rank[name] = i
	}

	inOrder := func(before, after string) bool {
		b, okB := rank[before]
		a, okA := rank[after]
		return !okB || !okA || b < a
	}
	if !inOrder(TierPerfect, TierFuzzy) || !inOrder(TierFuzzy, TierSplit) || !inOrder(TierPerfect, TierSplit) {
		return &ConfigError{Field: "enabled_tiers", Reason: "tiers must run in order perfect, fuzzy, split"}
	}
	if !inOrder(TierForeignCredit, TierFuzzy) {
		return &ConfigError{Field: "enabled_tiers", Reason: "foreign_credit must run before fuzzy"}
	}
	return nil
}

// workerCount resolves Workers, defaulting to one worker per CPU.
func (c *Config) workerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// statementAmount applies the configured polarity to a statement amount so it
// can be compared directly against ledger amounts.
func (c *Config) statementAmount(a decimal.Decimal) decimal.Decimal {
	if c.Polarity == PolarityInverted {
		return a.Neg()
	}
	return a
}

// amountToleranceFor returns the effective tolerance for a target amount: the
// larger of the absolute tolerance and the percentage-derived one.
func (c *Config) amountToleranceFor(target decimal.Decimal) decimal.Decimal {
	tol := c.AmountTolerance
	if c.AmountTolerancePercent.IsPositive() {
		pct := target.Abs().Mul(c.AmountTolerancePercent).Div(decimal.NewFromInt(100))
		if pct.GreaterThan(tol) {
			tol = pct
		}
	}
	return tol
}

// withinDays reports whether two calendar days are at most tol days apart.
func withinDays(a, b int64 /* unix days */, tol int) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= int64(tol)
}
