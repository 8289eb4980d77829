package recon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.DateToleranceDays)
	assert.Equal(t, 85, cfg.FuzzyThreshold)
	assert.Equal(t, 6, cfg.SplitMaxGroupSize)
	assert.True(t, cfg.ForeignCreditThreshold.Equal(decimal.NewFromInt(10000)))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"negative date tolerance", func(c *Config) { c.DateToleranceDays = -1 }, "date_tolerance_days"},
		{"negative amount tolerance", func(c *Config) { c.AmountTolerance = decimal.NewFromInt(-1) }, "amount_tolerance"},
		{"percent above 100", func(c *Config) { c.AmountTolerancePercent = decimal.NewFromInt(101) }, "amount_tolerance_percent"},
		{"fuzzy threshold too high", func(c *Config) { c.FuzzyThreshold = 101 }, "fuzzy_threshold"},
		{"split group too small", func(c *Config) { c.SplitMaxGroupSize = 1 }, "split_max_group_size"},
		{"split group too large", func(c *Config) { c.SplitMaxGroupSize = 7 }, "split_max_group_size"},
		{"zero search ceiling", func(c *Config) { c.SplitSearchCeiling = 0 }, "split_search_ceiling"},
		{"bad polarity", func(c *Config) { c.Polarity = "sideways" }, "polarity"},
		{"bad direction", func(c *Config) { c.SplitDirection = "diagonal" }, "split_direction"},
		{"unknown tier", func(c *Config) { c.EnabledTiers = []string{"psychic"} }, "enabled_tiers"},
		{"duplicate tier", func(c *Config) { c.EnabledTiers = []string{TierPerfect, TierPerfect} }, "enabled_tiers"},
		{"fuzzy before perfect", func(c *Config) { c.EnabledTiers = []string{TierFuzzy, TierPerfect} }, "enabled_tiers"},
		{"split before fuzzy", func(c *Config) { c.EnabledTiers = []string{TierSplit, TierFuzzy} }, "enabled_tiers"},
		{"foreign credit after fuzzy", func(c *Config) { c.EnabledTiers = []string{TierPerfect, TierFuzzy, TierForeignCredit} }, "enabled_tiers"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.field, cfgErr.Field)
		})
	}
}

func TestConfig_ValidTierOrders(t *testing.T) {
	orders := [][]string{
		{TierForeignCredit, TierPerfect, TierFuzzy, TierSplit},
		{TierPerfect, TierForeignCredit, TierFuzzy, TierSplit},
		{TierPerfect},
		{TierPerfect, TierSplit},
		{},
	}
	for _, tiers := range orders {
		cfg := DefaultConfig()
		cfg.EnabledTiers = tiers
		assert.NoError(t, cfg.Validate(), "tiers %v", tiers)
	}
}

func TestConfig_AmountToleranceFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AmountTolerance = decimal.RequireFromString("0.50")
	cfg.AmountTolerancePercent = decimal.NewFromInt(1)

	// 1% of 1000 beats the absolute 0.50.
	assert.Equal(t, "10", cfg.amountToleranceFor(decimal.NewFromInt(1000)).String())
	// Absolute floor wins for small targets.
	assert.Equal(t, "0.5", cfg.amountToleranceFor(decimal.NewFromInt(10)).String())
}
