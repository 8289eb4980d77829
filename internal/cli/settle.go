package cli

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"github.com/Mutombwa/bard-reco/internal/domain/recon"
	"github.com/Mutombwa/bard-reco/internal/infrastructure/config"
	"github.com/Mutombwa/bard-reco/internal/infrastructure/storage"
	"github.com/Mutombwa/bard-reco/internal/observability"
)

type settleCmd struct {
	filePath   string
	configPath string
	outPath    string
	currency   string
	record     bool

	cols mappingFlags
}

func (*settleCmd) Name() string { return "settle" }
func (*settleCmd) Synopsis() string {
	return "run the settlement cascade over a single debit/credit CSV"
}
func (*settleCmd) Usage() string {
	return `bardreco settle -file <file.csv> [flags]

  Pairs debits against credits within one file through the settlement
  cascade: exact amounts first, then tolerance, percentage threshold and
  grouped combinations.
`
}

func (c *settleCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.filePath, "file", "", "path to the debit/credit CSV file (required)")
	f.StringVar(&c.configPath, "config", "config.yaml", "path to the configuration file")
	f.StringVar(&c.outPath, "out", "", "write the full JSON result to this file")
	f.StringVar(&c.currency, "currency", "USD", "currency code used when formatting amounts")
	f.BoolVar(&c.record, "record", false, "record the run in the run-history database")
	c.cols.register(f, "file")
}

func (c *settleCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.filePath == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}

	cfg := config.LoadOrEnvWithPath(c.configPath)
	logger := observability.NewLogger(cfg.Observability.Logging)

	engine, err := recon.New(cfg.Matching, logger)
	if err != nil {
		return fail(err)
	}

	ds, err := loadDataset(c.filePath, c.cols.mapping())
	if err != nil {
		return fail(err)
	}

	res, err := engine.Settle(ctx, ds)
	if err != nil {
		return fail(err)
	}

	if c.record {
		if err := recordRun(cfg, storage.ModeSettle, res); err != nil {
			logger.Error("failed to record run", "error", err)
		}
	}

	printSummary(os.Stdout, res, c.currency)
	if c.outPath != "" {
		if err := writeResult(res, c.outPath); err != nil {
			return fail(err)
		}
	}
	return subcommands.ExitSuccess
}
