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

type runCmd struct {
	ledgerPath    string
	statementPath string
	configPath    string
	outPath       string
	currency      string
	record        bool

	ledgerCols mappingFlags
	stmtCols   mappingFlags
}

func (*runCmd) Name() string { return "run" }
func (*runCmd) Synopsis() string {
	return "reconcile a ledger CSV against a statement CSV"
}
func (*runCmd) Usage() string {
	return `bardreco run -ledger <file.csv> -statement <file.csv> [flags]

  Matches the ledger against the statement through the configured tier
  cascade and prints a summary. The full result is written as JSON to
  -out when given.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ledgerPath, "ledger", "", "path to the ledger CSV file (required)")
	f.StringVar(&c.statementPath, "statement", "", "path to the statement CSV file (required)")
	f.StringVar(&c.configPath, "config", "config.yaml", "path to the configuration file")
	f.StringVar(&c.outPath, "out", "", "write the full JSON result to this file")
	f.StringVar(&c.currency, "currency", "USD", "currency code used when formatting amounts")
	f.BoolVar(&c.record, "record", false, "record the run in the run-history database")
	c.ledgerCols.register(f, "ledger")
	c.stmtCols.register(f, "statement")
}

func (c *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.ledgerPath == "" || c.statementPath == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}

	cfg := config.LoadOrEnvWithPath(c.configPath)
	logger := observability.NewLogger(cfg.Observability.Logging)

	engine, err := recon.New(cfg.Matching, logger)
	if err != nil {
		return fail(err)
	}

	ledger, err := loadDataset(c.ledgerPath, c.ledgerCols.mapping())
	if err != nil {
		return fail(err)
	}
	statement, err := loadDataset(c.statementPath, c.stmtCols.mapping())
	if err != nil {
		return fail(err)
	}

	res, err := engine.Reconcile(ctx, ledger, statement)
	if err != nil {
		return fail(err)
	}

	if c.record {
		if err := recordRun(cfg, storage.ModeReconcile, res); err != nil {
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

// recordRun appends the run to the sqlite run history.
func recordRun(cfg *config.Config, mode string, res *recon.Result) error {
	repo, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer repo.Close()
	return repo.SaveRun(storage.NewRunRecord(mode, res))
}
