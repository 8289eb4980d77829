package cli

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"

	"github.com/Mutombwa/bard-reco/internal/api"
	"github.com/Mutombwa/bard-reco/internal/infrastructure/config"
	"github.com/Mutombwa/bard-reco/internal/infrastructure/storage"
	"github.com/Mutombwa/bard-reco/internal/observability"
)

type serveCmd struct {
	configPath string
}

func (*serveCmd) Name() string { return "serve" }
func (*serveCmd) Synopsis() string {
	return "start the HTTP reconciliation API"
}
func (*serveCmd) Usage() string {
	return `bardreco serve [-config <file>]

  Serves the reconciliation API over HTTP until interrupted.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "config.yaml", "path to the configuration file")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := config.LoadOrEnvWithPath(c.configPath)
	logger := observability.NewLogger(cfg.Observability.Logging)

	repo, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to open run-history database", "path", cfg.Storage.DatabasePath, "error", err)
		return subcommands.ExitFailure
	}
	defer repo.Close()

	server := api.NewServer(api.Config{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Matching:       cfg.Matching,
	}, repo, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
			return subcommands.ExitFailure
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
			return subcommands.ExitFailure
		}
	}

	return subcommands.ExitSuccess
}
