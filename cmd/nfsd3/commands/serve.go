package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nfsd3/nfsd3/internal/app"
	"github.com/nfsd3/nfsd3/internal/config"
	"github.com/nfsd3/nfsd3/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the NFSv3 server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("nfsd3 starting", "exports", len(cfg.Exports), "listen_addr", cfg.Server.ListenAddr)
	if err := app.Run(ctx, cfg); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	logger.Info("nfsd3 stopped")
	return nil
}
