package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/metador-go/ih5/internal/logger"
	"github.com/metador-go/ih5/pkg/catalog"
	"github.com/metador-go/ih5/pkg/registry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only chain registry HTTP server",
	Long: `Serve starts the registry server, which exposes the local catalog
and each chain's manifest/user-block history to remote hosts over HTTP.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return err
	}

	if !cfg.Registry.Enabled {
		cmd.Println("registry is disabled (registry.enabled = false); nothing to do")
		return nil
	}

	store, err := catalog.Open(cfg.Catalog)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	srv := registry.NewServer(cfg.Registry, store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Start(ctx)
}
