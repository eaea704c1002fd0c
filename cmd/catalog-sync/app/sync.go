package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcpdirectory/catalog-sync/internal/config"
	"github.com/mcpdirectory/catalog-sync/internal/db"
	"github.com/mcpdirectory/catalog-sync/internal/logger"
	"github.com/mcpdirectory/catalog-sync/internal/sources"
	"github.com/mcpdirectory/catalog-sync/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one catalog sync pass",
	Long: `Run a single sync pass: fetch candidates from all configured sources,
classify and filter them, reconcile against the persisted catalog, and apply
stale lifecycle processing. The structured run result is printed as JSON.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	syncCmd.Flags().Int("max-pages", 0, "Override the per-source page limit (0 = use config)")
	syncCmd.Flags().String("trigger", "manual", "Trigger label recorded in the run ledger")

	if err := syncCmd.MarkFlagRequired("config"); err != nil {
		logger.Fatalf("Failed to mark config flag as required: %v", err)
	}
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	trigger, err := cmd.Flags().GetString("trigger")
	if err != nil {
		return fmt.Errorf("failed to get trigger flag: %w", err)
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if maxPages, ferr := cmd.Flags().GetInt("max-pages"); ferr == nil && maxPages > 0 {
		cfg.Sync.MaxPages = maxPages
	}

	adapters, err := sources.NewAdapters(&cfg.Sources)
	if err != nil {
		return fmt.Errorf("failed to build source adapters: %w", err)
	}

	conn, err := db.NewConnection(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Errorf("Error closing database connection: %v", closeErr)
		}
	}()

	engine, err := sync.New(cfg, adapters, conn.Store, conn.Store, conn.Store)
	if err != nil {
		return fmt.Errorf("failed to build sync engine: %w", err)
	}

	logger.Infof("Starting sync for directory %q (trigger: %s)", cfg.DirectoryName, trigger)
	result, err := engine.Run(ctx, trigger)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format sync result: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(output))

	if result.Skipped {
		logger.Infof("Sync skipped: %s", result.SkipReason)
	}
	return nil
}
