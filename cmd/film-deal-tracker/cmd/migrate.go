package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/film-deal-tracker/internal/config"
	"github.com/donaldgifford/film-deal-tracker/pkg/logger"
)

const migrateTimeout = 60 * time.Second

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithTimeout(cmd.Context(), migrateTimeout)
	defer cancel()

	// openStore migrates as part of opening.
	s, err := openStore(ctx, &cfg.Database, log)
	if err != nil {
		return err
	}
	defer s.Close()

	log.Info("migrations complete", "driver", cfg.Database.Driver)
	return nil
}
