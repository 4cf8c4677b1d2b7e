// Package cmd implements the CLI commands for film-deal-tracker.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:   "film-deal-tracker",
	Short: "Watch boutique film editions for deals",
	Long: "An API-first service that resolves watchlist titles to their alternate names,\n" +
		"searches shopping results for boutique label editions, caches offers with\n" +
		"sale-aware validity, and notifies subscribers when an edition gets cheaper.",
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return loadEnvFile(envFile)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.AddCommand(versionCommand())
}

// loadEnvFile loads KEY=value pairs so ${VAR} references in the config
// resolve. A missing file is not an error; variables already set win.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil //nolint:nilerr // a missing env file is optional
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
