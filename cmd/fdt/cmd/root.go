// Package cmd implements the fdt CLI commands.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apiclient "github.com/donaldgifford/film-deal-tracker/internal/api/client"
)

var (
	cfgFile string
	rootCmd = newRootCmd()
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fdt",
		Short: "CLI client for Film Deal Tracker",
		Long: "fdt is a command-line client for the Film Deal Tracker API.\n" +
			"It lets you run deal checks, inspect the deal cache and sale calendar,\n" +
			"resolve alternate titles, and manage subscribers and watchlists.",
		SilenceUsage: true,
	}

	root.PersistentFlags().
		StringVar(&cfgFile, "config", "", "config file (default $HOME/.fdt.yaml)")
	root.PersistentFlags().
		String("server", "http://localhost:8080", "API server URL")
	root.PersistentFlags().
		String("output", "table", "output format (table, json)")

	cobra.CheckErr(viper.BindPFlag("server", root.PersistentFlags().Lookup("server")))
	cobra.CheckErr(viper.BindPFlag("output", root.PersistentFlags().Lookup("output")))

	root.AddCommand(
		checkCmd(),
		runsCmd(),
		cacheCmd(),
		salesCmd(),
		resolveCmd(),
		subscriberCmd(),
		watchlistCmd(),
	)
	return root
}

// Root returns the root cobra command for documentation generation.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".fdt")
	}

	viper.SetEnvPrefix("FDT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newClient() *apiclient.Client {
	return apiclient.New(viper.GetString("server"))
}

func jsonOutput() bool {
	return viper.GetString("output") == "json"
}

// render writes v as JSON or hands it to the table printer.
func render(w io.Writer, v any, table func(io.Writer) error) error {
	if jsonOutput() {
		return outputJSON(w, v)
	}
	return table(w)
}
