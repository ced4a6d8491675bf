// Command analyzer screens the UK equity universe, ranks it with a language
// model and publishes the daily picks.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Abhishek8108/uk-stock-analyzer/config"
	"github.com/Abhishek8108/uk-stock-analyzer/internal/settings"
	"github.com/Abhishek8108/uk-stock-analyzer/observability"
)

var configPath string

// rootCmd is the base command for the analyzer CLI
var rootCmd = &cobra.Command{
	Use:   "analyzer",
	Short: "Daily UK stock screener",
	Long: `analyzer computes technical indicators and news sentiment for a list of
UK equities, asks a language model to rank them and publishes the top picks
to a Google spreadsheet.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil {
			observability.Debug("no .env file found, using environment variables")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath, "Path to the YAML configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the configuration and sets up logging and tracing from it
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if store, err := openCredentials(); err != nil {
		observability.Warn("stored credentials unavailable", "error", err)
	} else {
		store.Apply(cfg)
	}

	observability.InitLoggerWithLevel(cfg.Log.Production, observability.ParseLevel(cfg.Log.Level))
	observability.InitMetrics()
	if err := observability.InitTracing(cfg.Log.TracingEnabled); err != nil {
		observability.Warn("failed to initialize tracing", "error", err)
	}
	return cfg, nil
}

// openCredentials opens the encrypted credentials store. CREDENTIALS_DIR and
// CREDENTIALS_PASSPHRASE override its location and key.
func openCredentials() (*settings.Store, error) {
	return settings.NewStore(os.Getenv("CREDENTIALS_DIR"), os.Getenv("CREDENTIALS_PASSPHRASE"))
}
