package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Abhishek8108/uk-stock-analyzer/models"
	"github.com/Abhishek8108/uk-stock-analyzer/observability"
)

var runTestMode bool

// runCmd runs one screen and exits non-zero if it fails
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily screen once",
	Long: `Analyse the configured universe, rank it, validate the result and publish
the picks. The command exits non-zero when the run fails.

Examples:
  analyzer run
  analyzer run --test
  analyzer run --config config/config.yaml`,
	RunE: runScreen,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runTestMode, "test", false, "Screen the reduced test universe")
}

func runScreen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		application.Shutdown(shutdownCtx)
		if err := observability.ShutdownTracing(shutdownCtx); err != nil {
			observability.Warn("failed to flush traces", "error", err)
		}
	}()

	mode := models.RunModeDaily
	if runTestMode {
		mode = models.RunModeTest
	}

	run, err := application.RunScreen(ctx, mode)
	if err != nil {
		return err
	}

	observability.Info("run finished",
		"run_id", run.ID.String(),
		"picks", run.PickCount(),
		"published", run.Published,
		"duration_ms", run.DurationMs)
	return nil
}
