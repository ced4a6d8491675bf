package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Abhishek8108/uk-stock-analyzer/internal/api"
	"github.com/Abhishek8108/uk-stock-analyzer/internal/scheduler"
	"github.com/Abhishek8108/uk-stock-analyzer/observability"
)

var serveRunOnStart bool

// serveCmd runs the HTTP API and the daily scheduler
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run API and schedule the daily screen",
	Long: `Start the HTTP API (health, run history, manual trigger, Prometheus
metrics) and run the daily screen on the configured cron schedule.

Examples:
  analyzer serve
  analyzer serve --run-on-start`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveRunOnStart, "run-on-start", false, "Trigger a daily run immediately after startup")
}

func runServe(cmd *cobra.Command, args []string) error {
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
	application.Startup(ctx)

	sched := scheduler.NewScheduler(application)
	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		return err
	}
	sched.Start()
	if serveRunOnStart {
		sched.RunNow()
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(api.NewHandler(application), cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		observability.Info("HTTP server listening", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		observability.Info("shutting down")
	case err = <-errCh:
		observability.Error("HTTP server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sched.Stop()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		observability.Warn("HTTP server shutdown error", "error", shutdownErr)
	}
	application.Shutdown(shutdownCtx)
	if tracingErr := observability.ShutdownTracing(shutdownCtx); tracingErr != nil {
		observability.Warn("failed to flush traces", "error", tracingErr)
	}
	return err
}
