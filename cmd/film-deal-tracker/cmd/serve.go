package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/film-deal-tracker/internal/config"
	"github.com/donaldgifford/film-deal-tracker/internal/engine"
	"github.com/donaldgifford/film-deal-tracker/internal/telemetry"
	"github.com/donaldgifford/film-deal-tracker/pkg/logger"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format).With("service", cfg.Telemetry.ServiceName)

	startCtx, cancel := context.WithTimeout(cmd.Context(), startupTimeout)
	defer cancel()

	shutdownTelemetry, err := telemetry.Setup(startCtx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		ServiceName: cfg.Telemetry.ServiceName,
		SampleRatio: cfg.Telemetry.SampleRatio,
	}, Version, log)
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}

	s, err := openStore(startCtx, &cfg.Database, log)
	if err != nil {
		return err
	}
	defer s.Close()

	a, err := buildApp(cfg, s, log)
	if err != nil {
		return err
	}

	var sched *engine.Scheduler
	if cfg.Schedule.Enabled {
		sched, err = engine.NewScheduler(a.engine, cfg.Schedule.CheckInterval, cfg.Schedule.RunTimeout, log)
		if err != nil {
			return fmt.Errorf("creating scheduler: %w", err)
		}
		sched.Start()
		log.Info("scheduling checks", "interval", cfg.Schedule.CheckInterval)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("starting server", "addr", addr, "version", Version, "driver", cfg.Database.Driver)

	serverErr := make(chan error, 1)
	go func() {
		if err := a.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-quit:
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("server error: %w", err)
		}
	}

	log.Info("shutting down server")

	ctx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()

	if sched != nil {
		select {
		case <-sched.Stop().Done():
		case <-ctx.Done():
			log.Warn("scheduled check still running at shutdown")
		}
	}
	if err := a.echo.Shutdown(ctx); err != nil {
		log.Error("shutting down server", "error", err)
	}
	if err := shutdownTelemetry(ctx); err != nil {
		log.Error("shutting down telemetry", "error", err)
	}

	log.Info("server stopped")
	return runErr
}
