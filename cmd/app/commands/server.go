package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/doktor-sys/mietrecht-kms/internal/app"
	"github.com/doktor-sys/mietrecht-kms/internal/config"
	"github.com/doktor-sys/mietrecht-kms/internal/kms/scheduler"
)

// RunServer starts the operational HTTP server and the key maintenance
// scheduler with graceful shutdown support. Loads configuration, initializes
// the DI container, and blocks until receiving SIGINT/SIGTERM or encountering
// a fatal error. On shutdown the ops server drains within DBConnMaxLifetime.
func RunServer(ctx context.Context, version string) error {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode based on log level
	gin.SetMode(cfg.GetGinMode())

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("starting key management service", slog.String("version", version))

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Get ops server from container (this initializes all dependencies)
	server, err := container.OpsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize ops server: %w", err)
	}

	var sched *scheduler.Scheduler
	if cfg.AutoRotationEnabled {
		sched, err = container.Scheduler()
		if err != nil {
			return fmt.Errorf("failed to initialize scheduler: %w", err)
		}
	} else {
		logger.Warn("auto-rotation is disabled, scheduler will not run")
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(gctx); err != nil {
			return fmt.Errorf("ops server error: %w", err)
		}
		return nil
	})

	if sched != nil {
		g.Go(func() error {
			// The scheduler returns the context error on a clean stop.
			if err := sched.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("scheduler error: %w", err)
			}
			return nil
		})
	}

	// Drain the ops server once a shutdown signal arrives or a worker fails.
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(
			context.Background(),
			cfg.DBConnMaxLifetime,
		)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("ops server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}
