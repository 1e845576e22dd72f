package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/yt-automation/shorts-dashboard-go/internal/config"
	"github.com/yt-automation/shorts-dashboard-go/internal/orchestrator"
	"github.com/yt-automation/shorts-dashboard-go/internal/queue"
	"github.com/yt-automation/shorts-dashboard-go/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File, cfg.Logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg); err != nil {
		logger.Log.Error("Scheduler exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if cfg.Redis.URL == "" {
		return errors.New("redis url is required to run the scheduler")
	}

	// The scheduler only enqueues runs; workers own the uploader.
	registry, err := orchestrator.NewRegistry(cfg.Orchestrator.AppID, nil, orchestrator.DefaultFunctions(cfg.Orchestrator.LegacyDaily))
	if err != nil {
		return fmt.Errorf("failed to build function registry: %w", err)
	}

	scheduler, err := queue.NewScheduler(cfg.Redis.URL)
	if err != nil {
		return err
	}

	entries, err := queue.RegisterSchedules(scheduler, registry)
	if err != nil {
		return err
	}

	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	logger.Log.Info("Scheduler started", zap.Int("schedules", len(entries)))

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdown
	logger.Log.Info("Shutdown signal received", zap.String("signal", sig.String()))

	scheduler.Shutdown()
	logger.Log.Info("Scheduler stopped gracefully")
	return nil
}
