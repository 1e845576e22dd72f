package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/yt-automation/shorts-dashboard-go/internal/automation"
	"github.com/yt-automation/shorts-dashboard-go/internal/config"
	"github.com/yt-automation/shorts-dashboard-go/internal/orchestrator"
	"github.com/yt-automation/shorts-dashboard-go/internal/queue"
	"github.com/yt-automation/shorts-dashboard-go/internal/repository"
	"github.com/yt-automation/shorts-dashboard-go/internal/service"
	"github.com/yt-automation/shorts-dashboard-go/internal/validation"
	"github.com/yt-automation/shorts-dashboard-go/pkg/logger"
	"go.uber.org/zap"
)

const (
	maxTemplateLength = 5000
	maxTags           = 30
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
		logger.Log.Error("Worker exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	if cfg.Redis.URL == "" {
		return errors.New("redis url is required to run the worker")
	}

	ctx := context.Background()
	store, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	if store != nil {
		defer func() {
			if err := store.Close(context.Background()); err != nil {
				logger.Log.Warn("Failed to close store", zap.Error(err))
			}
		}()
	}

	var publisher service.EventPublisher
	if cfg.RabbitMQ.Enabled {
		mp, err := service.NewMessagePublisher(&cfg.RabbitMQ)
		if err != nil {
			return fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		defer func() { _ = mp.Close() }()
		publisher = mp
	}

	runner := automation.NewRunner(cfg.Automation)
	uploads := service.NewUploadService(runner, store, publisher, validation.New(maxTemplateLength, maxTags))

	registry, err := orchestrator.NewRegistry(cfg.Orchestrator.AppID, uploads, orchestrator.DefaultFunctions(cfg.Orchestrator.LegacyDaily))
	if err != nil {
		return fmt.Errorf("failed to build function registry: %w", err)
	}

	srv, err := queue.NewServer(cfg.Redis.URL, cfg.Redis.Concurrency, queue.NewRunHandler(registry))
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}

	logger.Log.Info("Worker started",
		zap.Int("concurrency", cfg.Redis.Concurrency),
		zap.Int("functions", len(registry.Functions())),
	)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdown
	logger.Log.Info("Shutdown signal received", zap.String("signal", sig.String()))

	srv.Stop()
	logger.Log.Info("Worker stopped gracefully")
	return nil
}
