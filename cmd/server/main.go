package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/yt-automation/shorts-dashboard-go/internal/automation"
	"github.com/yt-automation/shorts-dashboard-go/internal/config"
	"github.com/yt-automation/shorts-dashboard-go/internal/handler"
	"github.com/yt-automation/shorts-dashboard-go/internal/metrics"
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
		logger.Log.Error("Server exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
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
		logger.Log.Info("Store connected", zap.String("driver", store.Driver()))
	} else {
		logger.Log.Info("No store configured; history and database backends are disabled")
	}

	runner := automation.NewRunner(cfg.Automation)
	if !runner.ScriptExists() {
		logger.Log.Warn("Automation script not found", zap.String("path", runner.ScriptPath()))
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

	validator := validation.New(maxTemplateLength, maxTags)

	var (
		channelRepo repository.ChannelRepository
		configRepo  repository.ConfigRepository
		historyRepo repository.HistoryRepository
	)
	if store != nil {
		channelRepo, configRepo, historyRepo = store.Channels, store.Config, store.History
	}

	uploads := service.NewUploadService(runner, store, publisher, validator)

	registry, err := orchestrator.NewRegistry(cfg.Orchestrator.AppID, uploads, orchestrator.DefaultFunctions(cfg.Orchestrator.LegacyDaily))
	if err != nil {
		return fmt.Errorf("failed to build function registry: %w", err)
	}

	var (
		enqueuer   handler.Enqueuer
		queueCheck handler.HealthChecker
	)
	if cfg.Redis.URL != "" {
		client, err := queue.NewClient(cfg.Redis.URL)
		if err != nil {
			logger.Log.Warn("Failed to initialize queue client, function runs will execute inline", zap.Error(err))
		} else {
			defer func() { _ = client.Close() }()
			enqueuer = client
			logger.Log.Info("Queue client initialized, function runs will be queued")

			if rh, err := queue.NewRedisHealth(cfg.Redis.URL); err == nil {
				defer func() { _ = rh.Close() }()
				queueCheck = rh
			}
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(reg); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	h := &handler.Handlers{
		Account:      handler.NewAccountHandler(service.NewAccountService(runner, cfg.Accounts.ConfigPath)),
		Channels:     handler.NewChannelHandler(service.NewChannelService(cfg.Channels.Backend, channelRepo, runner, validator)),
		Config:       handler.NewConfigHandler(service.NewSettingsService(cfg.Settings.Backend, configRepo, runner, validator)),
		Content:      handler.NewContentHandler(service.NewContentService(runner, validator), cfg.Videos),
		History:      handler.NewHistoryHandler(historyRepo),
		Stats:        handler.NewStatsHandler(service.NewStatsService(runner, store)),
		Upload:       handler.NewUploadHandler(uploads, cfg.Upload),
		Orchestrator: handler.NewOrchestratorHandler(registry, enqueuer),
		Health:       handler.NewHealthHandler(pinger(store), runner.ScriptExists, healthChecker(publisher)).WithQueue(queueCheck),
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}

	gin.SetMode(cfg.Server.Mode)
	router := handler.NewRouter(h, handler.RouterOptions{
		CronSecret:        cfg.Cron.Secret,
		SigningKey:        cfg.Orchestrator.SigningKey,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Log.Info("Server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("channelsBackend", cfg.Channels.Backend),
			zap.String("settingsBackend", cfg.Settings.Backend),
			zap.String("interpreter", runner.Interpreter()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-shutdown:
		logger.Log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		logger.Log.Info("Server stopped gracefully")
		return nil
	}
}

func pinger(store *repository.Store) handler.Pinger {
	if store == nil {
		return nil
	}
	return store
}

func healthChecker(publisher service.EventPublisher) handler.HealthChecker {
	if publisher == nil {
		return nil
	}
	return publisher
}
