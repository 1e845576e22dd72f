package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/yt-automation/shorts-dashboard-go/internal/orchestrator"
	"github.com/yt-automation/shorts-dashboard-go/pkg/logger"
	"go.uber.org/zap"
)

// Invoker runs one orchestrator function. *orchestrator.Registry implements it.
type Invoker interface {
	Invoke(ctx context.Context, functionID, runID string, event *orchestrator.Event) (*orchestrator.RunResult, error)
}

// RunHandler handles orchestrator run tasks
type RunHandler struct {
	invoker Invoker
	log     *zap.Logger
}

// NewRunHandler creates a new run task handler
func NewRunHandler(invoker Invoker) *RunHandler {
	return &RunHandler{
		invoker: invoker,
		log:     logger.Named("worker"),
	}
}

// ProcessTask implements asynq.HandlerFunc
func (h *RunHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := UnmarshalRunPayload(task.Payload())
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	runID := payload.RunID
	if runID == "" && task.ResultWriter() != nil {
		runID = task.ResultWriter().TaskID()
	}

	h.log.Info("Processing function run",
		zap.String("functionId", payload.FunctionID),
		zap.String("runId", runID),
		zap.String("source", payload.Source),
	)

	run, err := h.invoker.Invoke(ctx, payload.FunctionID, runID, payload.Event)
	if err != nil {
		if errors.Is(err, orchestrator.ErrFunctionNotFound) || errors.Is(err, orchestrator.ErrInvalidEvent) {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return fmt.Errorf("function run failed: %w", err)
	}

	if run.Result != nil && !run.Result.Success {
		h.log.Warn("Function run finished without upload",
			zap.String("functionId", run.FunctionID),
			zap.String("runId", run.RunID),
			zap.String("error", run.Result.Error),
		)
	}

	return nil
}

// Server wraps asynq server for processing tasks
type Server struct {
	asynqServer *asynq.Server
	mux         *asynq.ServeMux
	log         *zap.Logger
}

// NewServer creates a new task processing server
func NewServer(redisURL string, concurrency int, handler *RunHandler) (*Server, error) {
	redisOpt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	log := logger.Named("worker")

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueDefault: 10,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Error("Task failed",
					zap.String("type", task.Type()),
					zap.Error(err),
				)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeOrchestratorRun, handler.ProcessTask)

	return &Server{
		asynqServer: srv,
		mux:         mux,
		log:         log,
	}, nil
}

// Start starts the server
func (s *Server) Start() error {
	s.log.Info("Starting task processing server")
	return s.asynqServer.Start(s.mux)
}

// Stop gracefully stops the server
func (s *Server) Stop() {
	s.log.Info("Shutting down task processing server")
	s.asynqServer.Shutdown()
}
