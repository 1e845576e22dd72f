package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/yt-automation/shorts-dashboard-go/internal/orchestrator"
	"github.com/yt-automation/shorts-dashboard-go/pkg/logger"
	"go.uber.org/zap"
)

// RunTimeout bounds one queued run.
const RunTimeout = 20 * time.Minute

// Client wraps asynq client for enqueueing tasks
type Client struct {
	asynqClient *asynq.Client
	log         *zap.Logger
}

// NewClient creates a new queue client
func NewClient(redisURL string) (*Client, error) {
	redisOpt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &Client{
		asynqClient: asynq.NewClient(redisOpt),
		log:         logger.Named("queue"),
	}, nil
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.asynqClient.Close()
}

// EnqueueRun queues a function run and returns its run id. The run id doubles
// as the task id, so a replayed invocation with the same id is rejected by asynq.
func (c *Client) EnqueueRun(ctx context.Context, functionID, runID string, event *orchestrator.Event) (string, error) {
	if runID == "" {
		runID = uuid.NewString()
	}

	payload, err := NewRunPayload(functionID, runID, event, "api")
	if err != nil {
		return "", fmt.Errorf("failed to create task payload: %w", err)
	}

	payloadBytes, err := payload.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeOrchestratorRun, payloadBytes)

	info, err := c.asynqClient.EnqueueContext(ctx, task, RunOptions(runID)...)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.log.Info("Enqueued function run",
		zap.String("functionId", functionID),
		zap.String("runId", runID),
		zap.String("taskId", info.ID),
	)

	return runID, nil
}

// RunOptions are the asynq options every run task carries. Runs are not retried.
func RunOptions(taskID string) []asynq.Option {
	opts := []asynq.Option{
		asynq.MaxRetry(0),
		asynq.Timeout(RunTimeout),
		asynq.Queue(QueueDefault),
	}
	if taskID != "" {
		opts = append(opts, asynq.TaskID(taskID))
	}
	return opts
}
