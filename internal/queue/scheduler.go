package queue

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/yt-automation/shorts-dashboard-go/internal/orchestrator"
	"github.com/yt-automation/shorts-dashboard-go/pkg/logger"
	"go.uber.org/zap"
)

// Registrar registers a periodic task. *asynq.Scheduler implements it.
type Registrar interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (entryID string, err error)
}

// RegisterSchedules registers every cron function of the registry as a
// periodic orchestrator run. It returns the scheduler entry ids by function id.
func RegisterSchedules(r Registrar, registry *orchestrator.Registry) (map[string]string, error) {
	log := logger.Named("scheduler")
	entries := make(map[string]string)

	for _, fn := range registry.CronFunctions() {
		payload, err := NewRunPayload(fn.ID, "", nil, "schedule")
		if err != nil {
			return nil, err
		}
		data, err := payload.Marshal()
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload for %s: %w", fn.ID, err)
		}

		entryID, err := r.Register(fn.Trigger.Cron, asynq.NewTask(TypeOrchestratorRun, data), RunOptions("")...)
		if err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", fn.ID, err)
		}
		entries[fn.ID] = entryID

		log.Info("Registered schedule",
			zap.String("functionId", fn.ID),
			zap.String("cron", fn.Trigger.Cron),
			zap.String("entryId", entryID),
		)
	}

	return entries, nil
}

// NewScheduler creates an asynq scheduler evaluating cron specs in UTC.
func NewScheduler(redisURL string) (*asynq.Scheduler, error) {
	redisOpt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	log := logger.Named("scheduler")
	return asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				log.Error("Failed to enqueue scheduled run", zap.Error(err))
				return
			}
			log.Info("Enqueued scheduled run", zap.String("taskId", info.ID))
		},
	}), nil
}
