package services

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/puttlab/backend/internal/config"
	"github.com/puttlab/backend/internal/store"
	"github.com/puttlab/backend/pkg/logger"
)

const TaskTypeTokenCleanup = "auth:token_cleanup"

func redisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// pingRedis verifies Redis is reachable through an asynq inspector.
func pingRedis(cfg *config.RedisConfig) error {
	inspector := asynq.NewInspector(redisOpt(cfg))
	defer inspector.Close()

	_, err := inspector.Queues()
	return err
}

func NewTokenCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeTokenCleanup, nil)
}

// QueueCleanupScheduler enqueues the cleanup task from an asynq scheduler and
// runs it on an asynq worker. Unique tasks keep concurrent schedulers on
// several instances from enqueueing the same period twice.
type QueueCleanupScheduler struct {
	scheduler *asynq.Scheduler
	worker    *Worker
	cfg       config.CleanupConfig
	client    *asynq.Client
}

func NewQueueCleanupScheduler(redis *config.RedisConfig, cfg config.CleanupConfig, job CleanupRunner) *QueueCleanupScheduler {
	opt := redisOpt(redis)

	worker := NewWorker(redis)
	worker.Handle(TaskTypeTokenCleanup, cleanupTaskHandler(job))

	return &QueueCleanupScheduler{
		scheduler: asynq.NewScheduler(opt, &asynq.SchedulerOpts{
			Location: time.UTC,
			PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
				if err != nil {
					logger.Debug().Err(err).Msg("[TaskQueue] cleanup task not enqueued")
				}
			},
		}),
		worker: worker,
		cfg:    cfg,
		client: asynq.NewClient(opt),
	}
}

func (q *QueueCleanupScheduler) Start() error {
	if _, err := q.scheduler.Register(q.cfg.Schedule, NewTokenCleanupTask(),
		asynq.Unique(q.cfg.LockTTL),
		asynq.MaxRetry(3),
	); err != nil {
		return err
	}
	if err := q.scheduler.Start(); err != nil {
		return err
	}
	if err := q.worker.Start(); err != nil {
		q.scheduler.Shutdown()
		return err
	}

	if q.cfg.RunOnStart {
		info, err := q.client.Enqueue(NewTokenCleanupTask(), asynq.Unique(q.cfg.LockTTL))
		if err != nil {
			logger.Debug().Err(err).Msg("[TaskQueue] startup cleanup not enqueued")
		} else {
			logger.Infof("[TaskQueue] Startup cleanup enqueued: id=%s", info.ID)
		}
	}

	logger.Infof("[TaskQueue] Cleanup scheduled on Redis (cron: %s)", q.cfg.Schedule)
	return nil
}

func (q *QueueCleanupScheduler) Stop() {
	q.scheduler.Shutdown()
	q.worker.Stop()
	q.client.Close()
}

func (q *QueueCleanupScheduler) Mode() string { return "redis" }

func cleanupTaskHandler(job CleanupRunner) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		_, err := job.RunOnce(ctx)
		return err
	}
}

// NewCleanupScheduler picks the Redis-backed scheduler when Redis is enabled
// and reachable, and the in-process cron scheduler otherwise.
func NewCleanupScheduler(cfg *config.Config, job CleanupRunner, locks store.SchedulerLockStore) CleanupScheduler {
	if cfg.Redis.Enabled {
		if err := pingRedis(&cfg.Redis); err != nil {
			logger.Warnf("[TaskQueue] Redis unavailable, falling back to cron scheduler: %v", err)
		} else {
			return NewQueueCleanupScheduler(&cfg.Redis, cfg.Cleanup, job)
		}
	}
	return NewCronCleanupScheduler(job, locks, cfg.Cleanup)
}
