package services

import (
	"context"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/puttlab/backend/internal/config"
	"github.com/puttlab/backend/pkg/logger"
)

// Worker processes async tasks from Redis
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	running bool
	mu      sync.Mutex
}

func NewWorker(cfg *config.RedisConfig) *Worker {
	server := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error().Err(err).Str("task", task.Type()).Msg("[Worker] task failed")
			}),
		},
	)

	return &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
	}
}

func (w *Worker) Handle(taskType string, handler asynq.HandlerFunc) {
	w.mux.Handle(taskType, handler)
}

func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	// Start returns once the server is up; processing continues in the background.
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	w.running = true
	logger.Infof("[Worker] Started async worker")
	return nil
}

func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	logger.Infof("[Worker] Shutting down...")
	w.server.Shutdown()
	w.running = false
	logger.Infof("[Worker] Shutdown complete")
}
