package jobs

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Worker wraps the Asynq server processing work-order events.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Queue       string
	Concurrency int
	Handler     EventHandler
	Logger      *zap.Logger
}

func NewWorker(cfg WorkerConfig) *Worker {
	queue := cfg.Queue
	if queue == "" {
		queue = QueueDefault
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Handler.Logger == nil {
		cfg.Handler.Logger = logger
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queue: 1},
		Logger:      logger.Sugar(),
	})
	mux := asynq.NewServeMux()
	mux.Handle(TaskWorkOrderEvent, cfg.Handler)
	return &Worker{server: srv, mux: mux, logger: logger}
}

// Run processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	w.logger.Info("worker started")
	<-ctx.Done()
	w.server.Shutdown()
	w.logger.Info("worker stopped")
	return nil
}
