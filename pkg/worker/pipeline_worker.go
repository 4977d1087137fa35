package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/feichai0017/rag-tuner/pkg/logger"
	"github.com/feichai0017/rag-tuner/pkg/queue"
)

// PipelineRunner 由 service 层实现, worker 不关心具体处理逻辑
type PipelineRunner interface {
	RunTask(ctx context.Context, task *queue.Task, progress func(stage string, done, total int)) error
	CleanupStorage(ctx context.Context) error
}

type PipelineWorker struct {
	BaseWorker
	runner PipelineRunner
	queue  queue.Queue
}

func NewPipelineWorker(cfg *Config, runner PipelineRunner, q queue.Queue, logger logger.Logger) (*PipelineWorker, error) {
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      cfg.Queues,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * time.Minute
			},
		},
	)

	w := &PipelineWorker{
		BaseWorker: BaseWorker{
			server:   server,
			mux:      asynq.NewServeMux(),
			logger:   logger,
			stopChan: make(chan struct{}),
		},
		runner: runner,
		queue:  q,
	}

	// 注册任务处理器
	w.registerHandlers()
	return w, nil
}

func (w *PipelineWorker) registerHandlers() {
	w.mux.HandleFunc(queue.TaskTypePipelineRun, w.handlePipelineRun)
	w.mux.HandleFunc(queue.TaskTypeCleanup, w.handleCleanup)
}

func (w *PipelineWorker) handleCleanup(ctx context.Context, t *asynq.Task) error {
	if err := w.runner.CleanupStorage(ctx); err != nil {
		w.logger.Error("Storage cleanup failed", logger.Error(err))
		return err
	}
	return nil
}

func (w *PipelineWorker) handlePipelineRun(ctx context.Context, t *asynq.Task) error {
	w.logger.Info("Received task",
		logger.String("payload", string(t.Payload())),
	)

	var task queue.Task
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		w.logger.Error("Failed to unmarshal task",
			logger.Error(err),
			logger.String("payload", string(t.Payload())),
		)
		return fmt.Errorf("failed to unmarshal task: %w", err)
	}

	if task.ID == "" || task.DocumentID == 0 || len(task.Stages) == 0 {
		w.logger.Error("Invalid task data",
			logger.String("taskId", task.ID),
			logger.Int64("documentId", task.DocumentID),
		)
		return fmt.Errorf("invalid task data: missing required fields")
	}

	w.logger.Info("Processing pipeline task",
		logger.String("taskId", task.ID),
		logger.Int64("documentId", task.DocumentID),
		logger.Any("stages", task.Stages),
	)

	w.saveStatus(ctx, &queue.TaskStatus{
		TaskID:     task.ID,
		DocumentID: task.DocumentID,
		Status:     "running",
		StartedAt:  time.Now(),
	})

	err := w.runner.RunTask(ctx, &task, func(stage string, done, total int) {
		w.saveStatus(ctx, &queue.TaskStatus{
			TaskID:     task.ID,
			DocumentID: task.DocumentID,
			Status:     "running",
			Progress:   float64(done) / float64(total),
		})
	})
	if err != nil {
		w.saveStatus(ctx, &queue.TaskStatus{
			TaskID:     task.ID,
			DocumentID: task.DocumentID,
			Status:     "failed",
			Error:      err.Error(),
			FinishedAt: time.Now(),
		})
		return err
	}

	w.saveStatus(ctx, &queue.TaskStatus{
		TaskID:     task.ID,
		DocumentID: task.DocumentID,
		Status:     "completed",
		Progress:   1.0,
		FinishedAt: time.Now(),
	})
	return nil
}

func (w *PipelineWorker) saveStatus(ctx context.Context, status *queue.TaskStatus) {
	if err := w.queue.SaveStatus(ctx, status); err != nil {
		w.logger.Error("Failed to save task status", logger.Error(err))
	}
}

func (w *PipelineWorker) Start(ctx context.Context) error {
	go func() {
		if err := w.server.Run(w.mux); err != nil {
			w.logger.Error("Worker server stopped", logger.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}
