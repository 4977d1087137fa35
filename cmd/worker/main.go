package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	cfg "github.com/feichai0017/rag-tuner/config"
	"github.com/feichai0017/rag-tuner/internal/service"
	"github.com/feichai0017/rag-tuner/pkg/logger"
	"github.com/feichai0017/rag-tuner/pkg/queue"
	"github.com/feichai0017/rag-tuner/pkg/worker"
)

func main() {
	// 初始化日志
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/worker.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// 创建文档服务
	docService, err := service.GetService(log)
	if err != nil {
		log.Error("Failed to create document service", logger.Error(err))
		os.Exit(1)
	}

	q, err := queue.GetQueue()
	if err != nil {
		log.Error("Failed to create queue", logger.Error(err))
		os.Exit(1)
	}

	// 创建 worker 配置
	redisCfg := cfg.GetRedisConfig()
	workerCfg := &worker.Config{
		RedisAddr:   redisCfg.Addr,
		RedisDB:     redisCfg.DB,
		Concurrency: redisCfg.Concurrency,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
	}

	// 创建 worker
	pipelineWorker, err := worker.NewPipelineWorker(workerCfg, docService, q, log)
	if err != nil {
		log.Error("Failed to create pipeline worker", logger.Error(err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 启动 worker
	if err := pipelineWorker.Start(ctx); err != nil {
		log.Error("Failed to start worker", logger.Error(err))
		os.Exit(1)
	}

	// 每天触发一次存储清理
	go scheduleCleanup(ctx, q, log)

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	// 优雅关闭
	log.Info("Shutting down worker...")
	pipelineWorker.Stop()
	log.Info("Worker stopped")
}

func scheduleCleanup(ctx context.Context, q queue.Queue, log logger.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			task := &queue.Task{
				ID:        uuid.New().String(),
				Type:      queue.TaskTypeCleanup,
				CreatedAt: time.Now(),
			}
			if err := q.Enqueue(ctx, task); err != nil {
				log.Error("Failed to enqueue cleanup task", logger.Error(err))
			}
		}
	}
}
