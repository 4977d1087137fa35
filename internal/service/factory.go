package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	cfg "github.com/feichai0017/rag-tuner/config"
	"github.com/feichai0017/rag-tuner/internal/pipeline"
	"github.com/feichai0017/rag-tuner/internal/repository"
	"github.com/feichai0017/rag-tuner/internal/utils/validator"
	"github.com/feichai0017/rag-tuner/pkg/logger"
	"github.com/feichai0017/rag-tuner/pkg/queue"
	"github.com/feichai0017/rag-tuner/pkg/storage"
)

var (
	svcOnce sync.Once
	svc     DocumentService
	svcErr  error
)

// GetService 组装文档服务, 进程内单例
func GetService(log logger.Logger) (DocumentService, error) {
	svcOnce.Do(func() {
		svc, svcErr = buildService(log)
	})
	return svc, svcErr
}

func buildService(log logger.Logger) (DocumentService, error) {
	db, err := repository.NewDB()
	if err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}
	if err := repository.CreateSchema(context.Background(), db); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	repo := repository.NewDocumentRepo(db)

	serverCfg := cfg.GetServerConfig()
	store, err := storage.New(storage.BackendType(serverCfg.StorageBackend), log)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	vectors, err := pipeline.NewVectorStore(cfg.GetDatabaseConfig().VecPath)
	if err != nil {
		return nil, fmt.Errorf("failed to init vector store: %w", err)
	}

	pipe := pipeline.New(&pipeline.Deps{
		Store:   store,
		Vectors: vectors,
		Logger:  log,
	})

	q, err := queue.GetQueue()
	if err != nil {
		return nil, fmt.Errorf("failed to init queue: %w", err)
	}

	v := validator.NewDocumentValidator(log, nil)

	return NewDocumentService(repo, store, pipe, q, v, log), nil
}

// GetSettings 组装设置服务
func GetSettings(log logger.Logger) SettingsService {
	rc := cfg.GetRedisConfig()
	client := redis.NewClient(&redis.Options{
		Addr: rc.Addr,
		DB:   rc.DB,
	})
	return NewSettingsService(client, log)
}
