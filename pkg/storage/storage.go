package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/feichai0017/rag-tuner/pkg/logger"
	"github.com/feichai0017/rag-tuner/pkg/storage/minio"
	"github.com/feichai0017/rag-tuner/pkg/storage/s3"
)

// BackendType 对象存储后端
type BackendType string

const (
	BackendMinio BackendType = "minio"
	BackendS3    BackendType = "s3"
)

// Storage 存放上传原件与各阶段结果快照
type Storage interface {
	// Put 写入对象, 返回对象键
	Put(ctx context.Context, reader io.Reader, key string) (string, error)
	// Get 读取对象
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete 删除对象
	Delete(ctx context.Context, key string) error
	// DeletePrefix 删除某文档名下的全部对象
	DeletePrefix(ctx context.Context, prefix string) error
	// CleanupBefore 清理过期对象
	CleanupBefore(ctx context.Context, threshold time.Time) error
}

// New 创建存储实例的工厂方法
func New(backend BackendType, log logger.Logger) (Storage, error) {
	switch backend {
	case BackendMinio:
		return minio.GetClient(log)
	case BackendS3:
		return s3.GetClient(log)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", backend)
	}
}

// OriginalKey 上传原件的对象键
func OriginalKey(docID int64, filename string) string {
	return fmt.Sprintf("documents/%d/original/%s", docID, filename)
}

// ResultKey 某阶段结果快照的对象键
func ResultKey(docID int64, stage string) string {
	return fmt.Sprintf("documents/%d/results/%s.json", docID, stage)
}

// DocPrefix 文档名下全部对象的公共前缀
func DocPrefix(docID int64) string {
	return fmt.Sprintf("documents/%d/", docID)
}
