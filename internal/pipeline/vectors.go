package pipeline

import (
	"context"
	"fmt"
	"runtime"

	chromem "github.com/philippgille/chromem-go"
)

// VectorStore 封装 chromem-go, 每个文档一个 collection
type VectorStore struct {
	db *chromem.DB
}

func NewVectorStore(path string) (*VectorStore, error) {
	if path == "" {
		return &VectorStore{db: chromem.NewDB()}, nil
	}
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	return &VectorStore{db: db}, nil
}

// CollectionName 集合命名规则
func CollectionName(prefix string, docID int64) string {
	if prefix == "" {
		prefix = "doc"
	}
	return fmt.Sprintf("%s_%d", prefix, docID)
}

// Add 写入向量, rebuild 为 true 时先清空旧集合
func (v *VectorStore) Add(ctx context.Context, name string, docs []chromem.Document, rebuild bool) error {
	if rebuild {
		if err := v.db.DeleteCollection(name); err != nil {
			return fmt.Errorf("failed to rebuild collection %s: %w", name, err)
		}
	}
	c, err := v.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to open collection %s: %w", name, err)
	}
	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Query 按向量检索 topK 条
func (v *VectorStore) Query(ctx context.Context, name string, embedding []float32, topK int) ([]chromem.Result, error) {
	c := v.db.GetCollection(name, nil)
	if c == nil {
		return nil, fmt.Errorf("collection %s not found", name)
	}
	if count := c.Count(); topK > count {
		topK = count
	}
	if topK == 0 {
		return nil, nil
	}
	results, err := c.QueryEmbedding(ctx, embedding, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", name, err)
	}
	return results, nil
}

// Drop 删除某文档的集合
func (v *VectorStore) Drop(name string) error {
	return v.db.DeleteCollection(name)
}
