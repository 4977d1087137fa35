package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/feichai0017/rag-tuner/internal/models"
	"github.com/feichai0017/rag-tuner/internal/schema"
	"github.com/feichai0017/rag-tuner/pkg/logger"
	"github.com/feichai0017/rag-tuner/pkg/storage"
)

// Stage 流水线阶段
type Stage interface {
	Name() models.Stage
	// Config 返回该阶段针对某文档的表单描述
	Config(doc *models.Document) (*schema.ConfigParams, error)
	// Run 执行阶段, values 为默认值与提交值合并后的配置
	Run(ctx context.Context, doc *models.Document, values schema.FormValues) ([]models.ResultItem, error)
}

// Deps 各阶段共享的依赖
type Deps struct {
	Store   storage.Storage
	Vectors *VectorStore
	Logger  logger.Logger
}

// Pipeline 阶段注册表, 同时负责阶段结果快照的读写
type Pipeline struct {
	deps   *Deps
	stages map[models.Stage]Stage
}

func New(deps *Deps) *Pipeline {
	p := &Pipeline{
		deps:   deps,
		stages: make(map[models.Stage]Stage),
	}
	p.register(&LoadStage{deps: deps})
	p.register(&ChunkStage{deps: deps, pipeline: p})
	p.register(&EmbedStage{deps: deps, pipeline: p})
	p.register(&StoreStage{deps: deps, pipeline: p})
	p.register(&PreSearchStage{deps: deps})
	p.register(&PostSearchStage{deps: deps, pipeline: p})
	p.register(&SearchStage{deps: deps, pipeline: p})
	p.register(&GenerateStage{deps: deps, pipeline: p})
	return p
}

func (p *Pipeline) register(s Stage) {
	p.stages[s.Name()] = s
}

// Stage 按名称取阶段
func (p *Pipeline) Stage(name models.Stage) (Stage, error) {
	s, ok := p.stages[name]
	if !ok {
		return nil, fmt.Errorf("unknown stage: %s", name)
	}
	return s, nil
}

// DropVectors 删除文档的向量集合, 集合名优先取 store 阶段快照
func (p *Pipeline) DropVectors(ctx context.Context, docID int64) error {
	name := CollectionName("doc", docID)
	if stored, err := p.LoadResult(ctx, docID, models.StageStore); err == nil && len(stored.Items) > 0 {
		if n, ok := stored.Items[0].Metadata["collection"].(string); ok && n != "" {
			name = n
		}
	}
	return p.deps.Vectors.Drop(name)
}

// SaveResult 将阶段输出持久化到对象存储, 供后续阶段与结果页读取
func (p *Pipeline) SaveResult(ctx context.Context, docID int64, stage models.Stage, items []models.ResultItem) error {
	data, err := json.Marshal(&models.StageResult{Stage: stage, Items: items})
	if err != nil {
		return fmt.Errorf("failed to marshal stage result: %w", err)
	}
	key := storage.ResultKey(docID, string(stage))
	if _, err := p.deps.Store.Put(ctx, bytes.NewReader(data), key); err != nil {
		return fmt.Errorf("failed to save stage result: %w", err)
	}
	return nil
}

// LoadResult 读取某阶段的历史输出
func (p *Pipeline) LoadResult(ctx context.Context, docID int64, stage models.Stage) (*models.StageResult, error) {
	key := storage.ResultKey(docID, string(stage))
	rc, err := p.deps.Store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("no result for stage %s: %w", stage, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read stage result: %w", err)
	}
	var result models.StageResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stage result: %w", err)
	}
	return &result, nil
}
