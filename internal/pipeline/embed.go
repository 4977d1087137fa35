package pipeline

import (
	"context"
	"fmt"

	"github.com/feichai0017/rag-tuner/internal/models"
	"github.com/feichai0017/rag-tuner/internal/schema"
	"github.com/feichai0017/rag-tuner/pkg/logger"
)

// EmbedStage 为 chunk 阶段的块生成向量
type EmbedStage struct {
	deps     *Deps
	pipeline *Pipeline
}

func (s *EmbedStage) Name() models.Stage { return models.StageEmbed }

func (s *EmbedStage) Config(doc *models.Document) (*schema.ConfigParams, error) {
	return schema.EmbedConfig(), nil
}

func (s *EmbedStage) Run(ctx context.Context, doc *models.Document, values schema.FormValues) ([]models.ResultItem, error) {
	chunked, err := s.pipeline.LoadResult(ctx, doc.ID, models.StageChunk)
	if err != nil {
		return nil, err
	}
	if len(chunked.Items) == 0 {
		return nil, fmt.Errorf("document %d has no chunks to embed", doc.ID)
	}

	tool := asString(values["embedding_tool"])
	model := asString(values["embedding_model"])
	if tool == "ollama" {
		model = asString(values["ollama_model"])
	}
	batchSize := asInt(values["batch_size"], 16)
	if batchSize < 1 {
		batchSize = 1
	}

	embedder, err := newEmbedder(tool, model)
	if err != nil {
		return nil, err
	}

	items := make([]models.ResultItem, 0, len(chunked.Items))
	for start := 0; start < len(chunked.Items); start += batchSize {
		end := min(start+batchSize, len(chunked.Items))
		batch := chunked.Items[start:end]

		texts := make([]string, len(batch))
		for i, it := range batch {
			texts[i] = it.PageContent
		}

		vectors, err := embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch at %d: %w", start, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
		}

		for i, it := range batch {
			meta := map[string]interface{}{
				"embedding":       vectors[i],
				"embedding_dim":   len(vectors[i]),
				"embedding_tool":  tool,
				"embedding_model": model,
			}
			for k, v := range it.Metadata {
				meta[k] = v
			}
			items = append(items, models.ResultItem{PageContent: it.PageContent, Metadata: meta})
		}
	}

	s.deps.Logger.Info("Chunks embedded",
		logger.Int64("documentId", doc.ID),
		logger.String("tool", tool),
		logger.String("model", model),
		logger.Int("chunks", len(items)),
	)
	return items, nil
}

// embeddingOf 从元数据取回向量, JSON 反序列化后为 []interface{}
func embeddingOf(meta map[string]interface{}) ([]float32, bool) {
	switch v := meta["embedding"].(type) {
	case []float32:
		return v, true
	case []interface{}:
		out := make([]float32, len(v))
		for i, f := range v {
			n, ok := f.(float64)
			if !ok {
				return nil, false
			}
			out[i] = float32(n)
		}
		return out, true
	default:
		return nil, false
	}
}
