package pipeline

import (
	"context"
	"fmt"

	chromem "github.com/philippgille/chromem-go"

	"github.com/feichai0017/rag-tuner/internal/models"
	"github.com/feichai0017/rag-tuner/internal/schema"
	"github.com/feichai0017/rag-tuner/pkg/logger"
)

// StoreStage 将嵌入结果写入向量库
type StoreStage struct {
	deps     *Deps
	pipeline *Pipeline
}

func (s *StoreStage) Name() models.Stage { return models.StageStore }

func (s *StoreStage) Config(doc *models.Document) (*schema.ConfigParams, error) {
	return schema.StoreConfig(), nil
}

func (s *StoreStage) Run(ctx context.Context, doc *models.Document, values schema.FormValues) ([]models.ResultItem, error) {
	embedded, err := s.pipeline.LoadResult(ctx, doc.ID, models.StageEmbed)
	if err != nil {
		return nil, err
	}
	if len(embedded.Items) == 0 {
		return nil, fmt.Errorf("document %d has no embeddings to store", doc.ID)
	}

	prefix := asString(values["collection_prefix"])
	rebuild := asBool(values["rebuild"])
	collection := CollectionName(prefix, doc.ID)

	docs := make([]chromem.Document, 0, len(embedded.Items))
	items := make([]models.ResultItem, 0, len(embedded.Items))
	for i, it := range embedded.Items {
		vector, ok := embeddingOf(it.Metadata)
		if !ok {
			return nil, fmt.Errorf("chunk %d is missing its embedding", i+1)
		}

		id := fmt.Sprintf("%d_%d", doc.ID, i+1)
		meta := map[string]string{"document_id": fmt.Sprintf("%d", doc.ID)}
		if page, ok := it.Metadata["page"]; ok {
			meta["page"] = fmt.Sprintf("%v", page)
		}
		if chunkID, ok := it.Metadata["chunk_id"]; ok {
			meta["chunk_id"] = fmt.Sprintf("%v", chunkID)
		}

		docs = append(docs, chromem.Document{
			ID:        id,
			Content:   it.PageContent,
			Metadata:  meta,
			Embedding: vector,
		})
		items = append(items, models.ResultItem{
			PageContent: it.PageContent,
			Metadata: map[string]interface{}{
				"id":         id,
				"collection": collection,
				"page":       it.Metadata["page"],
				"chunk_id":   it.Metadata["chunk_id"],
			},
		})
	}

	if err := s.deps.Vectors.Add(ctx, collection, docs, rebuild); err != nil {
		return nil, err
	}

	s.deps.Logger.Info("Embeddings stored",
		logger.Int64("documentId", doc.ID),
		logger.String("collection", collection),
		logger.Bool("rebuild", rebuild),
		logger.Int("vectors", len(docs)),
	)
	return items, nil
}
