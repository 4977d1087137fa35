package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/feichai0017/rag-tuner/internal/models"
	"github.com/feichai0017/rag-tuner/internal/schema"
	"github.com/feichai0017/rag-tuner/pkg/logger"
)

// PreSearchStage 检索前处理, 对查询做裁剪与归一
type PreSearchStage struct {
	deps *Deps
}

func (s *PreSearchStage) Name() models.Stage { return models.StageSearchPre }

func (s *PreSearchStage) Config(doc *models.Document) (*schema.ConfigParams, error) {
	return schema.PreSearchConfig(), nil
}

func (s *PreSearchStage) Run(ctx context.Context, doc *models.Document, values schema.FormValues) ([]models.ResultItem, error) {
	query := asString(values["query"])
	if query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	original := query
	truncated := false
	maxLength := asInt(values["max_length"], 512)
	if asBool(values["enable_summarization"]) && len(query) > maxLength {
		// 简化处理: 截断到最近的词边界
		cut := query[:maxLength]
		if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
			cut = cut[:idx]
		}
		query = strings.TrimSpace(cut)
		truncated = true
	}
	query = strings.Join(strings.Fields(query), " ")

	return []models.ResultItem{{
		PageContent: query,
		Metadata: map[string]interface{}{
			"original_query": original,
			"truncated":      truncated,
		},
	}}, nil
}

// PostSearchStage 检索后处理: 接过预处理的查询文本, 附上检索参数
type PostSearchStage struct {
	deps     *Deps
	pipeline *Pipeline
}

func (s *PostSearchStage) Name() models.Stage { return models.StageSearchPost }

func (s *PostSearchStage) Config(doc *models.Document) (*schema.ConfigParams, error) {
	return schema.PostSearchConfig(), nil
}

func (s *PostSearchStage) Run(ctx context.Context, doc *models.Document, values schema.FormValues) ([]models.ResultItem, error) {
	pre, err := s.pipeline.LoadResult(ctx, doc.ID, models.StageSearchPre)
	if err != nil || len(pre.Items) == 0 {
		return nil, fmt.Errorf("search preprocessing has not run for document %d", doc.ID)
	}
	query := pre.Items[0].PageContent

	topK := asInt(values["top_k"], 5)
	temperature := asFloat(values["temperature"], 0.7)
	if topK < 1 {
		return nil, fmt.Errorf("top_k must be at least 1")
	}

	return []models.ResultItem{{
		PageContent: query,
		Metadata: map[string]interface{}{
			"top_k":       topK,
			"temperature": temperature,
		},
	}}, nil
}

// SearchStage 执行检索: 嵌入查询并在文档集合内召回
type SearchStage struct {
	deps     *Deps
	pipeline *Pipeline
}

func (s *SearchStage) Name() models.Stage { return models.StageSearch }

func (s *SearchStage) Config(doc *models.Document) (*schema.ConfigParams, error) {
	return schema.SearchConfig(), nil
}

func (s *SearchStage) Run(ctx context.Context, doc *models.Document, values schema.FormValues) ([]models.ResultItem, error) {
	pre, err := s.pipeline.LoadResult(ctx, doc.ID, models.StageSearchPre)
	if err != nil || len(pre.Items) == 0 {
		return nil, fmt.Errorf("search preprocessing has not run for document %d", doc.ID)
	}
	query := pre.Items[0].PageContent

	topK := 5
	if post, err := s.pipeline.LoadResult(ctx, doc.ID, models.StageSearchPost); err == nil && len(post.Items) > 0 {
		topK = asInt(post.Items[0].Metadata["top_k"], topK)
	}

	threshold := asFloat(values["score_threshold"], 0)
	withMeta := true
	if v, ok := values["with_metadata"]; ok {
		withMeta = asBool(v)
	}

	embedder, collection, err := s.retrievalContext(ctx, doc)
	if err != nil {
		return nil, err
	}

	vector, err := embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := s.deps.Vectors.Query(ctx, collection, vector, topK)
	if err != nil {
		return nil, err
	}

	items := make([]models.ResultItem, 0, len(results))
	for _, r := range results {
		if float64(r.Similarity) < threshold {
			continue
		}
		meta := map[string]interface{}{
			"rank":       len(items) + 1,
			"similarity": r.Similarity,
			"query":      query,
		}
		if withMeta {
			for k, v := range r.Metadata {
				meta[k] = v
			}
		}
		items = append(items, models.ResultItem{PageContent: r.Content, Metadata: meta})
	}

	s.deps.Logger.Info("Search executed",
		logger.Int64("documentId", doc.ID),
		logger.String("collection", collection),
		logger.Int("hits", len(items)),
	)
	return items, nil
}

// retrievalContext 从历史快照恢复 embedder 与集合名,
// 保证查询向量与入库向量来自同一模型
func (s *SearchStage) retrievalContext(ctx context.Context, doc *models.Document) (queryEmbedder, string, error) {
	embedded, err := s.pipeline.LoadResult(ctx, doc.ID, models.StageEmbed)
	if err != nil || len(embedded.Items) == 0 {
		return nil, "", fmt.Errorf("document %d has not been embedded", doc.ID)
	}
	tool := asString(embedded.Items[0].Metadata["embedding_tool"])
	model := asString(embedded.Items[0].Metadata["embedding_model"])

	embedder, err := newEmbedder(tool, model)
	if err != nil {
		return nil, "", err
	}

	collection := CollectionName("doc", doc.ID)
	if stored, err := s.pipeline.LoadResult(ctx, doc.ID, models.StageStore); err == nil && len(stored.Items) > 0 {
		if name := asString(stored.Items[0].Metadata["collection"]); name != "" {
			collection = name
		}
	}
	return embedder, collection, nil
}

type queryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
