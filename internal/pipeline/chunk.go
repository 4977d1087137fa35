package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/feichai0017/rag-tuner/internal/models"
	"github.com/feichai0017/rag-tuner/internal/schema"
	"github.com/feichai0017/rag-tuner/pkg/logger"
)

// ChunkStage 将 load 阶段的文本切成检索粒度的块
type ChunkStage struct {
	deps     *Deps
	pipeline *Pipeline
}

func (s *ChunkStage) Name() models.Stage { return models.StageChunk }

func (s *ChunkStage) Config(doc *models.Document) (*schema.ConfigParams, error) {
	return schema.ChunkConfig(), nil
}

func (s *ChunkStage) Run(ctx context.Context, doc *models.Document, values schema.FormValues) ([]models.ResultItem, error) {
	loaded, err := s.pipeline.LoadResult(ctx, doc.ID, models.StageLoad)
	if err != nil {
		return nil, err
	}

	method := asString(values["chunk_method"])
	tokenSize := asInt(values["token_size"], 500)
	// overlap 在表单里声明为 0-1 的比例, 换算成 token 数
	overlap := chunkOverlap(asFloat(values["overlap"], 0.1), tokenSize)

	var items []models.ResultItem
	switch method {
	case "by_page":
		// 逐页成块, 保留页面元数据
		for i, src := range loaded.Items {
			content := strings.TrimSpace(src.PageContent)
			if content == "" {
				continue
			}
			items = append(items, chunkItem(content, src.Metadata, i+1))
		}
	case "fixed_token":
		splitter := textsplitter.NewTokenSplitter(
			textsplitter.WithChunkSize(tokenSize),
			textsplitter.WithChunkOverlap(overlap),
		)
		chunkID := 0
		for _, src := range loaded.Items {
			parts, err := splitter.SplitText(src.PageContent)
			if err != nil {
				return nil, fmt.Errorf("failed to split text: %w", err)
			}
			for _, part := range parts {
				if strings.TrimSpace(part) == "" {
					continue
				}
				chunkID++
				items = append(items, chunkItem(part, src.Metadata, chunkID))
			}
		}
	default:
		// 按字符定长切块, token_size 近似为 4 字符一个 token
		chunkID := 0
		for _, src := range loaded.Items {
			for _, part := range chunkContent(src.PageContent, tokenSize*4, overlap*4) {
				chunkID++
				items = append(items, chunkItem(part, src.Metadata, chunkID))
			}
		}
	}

	s.deps.Logger.Info("Document chunked",
		logger.Int64("documentId", doc.ID),
		logger.String("method", method),
		logger.Int("chunks", len(items)),
	)
	return items, nil
}

func chunkItem(content string, srcMeta map[string]interface{}, chunkID int) models.ResultItem {
	meta := map[string]interface{}{"chunk_id": chunkID}
	if page, ok := srcMeta["page"]; ok {
		meta["page"] = page
	}
	return models.ResultItem{PageContent: content, Metadata: meta}
}

// chunkOverlap 将 0-1 的重叠比例换算为 token 数
func chunkOverlap(ratio float64, tokenSize int) int {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return int(ratio * float64(tokenSize))
}

// chunkContent 定长切块, 带重叠, 在块尾附近寻找干净断点
func chunkContent(content string, maxChars, overlapChars int) []string {
	if maxChars <= 0 {
		return nil
	}
	if overlapChars < 0 {
		overlapChars = 0
	}
	if overlapChars >= maxChars {
		overlapChars = maxChars / 2
	}

	content = strings.TrimSpace(content)
	contentLen := len(content)
	if contentLen == 0 {
		return nil
	}
	if contentLen <= maxChars {
		return []string{content}
	}

	var chunks []string
	start := 0
	for start < contentLen {
		end := min(start+maxChars, contentLen)

		// 在块尾 10% 范围内回退到空白或句号
		if end < contentLen {
			lookBack := min(maxChars/10, end-start)
			for i := end - 1; i >= end-lookBack && i > start; i-- {
				if content[i] == ' ' || content[i] == '\n' || content[i] == '.' {
					end = i + 1
					break
				}
			}
		}

		chunk := strings.TrimSpace(content[start:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		start += maxChars - overlapChars
		if start >= contentLen {
			break
		}
	}
	return chunks
}
