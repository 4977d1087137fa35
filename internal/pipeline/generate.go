package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	cfg "github.com/feichai0017/rag-tuner/config"
	"github.com/feichai0017/rag-tuner/internal/models"
	"github.com/feichai0017/rag-tuner/internal/schema"
	"github.com/feichai0017/rag-tuner/pkg/logger"
)

const defaultPromptTemplate = `Answer the question using only the context below.

Context:
{context}

Question: {question}`

// GenerateStage 用检索到的上下文生成回答
type GenerateStage struct {
	deps     *Deps
	pipeline *Pipeline
}

func (s *GenerateStage) Name() models.Stage { return models.StageGenerate }

func (s *GenerateStage) Config(doc *models.Document) (*schema.ConfigParams, error) {
	return schema.GenerateConfig(), nil
}

func (s *GenerateStage) Run(ctx context.Context, doc *models.Document, values schema.FormValues) ([]models.ResultItem, error) {
	searched, err := s.pipeline.LoadResult(ctx, doc.ID, models.StageSearch)
	if err != nil || len(searched.Items) == 0 {
		return nil, fmt.Errorf("no search results available for document %d", doc.ID)
	}

	query := asString(searched.Items[0].Metadata["query"])
	contextText := buildContext(searched.Items)

	temperature := 0.7
	if post, err := s.pipeline.LoadResult(ctx, doc.ID, models.StageSearchPost); err == nil && len(post.Items) > 0 {
		temperature = asFloat(post.Items[0].Metadata["temperature"], temperature)
	}

	modelName := asString(values["model_name"])
	maxTokens := asInt(values["max_tokens"], 1024)
	template := asString(values["prompt_template"])
	if template == "" {
		template = defaultPromptTemplate
	}
	prompt := strings.NewReplacer(
		"{context}", contextText,
		"{question}", query,
	).Replace(template)

	llmCfg := cfg.GetLLMConfig()
	llm, err := openai.New(
		openai.WithBaseURL(llmCfg.OpenAIBaseURL),
		openai.WithToken(llmCfg.OpenAIKey),
		openai.WithModel(modelName),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to init llm: %w", err)
	}

	messages := []llms.MessageContent{{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
	}}
	resp, err := llm.GenerateContent(ctx, messages,
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llm returned no choices")
	}

	s.deps.Logger.Info("Answer generated",
		logger.Int64("documentId", doc.ID),
		logger.String("model", modelName),
		logger.Int("contextChunks", len(searched.Items)),
	)

	return []models.ResultItem{{
		PageContent: resp.Choices[0].Content,
		Metadata: map[string]interface{}{
			"model":          modelName,
			"query":          query,
			"context_chunks": len(searched.Items),
		},
	}}, nil
}

func buildContext(items []models.ResultItem) string {
	var buf strings.Builder
	for i, it := range items {
		fmt.Fprintf(&buf, "[%d] %s\n", i+1, strings.TrimSpace(it.PageContent))
	}
	return buf.String()
}
