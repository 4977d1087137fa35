package pipeline

import (
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	cfg "github.com/feichai0017/rag-tuner/config"
)

// newEmbedder 按表单配置实例化 embedder
func newEmbedder(tool, model string) (*embeddings.EmbedderImpl, error) {
	llmCfg := cfg.GetLLMConfig()

	switch tool {
	case "openai":
		llm, err := openai.New(
			openai.WithBaseURL(llmCfg.OpenAIBaseURL),
			openai.WithToken(llmCfg.OpenAIKey),
			openai.WithEmbeddingModel(model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to init openai embedder: %w", err)
		}
		return embeddings.NewEmbedder(llm)
	case "ollama":
		llm, err := ollama.New(
			ollama.WithServerURL(llmCfg.OllamaURL),
			ollama.WithModel(model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to init ollama embedder: %w", err)
		}
		return embeddings.NewEmbedder(llm)
	default:
		return nil, fmt.Errorf("unsupported embedding tool: %s", tool)
	}
}
