package config

import "sync"

var (
	llmOnce   sync.Once
	llmConfig *LLMConfig
)

type LLMConfig struct {
	OpenAIBaseURL string
	OpenAIKey     string
	OllamaURL     string
}

func GetLLMConfig() *LLMConfig {
	llmOnce.Do(func() {
		loadEnv()
		llmConfig = &LLMConfig{
			OpenAIBaseURL: getenv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			OpenAIKey:     getenv("OPENAI_API_KEY", ""),
			OllamaURL:     getenv("OLLAMA_URL", "http://localhost:11434"),
		}
	})
	return llmConfig
}
