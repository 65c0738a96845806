package factory

import (
	"fmt"

	"ai-orchestrator-be/pkg/llm"
	"ai-orchestrator-be/pkg/llm/anthropic"
	"ai-orchestrator-be/pkg/llm/huggingface"
	"ai-orchestrator-be/pkg/llm/ollama"
)

// ProviderConfig carries everything any provider constructor needs.
type ProviderConfig struct {
	Type    string
	Model   string
	BaseURL string
	APIKey  string
}

func NewLLMProvider(cfg ProviderConfig) (llm.LLMProvider, error) {
	switch cfg.Type {
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model), nil
	case "huggingface":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("huggingface provider needs an api key")
		}
		return huggingface.NewHuggingFaceProvider(cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	case "anthropic":
		return anthropic.NewAnthropicProvider(cfg.APIKey, cfg.BaseURL, cfg.Model)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Type)
	}
}
