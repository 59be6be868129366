package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/house-agents/internal/config"
)

// Generator turns a prompt into a completion.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// NewGenerator picks the provider named in cfg.
func NewGenerator(ctx context.Context, cfg config.LLMConfig) (Generator, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "openai":
		return NewOpenAIGenerator(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "claude", "anthropic":
		return NewClaudeGenerator(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "gemini":
		return NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model)

	case "ollama":
		// Ollama speaks the OpenAI API under /v1 and ignores the key.
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = strings.TrimRight(baseURL, "/") + "/v1"
		}
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}
		return NewOpenAIGenerator(apiKey, cfg.Model, baseURL), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}
