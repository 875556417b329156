package llm

import (
	"fmt"
	"strings"

	"github.com/hu3mann/chatripperxx/internal/model"
)

// NewProvider creates an analysis provider based on configuration
func NewProvider(config Config) (Provider, error) {
	provider := strings.ToLower(config.Provider)

	switch provider {
	case "openai":
		return NewOpenAIProvider(config)

	case "anthropic", "claude":
		return NewAnthropicProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: openai, anthropic, ollama)", config.Provider)
	}
}

// ConfigFromEndpoint converts a model.LLMEndpoint to llm.Config
func ConfigFromEndpoint(ep model.LLMEndpoint) Config {
	return Config{
		Provider:  ep.Provider,
		Model:     ep.Model,
		APIKey:    ep.APIKey,
		BaseURL:   ep.BaseURL,
		Timeout:   ep.Timeout,
		MaxTokens: ep.MaxTokens,
	}
}
