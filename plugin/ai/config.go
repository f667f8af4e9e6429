package ai

import (
	"github.com/pkg/errors"

	"github.com/banterhq/banter/internal/profile"
)

// LLMConfig holds the generation backend configuration.
type LLMConfig struct {
	// Provider selects the backend: gemini, openai or ollama.
	Provider string
	// Model is the model identifier passed to the provider.
	Model string
	// MaxTokens caps the reply length. Zero means provider default.
	MaxTokens int

	GeminiAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OllamaBaseURL string
}

// NewConfigFromProfile builds the generation config from the server profile.
func NewConfigFromProfile(p *profile.Profile) *LLMConfig {
	return &LLMConfig{
		Provider:      p.LLMProvider,
		Model:         p.LLMModel,
		MaxTokens:     p.LLMMaxTokens,
		GeminiAPIKey:  p.GeminiAPIKey,
		OpenAIAPIKey:  p.OpenAIAPIKey,
		OpenAIBaseURL: p.OpenAIBaseURL,
		OllamaBaseURL: p.OllamaBaseURL,
	}
}

// Validate checks that the selected provider has its credentials configured.
func (c *LLMConfig) Validate() error {
	if c.Model == "" {
		return errors.New("model is required")
	}
	switch c.Provider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return errors.New("gemini API key is required")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return errors.New("openai API key is required")
		}
	case "ollama":
		if c.OllamaBaseURL == "" {
			return errors.New("ollama base URL is required")
		}
	default:
		return errors.Errorf("unsupported LLM provider: %s", c.Provider)
	}
	return nil
}
