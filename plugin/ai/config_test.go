package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLLMConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  LLMConfig
		wantErr bool
	}{
		{
			name:   "gemini with key",
			config: LLMConfig{Provider: "gemini", Model: "gemini-2.5-flash", GeminiAPIKey: "key"},
		},
		{
			name:    "gemini without key",
			config:  LLMConfig{Provider: "gemini", Model: "gemini-2.5-flash"},
			wantErr: true,
		},
		{
			name:   "openai with key",
			config: LLMConfig{Provider: "openai", Model: "gpt-4o-mini", OpenAIAPIKey: "sk-test"},
		},
		{
			name:    "openai without key",
			config:  LLMConfig{Provider: "openai", Model: "gpt-4o-mini"},
			wantErr: true,
		},
		{
			name:   "ollama with base URL",
			config: LLMConfig{Provider: "ollama", Model: "llama3", OllamaBaseURL: "http://localhost:11434"},
		},
		{
			name:    "missing model",
			config:  LLMConfig{Provider: "gemini", GeminiAPIKey: "key"},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			config:  LLMConfig{Provider: "bedrock", Model: "claude"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestGenerateRequestHasImage(t *testing.T) {
	require.False(t, (&GenerateRequest{Prompt: "hi"}).HasImage())
	require.True(t, (&GenerateRequest{Prompt: "hi", Image: []byte{1}}).HasImage())
}

func TestNewLLMServiceRejectsInvalidConfig(t *testing.T) {
	_, err := NewLLMService(&LLMConfig{Provider: "gemini", Model: "gemini-2.5-flash"})
	require.Error(t, err)
}
