// Package ai wraps the external generation services behind a single
// interface supporting single-shot and streaming replies, with optional
// inline image input for vision requests.
package ai

import (
	"context"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"

	apperrors "github.com/banterhq/banter/internal/errors"
)

// GenerateRequest is one generation call. Text-only and text+image are the
// only supported input shapes; Image is raw bytes tagged with a MIME type.
type GenerateRequest struct {
	Prompt        string
	Image         []byte
	ImageMIMEType string
}

// HasImage reports whether the request carries a vision payload.
func (r *GenerateRequest) HasImage() bool {
	return len(r.Image) > 0
}

// LLMService is the generation service interface.
type LLMService interface {
	// Generate performs a single-shot generation.
	Generate(ctx context.Context, req *GenerateRequest) (string, error)

	// GenerateStream produces a lazy, finite, non-restartable sequence of
	// text chunks. Both channels are closed when the stream ends; a failure
	// is delivered on the error channel.
	GenerateStream(ctx context.Context, req *GenerateRequest) (<-chan string, <-chan error)
}

// NewLLMService creates the generation service for the configured provider.
func NewLLMService(cfg *LLMConfig) (LLMService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case "gemini":
		model, err := googleai.New(context.Background(),
			googleai.WithAPIKey(cfg.GeminiAPIKey),
			googleai.WithDefaultModel(cfg.Model),
		)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeGenerationFailed, "failed to create gemini client", err)
		}
		return &langchainService{model: model, maxTokens: cfg.MaxTokens}, nil

	case "ollama":
		model, err := ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.OllamaBaseURL),
		)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeGenerationFailed, "failed to create ollama client", err)
		}
		return &langchainService{model: model, maxTokens: cfg.MaxTokens}, nil

	case "openai":
		return newOpenAIService(cfg), nil

	default:
		return nil, apperrors.New(apperrors.ErrCodeGenerationFailed, "unsupported LLM provider: "+cfg.Provider)
	}
}

type langchainService struct {
	model     llms.Model
	maxTokens int
}

func (s *langchainService) contents(req *GenerateRequest) []llms.MessageContent {
	parts := []llms.ContentPart{llms.TextPart(req.Prompt)}
	if req.HasImage() {
		parts = append(parts, llms.BinaryPart(req.ImageMIMEType, req.Image))
	}
	return []llms.MessageContent{{
		Role:  llms.ChatMessageTypeHuman,
		Parts: parts,
	}}
}

func (s *langchainService) options() []llms.CallOption {
	opts := []llms.CallOption{}
	if s.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(s.maxTokens))
	}
	return opts
}

func (s *langchainService) Generate(ctx context.Context, req *GenerateRequest) (string, error) {
	resp, err := s.model.GenerateContent(ctx, s.contents(req), s.options()...)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeGenerationFailed, "generation failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.New(apperrors.ErrCodeGenerationFailed, "empty response from model")
	}
	return resp.Choices[0].Content, nil
}

func (s *langchainService) GenerateStream(ctx context.Context, req *GenerateRequest) (<-chan string, <-chan error) {
	contentChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		defer close(contentChan)
		defer close(errChan)

		opts := append(s.options(),
			llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				select {
				case contentChan <- string(chunk):
				case <-ctx.Done():
					return ctx.Err()
				}
				return nil
			}),
		)

		if _, err := s.model.GenerateContent(ctx, s.contents(req), opts...); err != nil {
			errChan <- apperrors.Wrap(apperrors.ErrCodeGenerationFailed, "streaming generation failed", err)
		}
	}()

	return contentChan, errChan
}
