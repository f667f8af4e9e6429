package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	apperrors "github.com/banterhq/banter/internal/errors"
)

// openaiService backs the generation interface with the OpenAI chat
// completion API. Vision input rides along as a data-URI image part.
type openaiService struct {
	client    *openai.Client
	model     string
	maxTokens int
}

func newOpenAIService(cfg *LLMConfig) *openaiService {
	clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAIBaseURL
	}
	return &openaiService{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

func (s *openaiService) request(req *GenerateRequest) openai.ChatCompletionRequest {
	message := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if req.HasImage() {
		dataURI := fmt.Sprintf("data:%s;base64,%s", req.ImageMIMEType, base64.StdEncoding.EncodeToString(req.Image))
		message.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURI}},
		}
	} else {
		message.Content = req.Prompt
	}
	return openai.ChatCompletionRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		Messages:  []openai.ChatCompletionMessage{message},
	}
}

func (s *openaiService) Generate(ctx context.Context, req *GenerateRequest) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, s.request(req))
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrCodeGenerationFailed, "generation failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.New(apperrors.ErrCodeGenerationFailed, "empty response from model")
	}
	return resp.Choices[0].Message.Content, nil
}

func (s *openaiService) GenerateStream(ctx context.Context, req *GenerateRequest) (<-chan string, <-chan error) {
	contentChan := make(chan string)
	errChan := make(chan error, 1)

	go func() {
		defer close(contentChan)
		defer close(errChan)

		stream, err := s.client.CreateChatCompletionStream(ctx, s.request(req))
		if err != nil {
			errChan <- apperrors.Wrap(apperrors.ErrCodeGenerationFailed, "failed to open completion stream", err)
			return
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				errChan <- apperrors.Wrap(apperrors.ErrCodeGenerationFailed, "completion stream failed", err)
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			chunk := resp.Choices[0].Delta.Content
			if chunk == "" {
				continue
			}
			select {
			case contentChan <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	return contentChan, errChan
}
