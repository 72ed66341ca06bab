package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// CompletionRequest is one system+user exchange with sampling settings.
type CompletionRequest struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
	TopP        float64
}

// ChatCompleter runs a chat completion and returns the first choice.
type ChatCompleter interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// DeepSeekService talks to DeepSeek's OpenAI-compatible API.
type DeepSeekService struct {
	llm llms.Model
}

func NewDeepSeekService(baseURL, token, model string) (*DeepSeekService, error) {
	llm, err := openai.New(
		openai.WithToken(token),
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create DeepSeek client: %w", err)
	}
	return &DeepSeekService{llm: llm}, nil
}

func (s *DeepSeekService) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	var messages []llms.MessageContent
	if req.System != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.System))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.User))

	opts := []llms.CallOption{
		llms.WithTemperature(req.Temperature),
		llms.WithMaxTokens(req.MaxTokens),
	}
	if req.TopP > 0 {
		opts = append(opts, llms.WithTopP(req.TopP))
	}

	resp, err := s.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", fmt.Errorf("deepseek request failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return "", errors.New("no content in DeepSeek response")
	}
	return resp.Choices[0].Content, nil
}
