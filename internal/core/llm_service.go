package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// TextGenerator sends a single prompt to a named model.
type TextGenerator interface {
	GenerateText(ctx context.Context, model, prompt string) (string, error)
}

// TitleGenerator names a conversation from its first prompt.
type TitleGenerator interface {
	GenerateTitle(ctx context.Context, basis string) (string, error)
}

// GeminiService is the Gemini-backed TextGenerator and TitleGenerator.
type GeminiService struct {
	client     *genai.Client
	titleModel string
	logger     *zap.Logger
}

func NewGeminiService(ctx context.Context, apiKey, titleModel string, logger *zap.Logger) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiService{
		client:     client,
		titleModel: titleModel,
		logger:     logger,
	}, nil
}

func (s *GeminiService) Close() {
	if s.client == nil {
		return
	}
	if err := s.client.Close(); err != nil {
		s.logger.Warn("error closing GenAI client", zap.Error(err))
	} else {
		s.logger.Debug("GenAI client closed")
	}
}

func (s *GeminiService) GenerateText(ctx context.Context, modelName, prompt string) (string, error) {
	model := s.client.GenerativeModel(modelName)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini %s request failed: %w", modelName, err)
	}
	return responseText(resp), nil
}

func (s *GeminiService) GenerateTitle(ctx context.Context, basis string) (string, error) {
	model := s.client.GenerativeModel(s.titleModel)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(titleSystemInstruction)},
	}
	model.SetTemperature(0.3)
	model.SetMaxOutputTokens(20)

	resp, err := model.GenerateContent(ctx, genai.Text(fmt.Sprintf(titlePromptTemplate, basis)))
	if err != nil {
		return "", fmt.Errorf("gemini title generation request failed: %w", err)
	}

	title := CleanTitle(responseText(resp))
	if title == "" {
		return "", fmt.Errorf("LLM generated an empty title string")
	}
	return title, nil
}

// CleanTitle strips the quotes and trailing punctuation models like to add.
func CleanTitle(title string) string {
	return strings.Trim(title, "\"'\n\r\t .")
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	return text.String()
}
