package core

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"gwi.com/chart-bot/internal/parser"
)

const pingPrompt = "Hello, world!"

// ChartService turns a natural-language request into a chart, diagram or
// text envelope using a primary model with a single fallback.
type ChartService struct {
	llm           TextGenerator
	primaryModel  string
	fallbackModel string
	logger        *zap.Logger
}

func NewChartService(llm TextGenerator, primaryModel, fallbackModel string, logger *zap.Logger) *ChartService {
	return &ChartService{
		llm:           llm,
		primaryModel:  primaryModel,
		fallbackModel: fallbackModel,
		logger:        logger,
	}
}

func (s *ChartService) Generate(ctx context.Context, message, chartType string) (*parser.Response, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrMessageRequired
	}
	if chartType != "" && !parser.ChartType(chartType).Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidChartType, chartType)
	}

	s.logger.Debug("generating response", zap.String("chartType", chartType), zap.Int("messageLength", len(message)))
	return s.generateAndParse(ctx, systemPrompt(chartType)+"\n\n"+message, chartType)
}

// GenerateScatter asks for multi-series scatter data with optional z,
// category and color fields.
func (s *ChartService) GenerateScatter(ctx context.Context, prompt string) (*parser.Response, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrPromptRequired
	}
	return s.generateAndParse(ctx, scatterPlotPrompt+"\n\nUser request: "+prompt, string(parser.ChartScatter))
}

// Ping checks connectivity against the fallback model.
func (s *ChartService) Ping(ctx context.Context) (string, error) {
	text, err := s.llm.GenerateText(ctx, s.fallbackModel, pingPrompt)
	if err != nil {
		return "", Classify(err)
	}
	return text, nil
}

func (s *ChartService) generateAndParse(ctx context.Context, prompt, chartType string) (*parser.Response, error) {
	text, err := s.generate(ctx, prompt)
	if err != nil {
		s.logger.Error("generation failed", zap.Error(err))
		return nil, Classify(err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}

	resp, err := parser.ParseResponse(text, chartType)
	if err != nil {
		s.logger.Warn("unparseable model output", zap.Error(err), zap.String("raw", text))
		return nil, Classify(err)
	}
	return resp, nil
}

func (s *ChartService) generate(ctx context.Context, prompt string) (string, error) {
	text, err := s.llm.GenerateText(ctx, s.primaryModel, prompt)
	if err == nil {
		return text, nil
	}
	s.logger.Warn("primary model failed, falling back",
		zap.String("primary", s.primaryModel),
		zap.String("fallback", s.fallbackModel),
		zap.Error(err))

	text, err = s.llm.GenerateText(ctx, s.fallbackModel, prompt)
	if err != nil {
		return "", fmt.Errorf("fallback model %s: %w", s.fallbackModel, err)
	}
	return text, nil
}
