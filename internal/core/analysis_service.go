package core

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"gwi.com/chart-bot/internal/analysis"
	"gwi.com/chart-bot/internal/dataset"
)

// AnalysisService writes an HTML analysis of a dataset. Without a model, or
// when the model fails, it returns the locally computed report instead.
type AnalysisService struct {
	llm    ChatCompleter
	logger *zap.Logger
}

func NewAnalysisService(llm ChatCompleter, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{llm: llm, logger: logger}
}

func (s *AnalysisService) Analyze(ctx context.Context, ds *dataset.Dataset, prompt string) (string, error) {
	if ds == nil || len(ds.Records) == 0 || strings.TrimSpace(prompt) == "" {
		return "", ErrInvalidAnalysisInput
	}
	if s.llm == nil {
		s.logger.Warn("DeepSeek API key not configured, using fallback analysis")
		return analysis.FallbackReport(ds), nil
	}

	content, err := s.llm.Complete(ctx, CompletionRequest{
		System:      analysisSystemPrompt,
		User:        analysisPrompt(analysis.Summary(ds), prompt),
		Temperature: 0.3,
		MaxTokens:   2048,
		TopP:        1,
	})
	if err != nil || strings.TrimSpace(content) == "" {
		s.logger.Error("analysis request failed, using fallback", zap.Error(err))
		return analysis.FallbackReport(ds), nil
	}
	return analysis.FormatHTML(content), nil
}
