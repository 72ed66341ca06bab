package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gwi.com/chart-bot/internal/dataset"
)

func salesDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Parse(`[{"month": "Jan", "sales": 10}, {"month": "Feb", "sales": 20}]`)
	require.NoError(t, err)
	return ds
}

func TestAnalyzeWithModel(t *testing.T) {
	llm := &fakeCompleter{reply: "# Data Summary Analysis\n## Key Observations\n- Sales **doubled**"}

	got, err := NewAnalysisService(llm, zap.NewNop()).Analyze(context.Background(), salesDataset(t), "How are sales?")
	require.NoError(t, err)
	assert.Contains(t, got, "<h2>Data Summary Analysis</h2>")
	assert.Contains(t, got, "<p>Sales <strong>doubled</strong></p>")

	assert.Equal(t, analysisSystemPrompt, llm.request.System)
	assert.Contains(t, llm.request.User, "Number of records: 2")
	assert.Contains(t, llm.request.User, "User Question: How are sales?")
	assert.Equal(t, 0.3, llm.request.Temperature)
	assert.Equal(t, 2048, llm.request.MaxTokens)
	assert.Equal(t, 1.0, llm.request.TopP)
}

func TestAnalyzeFallsBack(t *testing.T) {
	for name, llm := range map[string]ChatCompleter{
		"no model":      nil,
		"model error":   &fakeCompleter{err: errors.New("timeout")},
		"empty content": &fakeCompleter{reply: "  "},
	} {
		t.Run(name, func(t *testing.T) {
			got, err := NewAnalysisService(llm, zap.NewNop()).Analyze(context.Background(), salesDataset(t), "trends?")
			require.NoError(t, err)
			assert.Contains(t, got, "<p>Dataset Size: 2 records with 2 columns.</p>")
		})
	}
}

func TestAnalyzeRejectsInput(t *testing.T) {
	s := NewAnalysisService(&fakeCompleter{}, zap.NewNop())

	_, err := s.Analyze(context.Background(), &dataset.Dataset{}, "trends?")
	assert.ErrorIs(t, err, ErrInvalidAnalysisInput)
	_, err = s.Analyze(context.Background(), salesDataset(t), "")
	assert.ErrorIs(t, err, ErrInvalidAnalysisInput)
	_, err = s.Analyze(context.Background(), nil, "trends?")
	assert.ErrorIs(t, err, ErrInvalidAnalysisInput)
}
