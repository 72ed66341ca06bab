package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"

	"gwi.com/chart-bot/internal/parser"
)

const barReply = "Sure!\n```json\n{\"type\": \"chart\", \"chartType\": \"bar\", \"title\": \"**Sales**\", " +
	"\"description\": \"Quarterly\", \"data\": [{\"name\": \"Q1\", \"value\": \"12\"}, {\"name\": \"Q2\", \"value\": 30}]}\n```"

func newChartService(gen *fakeGenerator) *ChartService {
	return NewChartService(gen, "primary", "fallback", zap.NewNop())
}

func TestChartServiceGenerate(t *testing.T) {
	gen := &fakeGenerator{replies: map[string]string{"primary": barReply}}

	resp, err := newChartService(gen).Generate(context.Background(), "sales by quarter", "bar")
	require.NoError(t, err)
	assert.Equal(t, parser.TypeChart, resp.Type)
	assert.Equal(t, "Sales", resp.Title)
	assert.Equal(t, []parser.DataPoint{{Name: "Q1", Value: 12}, {Name: "Q2", Value: 30}}, resp.Data)

	assert.Equal(t, []string{"primary"}, gen.models())
	assert.True(t, strings.HasPrefix(gen.calls[0].prompt, generalSystemPrompt+"\n\n"))
	assert.True(t, strings.HasSuffix(gen.calls[0].prompt, "sales by quarter"))
}

func TestChartServiceScatterPrompt(t *testing.T) {
	gen := &fakeGenerator{replies: map[string]string{
		"primary": `{"title": "Height vs weight", "data": [{"name": "People", "data": [{"x": 170, "y": 65}]}]}`,
	}}

	resp, err := newChartService(gen).Generate(context.Background(), "height vs weight", "scatter")
	require.NoError(t, err)
	assert.Equal(t, parser.ChartScatter, resp.ChartType)
	require.Len(t, resp.Series, 1)
	assert.Contains(t, gen.calls[0].prompt, "Generate a scatter plot")
}

func TestChartServiceFallsBackOnce(t *testing.T) {
	gen := &fakeGenerator{
		replies: map[string]string{"fallback": `{"type": "text", "content": "hello"}`},
		errs:    map[string]error{"primary": errors.New("model not found")},
	}

	resp, err := newChartService(gen).Generate(context.Background(), "hi", "")
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, []string{"primary", "fallback"}, gen.models())
}

func TestChartServiceFallbackFailureIsClassified(t *testing.T) {
	gen := &fakeGenerator{errs: map[string]error{
		"primary":  errors.New("boom"),
		"fallback": &googleapi.Error{Code: 429, Message: "Resource has been exhausted"},
	}}

	_, err := newChartService(gen).Generate(context.Background(), "hi", "")
	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, KindQuota, userErr.Kind)
	assert.Equal(t, msgQuota, err.Error())
	assert.Len(t, gen.calls, 2)
}

func TestChartServiceRejectsInput(t *testing.T) {
	gen := &fakeGenerator{}
	s := newChartService(gen)

	_, err := s.Generate(context.Background(), "   ", "bar")
	assert.ErrorIs(t, err, ErrMessageRequired)

	_, err = s.Generate(context.Background(), "hi", "donut")
	assert.ErrorIs(t, err, ErrInvalidChartType)

	_, err = s.GenerateScatter(context.Background(), "")
	assert.ErrorIs(t, err, ErrPromptRequired)

	assert.Empty(t, gen.calls)
}

func TestChartServiceBadOutput(t *testing.T) {
	gen := &fakeGenerator{replies: map[string]string{"primary": "I cannot help with that."}}

	_, err := newChartService(gen).Generate(context.Background(), "hi", "")
	var userErr *UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, KindInvalid, userErr.Kind)
	assert.ErrorIs(t, err, parser.ErrInvalidResponse)
	assert.True(t, strings.HasPrefix(userErr.Message, "Failed to parse response: "))

	gen.replies["primary"] = "  \n"
	_, err = newChartService(gen).Generate(context.Background(), "hi", "")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestChartServiceGenerateScatter(t *testing.T) {
	gen := &fakeGenerator{replies: map[string]string{
		"primary": `{"title": "Cities", "data": [{"name": "EU", "color": "#ff0000", "data": [{"x": 1, "y": 2, "z": 3, "category": "big"}]}]}`,
	}}

	resp, err := newChartService(gen).GenerateScatter(context.Background(), "city sizes")
	require.NoError(t, err)
	require.Len(t, resp.Series, 1)
	assert.Equal(t, "#ff0000", resp.Series[0].Color)
	require.NotNil(t, resp.Series[0].Data[0].Z)
	assert.Equal(t, 3.0, *resp.Series[0].Data[0].Z)
	assert.True(t, strings.HasSuffix(gen.calls[0].prompt, "User request: city sizes"))
}

func TestChartServicePing(t *testing.T) {
	gen := &fakeGenerator{replies: map[string]string{"fallback": "Hello there"}}

	text, err := newChartService(gen).Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hello there", text)
	assert.Equal(t, pingPrompt, gen.calls[0].prompt)
	assert.Equal(t, "fallback", gen.calls[0].model)
}
