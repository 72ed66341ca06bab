package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	got, err := ExtractJSON("Sure! Here you go:\n```json\n{\"type\":\"text\",\"content\":\"{nested}\"}\n```\nEnjoy.")
	require.NoError(t, err)
	assert.Equal(t, `{"type":"text","content":"{nested}"}`, got)

	_, err = ExtractJSON("no json here")
	assert.ErrorIs(t, err, ErrInvalidResponse)

	_, err = ExtractJSON("   ")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "Sales by Region Q1", SanitizeText("## **Sales** by Region\n\nQ1\x07"))
	assert.Equal(t, "", SanitizeText(""))
	assert.Equal(t, "a b", SanitizeText("a\r\nb"))
	assert.Equal(t, "one two", SanitizeText("one\ntwo"))
}

func TestParseResponseChart(t *testing.T) {
	text := `Here is the chart:
{
  "type": "chart",
  "chartType": "bar",
  "title": "**Top** languages",
  "description": "Usage\nshare",
  "data": [
    {"name": "Go", "value": 42},
    {"name": "Rust", "value": "17.5"},
    {"name": "Zig", "value": "n/a"}
  ]
}`
	got, err := ParseResponse(text, "")
	require.NoError(t, err)

	want := &Response{
		Type:        TypeChart,
		ChartType:   ChartBar,
		Title:       "Top languages",
		Description: "Usage share",
		Data: []DataPoint{
			{Name: "Go", Value: 42},
			{Name: "Rust", Value: 17.5},
			{Name: "Zig", Value: 0},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseResponse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseResponseDiagram(t *testing.T) {
	text := `{"type":"diagram","diagramType":"flowchart","title":"Boot","code":"flowchart TD\n  A[CPU] --> B[Memory]"}`

	got, err := ParseResponse(text, "bar")
	require.NoError(t, err)
	assert.Equal(t, TypeDiagram, got.Type)
	assert.Equal(t, "flowchart", got.DiagramType)
	assert.Equal(t, "Boot", got.Title)
	assert.Equal(t, "flowchart TD\n    A[CPU] --> B[Memory]", got.Code)
}

func TestParseResponseText(t *testing.T) {
	got, err := ParseResponse(`{"type":"text","content":"Hello **there**"}`, "")
	require.NoError(t, err)
	assert.Equal(t, &Response{Type: TypeText, Content: "Hello there"}, got)
}

func TestParseResponseScatter(t *testing.T) {
	text := `{
  "title": "Temp vs sales",
  "xAxisLabel": "Temperature",
  "yAxisLabel": "Sales",
  "data": [
    {"name": "Ice cream", "color": "#10b981", "data": [
      {"x": 20, "y": "150", "label": "Mon"},
      {"x": "hot", "y": 210, "z": 3, "category": "weekend"}
    ]}
  ]
}`
	got, err := ParseResponse(text, "scatter")
	require.NoError(t, err)

	z := 3.0
	want := &Response{
		Type:       TypeChart,
		ChartType:  ChartScatter,
		Title:      "Temp vs sales",
		XAxisLabel: "Temperature",
		YAxisLabel: "Sales",
		Series: []ScatterSeries{{
			Name:  "Ice cream",
			Color: "#10b981",
			Data: []ScatterPoint{
				{X: 20, Y: 150, Label: "Mon"},
				{X: 0, Y: 210, Z: &z, Category: "weekend"},
			},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseResponse() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseResponseRejectsMalformedOutput(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		chartType string
		wantMsg   string
	}{
		{"empty", "", "", "text is required"},
		{"no json", "I cannot draw that.", "", "no valid JSON"},
		{"broken json", `{"type": "chart", "title": }`, "", "invalid character"},
		{"missing type", `{"title": "x"}`, "", "missing type"},
		{"unknown type", `{"type": "table"}`, "", "unsupported response type: table"},
		{"chart without data", `{"type":"chart","chartType":"bar","title":"t"}`, "", "missing required properties"},
		{"chart with non-array data", `{"type":"chart","chartType":"bar","title":"t","data":"none"}`, "", "missing required properties"},
		{"chart without title", `{"type":"chart","chartType":"bar","data":[]}`, "", "missing required properties"},
		{"unknown chart type", `{"type":"chart","chartType":"donut","title":"t","data":[]}`, "", "unsupported chart type"},
		{"diagram without code", `{"type":"diagram","diagramType":"flowchart","title":"t"}`, "", "missing required properties"},
		{"diagram with bad header", `{"type":"diagram","diagramType":"x","title":"t","code":"gantt\n a"}`, "", "Invalid diagram type"},
		{"text without content", `{"type":"text","content":"  "}`, "", "missing content"},
		{"scatter without series", `{"title":"t"}`, "scatter", "invalid scatter plot data structure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.text, tt.chartType)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, ErrInvalidResponse)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
