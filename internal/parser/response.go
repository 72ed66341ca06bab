// Package parser coerces free-form model output into a typed chart, diagram or
// text envelope.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gwi.com/chart-bot/internal/diagram"
)

// ErrInvalidResponse wraps every parse or validation failure.
var ErrInvalidResponse = errors.New("invalid model response")

type ResponseType string

const (
	TypeChart   ResponseType = "chart"
	TypeDiagram ResponseType = "diagram"
	TypeText    ResponseType = "text"
)

type ChartType string

const (
	ChartBar     ChartType = "bar"
	ChartLine    ChartType = "line"
	ChartPie     ChartType = "pie"
	ChartRadar   ChartType = "radar"
	ChartScatter ChartType = "scatter"
)

func (c ChartType) Valid() bool {
	switch c {
	case ChartBar, ChartLine, ChartPie, ChartRadar, ChartScatter:
		return true
	}
	return false
}

type DataPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

type ScatterPoint struct {
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Z        *float64 `json:"z,omitempty"`
	Label    string   `json:"label,omitempty"`
	Category string   `json:"category,omitempty"`
}

type ScatterSeries struct {
	Name  string         `json:"name"`
	Data  []ScatterPoint `json:"data"`
	Color string         `json:"color,omitempty"`
}

// Response is the envelope handed back to clients. Which fields are set depends on Type.
type Response struct {
	Type        ResponseType    `json:"type"`
	ChartType   ChartType       `json:"chartType,omitempty"`
	DiagramType string          `json:"diagramType,omitempty"`
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	Data        []DataPoint     `json:"data,omitempty"`
	Series      []ScatterSeries `json:"series,omitempty"`
	XAxisLabel  string          `json:"xAxisLabel,omitempty"`
	YAxisLabel  string          `json:"yAxisLabel,omitempty"`
	Code        string          `json:"code,omitempty"`
	Content     string          `json:"content,omitempty"`
}

// rawResponse mirrors what models actually send: loosely typed numbers and
// optional fields.
type rawResponse struct {
	Type        string            `json:"type"`
	ChartType   string            `json:"chartType"`
	DiagramType string            `json:"diagramType"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	XAxisLabel  string            `json:"xAxisLabel"`
	YAxisLabel  string            `json:"yAxisLabel"`
	Code        string            `json:"code"`
	Content     string            `json:"content"`
	Data        []json.RawMessage `json:"data"`
	hasData     bool
}

func (r *rawResponse) UnmarshalJSON(b []byte) error {
	type plain rawResponse
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		// Shape mismatches (e.g. "data": "n/a") are reported by the validators below.
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return err
		}
	}
	*r = rawResponse(p)
	if data, ok := fields["data"]; ok {
		r.hasData = strings.HasPrefix(strings.TrimSpace(string(data)), "[")
	}
	return nil
}

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// ExtractJSON returns the span from the first '{' to the last '}' in text.
func ExtractJSON(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", fmt.Errorf("%w: text is required", ErrInvalidResponse)
	}
	match := jsonObjectRe.FindString(trimmed)
	if match == "" {
		return "", fmt.Errorf("%w: no valid JSON found in response", ErrInvalidResponse)
	}
	return match, nil
}

// ParseResponse extracts and validates the envelope. chartType "scatter"
// switches to the scatter series shape, where "type" is implied.
func ParseResponse(text string, chartType string) (*Response, error) {
	payload, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var raw rawResponse
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	if ChartType(chartType) == ChartScatter {
		return parseScatter(&raw)
	}

	switch ResponseType(raw.Type) {
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrInvalidResponse)
	case TypeChart:
		return parseChart(&raw)
	case TypeDiagram:
		return parseDiagram(&raw)
	case TypeText:
		return parseText(&raw)
	default:
		return nil, fmt.Errorf("%w: unsupported response type: %s", ErrInvalidResponse, raw.Type)
	}
}

func parseChart(raw *rawResponse) (*Response, error) {
	if raw.ChartType == "" || raw.Title == "" || !raw.hasData {
		return nil, fmt.Errorf("%w: invalid chart data: missing required properties", ErrInvalidResponse)
	}
	ct := ChartType(strings.ToLower(raw.ChartType))
	if !ct.Valid() {
		return nil, fmt.Errorf("%w: unsupported chart type: %s", ErrInvalidResponse, raw.ChartType)
	}
	if ct == ChartScatter {
		return parseScatter(raw)
	}

	points := make([]DataPoint, 0, len(raw.Data))
	for _, item := range raw.Data {
		var obj struct {
			Name  any `json:"name"`
			Value any `json:"value"`
		}
		// Non-object items degrade to an empty point rather than failing the chart.
		_ = json.Unmarshal(item, &obj)
		points = append(points, DataPoint{
			Name:  SanitizeText(toString(obj.Name)),
			Value: toNumber(obj.Value),
		})
	}

	return &Response{
		Type:        TypeChart,
		ChartType:   ct,
		Title:       SanitizeText(raw.Title),
		Description: SanitizeText(raw.Description),
		Data:        points,
		XAxisLabel:  SanitizeText(raw.XAxisLabel),
		YAxisLabel:  SanitizeText(raw.YAxisLabel),
	}, nil
}

func parseScatter(raw *rawResponse) (*Response, error) {
	if !raw.hasData {
		return nil, fmt.Errorf("%w: invalid scatter plot data structure", ErrInvalidResponse)
	}

	series := make([]ScatterSeries, 0, len(raw.Data))
	for _, item := range raw.Data {
		var s struct {
			Name  any               `json:"name"`
			Color any               `json:"color"`
			Data  []json.RawMessage `json:"data"`
		}
		_ = json.Unmarshal(item, &s)

		points := make([]ScatterPoint, 0, len(s.Data))
		for _, rawPoint := range s.Data {
			var p struct {
				X        any `json:"x"`
				Y        any `json:"y"`
				Z        any `json:"z"`
				Label    any `json:"label"`
				Category any `json:"category"`
			}
			_ = json.Unmarshal(rawPoint, &p)
			point := ScatterPoint{
				X:        toNumber(p.X),
				Y:        toNumber(p.Y),
				Label:    SanitizeText(toString(p.Label)),
				Category: SanitizeText(toString(p.Category)),
			}
			if p.Z != nil {
				z := toNumber(p.Z)
				point.Z = &z
			}
			points = append(points, point)
		}
		series = append(series, ScatterSeries{
			Name:  SanitizeText(toString(s.Name)),
			Data:  points,
			Color: strings.TrimSpace(toString(s.Color)),
		})
	}

	return &Response{
		Type:        TypeChart,
		ChartType:   ChartScatter,
		Title:       SanitizeText(raw.Title),
		Description: SanitizeText(raw.Description),
		XAxisLabel:  SanitizeText(raw.XAxisLabel),
		YAxisLabel:  SanitizeText(raw.YAxisLabel),
		Series:      series,
	}, nil
}

func parseDiagram(raw *rawResponse) (*Response, error) {
	if raw.DiagramType == "" || raw.Title == "" || strings.TrimSpace(raw.Code) == "" {
		return nil, fmt.Errorf("%w: invalid diagram data: missing required properties", ErrInvalidResponse)
	}
	code, err := diagram.Preprocess(raw.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return &Response{
		Type:        TypeDiagram,
		DiagramType: strings.TrimSpace(raw.DiagramType),
		Title:       SanitizeText(raw.Title),
		Code:        code,
	}, nil
}

func parseText(raw *rawResponse) (*Response, error) {
	content := SanitizeText(raw.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: invalid text response: missing content", ErrInvalidResponse)
	}
	return &Response{Type: TypeText, Content: content}, nil
}

// toNumber follows JavaScript's Number(v) || 0: numeric strings convert,
// everything else is zero.
func toNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return f
	case bool:
		if n {
			return 1
		}
	}
	return 0
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}
