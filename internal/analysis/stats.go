// Package analysis computes the descriptive statistics and text/HTML summaries
// used by the data-analysis endpoint.
package analysis

import (
	"math"
	"strconv"
	"strings"
	"time"
)

type DataType string

const (
	TypeNumeric DataType = "numeric"
	TypeDate    DataType = "date"
	TypeBoolean DataType = "boolean"
	TypeText    DataType = "text"
	TypeUnknown DataType = "unknown"
)

// dateLayouts is the set of date shapes we recognize in uploaded data.
var dateLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	time.RFC1123,
}

// InferType classifies a column by its first non-null value.
func InferType(values []any) DataType {
	for _, v := range values {
		if v == nil {
			continue
		}
		switch s := v.(type) {
		case float64, float32, int, int64, int32:
			return TypeNumeric
		case bool:
			return TypeBoolean
		case time.Time:
			return TypeDate
		case string:
			if _, ok := parseNumber(s); ok {
				return TypeNumeric
			}
			if isDate(s) {
				return TypeDate
			}
			if lower := strings.ToLower(strings.TrimSpace(s)); lower == "true" || lower == "false" {
				return TypeBoolean
			}
			return TypeText
		default:
			return TypeText
		}
	}
	return TypeUnknown
}

func isDate(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// ToNumber converts a cell to a float; ok is false for blanks and non-numeric text.
func ToNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		return parseNumber(n)
	}
	return 0, false
}

// Numbers keeps the numeric cells of a column, in order.
func Numbers(values []any) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := ToNumber(v); ok {
			out = append(out, f)
		}
	}
	return out
}

type ColumnStats struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// Stats returns count/min/max/mean; ok is false for an empty slice.
func Stats(values []float64) (ColumnStats, bool) {
	if len(values) == 0 {
		return ColumnStats{}, false
	}
	s := ColumnStats{Count: len(values), Min: values[0], Max: values[0]}
	var sum float64
	for _, v := range values {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(len(values))
	return s, true
}

// Correlation is Pearson's r over the index-aligned pairs where both cells are
// numeric. NaN when fewer than two pairs remain or either side is constant.
func Correlation(x, y []any) float64 {
	n := min(len(x), len(y))
	var xs, ys []float64
	for i := 0; i < n; i++ {
		a, okA := ToNumber(x[i])
		b, okB := ToNumber(y[i])
		if okA && okB {
			xs = append(xs, a)
			ys = append(ys, b)
		}
	}
	return Pearson(xs, ys)
}

// Pearson computes r for two equal-length float series.
func Pearson(xs, ys []float64) float64 {
	if len(xs) != len(ys) || len(xs) < 2 {
		return math.NaN()
	}
	n := float64(len(xs))
	var sumX, sumY, sumXY, sumX2, sumY2 float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumX2 += xs[i] * xs[i]
		sumY2 += ys[i] * ys[i]
	}
	numerator := n*sumXY - sumX*sumY
	denominator := math.Sqrt((n*sumX2 - sumX*sumX) * (n*sumY2 - sumY*sumY))
	if denominator == 0 || math.IsNaN(denominator) {
		return math.NaN()
	}
	return numerator / denominator
}
