package analysis

import (
	"fmt"
	"html"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"gwi.com/chart-bot/internal/dataset"
)

// MaxSummaryLength bounds the summary sent upstream.
const MaxSummaryLength = 30000

// Summary describes the dataset for the model: sizes, per-column type with
// sample values and stats, and pairwise correlations of numeric columns.
func Summary(ds *dataset.Dataset) string {
	if len(ds.Columns) == 0 {
		return "No columns found in data"
	}

	var b strings.Builder
	b.WriteString("Dataset Summary:\n")
	fmt.Fprintf(&b, "Number of records: %d\n", len(ds.Records))
	fmt.Fprintf(&b, "Number of columns: %d\n\n", len(ds.Columns))
	b.WriteString("Column Information:\n")

	var numeric []string
	for _, col := range ds.Columns {
		values := nonNull(ds.Column(col))
		typ := InferType(values)

		samples := make([]string, 0, 3)
		for _, v := range values[:min(3, len(values))] {
			samples = append(samples, fmt.Sprint(v))
		}

		stats := ""
		if typ == TypeNumeric {
			numeric = append(numeric, col)
			if s, ok := Stats(Numbers(values)); ok {
				stats = fmt.Sprintf(" (Avg: %.2f, Min: %s, Max: %s)", s.Mean, formatNumber(s.Min), formatNumber(s.Max))
			}
		}
		fmt.Fprintf(&b, "%s (%s): %s...%s\n", col, typ, strings.Join(samples, ", "), stats)
	}

	if len(numeric) > 1 {
		b.WriteString("\nCorrelations between numeric columns:\n")
		for i := 0; i < len(numeric); i++ {
			for j := i + 1; j < len(numeric); j++ {
				r := Correlation(ds.Column(numeric[i]), ds.Column(numeric[j]))
				if !math.IsNaN(r) {
					fmt.Fprintf(&b, "%s vs %s: %.3f\n", numeric[i], numeric[j], r)
				}
			}
		}
	}

	summary := b.String()
	if len(summary) > MaxSummaryLength {
		summary = truncateUTF8(summary, MaxSummaryLength)
	}
	return summary
}

// FallbackReport is the locally computed HTML analysis used when the
// analysis model is unavailable.
func FallbackReport(ds *dataset.Dataset) string {
	if ds == nil || len(ds.Records) == 0 {
		return "\n<h2>Data Summary Analysis</h2>\n<p>Unable to generate detailed analysis. Please check your data format and try again.</p>\n"
	}

	var numericStats []string
	var missing []string
	for _, col := range ds.Columns {
		column := ds.Column(col)
		if s, ok := Stats(Numbers(column)); ok {
			numericStats = append(numericStats, fmt.Sprintf("<p><strong>%s:</strong> Min: %.2f, Max: %.2f, Avg: %.2f</p>",
				html.EscapeString(col), s.Min, s.Max, s.Mean))
		}
		for _, v := range column {
			if v == nil || v == "" {
				missing = append(missing, col)
				break
			}
		}
	}

	missingInfo := "No missing data detected."
	if len(missing) > 0 {
		missingInfo = "Missing data found in columns: " + html.EscapeString(strings.Join(missing, ", "))
	}

	var b strings.Builder
	b.WriteString("\n<h2>Data Summary Analysis</h2>\n\n<h3>Key Observations</h3>\n\n")
	fmt.Fprintf(&b, "<p>Dataset Size: %d records with %d columns.</p>\n\n", len(ds.Records), len(ds.Columns))
	fmt.Fprintf(&b, "<p>Columns: %s</p>\n\n", html.EscapeString(strings.Join(ds.Columns, ", ")))
	fmt.Fprintf(&b, "<p>Missing Data: %s</p>\n\n", missingInfo)
	b.WriteString("<h3>Statistical Insights</h3>\n\n")
	b.WriteString(strings.Join(numericStats, "\n"))
	b.WriteString("\n\n<h3>Recommendations</h3>\n\n")
	b.WriteString("<p>Based on the data provided, here are some general recommendations:</p>\n")
	b.WriteString("<p>1. Clean any missing data in the dataset</p>\n")
	b.WriteString("<p>2. Consider normalizing numeric values for better comparison</p>\n")
	b.WriteString("<p>3. Look for correlations between different columns</p>\n")
	b.WriteString("<p>4. Consider visualizing the data to identify patterns</p>\n")
	return b.String()
}

var (
	mainHeadingRe = regexp.MustCompile(`(?i)^(#\s+|DATA SUMMARY ANALYSIS)`)
	subHeadingRe  = regexp.MustCompile(`(?i)^(#{2,}\s+|KEY OBSERVATIONS|PATTERNS & TRENDS|STATISTICAL INSIGHTS|RECOMMENDATIONS)`)
	hashPrefixRe  = regexp.MustCompile(`^#+\s+`)
	boldRe        = regexp.MustCompile(`\*\*(.+?)\*\*`)
)

// FormatHTML turns the model's markdown-flavoured analysis into h2/h3/p HTML.
// The first-level heading opens a section div that runs to the end.
func FormatHTML(text string) string {
	var b strings.Builder
	inSection := false

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		switch {
		case subHeadingRe.MatchString(trimmed):
			fmt.Fprintf(&b, "<h3>%s</h3>\n", inline(hashPrefixRe.ReplaceAllString(trimmed, "")))
		case mainHeadingRe.MatchString(trimmed):
			if inSection {
				b.WriteString("</div>")
			}
			fmt.Fprintf(&b, "<h2>%s</h2>\n<div class=\"section\">", inline(hashPrefixRe.ReplaceAllString(trimmed, "")))
			inSection = true
		case strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* "):
			fmt.Fprintf(&b, "<p>%s</p>\n", inline(trimmed[2:]))
		default:
			fmt.Fprintf(&b, "<p>%s</p>\n", inline(trimmed))
		}
	}

	if inSection {
		b.WriteString("</div>")
	}
	return b.String()
}

func inline(s string) string {
	return boldRe.ReplaceAllString(html.EscapeString(s), "<strong>$1</strong>")
}

func nonNull(values []any) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

func formatNumber(f float64) string {
	return fmt.Sprintf("%g", f)
}

func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
