package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Comparison is a feature-by-product table. Each row carries "feature" plus
// one key per product.
type Comparison struct {
	Title    string           `json:"title"`
	Products []string         `json:"products"`
	Data     []map[string]any `json:"data"`
}

// ComparisonService builds product comparisons with DeepSeek, falling back to
// a locally generated table when the model is missing or misbehaves.
type ComparisonService struct {
	llm    ChatCompleter
	logger *zap.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewComparisonService accepts a nil llm; every request then uses the
// fallback table.
func NewComparisonService(llm ChatCompleter, rnd *rand.Rand, logger *zap.Logger) *ComparisonService {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &ComparisonService{llm: llm, rnd: rnd, logger: logger}
}

func (s *ComparisonService) Generate(ctx context.Context, prompt string) (*Comparison, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrPromptRequired
	}
	if s.llm == nil {
		s.logger.Warn("DeepSeek API key not configured, using fallback comparison")
		return s.fallback(prompt), nil
	}

	content, err := s.llm.Complete(ctx, CompletionRequest{
		User:        comparisonPrompt(prompt),
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		s.logger.Error("comparison request failed, using fallback", zap.Error(err))
		return s.fallback(prompt), nil
	}

	comparison, err := parseComparison(content)
	if err != nil {
		s.logger.Error("invalid comparison output, using fallback", zap.Error(err), zap.String("raw", content))
		return s.fallback(prompt), nil
	}
	return comparison, nil
}

var fenceRe = regexp.MustCompile("```json\\n?|\\n?```")

func parseComparison(content string) (*Comparison, error) {
	cleaned := strings.TrimSpace(fenceRe.ReplaceAllString(content, ""))

	var c Comparison
	if err := json.Unmarshal([]byte(cleaned), &c); err != nil {
		return nil, fmt.Errorf("failed to parse comparison data: %w", err)
	}
	if c.Title == "" || c.Products == nil || c.Data == nil {
		return nil, errors.New("invalid response structure")
	}
	return &c, nil
}

type comparisonTemplate struct {
	keywords []string
	products []string
	features []string
}

var comparisonTemplates = []comparisonTemplate{
	{
		keywords: []string{"iphone", "samsung", "pixel"},
		products: []string{"iPhone 15", "Samsung Galaxy S23", "Google Pixel 8"},
		features: []string{"Display", "Processor", "Camera", "Battery", "Storage", "Price", "Weight", "Water Resistance"},
	},
	{
		keywords: []string{"macbook", "dell", "thinkpad"},
		products: []string{"MacBook Pro", "Dell XPS", "ThinkPad X1"},
		features: []string{"Processor", "RAM", "Storage", "Display", "Battery Life", "Weight", "Ports", "Price"},
	},
	{
		keywords: []string{"netflix", "disney", "hulu"},
		products: []string{"Netflix", "Disney+", "Hulu"},
		features: []string{
			"Monthly Price", "Content Library", "Original Shows", "Max Resolution",
			"Simultaneous Streams", "Offline Viewing", "Ad-Free Option", "Annual Plan Discount",
		},
	},
}

var genericFeatures = []string{"Feature 1", "Feature 2", "Feature 3", "Feature 4", "Feature 5", "Feature 6"}

func (s *ComparisonService) fallback(prompt string) *Comparison {
	products, features := fallbackSubjects(prompt)

	s.mu.Lock()
	defer s.mu.Unlock()

	data := make([]map[string]any, 0, len(features))
	for _, feature := range features {
		row := map[string]any{"feature": feature}
		for _, product := range products {
			switch strings.ToLower(feature) {
			case "price":
				row[product] = s.rnd.IntN(1000) + 500
			case "weight":
				row[product] = fmt.Sprintf("%.2f kg", s.rnd.Float64()*2+0.5)
			case "battery", "battery life":
				row[product] = fmt.Sprintf("%d hours", s.rnd.IntN(10)+5)
			default:
				row[product] = product + " " + feature
			}
		}
		data = append(data, row)
	}

	return &Comparison{
		Title:    "Comparison of " + strings.Join(products, ", "),
		Products: products,
		Data:     data,
	}
}

func fallbackSubjects(prompt string) (products, features []string) {
	lower := strings.ToLower(prompt)
	for _, tmpl := range comparisonTemplates {
		for _, kw := range tmpl.keywords {
			if strings.Contains(lower, kw) {
				return slices.Clone(tmpl.products), tmpl.features
			}
		}
	}

	for _, word := range strings.Fields(prompt) {
		if utf8.RuneCountInString(word) > 3 {
			products = append(products, word)
			if len(products) == 3 {
				break
			}
		}
	}
	if len(products) < 2 {
		products = []string{"Product A", "Product B", "Product C"}
	}
	return products, genericFeatures
}
