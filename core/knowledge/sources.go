package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/taskhive/taskhive/core/types"
	"github.com/taskhive/taskhive/pkg/llm"
	"github.com/tmc/langchaingo/tools/duckduckgo"
	"github.com/tmc/langchaingo/tools/wikipedia"
	"mvdan.cc/xurls/v2"
)

const userAgent = "TaskHive"

// Source fetches raw material for a query. Absence of matching
// material yields zero records, not an error.
type Source interface {
	Name() string
	Lookup(ctx context.Context, query string) ([]types.SourceRecord, error)
}

// WikipediaSource performs an exact/near-exact title lookup against
// the Wikipedia API.
type WikipediaSource struct{}

func NewWikipediaSource() *WikipediaSource {
	return &WikipediaSource{}
}

func (s *WikipediaSource) Name() string { return "wikipedia" }

func (s *WikipediaSource) Lookup(ctx context.Context, query string) ([]types.SourceRecord, error) {
	wiki := wikipedia.New(userAgent)
	result, err := wiki.Call(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("wikipedia lookup: %w", err)
	}
	if strings.TrimSpace(result) == "" {
		// No matching entry is not an error.
		return nil, nil
	}
	return []types.SourceRecord{
		{
			Title:   query,
			Content: result,
		},
	}, nil
}

// WebSource performs a generic web search, bounded to a fixed number
// of top results.
type WebSource struct {
	results int
}

func NewWebSource(results int) *WebSource {
	if results <= 0 {
		results = 3
	}
	return &WebSource{results: results}
}

func (s *WebSource) Name() string { return "web" }

func (s *WebSource) Lookup(ctx context.Context, query string) ([]types.SourceRecord, error) {
	ddg, err := duckduckgo.New(s.results, userAgent)
	if err != nil {
		return nil, fmt.Errorf("web search setup: %w", err)
	}
	res, err := ddg.Call(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("web search: %w", err)
	}
	if strings.TrimSpace(res) == "" {
		return nil, nil
	}

	rxStrict := xurls.Strict()
	urls := []string{}
	for _, u := range rxStrict.FindAllString(res, -1) {
		// Unwrap duckduckgo redirect URLs.
		u = strings.ReplaceAll(u, "//duckduckgo.com/l/?uddg=", "")
		u = strings.Split(u, "&rut=")[0]
		urls = append(urls, u)
	}

	return []types.SourceRecord{
		{
			Title:   fmt.Sprintf("web results for %q", query),
			Content: res,
			URLs:    urls,
		},
	}, nil
}

// insightBaselineConfidence tags generative records, which carry no
// external corroboration.
const insightBaselineConfidence = 0.7

// InsightSource produces one generative-insight record through the
// text-generation capability.
type InsightSource struct {
	client llm.Client
	model  string
}

func NewInsightSource(client llm.Client, model string) *InsightSource {
	return &InsightSource{client: client, model: model}
}

func (s *InsightSource) Name() string { return "generative" }

func (s *InsightSource) Lookup(ctx context.Context, query string) ([]types.SourceRecord, error) {
	insight, err := llm.Generate(ctx, s.client, s.model,
		"You are a knowledgeable assistant. Provide a concise, factual overview of the topic in the user's query.",
		query)
	if err != nil {
		return nil, fmt.Errorf("generative insight: %w", err)
	}
	if strings.TrimSpace(insight) == "" {
		return nil, nil
	}
	return []types.SourceRecord{
		{
			Title:      fmt.Sprintf("insight on %q", query),
			Content:    insight,
			Confidence: insightBaselineConfidence,
		},
	}, nil
}
