package knowledge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mudler/xlog"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/taskhive/taskhive/core/types"
	"github.com/taskhive/taskhive/pkg/llm"
	"github.com/taskhive/taskhive/pkg/xstrings"
)

// Default bounds for ExpandKnowledge. The follow-up fan-out grows
// geometrically, so both the recursion depth and the per-item topic
// count are capped.
const (
	DefaultExpandDepth  = 1
	DefaultExpandFanOut = 3
)

// Seeker retrieves raw material from every configured source and
// synthesizes one scored knowledge record per query.
type Seeker struct {
	client  llm.Client
	model   string
	sources []Source
}

func NewSeeker(client llm.Client, model string, sources ...Source) *Seeker {
	return &Seeker{
		client:  client,
		model:   model,
		sources: sources,
	}
}

// confidenceForSources is a deliberately coarse step function of the
// number of sources that produced material. Monotonic in source count.
func confidenceForSources(n int) float64 {
	switch {
	case n == 0:
		return 0.1
	case n == 1:
		return 0.6
	case n == 2:
		return 0.8
	default:
		return 0.95
	}
}

// SeekKnowledge synthesizes one knowledge item per query. Queries are
// processed concurrently and independently: a failing query is logged
// and omitted from the result, it never aborts the batch. Surviving
// results keep the input order.
func (s *Seeker) SeekKnowledge(ctx context.Context, queries []string) []types.KnowledgeItem {
	results := make([]*types.KnowledgeItem, len(queries))

	var wg sync.WaitGroup
	for i, query := range queries {
		wg.Add(1)
		go func(i int, query string) {
			defer wg.Done()
			item, err := s.seekOne(ctx, query)
			if err != nil {
				xlog.Error("Knowledge query failed", "query", query, "error", err)
				return
			}
			results[i] = item
		}(i, query)
	}
	wg.Wait()

	items := make([]types.KnowledgeItem, 0, len(queries))
	for _, item := range results {
		if item != nil {
			items = append(items, *item)
		}
	}
	return items
}

func (s *Seeker) seekOne(ctx context.Context, query string) (*types.KnowledgeItem, error) {
	records := []types.SourceRecord{}
	sourceNames := []string{}

	// Source failures degrade confidence instead of failing the query.
	for _, source := range s.sources {
		found, err := source.Lookup(ctx, query)
		if err != nil {
			xlog.Warn("Knowledge source failed", "source", source.Name(), "query", query, "error", err)
			continue
		}
		if len(found) == 0 {
			continue
		}
		records = append(records, found...)
		sourceNames = append(sourceNames, source.Name())
	}

	content, err := s.synthesize(ctx, query, records)
	if err != nil {
		return nil, err
	}

	topic, related, err := s.extractTopics(ctx, query, content)
	if err != nil {
		return nil, err
	}

	return &types.KnowledgeItem{
		Query:      query,
		Topic:      topic,
		Content:    content,
		Source:     provenance(sourceNames),
		Confidence: confidenceForSources(len(sourceNames)),
		Timestamp:  time.Now(),
		Related:    related,
	}, nil
}

func provenance(sourceNames []string) string {
	if len(sourceNames) == 0 {
		return "none"
	}
	return strings.Join(sourceNames, "+")
}

// synthesize merges the gathered records into one combined narrative.
func (s *Seeker) synthesize(ctx context.Context, query string, records []types.SourceRecord) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Synthesize the material below into one coherent, self-contained answer to the query %q.\n", query)
	for _, record := range records {
		fmt.Fprintf(&sb, "\n## %s\n%s\n", record.Title, xstrings.Truncate(record.Content, 4000))
	}

	content, err := llm.Generate(ctx, s.client, s.model,
		"You synthesize retrieved material into a single accurate narrative. Do not invent sources.",
		sb.String())
	if err != nil {
		return "", fmt.Errorf("synthesis: %w", err)
	}
	return content, nil
}

// extractTopics pulls the main topic label and related topics out of
// the synthesized narrative.
func (s *Seeker) extractTopics(ctx context.Context, query, content string) (string, []string, error) {
	var result struct {
		Topic   string   `json:"topic"`
		Related []string `json:"related_topics"`
	}

	err := llm.GenerateTypedJSON(ctx, s.client,
		fmt.Sprintf("Identify the main topic and up to five related topics of the following text, which answers the query %q:\n\n%s",
			query, xstrings.Truncate(content, 4000)),
		s.model,
		jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"topic": {
					Type:        jsonschema.String,
					Description: "The main topic label",
				},
				"related_topics": {
					Type:        jsonschema.Array,
					Description: "Related topic labels",
					Items:       &jsonschema.Definition{Type: jsonschema.String},
				},
			},
			Required: []string{"topic", "related_topics"},
		}, &result)
	if err != nil {
		return "", nil, fmt.Errorf("topic extraction: %w", err)
	}

	if result.Topic == "" {
		result.Topic = query
	}
	return result.Topic, xstrings.UniqueSlice(result.Related), nil
}

// ExpandKnowledge grows the corpus by following related topics with
// "how does X relate to Y" queries. Recursion is bounded by depth and
// the per-item fan-out cap to avoid unbounded query explosion.
func (s *Seeker) ExpandKnowledge(ctx context.Context, items []types.KnowledgeItem, depth int) []types.KnowledgeItem {
	if depth <= 0 || len(items) == 0 {
		return nil
	}

	queries := []string{}
	for _, item := range items {
		related := item.Related
		if len(related) > DefaultExpandFanOut {
			related = related[:DefaultExpandFanOut]
		}
		for _, topic := range related {
			queries = append(queries, fmt.Sprintf("how does %s relate to %s", topic, item.Topic))
		}
	}
	queries = xstrings.UniqueSlice(queries)
	if len(queries) == 0 {
		return nil
	}

	expanded := s.SeekKnowledge(ctx, queries)
	expanded = append(expanded, s.ExpandKnowledge(ctx, expanded, depth-1)...)
	return expanded
}
