package knowledge_test

import (
	"context"
	"errors"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sashabaranov/go-openai"
	"github.com/taskhive/taskhive/core/knowledge"
	"github.com/taskhive/taskhive/core/types"
	"github.com/taskhive/taskhive/pkg/llm"
)

// stubSource returns canned records, or an error, for every query.
type stubSource struct {
	name    string
	records []types.SourceRecord
	err     error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Lookup(ctx context.Context, query string) ([]types.SourceRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func textResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func toolResponse(arguments string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{
				ToolCalls: []openai.ToolCall{
					{Function: openai.FunctionCall{Name: "json", Arguments: arguments}},
				},
			}},
		},
	}
}

// seekerClient synthesizes plain-text calls and answers typed-JSON
// calls with a fixed topic extraction.
func seekerClient() *llm.MockClient {
	return &llm.MockClient{
		CreateChatCompletionFunc: func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			if len(req.Tools) > 0 {
				return toolResponse(`{"topic":"main topic","related_topics":["alpha","beta"]}`), nil
			}
			return textResponse("a synthesized narrative"), nil
		},
	}
}

func record(title string) types.SourceRecord {
	return types.SourceRecord{Title: title, Content: "material for " + title}
}

var _ = Describe("Seeker", func() {
	Describe("confidence scoring", func() {
		scoreWith := func(sources ...knowledge.Source) float64 {
			seeker := knowledge.NewSeeker(seekerClient(), "test-model", sources...)
			items := seeker.SeekKnowledge(context.Background(), []string{"what is gravity"})
			Expect(items).To(HaveLen(1))
			return items[0].Confidence
		}

		It("scores 0.1 when no source produced material", func() {
			Expect(scoreWith(
				&stubSource{name: "a", err: errors.New("unreachable")},
				&stubSource{name: "b"},
			)).To(Equal(0.1))
		})

		It("scores 0.6 with one source", func() {
			Expect(scoreWith(
				&stubSource{name: "a", records: []types.SourceRecord{record("one")}},
			)).To(Equal(0.6))
		})

		It("scores 0.8 with two sources", func() {
			Expect(scoreWith(
				&stubSource{name: "a", records: []types.SourceRecord{record("one")}},
				&stubSource{name: "b", records: []types.SourceRecord{record("two")}},
			)).To(Equal(0.8))
		})

		It("scores 0.95 with three or more sources", func() {
			Expect(scoreWith(
				&stubSource{name: "a", records: []types.SourceRecord{record("one")}},
				&stubSource{name: "b", records: []types.SourceRecord{record("two")}},
				&stubSource{name: "c", records: []types.SourceRecord{record("three")}},
			)).To(Equal(0.95))
		})
	})

	Describe("provenance", func() {
		It("joins the names of contributing sources", func() {
			seeker := knowledge.NewSeeker(seekerClient(), "test-model",
				&stubSource{name: "wikipedia", records: []types.SourceRecord{record("one")}},
				&stubSource{name: "web", err: errors.New("down")},
				&stubSource{name: "generative", records: []types.SourceRecord{record("two")}},
			)
			items := seeker.SeekKnowledge(context.Background(), []string{"q"})
			Expect(items).To(HaveLen(1))
			Expect(items[0].Source).To(Equal("wikipedia+generative"))
		})
	})

	Describe("failure isolation", func() {
		It("omits failing queries without aborting the batch", func() {
			client := &llm.MockClient{
				CreateChatCompletionFunc: func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
					if len(req.Tools) > 0 {
						return toolResponse(`{"topic":"main topic","related_topics":[]}`), nil
					}
					prompt := req.Messages[len(req.Messages)-1].Content
					if strings.Contains(prompt, "poisoned") {
						return openai.ChatCompletionResponse{}, errors.New("model exploded")
					}
					return textResponse("a synthesized narrative"), nil
				},
			}
			seeker := knowledge.NewSeeker(client, "test-model",
				&stubSource{name: "a", records: []types.SourceRecord{record("one")}},
			)

			items := seeker.SeekKnowledge(context.Background(), []string{
				"what is gravity",
				"poisoned query",
				"what is light",
			})
			Expect(items).To(HaveLen(2))
			Expect(items[0].Query).To(Equal("what is gravity"))
			Expect(items[1].Query).To(Equal("what is light"))
		})

		It("returns no error path at all when every lookup fails", func() {
			seeker := knowledge.NewSeeker(seekerClient(), "test-model",
				&stubSource{name: "a", err: errors.New("down")},
				&stubSource{name: "b", err: errors.New("down")},
				&stubSource{name: "c", err: errors.New("down")},
			)
			items := seeker.SeekKnowledge(context.Background(), []string{"q1", "q2"})
			Expect(items).To(HaveLen(2))
			for _, item := range items {
				Expect(item.Confidence).To(Equal(0.1))
				Expect(item.Source).To(Equal("none"))
			}
		})
	})

	Describe("topic extraction", func() {
		It("labels items with topic and related topics", func() {
			seeker := knowledge.NewSeeker(seekerClient(), "test-model",
				&stubSource{name: "a", records: []types.SourceRecord{record("one")}},
			)
			items := seeker.SeekKnowledge(context.Background(), []string{"q"})
			Expect(items).To(HaveLen(1))
			Expect(items[0].Topic).To(Equal("main topic"))
			Expect(items[0].Related).To(Equal([]string{"alpha", "beta"}))
		})
	})

	Describe("ExpandKnowledge", func() {
		var seeker *knowledge.Seeker

		BeforeEach(func() {
			client := &llm.MockClient{
				CreateChatCompletionFunc: func(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
					if len(req.Tools) > 0 {
						// No further related topics, so the recursion
						// bound is exercised by depth alone.
						return toolResponse(`{"topic":"expanded","related_topics":[]}`), nil
					}
					return textResponse("expanded narrative"), nil
				},
			}
			seeker = knowledge.NewSeeker(client, "test-model",
				&stubSource{name: "a", records: []types.SourceRecord{record("one")}},
			)
		})

		seed := func(related ...string) []types.KnowledgeItem {
			return []types.KnowledgeItem{
				{Query: "seed", Topic: "gravity", Related: related},
			}
		}

		It("follows each related topic with a relation query", func() {
			items := seeker.ExpandKnowledge(context.Background(), seed("mass", "spacetime"), 1)
			Expect(items).To(HaveLen(2))
			queries := []string{items[0].Query, items[1].Query}
			Expect(queries).To(ConsistOf(
				"how does mass relate to gravity",
				"how does spacetime relate to gravity",
			))
		})

		It("returns nothing at depth zero", func() {
			Expect(seeker.ExpandKnowledge(context.Background(), seed("mass"), 0)).To(BeEmpty())
		})

		It("caps the fan-out per item", func() {
			related := []string{}
			for i := 0; i < 10; i++ {
				related = append(related, fmt.Sprintf("topic-%d", i))
			}
			items := seeker.ExpandKnowledge(context.Background(), seed(related...), 1)
			Expect(len(items)).To(Equal(knowledge.DefaultExpandFanOut))
		})
	})
})
