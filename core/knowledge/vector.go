package knowledge

import (
	"context"
	"fmt"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/sashabaranov/go-openai"
	"github.com/taskhive/taskhive/core/types"
	"github.com/taskhive/taskhive/pkg/llm"
)

// VectorMemory is the shared long-term recall over synthesized
// knowledge, backed by an in-memory chromem collection with OpenAI
// embeddings.
type VectorMemory struct {
	collectionName  string
	collection      *chromem.Collection
	index           int
	client          llm.Client
	db              *chromem.DB
	embeddingsModel string
}

func NewVectorMemory(collection string, client llm.Client, embeddingsModel string) (*VectorMemory, error) {
	db := chromem.NewDB()

	memory := &VectorMemory{
		collectionName:  collection,
		index:           1,
		db:              db,
		client:          client,
		embeddingsModel: embeddingsModel,
	}

	c, err := db.GetOrCreateCollection(collection, nil, memory.embedding())
	if err != nil {
		return nil, err
	}
	memory.collection = c

	return memory, nil
}

func (m *VectorMemory) embedding() chromem.EmbeddingFunc {
	return chromem.EmbeddingFunc(
		func(ctx context.Context, text string) ([]float32, error) {
			resp, err := m.client.CreateEmbeddings(ctx,
				openai.EmbeddingRequestStrings{
					Input: []string{text},
					Model: openai.EmbeddingModel(m.embeddingsModel),
				},
			)
			if err != nil {
				return []float32{}, fmt.Errorf("error getting embeddings: %v", err)
			}

			if len(resp.Data) == 0 {
				return []float32{}, fmt.Errorf("no response from embeddings API")
			}

			return resp.Data[0].Embedding, nil
		},
	)
}

// Store adds one knowledge item to the memory.
func (m *VectorMemory) Store(ctx context.Context, item types.KnowledgeItem) error {
	defer func() {
		m.index++
	}()
	if item.Content == "" {
		return fmt.Errorf("empty content")
	}
	return m.collection.AddDocuments(ctx, []chromem.Document{
		{
			Content: fmt.Sprintf("%s: %s", item.Topic, item.Content),
			ID:      fmt.Sprint(m.index),
			Metadata: map[string]string{
				"topic":  item.Topic,
				"source": item.Source,
			},
		},
	}, runtime.NumCPU())
}

// Search returns the contents of the entries most similar to the query.
func (m *VectorMemory) Search(ctx context.Context, query string, n int) ([]string, error) {
	if m.collection.Count() == 0 {
		return nil, nil
	}
	if count := m.collection.Count(); n > count {
		n = count
	}

	res, err := m.collection.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, err
	}

	var results []string
	for _, r := range res {
		results = append(results, r.Content)
	}

	return results, nil
}
