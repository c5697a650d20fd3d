package retrieval

import (
	"context"
	"sort"
	"strings"

	"github.com/shoptalk/assistant/internal/agent/model"
)

// MemoryRetriever is a token-overlap retriever over an in-process corpus.
// It backs deployments without a vector database and the test suite.
type MemoryRetriever struct {
	docs []model.Document
}

func NewMemoryRetriever(docs []model.Document) *MemoryRetriever {
	return &MemoryRetriever{docs: docs}
}

func (r *MemoryRetriever) Search(ctx context.Context, query string, k int) ([]model.Document, error) {
	if k <= 0 {
		k = 4
	}
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	scored := make([]model.Document, 0, len(r.docs))
	for _, doc := range r.docs {
		content := strings.ToLower(doc.Content)
		hits := 0
		for _, t := range terms {
			if strings.Contains(content, t) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		d := doc
		d.Score = float64(hits) / float64(len(terms))
		scored = append(scored, d)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

var _ Retriever = (*MemoryRetriever)(nil)
