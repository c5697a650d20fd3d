package retrieval

import (
	"context"

	"github.com/shoptalk/assistant/internal/agent/model"
)

// Retriever answers similarity searches over the knowledge base. An empty
// result is a valid, non-error response.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]model.Document, error)
}

// Embedder turns text into a vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
