package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoptalk/assistant/internal/agent/model"
)

func testCorpus() []model.Document {
	return []model.Document{
		{Content: "Standard shipping takes 3-5 business days", Source: "shipping.md"},
		{Content: "Returns are accepted within 30 days of delivery", Source: "returns.md"},
		{Content: "All laptops ship with a 12 month warranty", Source: "warranty.md"},
		{Content: "Gift cards never expire", Source: "giftcards.md"},
	}
}

func TestSearchRanksByOverlap(t *testing.T) {
	r := NewMemoryRetriever(testCorpus())

	docs, err := r.Search(context.Background(), "laptop warranty", 4)
	require.NoError(t, err)
	require.NotEmpty(t, docs)

	assert.Equal(t, "warranty.md", docs[0].Source)
	assert.InDelta(t, 1.0, docs[0].Score, 1e-9, "both terms hit")
	for i := 1; i < len(docs); i++ {
		assert.LessOrEqual(t, docs[i].Score, docs[i-1].Score)
	}
}

func TestSearchLimitsToK(t *testing.T) {
	r := NewMemoryRetriever(testCorpus())

	docs, err := r.Search(context.Background(), "days shipping returns", 2)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestSearchNoMatches(t *testing.T) {
	r := NewMemoryRetriever(testCorpus())

	docs, err := r.Search(context.Background(), "quantum blockchain", 4)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSearchEmptyQuery(t *testing.T) {
	r := NewMemoryRetriever(testCorpus())

	docs, err := r.Search(context.Background(), "   ", 4)
	require.NoError(t, err)
	assert.Empty(t, docs)
}
