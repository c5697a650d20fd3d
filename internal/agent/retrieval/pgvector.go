package retrieval

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/shoptalk/assistant/internal/agent/model"
	logx "github.com/shoptalk/assistant/pkg/logger"
)

// KnowledgeChunk is one embedded document chunk in the vector index.
type KnowledgeChunk struct {
	ID        uint            `gorm:"primaryKey"`
	Content   string          `gorm:"type:text;not null"`
	Source    string          `gorm:"index"`
	Embedding pgvector.Vector `gorm:"type:vector(768)"`
}

func (KnowledgeChunk) TableName() string {
	return "knowledge_chunks"
}

// PgVectorRetriever runs cosine-similarity search over knowledge_chunks.
// Cosine distance in pgvector is 1 - cosine_similarity, so the score is
// computed as 1 - (embedding <=> query_vector).
type PgVectorRetriever struct {
	db       *gorm.DB
	embedder Embedder
}

func NewPgVectorRetriever(db *gorm.DB, embedder Embedder) *PgVectorRetriever {
	return &PgVectorRetriever{db: db, embedder: embedder}
}

func (r *PgVectorRetriever) Search(ctx context.Context, query string, k int) ([]model.Document, error) {
	if k <= 0 {
		k = 4
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryVector := pgvector.NewVector(vec)

	var rows []struct {
		Content string
		Source  string
		Score   float64
	}
	err = r.db.WithContext(ctx).
		Table("knowledge_chunks").
		Select("content, source, 1 - (embedding <=> ?) AS score", queryVector).
		Order(gorm.Expr("embedding <=> ?", queryVector)).
		Limit(k).
		Scan(&rows).Error
	if err != nil {
		logx.Error().Err(err).Str("query", query).Msg("vector search failed")
		return nil, fmt.Errorf("vector search: %w", err)
	}

	docs := make([]model.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, model.Document{
			Content: row.Content,
			Source:  row.Source,
			Score:   row.Score,
		})
	}
	logx.Debug().Str("query", query).Int("count", len(docs)).Msg("retrieved documents")
	return docs, nil
}

// Add embeds and stores one chunk in the index.
func (r *PgVectorRetriever) Add(ctx context.Context, content, source string) error {
	vec, err := r.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("embed chunk: %w", err)
	}
	chunk := KnowledgeChunk{
		Content:   content,
		Source:    source,
		Embedding: pgvector.NewVector(vec),
	}
	if err := r.db.WithContext(ctx).Create(&chunk).Error; err != nil {
		return fmt.Errorf("store chunk: %w", err)
	}
	return nil
}

var _ Retriever = (*PgVectorRetriever)(nil)
