package rag

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoptalk/assistant/internal/agent/model"
)

type fakeChatModel struct {
	replies []string
	err     error
	calls   int
}

func (m *fakeChatModel) Generate(ctx context.Context, _ []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	idx := m.calls - 1
	if idx >= len(m.replies) {
		idx = len(m.replies) - 1
	}
	return schema.AssistantMessage(m.replies[idx], nil), nil
}

func (m *fakeChatModel) Stream(ctx context.Context, _ []*schema.Message, _ ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

// scriptedRetriever returns one pre-baked batch per Search call and records
// the queries it saw. The last batch repeats once the script runs out.
type scriptedRetriever struct {
	batches [][]model.Document
	queries []string
}

func (r *scriptedRetriever) Search(ctx context.Context, query string, k int) ([]model.Document, error) {
	r.queries = append(r.queries, query)
	idx := len(r.queries) - 1
	if idx >= len(r.batches) {
		idx = len(r.batches) - 1
	}
	return r.batches[idx], nil
}

func docs(scores ...float64) []model.Document {
	out := make([]model.Document, 0, len(scores))
	for _, s := range scores {
		out = append(out, model.Document{Content: "chunk", Source: "kb", Score: s})
	}
	return out
}

func buildTestGraph(t *testing.T, retriever *scriptedRetriever, chat *fakeChatModel, rewriteEnabled bool) Runner {
	t.Helper()
	runner, err := BuildGraph(context.Background(), &GraphConfig{
		Retriever: retriever,
		Chat:      chat,
		ModelName: "test-model",
		Retrieval: model.RetrievalConfig{
			TopK:                4,
			SimilarityThreshold: 0.6,
			RewriteEnabled:      rewriteEnabled,
		},
	})
	require.NoError(t, err)
	return runner
}

func TestPassingGradeGeneratesAnswer(t *testing.T) {
	retriever := &scriptedRetriever{batches: [][]model.Document{docs(0.9, 0.9, 0.1)}}
	chat := &fakeChatModel{replies: []string{"our warranty covers 12 months"}}
	runner := buildTestGraph(t, retriever, chat, true)

	answer, err := runner.Ask(context.Background(), "how long is the warranty?")
	require.NoError(t, err)

	// mean of 0.9, 0.9, 0.1 is above the 0.6 threshold
	assert.Equal(t, "our warranty covers 12 months", answer.Answer)
	assert.Equal(t, 0, answer.RetryCount)
	assert.Len(t, retriever.queries, 1)
	assert.Equal(t, 1, chat.calls)
	assert.Len(t, answer.Documents, 3)
}

func TestThresholdBoundaryPasses(t *testing.T) {
	retriever := &scriptedRetriever{batches: [][]model.Document{docs(0.6, 0.6)}}
	chat := &fakeChatModel{replies: []string{"answer"}}
	runner := buildTestGraph(t, retriever, chat, true)

	answer, err := runner.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "answer", answer.Answer)
	assert.Equal(t, 0, answer.RetryCount)
}

func TestEmptyRetrievalShortCircuits(t *testing.T) {
	retriever := &scriptedRetriever{batches: [][]model.Document{{}}}
	chat := &fakeChatModel{err: errors.New("model must not be called")}
	runner := buildTestGraph(t, retriever, chat, true)

	answer, err := runner.Ask(context.Background(), "anything in the kb?")
	require.NoError(t, err)

	assert.Equal(t, noDocumentsResponse, answer.Answer)
	assert.Equal(t, 0, answer.RetryCount)
	assert.Zero(t, chat.calls, "no rewrite or generation on an empty result set")
}

func TestLowGradeRewritesThenAnswers(t *testing.T) {
	retriever := &scriptedRetriever{batches: [][]model.Document{
		docs(0.5, 0.5),
		docs(0.9, 0.8),
	}}
	chat := &fakeChatModel{replies: []string{"warranty duration consumer electronics", "12 months"}}
	runner := buildTestGraph(t, retriever, chat, true)

	answer, err := runner.Ask(context.Background(), "how long warranty")
	require.NoError(t, err)

	assert.Equal(t, "12 months", answer.Answer)
	assert.Equal(t, 1, answer.RetryCount)
	require.Len(t, retriever.queries, 2)
	assert.Equal(t, "how long warranty", retriever.queries[0])
	assert.Equal(t, "warranty duration consumer electronics", retriever.queries[1])
}

func TestRetryBudgetExhausted(t *testing.T) {
	retriever := &scriptedRetriever{batches: [][]model.Document{docs(0.2, 0.3)}}
	chat := &fakeChatModel{replies: []string{"q2", "q3", "q4"}}
	runner := buildTestGraph(t, retriever, chat, true)

	answer, err := runner.Ask(context.Background(), "q1")
	require.NoError(t, err)

	assert.Equal(t, retriesExhaustedResponse, answer.Answer)
	assert.Equal(t, MaxRetries, answer.RetryCount)
	// initial pass plus one retrieval per rewrite
	assert.Len(t, retriever.queries, MaxRetries+1)
	assert.Equal(t, MaxRetries, chat.calls)
}

func TestExhaustedRetriesRejectLateHighScores(t *testing.T) {
	retriever := &scriptedRetriever{batches: [][]model.Document{
		docs(0.1, 0.1),
		docs(0.1, 0.1),
		docs(0.1, 0.1),
		docs(0.9, 0.9),
	}}
	chat := &fakeChatModel{replies: []string{"q2", "q3", "q4", "must never be generated"}}
	runner := buildTestGraph(t, retriever, chat, true)

	answer, err := runner.Ask(context.Background(), "q1")
	require.NoError(t, err)

	// the fourth retrieval passes the threshold, but the budget is already
	// spent, so the run still ends without an answer
	assert.Equal(t, retriesExhaustedResponse, answer.Answer)
	assert.Equal(t, MaxRetries, answer.RetryCount)
	assert.Len(t, retriever.queries, MaxRetries+1)
	assert.Equal(t, MaxRetries, chat.calls, "generation must not run after exhaustion")
}

func TestRewriteDisabledStillConsumesRetries(t *testing.T) {
	retriever := &scriptedRetriever{batches: [][]model.Document{docs(0.1)}}
	chat := &fakeChatModel{err: errors.New("model must not be called")}
	runner := buildTestGraph(t, retriever, chat, false)

	answer, err := runner.Ask(context.Background(), "original query")
	require.NoError(t, err)

	assert.Equal(t, retriesExhaustedResponse, answer.Answer)
	assert.Equal(t, MaxRetries, answer.RetryCount)
	assert.Zero(t, chat.calls)
	for _, q := range retriever.queries {
		assert.Equal(t, "original query", q)
	}
}

func TestRewriteFailureReusesQuery(t *testing.T) {
	retriever := &scriptedRetriever{batches: [][]model.Document{docs(0.1)}}
	chat := &fakeChatModel{err: errors.New("provider down")}
	runner := buildTestGraph(t, retriever, chat, true)

	answer, err := runner.Ask(context.Background(), "original query")
	require.NoError(t, err)

	// a failed rewrite degrades to the same query but still spends a retry
	assert.Equal(t, retriesExhaustedResponse, answer.Answer)
	assert.Equal(t, MaxRetries, answer.RetryCount)
	assert.Len(t, retriever.queries, MaxRetries+1)
}
