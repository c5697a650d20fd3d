package rag

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/shoptalk/assistant/internal/agent/chatmodel"
	"github.com/shoptalk/assistant/internal/agent/model"
	"github.com/shoptalk/assistant/internal/agent/retrieval"
	logx "github.com/shoptalk/assistant/pkg/logger"
)

// Node names of the retrieval graph.
const (
	NodeRetriever = "Retriever"
	NodeGrader    = "Grader"
	NodeRewriter  = "QueryRewriter"
	NodeGenerator = "AnswerGenerator"
	NodeNoAnswer  = "NoAnswer"
)

// MaxRetries bounds how many times the query may be rewritten before the
// workflow gives up.
const MaxRetries = 3

// Grader decisions, consumed by the routing branch.
const (
	decisionGenerate = "generate"
	decisionRewrite  = "rewrite"
	decisionNoAnswer = "no_answer"
)

const noDocumentsResponse = "I couldn't find any information related to your question in the knowledge base. Could you rephrase it or ask about something else?"

const retriesExhaustedResponse = "I searched the knowledge base several ways but couldn't find a confident answer to your question. You may want to rephrase it or contact support directly."

const generatePrompt = `Answer the user's question using only the context below. Be concise and direct. If the context doesn't fully answer the question, say what is missing.

Context:
%s`

const rewritePrompt = `The search below returned poorly matching results. Rewrite the question into a better search query: expand abbreviations, add synonyms for key terms, and drop filler words.

Respond with the rewritten query only, no explanation.`

// NewRetrieverPreHandler seeds the run state on the first pass and tracks
// the current query on rewritten passes.
func NewRetrieverPreHandler() func(context.Context, string, *model.RetrievalState) (string, error) {
	return func(ctx context.Context, in string, s *model.RetrievalState) (string, error) {
		if s.Question == "" {
			s.Question = in
			s.Messages = append(s.Messages, schema.UserMessage(in))
		}
		s.CurrentQuery = in
		return in, nil
	}
}

// NewRetrieverNode queries the similarity index with the current query.
func NewRetrieverNode(retriever retrieval.Retriever, topK int) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, query string) ([]model.Document, error) {
		docs, err := retriever.Search(ctx, query, topK)
		if err != nil {
			return nil, fmt.Errorf("retrieve documents: %w", err)
		}
		logx.Debug().Str("query", query).Int("documents", len(docs)).Msg("retrieval pass")
		return docs, nil
	})
}

// NewRetrieverPostHandler replaces the state's document set wholesale.
func NewRetrieverPostHandler() func(context.Context, []model.Document, *model.RetrievalState) ([]model.Document, error) {
	return func(ctx context.Context, out []model.Document, s *model.RetrievalState) ([]model.Document, error) {
		s.Documents = out
		return out, nil
	}
}

// NewGraderNode scores the retrieved set and decides the next step. The set
// passes when the mean score reaches the threshold; a document without a
// score counts as zero. A spent retry budget forces no_answer before the
// mean is even consulted, so a late high-scoring pass cannot trigger
// generation.
func NewGraderNode(threshold float64) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, docs []model.Document) (string, error) {
		if len(docs) == 0 {
			if err := compose.ProcessState(ctx, func(_ context.Context, s *model.RetrievalState) error {
				s.Cause = model.CauseNoDocuments
				return nil
			}); err != nil {
				return "", fmt.Errorf("failed to access state: %w", err)
			}
			logx.Debug().Msg("no documents retrieved")
			return decisionNoAnswer, nil
		}

		var sum float64
		for _, d := range docs {
			sum += d.Score
		}
		mean := sum / float64(len(docs))

		var retryCount int
		if err := compose.ProcessState(ctx, func(_ context.Context, s *model.RetrievalState) error {
			retryCount = s.RetryCount
			return nil
		}); err != nil {
			return "", fmt.Errorf("failed to access state: %w", err)
		}

		logx.Debug().
			Float64("mean_score", mean).
			Float64("threshold", threshold).
			Int("retry_count", retryCount).
			Msg("graded retrieval set")

		if retryCount >= MaxRetries {
			if err := compose.ProcessState(ctx, func(_ context.Context, s *model.RetrievalState) error {
				s.Cause = model.CauseRetriesExhausted
				return nil
			}); err != nil {
				return "", fmt.Errorf("failed to access state: %w", err)
			}
			logx.Debug().Int("retry_count", retryCount).Msg("retry budget exhausted")
			return decisionNoAnswer, nil
		}
		if mean >= threshold {
			return decisionGenerate, nil
		}
		return decisionRewrite, nil
	})
}

// NewGradeCondition maps the grader decision to the next node.
func NewGradeCondition() func(context.Context, string) (string, error) {
	return func(ctx context.Context, decision string) (string, error) {
		switch decision {
		case decisionGenerate:
			return NodeGenerator, nil
		case decisionRewrite:
			return NodeRewriter, nil
		case decisionNoAnswer:
			return NodeNoAnswer, nil
		default:
			return "", fmt.Errorf("unknown grade decision %q", decision)
		}
	}
}

// NewRewriterNode produces the next search query and consumes one retry.
// With rewriting disabled, or when the rewrite call fails, the current query
// is reused unchanged; the retry is spent either way so the loop stays
// bounded.
func NewRewriterNode(chat einomodel.BaseChatModel, modelName string, enabled bool) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ string) (string, error) {
		var question, current string
		if err := compose.ProcessState(ctx, func(_ context.Context, s *model.RetrievalState) error {
			s.RetryCount++
			question = s.Question
			current = s.CurrentQuery
			return nil
		}); err != nil {
			return "", fmt.Errorf("failed to access state: %w", err)
		}

		if !enabled {
			logx.Debug().Msg("query rewriting disabled, retrying with same query")
			return current, nil
		}

		out, err := chatmodel.Generate(ctx, chat, modelName, []*schema.Message{
			schema.SystemMessage(rewritePrompt),
			schema.UserMessage(fmt.Sprintf("Original question: %s\nCurrent query: %s", question, current)),
		})
		if err != nil {
			logx.Warn().Err(err).Msg("query rewrite failed, retrying with same query")
			return current, nil
		}

		rewritten := strings.TrimSpace(out.Content)
		if rewritten == "" {
			return current, nil
		}
		// the rewritten query supersedes the previous one in the run history
		if err := compose.ProcessState(ctx, func(_ context.Context, s *model.RetrievalState) error {
			if n := len(s.Messages); n > 0 {
				s.Messages[n-1] = schema.UserMessage(rewritten)
			}
			return nil
		}); err != nil {
			return "", fmt.Errorf("failed to access state: %w", err)
		}
		logx.Debug().Str("from", current).Str("to", rewritten).Msg("query rewritten")
		return rewritten, nil
	})
}

// NewGeneratorNode answers the question from the graded document set.
func NewGeneratorNode(chat einomodel.BaseChatModel, modelName string) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ string) (*schema.Message, error) {
		var question string
		var docs []model.Document
		if err := compose.ProcessState(ctx, func(_ context.Context, s *model.RetrievalState) error {
			question = s.Question
			docs = s.Documents
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		var contextText strings.Builder
		for i, d := range docs {
			fmt.Fprintf(&contextText, "[%d] (source: %s, score: %.2f) %s\n", i+1, d.Source, d.Score, d.Content)
		}

		out, err := chatmodel.Generate(ctx, chat, modelName, []*schema.Message{
			schema.SystemMessage(fmt.Sprintf(generatePrompt, contextText.String())),
			schema.UserMessage(question),
		})
		if err != nil {
			return nil, fmt.Errorf("answer generation: %w", err)
		}

		answer := schema.AssistantMessage(out.Content, nil)
		return attachRunMeta(ctx, answer)
	})
}

// NewNoAnswerNode emits the cause-specific apology.
func NewNoAnswerNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ string) (*schema.Message, error) {
		var cause model.NoAnswerCause
		if err := compose.ProcessState(ctx, func(_ context.Context, s *model.RetrievalState) error {
			cause = s.Cause
			return nil
		}); err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		content := retriesExhaustedResponse
		if cause == model.CauseNoDocuments {
			content = noDocumentsResponse
		}
		return attachRunMeta(ctx, schema.AssistantMessage(content, nil))
	})
}

// attachRunMeta copies run diagnostics onto the terminal message so the
// runner can report them after the graph state is gone.
func attachRunMeta(ctx context.Context, msg *schema.Message) (*schema.Message, error) {
	err := compose.ProcessState(ctx, func(_ context.Context, s *model.RetrievalState) error {
		s.Messages = append(s.Messages, msg)
		if msg.Extra == nil {
			msg.Extra = map[string]any{}
		}
		msg.Extra["retry_count"] = s.RetryCount
		msg.Extra["documents"] = s.Documents
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access state: %w", err)
	}
	return msg, nil
}
