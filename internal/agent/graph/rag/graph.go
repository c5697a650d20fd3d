package rag

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/shoptalk/assistant/internal/agent/model"
	"github.com/shoptalk/assistant/internal/agent/retrieval"
	logx "github.com/shoptalk/assistant/pkg/logger"
)

// Answer is the terminal output of one retrieval workflow run.
type Answer struct {
	Answer     string           `json:"answer"`
	RetryCount int              `json:"retry_count"`
	Documents  []model.Document `json:"documents"`
}

// Runner executes the compiled retrieval graph for one question.
type Runner interface {
	Ask(ctx context.Context, question string) (*Answer, error)
}

// GraphConfig holds the collaborators needed to build the retrieval graph.
type GraphConfig struct {
	Retriever retrieval.Retriever
	Chat      einomodel.BaseChatModel
	ModelName string
	Retrieval model.RetrievalConfig
}

// GraphBuilder constructs the retrieve-grade-rewrite workflow graph.
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[string, *schema.Message]
}

type graphRunner struct {
	runnable compose.Runnable[string, *schema.Message]
}

func (r *graphRunner) Ask(ctx context.Context, question string) (*Answer, error) {
	out, err := r.runnable.Invoke(ctx, question)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("retrieval graph returned nil message")
	}

	answer := &Answer{Answer: out.Content}
	if v, ok := out.Extra["retry_count"].(int); ok {
		answer.RetryCount = v
	}
	if v, ok := out.Extra["documents"].([]model.Document); ok {
		answer.Documents = v
	}
	return answer, nil
}

// BuildGraph constructs and compiles the retrieval graph.
func BuildGraph(ctx context.Context, config *GraphConfig) (Runner, error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.Retriever == nil {
		return nil, fmt.Errorf("retriever is nil")
	}
	if config.Chat == nil {
		return nil, fmt.Errorf("chat model is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[string, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.RetrievalState {
				return &model.RetrievalState{}
			}),
		),
	}

	builder.addNodes()
	builder.addEdges()

	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

func (b *GraphBuilder) addNodes() {
	b.graph.AddLambdaNode(NodeRetriever,
		NewRetrieverNode(b.config.Retriever, b.config.Retrieval.TopK),
		compose.WithStatePreHandler(NewRetrieverPreHandler()),
		compose.WithStatePostHandler(NewRetrieverPostHandler()),
	)

	b.graph.AddLambdaNode(NodeGrader,
		NewGraderNode(b.config.Retrieval.SimilarityThreshold),
	)

	b.graph.AddLambdaNode(NodeRewriter,
		NewRewriterNode(b.config.Chat, b.config.ModelName, b.config.Retrieval.RewriteEnabled),
	)

	b.graph.AddLambdaNode(NodeGenerator,
		NewGeneratorNode(b.config.Chat, b.config.ModelName),
	)

	b.graph.AddLambdaNode(NodeNoAnswer,
		NewNoAnswerNode(),
	)
}

func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, NodeRetriever},
		{NodeRetriever, NodeGrader},
		// Rewriting loops back into retrieval; the grader's retry budget
		// keeps the cycle bounded.
		{NodeRewriter, NodeRetriever},
		{NodeGenerator, compose.END},
		{NodeNoAnswer, compose.END},
	}

	for _, edge := range edges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

func (b *GraphBuilder) addBranches() error {
	gradeBranch := compose.NewGraphBranch(
		NewGradeCondition(),
		map[string]bool{
			NodeGenerator: true,
			NodeRewriter:  true,
			NodeNoAnswer:  true,
		},
	)
	if err := b.graph.AddBranch(NodeGrader, gradeBranch); err != nil {
		logx.Error().Err(err).Msg("error adding grade branch")
		return fmt.Errorf("error adding grade branch: %w", err)
	}
	return nil
}

func (b *GraphBuilder) compile(ctx context.Context) (Runner, error) {
	// Worst case: initial pass plus MaxRetries full cycles plus a terminal
	// node, three steps per cycle.
	maxSteps := 3*(MaxRetries+1) + 2

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps))
	if err != nil {
		logx.Error().Err(err).Msg("error compiling retrieval graph")
		return nil, fmt.Errorf("error compiling retrieval graph: %w", err)
	}

	logx.Debug().Msg("retrieval graph compiled successfully")
	return &graphRunner{runnable: runnable}, nil
}
