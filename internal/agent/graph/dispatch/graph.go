package dispatch

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/shoptalk/assistant/internal/agent/classifier"
	"github.com/shoptalk/assistant/internal/agent/conversations"
	"github.com/shoptalk/assistant/internal/agent/handlers"
	"github.com/shoptalk/assistant/internal/agent/model"
	"github.com/shoptalk/assistant/internal/agent/session"
	logx "github.com/shoptalk/assistant/pkg/logger"
)

// Result is what the dispatch graph reports back to the transport layer.
type Result struct {
	SessionID  string  `json:"session_id"`
	Response   string  `json:"response"`
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// Runner executes the compiled dispatch graph for one chat turn.
type Runner interface {
	Invoke(ctx context.Context, in model.ChatInput) (*Result, error)
}

// Handlers groups the six terminal handlers of the graph, one per intent.
type Handlers struct {
	Conversation  handlers.Handler
	FAQ           handlers.Handler
	Escalation    handlers.Handler
	ProductSearch handlers.Handler
	Order         handlers.Handler
	Payment       handlers.Handler
}

// GraphConfig holds the collaborators needed to build the dispatch graph.
type GraphConfig struct {
	Classifier      *classifier.Classifier
	Handlers        Handlers
	Sessions        *session.Store
	MessagesManager *conversations.Manager
}

// GraphBuilder constructs the intent dispatch graph.
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.ChatInput, *schema.Message]
}

type graphRunner struct {
	runnable compose.Runnable[model.ChatInput, *schema.Message]
}

func (r *graphRunner) Invoke(ctx context.Context, in model.ChatInput) (*Result, error) {
	out, err := r.runnable.Invoke(ctx, in)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("dispatch graph returned nil message")
	}

	result := &Result{
		SessionID: in.SessionID,
		Response:  out.Content,
	}
	if v, ok := out.Extra["intent"].(string); ok {
		result.Intent = v
	}
	if v, ok := out.Extra["confidence"].(float64); ok {
		result.Confidence = v
	}
	return result, nil
}

// BuildGraph constructs and compiles the dispatch graph.
func BuildGraph(ctx context.Context, config *GraphConfig) (Runner, error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.Classifier == nil {
		return nil, fmt.Errorf("classifier is nil")
	}
	if config.Sessions == nil {
		return nil, fmt.Errorf("session store is nil")
	}
	if config.MessagesManager == nil {
		return nil, fmt.Errorf("messages manager is nil")
	}
	h := config.Handlers
	if h.Conversation == nil || h.FAQ == nil || h.Escalation == nil ||
		h.ProductSearch == nil || h.Order == nil || h.Payment == nil {
		return nil, fmt.Errorf("handlers are not properly initialized")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.ChatInput, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.DispatchState {
				return &model.DispatchState{}
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
	b.graph.AddLambdaNode(NodeHistoryLoader,
		NewHistoryLoaderNode(b.config.MessagesManager),
		compose.WithStatePreHandler(NewHistoryLoaderPreHandler()),
		compose.WithStatePostHandler(NewHistoryLoaderPostHandler()),
	)

	b.graph.AddLambdaNode(NodeClassifier,
		NewClassifierNode(b.config.Classifier),
		compose.WithStatePostHandler(NewClassifierPostHandler()),
	)

	handlerNodes := map[string]handlers.Handler{
		NodeConversation:  b.config.Handlers.Conversation,
		NodeFAQ:           b.config.Handlers.FAQ,
		NodeEscalation:    b.config.Handlers.Escalation,
		NodeProductSearch: b.config.Handlers.ProductSearch,
		NodeOrder:         b.config.Handlers.Order,
		NodePayment:       b.config.Handlers.Payment,
	}
	for name, handler := range handlerNodes {
		b.graph.AddLambdaNode(name,
			NewHandlerNode(handler, b.config.Sessions, b.config.MessagesManager),
		)
	}
}

func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, NodeHistoryLoader},
		{NodeHistoryLoader, NodeClassifier},
		{NodeConversation, compose.END},
		{NodeFAQ, compose.END},
		{NodeEscalation, compose.END},
		{NodeProductSearch, compose.END},
		{NodeOrder, compose.END},
		{NodePayment, compose.END},
	}

	for _, edge := range edges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

func (b *GraphBuilder) addBranches() error {
	intentBranch := compose.NewGraphBranch(
		NewIntentCondition(),
		map[string]bool{
			NodeConversation:  true,
			NodeFAQ:           true,
			NodeEscalation:    true,
			NodeProductSearch: true,
			NodeOrder:         true,
			NodePayment:       true,
		},
	)
	if err := b.graph.AddBranch(NodeClassifier, intentBranch); err != nil {
		logx.Error().Err(err).Msg("error adding intent branch")
		return fmt.Errorf("error adding intent branch: %w", err)
	}
	return nil
}

func (b *GraphBuilder) compile(ctx context.Context) (Runner, error) {
	// The dispatch graph is acyclic: load, classify, one handler.
	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(10))
	if err != nil {
		logx.Error().Err(err).Msg("error compiling dispatch graph")
		return nil, fmt.Errorf("error compiling dispatch graph: %w", err)
	}

	logx.Debug().Msg("dispatch graph compiled successfully")
	return &graphRunner{runnable: runnable}, nil
}
