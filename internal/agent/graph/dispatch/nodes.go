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

// Node names of the dispatch graph.
const (
	NodeHistoryLoader = "HistoryLoader"
	NodeClassifier    = "IntentClassifier"
	NodeConversation  = "ConversationHandler"
	NodeFAQ           = "FAQHandler"
	NodeEscalation    = "EscalationHandler"
	NodeProductSearch = "ProductSearchHandler"
	NodeOrder         = "OrderHandler"
	NodePayment       = "PaymentHandler"
)

// FallbackResponse replaces the handler output when a handler fails. The
// dispatch graph itself never surfaces handler errors to the caller.
const FallbackResponse = "I'm sorry, something went wrong while handling your request. Please try again in a moment."

// NewHistoryLoaderPreHandler stashes the request identity in graph state
// before any node runs.
func NewHistoryLoaderPreHandler() func(context.Context, model.ChatInput, *model.DispatchState) (model.ChatInput, error) {
	return func(ctx context.Context, in model.ChatInput, s *model.DispatchState) (model.ChatInput, error) {
		s.SessionID = in.SessionID
		s.Metadata = in.Metadata
		return in, nil
	}
}

// NewHistoryLoaderNode persists the inbound user message and emits the
// bounded recent history.
func NewHistoryLoaderNode(mm *conversations.Manager) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.ChatInput) ([]*schema.Message, error) {
		history, err := mm.AppendUser(ctx, in.SessionID, in.Message)
		if err != nil {
			return nil, fmt.Errorf("append user message: %w", err)
		}
		return history, nil
	})
}

// NewHistoryLoaderPostHandler keeps the loaded history in state so handler
// nodes can read it after the classifier ran.
func NewHistoryLoaderPostHandler() func(context.Context, []*schema.Message, *model.DispatchState) ([]*schema.Message, error) {
	return func(ctx context.Context, out []*schema.Message, s *model.DispatchState) ([]*schema.Message, error) {
		s.History = out
		return out, nil
	}
}

// NewClassifierNode classifies the latest user message into an intent.
func NewClassifierNode(c *classifier.Classifier) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, history []*schema.Message) (model.IntentClassification, error) {
		result, err := c.Classify(ctx, history)
		if err != nil {
			return model.IntentClassification{}, err
		}
		return *result, nil
	})
}

// NewClassifierPostHandler records the classification in state.
func NewClassifierPostHandler() func(context.Context, model.IntentClassification, *model.DispatchState) (model.IntentClassification, error) {
	return func(ctx context.Context, out model.IntentClassification, s *model.DispatchState) (model.IntentClassification, error) {
		s.Classification = &out
		logx.Debug().
			Str("session_id", s.SessionID).
			Str("intent", string(out.Intent)).
			Float64("confidence", out.Confidence).
			Msg("intent classified")
		return out, nil
	}
}

// NewIntentCondition routes the classification to the matching handler node.
// Unknown labels never reach here; the classifier already normalises them.
func NewIntentCondition() func(context.Context, model.IntentClassification) (string, error) {
	return func(ctx context.Context, in model.IntentClassification) (string, error) {
		switch in.Intent {
		case model.IntentPayment:
			return NodePayment, nil
		case model.IntentFAQ:
			return NodeFAQ, nil
		case model.IntentEscalation:
			return NodeEscalation, nil
		case model.IntentProductSearch:
			return NodeProductSearch, nil
		case model.IntentOrder:
			return NodeOrder, nil
		default:
			return NodeConversation, nil
		}
	}
}

// NewHandlerNode wraps a handler as a terminal graph node. It brackets the
// call with session load/save for handlers that need it, converts handler
// errors into the fixed fallback response, and persists the assistant reply.
// Session mutations are discarded when the handler fails.
func NewHandlerNode(h handlers.Handler, sessions *session.Store, mm *conversations.Manager) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, cls model.IntentClassification) (*schema.Message, error) {
		rc := &handlers.RequestContext{}
		var history []*schema.Message

		err := compose.ProcessState(ctx, func(_ context.Context, s *model.DispatchState) error {
			rc.SessionID = s.SessionID
			rc.Metadata = s.Metadata
			history = s.History
			if h.NeedsSession() {
				s.Session = sessions.Get(s.SessionID)
				rc.Session = s.Session
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		content, err := h.Process(ctx, history, rc)
		if err != nil {
			logx.Error().
				Err(err).
				Str("handler", h.Name()).
				Str("session_id", rc.SessionID).
				Msg("handler failed, substituting fallback response")
			content = FallbackResponse
		} else if h.NeedsSession() {
			sessions.Save(rc.Session)
		}

		if saveErr := mm.SaveAssistant(ctx, rc.SessionID, content); saveErr != nil {
			logx.Error().
				Err(saveErr).
				Str("session_id", rc.SessionID).
				Msg("error saving assistant response")
		}

		out := schema.AssistantMessage(content, nil)
		out.Extra = map[string]any{
			"intent":     string(cls.Intent),
			"confidence": cls.Confidence,
		}
		return out, nil
	})
}
