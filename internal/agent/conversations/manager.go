package conversations

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/shoptalk/assistant/internal/agent/model"
)

// Manager wraps the conversation repository with the message bookkeeping
// the dispatch graph needs: append the inbound user message, hand the
// bounded recent history to the classifier and handlers, and persist the
// final assistant response.
type Manager struct {
	repo     model.ConversationRepository
	maxTurns int
}

func NewManager(repo model.ConversationRepository, config model.ConversationConfig) *Manager {
	return &Manager{
		repo:     repo,
		maxTurns: config.MaxTurns,
	}
}

// AppendUser stores the inbound user message and returns the recent history
// including it, bounded to the configured number of turns.
func (m *Manager) AppendUser(ctx context.Context, conversationID string, text string) ([]*schema.Message, error) {
	if err := m.repo.AddMessage(ctx, conversationID, schema.UserMessage(text)); err != nil {
		return nil, err
	}
	return m.History(ctx, conversationID)
}

// History returns the most recent turns of the conversation.
func (m *Manager) History(ctx context.Context, conversationID string) ([]*schema.Message, error) {
	history, err := m.repo.LoadHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return trimTail(history.Messages, m.maxTurns), nil
}

// SaveAssistant persists the final assistant response.
func (m *Manager) SaveAssistant(ctx context.Context, conversationID string, content string) error {
	return m.repo.AddMessage(ctx, conversationID, schema.AssistantMessage(content, nil))
}

// Clear removes the whole conversation history.
func (m *Manager) Clear(ctx context.Context, conversationID string) error {
	return m.repo.ClearHistory(ctx, conversationID)
}

func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if maxTurns <= 0 || len(messages) <= maxTurns {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
