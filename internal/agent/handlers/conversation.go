package handlers

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/shoptalk/assistant/internal/agent/chatmodel"
	"github.com/shoptalk/assistant/internal/agent/model"
)

// ConversationHandler answers general chit-chat with one model call over
// the recent history.
type ConversationHandler struct {
	chat      einomodel.BaseChatModel
	modelName string
	prompt    model.PromptConfig
}

func NewConversationHandler(chat einomodel.BaseChatModel, modelName string, prompt model.PromptConfig) *ConversationHandler {
	return &ConversationHandler{chat: chat, modelName: modelName, prompt: prompt}
}

func (h *ConversationHandler) Name() string       { return "conversation" }
func (h *ConversationHandler) NeedsSession() bool { return false }

func (h *ConversationHandler) Process(ctx context.Context, messages []*schema.Message, rc *RequestContext) (string, error) {
	system := fmt.Sprintf(
		"You are a friendly assistant for %s, an online %s. Help the customer, keep answers short, and steer product questions toward the catalog.",
		h.prompt.BusinessName, h.prompt.BusinessType,
	)

	prompt := make([]*schema.Message, 0, len(messages)+1)
	prompt = append(prompt, schema.SystemMessage(system))
	prompt = append(prompt, messages...)

	out, err := chatmodel.Generate(ctx, h.chat, h.modelName, prompt)
	if err != nil {
		return "", fmt.Errorf("conversation model call: %w", err)
	}
	return out.Content, nil
}

var _ Handler = (*ConversationHandler)(nil)
