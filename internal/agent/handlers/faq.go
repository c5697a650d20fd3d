package handlers

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/shoptalk/assistant/internal/agent/chatmodel"
	logx "github.com/shoptalk/assistant/pkg/logger"
)

type faqEntry struct {
	keywords []string
	answer   string
}

var defaultFAQ = []faqEntry{
	{
		keywords: []string{"shipping", "delivery", "how long"},
		answer:   "Standard shipping takes 3-5 business days. Express shipping (1-2 days) is available at checkout for an extra fee.",
	},
	{
		keywords: []string{"return", "refund"},
		answer:   "You can return any item within 30 days of delivery for a full refund, as long as it is in its original condition.",
	},
	{
		keywords: []string{"warranty", "guarantee"},
		answer:   "All products come with a 12-month manufacturer warranty. Extended warranty options are shown on each product page.",
	},
	{
		keywords: []string{"payment method", "credit card", "paypal"},
		answer:   "We accept major credit cards, PayPal, and bank transfer. Payment is charged when your order ships.",
	},
}

// FAQHandler answers policy questions. A keyword hit answers directly;
// otherwise the FAQ corpus is handed to the model as context.
type FAQHandler struct {
	chat      einomodel.BaseChatModel
	modelName string
	entries   []faqEntry
}

func NewFAQHandler(chat einomodel.BaseChatModel, modelName string) *FAQHandler {
	return &FAQHandler{chat: chat, modelName: modelName, entries: defaultFAQ}
}

func (h *FAQHandler) Name() string       { return "faq" }
func (h *FAQHandler) NeedsSession() bool { return false }

func (h *FAQHandler) Process(ctx context.Context, messages []*schema.Message, rc *RequestContext) (string, error) {
	question := strings.ToLower(messages[len(messages)-1].Content)

	for _, entry := range h.entries {
		for _, kw := range entry.keywords {
			if strings.Contains(question, kw) {
				logx.Debug().Str("keyword", kw).Msg("faq keyword hit")
				return entry.answer, nil
			}
		}
	}

	var corpus strings.Builder
	for _, entry := range h.entries {
		corpus.WriteString("- ")
		corpus.WriteString(entry.answer)
		corpus.WriteString("\n")
	}
	system := fmt.Sprintf(
		"Answer the customer's question using only the store policies below. If they don't cover it, say so and suggest contacting support.\n\n%s",
		corpus.String(),
	)

	out, err := chatmodel.Generate(ctx, h.chat, h.modelName, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(messages[len(messages)-1].Content),
	})
	if err != nil {
		return "", fmt.Errorf("faq model call: %w", err)
	}
	return out.Content, nil
}

var _ Handler = (*FAQHandler)(nil)
