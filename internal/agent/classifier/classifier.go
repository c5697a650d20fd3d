package classifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/shoptalk/assistant/internal/agent/chatmodel"
	"github.com/shoptalk/assistant/internal/agent/model"
	errx "github.com/shoptalk/assistant/internal/core/error"
	logx "github.com/shoptalk/assistant/pkg/logger"
)

const systemPrompt = `You classify customer messages for an online store assistant.

Classify the last user message into exactly one intent:
- payment: the user wants to pay for an order
- faq: questions about shipping, returns, warranty, store policy
- escalation: the user asks for a human or is clearly frustrated
- product_search: the user is looking for products
- order: the user wants to order or buy a specific product
- general: anything else

Respond with JSON only:
{"intent": "<label>", "confidence": <0..1>, "reasoning": "<one sentence>"}`

// Classifier maps the latest user message to an intent. Keyword rules run
// first; the model fallback never raises for malformed output.
type Classifier struct {
	chat      einomodel.BaseChatModel
	modelName string
	rules     []Rule
}

func New(chat einomodel.BaseChatModel, modelName string) *Classifier {
	return &Classifier{
		chat:      chat,
		modelName: modelName,
		rules:     DefaultRules(),
	}
}

// Classify inspects the last message of the conversation. An empty message
// list is the only hard error.
func (c *Classifier) Classify(ctx context.Context, messages []*schema.Message) (*model.IntentClassification, error) {
	if len(messages) == 0 {
		return nil, errx.New(errx.ErrNoMessages, http.StatusBadRequest, errx.EmptyInputMessage)
	}

	last := messages[len(messages)-1]
	msg := strings.ToLower(last.Content)

	for _, rule := range c.rules {
		if rule.Match(msg) {
			logx.Debug().
				Str("intent", string(rule.Intent)).
				Str("reason", rule.Reason).
				Msg("keyword rule hit")
			return &model.IntentClassification{
				Intent:     rule.Intent,
				Confidence: rule.Confidence,
				Reasoning:  rule.Reason,
			}, nil
		}
	}

	return c.classifyWithModel(ctx, messages, last.Content), nil
}

func (c *Classifier) classifyWithModel(ctx context.Context, messages []*schema.Message, userMessage string) *model.IntentClassification {
	prompt := make([]*schema.Message, 0, len(messages)+1)
	prompt = append(prompt, schema.SystemMessage(systemPrompt))
	prompt = append(prompt, messages...)

	out, err := chatmodel.Generate(ctx, c.chat, c.modelName, prompt)
	if err != nil {
		logx.Error().Err(err).Msg("intent classification model call failed")
		return softDefault(fmt.Sprintf("classification failed: %v", err))
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return softDefault("classification returned empty output")
	}

	result, err := parseClassification(out.Content)
	if err != nil {
		logx.Warn().Err(err).Str("raw", truncate(out.Content, 200)).Msg("unparseable classification output")
		return softDefault(fmt.Sprintf("failed to parse classification result: %v", err))
	}

	logx.Debug().
		Str("intent", string(result.Intent)).
		Float64("confidence", result.Confidence).
		Str("message", truncate(userMessage, 80)).
		Msg("model classification")
	return result
}

func softDefault(cause string) *model.IntentClassification {
	return &model.IntentClassification{
		Intent:     model.IntentGeneral,
		Confidence: 0.5,
		Reasoning:  cause,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
