package classifier

import (
	"context"
	"errors"
	"net/http"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoptalk/assistant/internal/agent/model"
	errx "github.com/shoptalk/assistant/internal/core/error"
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

func classify(t *testing.T, fake *fakeChatModel, text string) *model.IntentClassification {
	t.Helper()
	c := New(fake, "test-model")
	result, err := c.Classify(context.Background(), []*schema.Message{schema.UserMessage(text)})
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func TestClassifyEmptyMessages(t *testing.T) {
	c := New(&fakeChatModel{}, "test-model")

	_, err := c.Classify(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errx.ErrNoMessages)

	var appErr *errx.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}

func TestClassifyKeywordRules(t *testing.T) {
	tests := []struct {
		message string
		intent  model.Intent
	}{
		{"Show me laptops", model.IntentProductSearch},
		{"Do you have wireless headphones?", model.IntentProductSearch},
		{"I want to buy a phone", model.IntentProductSearch},
		{"I'll take the first one", model.IntentOrder},
		{"I want that one", model.IntentOrder},
		{"order product prod_001", model.IntentOrder},
		{"Pay now", model.IntentPayment},
		{"I want to pay for my order", model.IntentPayment},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			fake := &fakeChatModel{err: errors.New("model must not be called")}
			result := classify(t, fake, tt.message)

			assert.Equal(t, tt.intent, result.Intent)
			assert.Equal(t, RuleConfidence, result.Confidence)
			assert.Zero(t, fake.calls, "keyword rule hits must not call the model")
		})
	}
}

func TestClassifyOrderRuleBeatsPayment(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("model must not be called")}
	result := classify(t, fake, "buy the first one, pay now")
	assert.Equal(t, model.IntentOrder, result.Intent)
}

func TestClassifyModelFallback(t *testing.T) {
	fake := &fakeChatModel{replies: []string{`{"intent": "faq", "confidence": 0.82, "reasoning": "asks about policy"}`}}
	result := classify(t, fake, "Can I get my money back?")

	assert.Equal(t, model.IntentFAQ, result.Intent)
	assert.InDelta(t, 0.82, result.Confidence, 1e-9)
	assert.Equal(t, 1, fake.calls)
}

func TestClassifyModelFallbackCodeFence(t *testing.T) {
	fake := &fakeChatModel{replies: []string{"```json\n{\"intent\": \"escalation\", \"confidence\": 0.9, \"reasoning\": \"wants a human\"}\n```"}}
	result := classify(t, fake, "let me talk to someone")

	assert.Equal(t, model.IntentEscalation, result.Intent)
}

func TestClassifyDegradesToGeneral(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeChatModel
	}{
		{"model error", &fakeChatModel{err: errors.New("provider unavailable")}},
		{"not json", &fakeChatModel{replies: []string{"sure, happy to help!"}}},
		{"unknown intent", &fakeChatModel{replies: []string{`{"intent": "refund", "confidence": 0.9}`}}},
		{"confidence out of range", &fakeChatModel{replies: []string{`{"intent": "faq", "confidence": 1.7}`}}},
		{"empty output", &fakeChatModel{replies: []string{"   "}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classify(t, tt.fake, "hmm interesting")
			assert.Equal(t, model.IntentGeneral, result.Intent)
			assert.InDelta(t, 0.5, result.Confidence, 1e-9)
			assert.NotEmpty(t, result.Reasoning)
		})
	}
}

func TestParseClassification(t *testing.T) {
	result, err := parseClassification(`{"intent": "Product_Search", "confidence": 0.75, "reasoning": "ok"}`)
	require.NoError(t, err)
	assert.Equal(t, model.IntentProductSearch, result.Intent)

	_, err = parseClassification(`{"intent": "unknown_thing", "confidence": 0.5}`)
	require.Error(t, err)

	_, err = parseClassification(`not json at all`)
	require.Error(t, err)
}
