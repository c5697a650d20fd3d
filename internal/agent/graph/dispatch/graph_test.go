package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoptalk/assistant/internal/agent/classifier"
	"github.com/shoptalk/assistant/internal/agent/conversations"
	"github.com/shoptalk/assistant/internal/agent/handlers"
	"github.com/shoptalk/assistant/internal/agent/model"
	"github.com/shoptalk/assistant/internal/agent/session"
	"github.com/shoptalk/assistant/internal/payment"
	"github.com/shoptalk/assistant/internal/store"
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

type fakeConvRepo struct {
	messages map[string][]*schema.Message
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{messages: make(map[string][]*schema.Message)}
}

func (r *fakeConvRepo) AddMessage(ctx context.Context, conversationID string, message *schema.Message) error {
	r.messages[conversationID] = append(r.messages[conversationID], message)
	return nil
}

func (r *fakeConvRepo) LoadHistory(ctx context.Context, conversationID string) (*model.ConversationHistory, error) {
	return &model.ConversationHistory{
		ConversationID: conversationID,
		Messages:       r.messages[conversationID],
	}, nil
}

func (r *fakeConvRepo) ClearHistory(ctx context.Context, conversationID string) error {
	delete(r.messages, conversationID)
	return nil
}

func (r *fakeConvRepo) GetMessageCount(ctx context.Context, conversationID string) (int, error) {
	return len(r.messages[conversationID]), nil
}

type failingProductRepo struct{}

func (failingProductRepo) Search(ctx context.Context, query, category string, maxResults int) ([]store.Product, error) {
	return nil, errors.New("catalog unavailable")
}

func (failingProductRepo) Get(ctx context.Context, id string) (*store.Product, error) {
	return nil, errors.New("catalog unavailable")
}

func (failingProductRepo) CheckStock(ctx context.Context, id string, quantity int) (bool, error) {
	return false, errors.New("catalog unavailable")
}

// stockFailingRepo serves the catalog but cannot answer stock checks, so
// the order handler fails after it has already touched the session.
type stockFailingRepo struct {
	*store.MemoryProductRepository
}

func (stockFailingRepo) CheckStock(ctx context.Context, id string, quantity int) (bool, error) {
	return false, errors.New("inventory service unavailable")
}

type fixture struct {
	runner   Runner
	sessions *session.Store
	repo     *fakeConvRepo
	orders   store.OrderRepository
}

func newFixture(t *testing.T, chat *fakeChatModel, products store.ProductRepository) *fixture {
	t.Helper()

	repo := newFakeConvRepo()
	manager := conversations.NewManager(repo, model.ConversationConfig{TTL: "15m", MaxTurns: 10})
	sessions := session.NewStore(time.Minute)
	orders := store.NewMemoryOrderRepository(products)

	runner, err := BuildGraph(context.Background(), &GraphConfig{
		Classifier: classifier.New(chat, "test-model"),
		Handlers: Handlers{
			Conversation:  handlers.NewConversationHandler(chat, "test-model", model.PromptConfig{BusinessType: "electronics store", BusinessName: "TechHub"}),
			FAQ:           handlers.NewFAQHandler(chat, "test-model"),
			Escalation:    handlers.NewEscalationHandler(),
			ProductSearch: handlers.NewProductSearchHandler(chat, "test-model", products),
			Order:         handlers.NewOrderHandler(chat, "test-model", products, orders),
			Payment:       handlers.NewPaymentHandler(orders, payment.NewMockProcessor()),
		},
		Sessions:        sessions,
		MessagesManager: manager,
	})
	require.NoError(t, err)

	return &fixture{runner: runner, sessions: sessions, repo: repo, orders: orders}
}

func TestPurchaseFlow(t *testing.T) {
	chat := &fakeChatModel{replies: []string{`{"query": "laptop", "max_results": 5}`}}
	f := newFixture(t, chat, store.NewMemoryProductRepository(nil))
	ctx := context.Background()
	const sessionID = "sess-purchase"

	// search
	result, err := f.runner.Invoke(ctx, model.ChatInput{SessionID: sessionID, Message: "Show me laptops"})
	require.NoError(t, err)
	assert.Equal(t, "product_search", result.Intent)
	assert.Contains(t, result.Response, "Aurora 14 Laptop")
	assert.Contains(t, result.Response, "out of stock")

	sc := f.sessions.Get(sessionID)
	require.Len(t, sc.LastViewedItems, 3)
	assert.Equal(t, "prod_001", sc.LastViewedItems[0].ID)

	// positional order, no model call needed
	result, err = f.runner.Invoke(ctx, model.ChatInput{SessionID: sessionID, Message: "I'll take the first one"})
	require.NoError(t, err)
	assert.Equal(t, "order", result.Intent)
	assert.Contains(t, result.Response, "ord_")
	assert.Contains(t, result.Response, "Aurora 14 Laptop")

	sc = f.sessions.Get(sessionID)
	require.NotEmpty(t, sc.PendingOrderID)
	assert.Equal(t, model.PhaseOrdered, sc.Phase)
	pendingID := sc.PendingOrderID

	pending, err := f.orders.Get(ctx, pendingID)
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, store.OrderAwaitingPayment, pending.Status)

	// pay the pending order
	result, err = f.runner.Invoke(ctx, model.ChatInput{SessionID: sessionID, Message: "Pay now"})
	require.NoError(t, err)
	assert.Equal(t, "payment", result.Intent)
	assert.Contains(t, result.Response, "Payment successful")

	sc = f.sessions.Get(sessionID)
	assert.Empty(t, sc.PendingOrderID)
	assert.Equal(t, model.PhaseCompleted, sc.Phase)

	order, err := f.orders.Get(ctx, pendingID)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, store.OrderPaid, order.Status)

	// only the search extraction needed the model
	assert.Equal(t, 1, chat.calls)

	// every turn persisted a user and an assistant message
	count, err := f.repo.GetMessageCount(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestHandlerFailureSubstitutesFallback(t *testing.T) {
	chat := &fakeChatModel{err: errors.New("provider unavailable")}
	f := newFixture(t, chat, failingProductRepo{})

	result, err := f.runner.Invoke(context.Background(), model.ChatInput{
		SessionID: "sess-fallback",
		Message:   "Show me laptops",
	})
	require.NoError(t, err, "handler failures must not surface as graph errors")

	assert.Equal(t, "product_search", result.Intent)
	assert.Equal(t, FallbackResponse, result.Response)

	// the fallback is still part of the conversation record
	history, err := f.repo.LoadHistory(context.Background(), "sess-fallback")
	require.NoError(t, err)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, FallbackResponse, history.Messages[1].Content)
}

func TestHandlerFailureDiscardsSessionMutations(t *testing.T) {
	chat := &fakeChatModel{err: errors.New("provider unavailable")}
	products := stockFailingRepo{store.NewMemoryProductRepository(nil)}
	f := newFixture(t, chat, products)
	const sessionID = "sess-discard"

	sc := f.sessions.Get(sessionID)
	sc.LastViewedItems = []model.ItemSummary{
		{ID: "prod_001", Name: "Aurora 14 Laptop", Price: 899, Stock: 12},
	}
	f.sessions.Save(sc)

	result, err := f.runner.Invoke(context.Background(), model.ChatInput{
		SessionID: sessionID,
		Message:   "I'll take the first one",
	})
	require.NoError(t, err)
	assert.Equal(t, FallbackResponse, result.Response)

	// the handler selected the product before the stock check failed; none
	// of that may survive the failed turn
	got := f.sessions.Get(sessionID)
	assert.Empty(t, got.SelectedItemID)
	assert.Equal(t, model.PhaseBrowsing, got.Phase)
	assert.Empty(t, got.PendingOrderID)
}

func TestClassifierDegradesToConversation(t *testing.T) {
	chat := &fakeChatModel{err: errors.New("provider unavailable")}
	f := newFixture(t, chat, store.NewMemoryProductRepository(nil))

	result, err := f.runner.Invoke(context.Background(), model.ChatInput{
		SessionID: "sess-general",
		Message:   "hello there",
	})
	require.NoError(t, err)

	assert.Equal(t, "general", result.Intent)
	assert.InDelta(t, 0.5, result.Confidence, 1e-9)
	// the conversation handler's model call failed too
	assert.Equal(t, FallbackResponse, result.Response)
}

func TestFAQKeywordAnswersWithoutModel(t *testing.T) {
	chat := &fakeChatModel{replies: []string{`{"intent": "faq", "confidence": 0.8, "reasoning": "policy"}`}}
	f := newFixture(t, chat, store.NewMemoryProductRepository(nil))

	result, err := f.runner.Invoke(context.Background(), model.ChatInput{
		SessionID: "sess-faq",
		Message:   "What is your refund policy?",
	})
	require.NoError(t, err)

	assert.Equal(t, "faq", result.Intent)
	assert.Contains(t, result.Response, "30 days")
	// one call for classification, none for the keyword-matched answer
	assert.Equal(t, 1, chat.calls)
}

func TestEscalationMintsTicket(t *testing.T) {
	chat := &fakeChatModel{replies: []string{`{"intent": "escalation", "confidence": 0.9, "reasoning": "wants a human"}`}}
	f := newFixture(t, chat, store.NewMemoryProductRepository(nil))

	result, err := f.runner.Invoke(context.Background(), model.ChatInput{
		SessionID: "sess-esc",
		Message:   "let me speak to a human",
	})
	require.NoError(t, err)

	assert.Equal(t, "escalation", result.Intent)
	assert.True(t, strings.Contains(result.Response, "tkt_"))
}
