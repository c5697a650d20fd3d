package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/shoptalk/assistant/internal/agent/chatmodel"
	"github.com/shoptalk/assistant/internal/agent/model"
	"github.com/shoptalk/assistant/internal/store"
	logx "github.com/shoptalk/assistant/pkg/logger"
)

const orderExtractionPrompt = `The customer wants to order a product. Extract which one.

Respond with JSON only:
{"product_id": "<id, or a 1-based position number as a string, or empty>", "quantity": <int, default 1>}`

type orderParams struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

var positionalRefs = map[string]int{
	"first": 0, "1st": 0, "#1": 0, "number 1": 0, "number one": 0,
	"second": 1, "2nd": 1, "#2": 1, "number 2": 1, "number two": 1,
	"third": 2, "3rd": 2, "#3": 2, "number 3": 2, "number three": 2,
	"fourth": 3, "4th": 3, "#4": 3, "number 4": 3,
	"fifth": 4, "5th": 4, "#5": 4, "number 5": 4,
	"last": -1,
}

var pronounRefs = []string{"that one", "this one", "it", "that", "this"}

// OrderHandler resolves which viewed product the customer means and creates
// the order. Positional and pronoun references resolve against the session
// without a model call; only genuinely ambiguous messages pay for extraction.
type OrderHandler struct {
	chat      einomodel.BaseChatModel
	modelName string
	products  store.ProductRepository
	orders    store.OrderRepository
}

func NewOrderHandler(chat einomodel.BaseChatModel, modelName string, products store.ProductRepository, orders store.OrderRepository) *OrderHandler {
	return &OrderHandler{chat: chat, modelName: modelName, products: products, orders: orders}
}

func (h *OrderHandler) Name() string       { return "order" }
func (h *OrderHandler) NeedsSession() bool { return true }

func (h *OrderHandler) Process(ctx context.Context, messages []*schema.Message, rc *RequestContext) (string, error) {
	userMessage := messages[len(messages)-1].Content

	productID, quantity := h.resolveProduct(ctx, userMessage, rc.Session)
	if productID == "" {
		if len(rc.Session.LastViewedItems) == 0 {
			return "I'd be happy to place an order for you. What product are you looking for? I can search the catalog first.", nil
		}
		return "Which of the products I showed you would you like? You can say the name or just 'the first one'.", nil
	}
	if quantity <= 0 {
		quantity = 1
	}

	product, err := h.products.Get(ctx, productID)
	if err != nil {
		return "", fmt.Errorf("lookup product %s: %w", productID, err)
	}
	if product == nil {
		return fmt.Sprintf("I couldn't find a product with id %s. Could you search again?", productID), nil
	}

	rc.Session.SelectedItemID = productID
	rc.Session.Phase = model.PhaseSelected

	inStock, err := h.products.CheckStock(ctx, productID, quantity)
	if err != nil {
		return "", fmt.Errorf("check stock %s: %w", productID, err)
	}
	if !inStock {
		return fmt.Sprintf("Sorry, %s is currently out of stock. Would you like me to suggest an alternative?", product.Name), nil
	}

	order, err := h.orders.Create(ctx, rc.SessionID, []store.OrderItemInput{
		{ProductID: productID, Quantity: quantity},
	})
	if err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}
	if err := h.orders.UpdateStatus(ctx, order.ID, store.OrderAwaitingPayment); err != nil {
		return "", fmt.Errorf("mark order %s awaiting payment: %w", order.ID, err)
	}

	rc.Session.PendingOrderID = order.ID
	rc.Session.Phase = model.PhaseOrdered

	logx.Info().
		Str("order_id", order.ID).
		Str("product_id", productID).
		Int("quantity", quantity).
		Str("session_id", rc.SessionID).
		Msg("order created")

	return fmt.Sprintf(
		"Done! I've created order %s: %d x %s for a total of $%.2f. Say 'pay now' when you're ready to complete the purchase.",
		order.ID, quantity, product.Name, order.Total,
	), nil
}

// resolveProduct tries positional references, pronoun references, product
// names from the viewed list, and finally model extraction, in that order.
func (h *OrderHandler) resolveProduct(ctx context.Context, userMessage string, session *model.SessionContext) (string, int) {
	msg := strings.ToLower(userMessage)
	viewed := session.LastViewedItems

	if len(viewed) > 0 {
		for ref, idx := range positionalRefs {
			if strings.Contains(msg, ref) {
				if idx == -1 {
					idx = len(viewed) - 1
				}
				if idx < len(viewed) {
					return viewed[idx].ID, 1
				}
			}
		}
		for _, ref := range pronounRefs {
			if containsWord(msg, ref) {
				if session.SelectedItemID != "" {
					return session.SelectedItemID, 1
				}
				return viewed[0].ID, 1
			}
		}
		for _, item := range viewed {
			if strings.Contains(msg, strings.ToLower(item.Name)) {
				return item.ID, 1
			}
		}
	}

	return h.extractWithModel(ctx, userMessage, viewed)
}

func (h *OrderHandler) extractWithModel(ctx context.Context, userMessage string, viewed []model.ItemSummary) (string, int) {
	var viewedList strings.Builder
	if len(viewed) > 0 {
		viewedList.WriteString("\n\nProducts the customer was just shown:\n")
		for i, item := range viewed {
			fmt.Fprintf(&viewedList, "%d. %s (id: %s)\n", i+1, item.Name, item.ID)
		}
	}

	out, err := chatmodel.Generate(ctx, h.chat, h.modelName, []*schema.Message{
		schema.SystemMessage(orderExtractionPrompt + viewedList.String()),
		schema.UserMessage(userMessage),
	})
	if err != nil {
		logx.Warn().Err(err).Msg("order extraction model call failed")
		return "", 0
	}

	raw := jsonObjectPattern.FindString(out.Content)
	if raw == "" {
		return "", 0
	}
	var params orderParams
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		logx.Warn().Err(err).Msg("unparseable order extraction output")
		return "", 0
	}

	id := strings.TrimSpace(params.ProductID)
	// The model may answer with a 1-based position instead of an id.
	if idx, ok := positionalIndex(id); ok && idx < len(viewed) {
		return viewed[idx].ID, params.Quantity
	}
	if !strings.HasPrefix(id, "prod_") {
		return "", 0
	}
	return id, params.Quantity
}

func positionalIndex(s string) (int, bool) {
	if len(s) != 1 || s[0] < '1' || s[0] > '9' {
		return 0, false
	}
	return int(s[0] - '1'), true
}

func containsWord(msg, word string) bool {
	fields := strings.Fields(msg)
	if strings.Contains(word, " ") {
		return strings.Contains(msg, word)
	}
	for _, f := range fields {
		if strings.Trim(f, ".,!?'\"") == word {
			return true
		}
	}
	return false
}

var _ Handler = (*OrderHandler)(nil)
