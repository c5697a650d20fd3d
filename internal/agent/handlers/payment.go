package handlers

import (
	"context"
	"fmt"
	"regexp"

	"github.com/cloudwego/eino/schema"

	"github.com/shoptalk/assistant/internal/agent/model"
	"github.com/shoptalk/assistant/internal/payment"
	"github.com/shoptalk/assistant/internal/store"
	logx "github.com/shoptalk/assistant/pkg/logger"
)

var orderIDPattern = regexp.MustCompile(`ord_[a-z0-9]+`)

// PaymentHandler charges a pending order. The order is named explicitly in
// the message or falls back to the session's pending order.
type PaymentHandler struct {
	orders    store.OrderRepository
	processor payment.Processor
}

func NewPaymentHandler(orders store.OrderRepository, processor payment.Processor) *PaymentHandler {
	return &PaymentHandler{orders: orders, processor: processor}
}

func (h *PaymentHandler) Name() string       { return "payment" }
func (h *PaymentHandler) NeedsSession() bool { return true }

func (h *PaymentHandler) Process(ctx context.Context, messages []*schema.Message, rc *RequestContext) (string, error) {
	userMessage := messages[len(messages)-1].Content

	orderID := orderIDPattern.FindString(userMessage)
	if orderID == "" {
		orderID = rc.Session.PendingOrderID
	}
	if orderID == "" {
		return "I don't see an order to pay for yet. Would you like to browse products and place one first?", nil
	}

	order, err := h.orders.Get(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("lookup order %s: %w", orderID, err)
	}
	if order == nil {
		return fmt.Sprintf("I couldn't find order %s. Could you double-check the order number?", orderID), nil
	}

	switch order.Status {
	case store.OrderPaid:
		return fmt.Sprintf("Order %s has already been paid. Is there anything else I can help with?", order.ID), nil
	case store.OrderCancelled:
		return fmt.Sprintf("Order %s was cancelled, so there's nothing to pay. Would you like to place a new order?", order.ID), nil
	}

	rc.Session.Phase = model.PhasePaying

	resp, err := h.processor.Process(ctx, payment.Request{
		Amount:      order.Total,
		Currency:    "USD",
		Description: fmt.Sprintf("Payment for order %s", order.ID),
		OrderID:     order.ID,
	})
	if err != nil {
		return "", fmt.Errorf("process payment for %s: %w", order.ID, err)
	}
	if resp.Status != payment.StatusCompleted {
		logx.Warn().Str("order_id", order.ID).Str("status", string(resp.Status)).Msg("payment not completed")
		return fmt.Sprintf("The payment for order %s didn't go through (%s). Please try again or use a different payment method.", order.ID, resp.Status), nil
	}

	if err := h.orders.UpdateStatus(ctx, order.ID, store.OrderPaid); err != nil {
		return "", fmt.Errorf("mark order %s paid: %w", order.ID, err)
	}

	if rc.Session.PendingOrderID == order.ID {
		rc.Session.ClearOrder()
	}
	rc.Session.Phase = model.PhaseCompleted

	logx.Info().
		Str("order_id", order.ID).
		Str("transaction_id", resp.TransactionID).
		Float64("amount", resp.Amount).
		Msg("order paid")

	return fmt.Sprintf(
		"Payment successful! Order %s is confirmed - $%.2f charged (transaction %s). Thanks for shopping with us!",
		order.ID, resp.Amount, resp.TransactionID,
	), nil
}

var _ Handler = (*PaymentHandler)(nil)
