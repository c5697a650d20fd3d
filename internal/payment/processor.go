package payment

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	logx "github.com/shoptalk/assistant/pkg/logger"
)

// Status of a payment attempt.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Request describes one payment to process.
type Request struct {
	Amount      float64
	Currency    string
	Description string
	OrderID     string
}

// Response is the provider's answer.
type Response struct {
	TransactionID string
	Status        Status
	Amount        float64
	Currency      string
	Timestamp     time.Time
}

// Processor is the payment provider contract. Real provider integrations
// are collaborators; the shipped implementation is a deterministic mock.
type Processor interface {
	Process(ctx context.Context, req Request) (*Response, error)
}

// MockProcessor approves every well-formed payment and mints txn_ ids.
type MockProcessor struct{}

func NewMockProcessor() *MockProcessor {
	return &MockProcessor{}
}

func (p *MockProcessor) Process(ctx context.Context, req Request) (*Response, error) {
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	resp := &Response{
		TransactionID: "txn_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		Status:        StatusCompleted,
		Amount:        req.Amount,
		Currency:      currency,
		Timestamp:     time.Now(),
	}
	logx.Info().
		Str("transaction_id", resp.TransactionID).
		Str("order_id", req.OrderID).
		Float64("amount", req.Amount).
		Msg("payment processed")
	return resp, nil
}

var _ Processor = (*MockProcessor)(nil)
