package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/shoptalk/assistant/internal/agent/chatmodel"
	"github.com/shoptalk/assistant/internal/agent/model"
	"github.com/shoptalk/assistant/internal/store"
	logx "github.com/shoptalk/assistant/pkg/logger"
)

const searchExtractionPrompt = `Extract the product search parameters from the customer's message.

Respond with JSON only:
{"query": "<search terms>", "category": "<category or empty string>", "max_results": <int, default 5>}`

var jsonObjectPattern = regexp.MustCompile(`\{[^{}]*\}`)

type searchParams struct {
	Query      string `json:"query"`
	Category   string `json:"category"`
	MaxResults int    `json:"max_results"`
}

// ProductSearchHandler extracts search parameters with one model call,
// queries the catalog, and replaces the session's viewed-item list with the
// fresh results.
type ProductSearchHandler struct {
	chat      einomodel.BaseChatModel
	modelName string
	products  store.ProductRepository
}

func NewProductSearchHandler(chat einomodel.BaseChatModel, modelName string, products store.ProductRepository) *ProductSearchHandler {
	return &ProductSearchHandler{chat: chat, modelName: modelName, products: products}
}

func (h *ProductSearchHandler) Name() string       { return "product_search" }
func (h *ProductSearchHandler) NeedsSession() bool { return true }

func (h *ProductSearchHandler) Process(ctx context.Context, messages []*schema.Message, rc *RequestContext) (string, error) {
	userMessage := messages[len(messages)-1].Content
	params := h.extractParams(ctx, userMessage)

	results, err := h.products.Search(ctx, params.Query, params.Category, params.MaxResults)
	if err != nil {
		return "", fmt.Errorf("catalog search: %w", err)
	}

	if len(results) == 0 {
		rc.Session.LastViewedItems = nil
		rc.Session.Phase = model.PhaseBrowsing
		return fmt.Sprintf("I couldn't find any products matching %q. Could you try different search terms?", params.Query), nil
	}

	// The viewed list is replaced wholesale so positional references
	// ("the second one") always point at the latest results.
	items := make([]model.ItemSummary, 0, len(results))
	for _, p := range results {
		items = append(items, model.ItemSummary{
			ID:       p.ID,
			Name:     p.Name,
			Price:    p.Price,
			Category: p.Category,
			Stock:    p.Stock,
		})
	}
	rc.Session.LastViewedItems = items
	rc.Session.SelectedItemID = ""
	rc.Session.Phase = model.PhaseBrowsing

	var b strings.Builder
	fmt.Fprintf(&b, "Here's what I found for %q:\n\n", params.Query)
	for i, p := range results {
		fmt.Fprintf(&b, "%d. %s - $%.2f", i+1, p.Name, p.Price)
		if p.Stock == 0 {
			b.WriteString(" (out of stock)")
		}
		b.WriteString("\n")
	}
	b.WriteString("\nJust tell me which one you'd like to order.")
	return b.String(), nil
}

// extractParams asks the model for structured search terms and degrades to
// the raw message when the call or the parse fails.
func (h *ProductSearchHandler) extractParams(ctx context.Context, userMessage string) searchParams {
	fallback := searchParams{Query: userMessage, MaxResults: 5}

	out, err := chatmodel.Generate(ctx, h.chat, h.modelName, []*schema.Message{
		schema.SystemMessage(searchExtractionPrompt),
		schema.UserMessage(userMessage),
	})
	if err != nil {
		logx.Warn().Err(err).Msg("search extraction model call failed, using raw message")
		return fallback
	}

	raw := jsonObjectPattern.FindString(out.Content)
	if raw == "" {
		logx.Warn().Msg("no JSON object in search extraction output, using raw message")
		return fallback
	}

	var params searchParams
	if err := json.Unmarshal([]byte(raw), &params); err != nil || strings.TrimSpace(params.Query) == "" {
		logx.Warn().Err(err).Msg("unparseable search extraction output, using raw message")
		return fallback
	}
	if params.MaxResults <= 0 {
		params.MaxResults = 5
	}
	return params
}

var _ Handler = (*ProductSearchHandler)(nil)
