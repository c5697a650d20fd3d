package classifier

import (
	"strings"

	"github.com/shoptalk/assistant/internal/agent/model"
)

// RuleConfidence is the fixed confidence for keyword rule hits. The rules
// short-circuit frequent, high-value patterns that model classification
// handles unreliably.
const RuleConfidence = 0.95

// Rule is one entry of the ordered keyword cascade. Rules are evaluated in
// sequence against the lowercased message; the first match wins.
type Rule struct {
	Match      func(msg string) bool
	Intent     model.Intent
	Confidence float64
	Reason     string
}

var (
	searchPhrases  = []string{"show me", "search for", "find me", "what products", "do you have", "i want to buy"}
	productNouns   = []string{"product", "laptop", "phone", "iphone", "ipad", "book", "shoes", "headphone"}
	orderPhrases   = []string{"i want the", "i'll take", "i want that", "i want this", "order the", "buy the"}
	selectionRefs  = []string{"first", "second", "third", "one", "that", "this", "#1", "#2", "#3"}
	paymentPhrases = []string{"pay now", "i want to pay", "process payment", "make payment", "charge me"}
)

func containsAny(msg string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// DefaultRules returns the keyword cascade in evaluation order. Order
// matters: order rules must run before payment rules so "buy the first one,
// pay now" resolves to an order.
func DefaultRules() []Rule {
	return []Rule{
		{
			Match: func(msg string) bool {
				return containsAny(msg, searchPhrases) && containsAny(msg, productNouns)
			},
			Intent:     model.IntentProductSearch,
			Confidence: RuleConfidence,
			Reason:     "keyword match: search phrase with product noun",
		},
		{
			Match: func(msg string) bool {
				return containsAny(msg, orderPhrases) && containsAny(msg, selectionRefs)
			},
			Intent:     model.IntentOrder,
			Confidence: RuleConfidence,
			Reason:     "keyword match: order phrase with selection reference",
		},
		{
			Match: func(msg string) bool {
				return strings.Contains(msg, "i want product") || strings.Contains(msg, "order product")
			},
			Intent:     model.IntentOrder,
			Confidence: RuleConfidence,
			Reason:     "keyword match: explicit order request",
		},
		{
			Match: func(msg string) bool {
				return containsAny(msg, paymentPhrases)
			},
			Intent:     model.IntentPayment,
			Confidence: RuleConfidence,
			Reason:     "keyword match: payment request",
		},
	}
}
