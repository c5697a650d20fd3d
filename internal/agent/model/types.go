package model

import (
	"strings"

	"github.com/cloudwego/eino/schema"
)

// Intent is the discrete category of a user request that drives routing.
type Intent string

const (
	IntentPayment       Intent = "payment"
	IntentFAQ           Intent = "faq"
	IntentGeneral       Intent = "general"
	IntentEscalation    Intent = "escalation"
	IntentProductSearch Intent = "product_search"
	IntentOrder         Intent = "order"
)

// ParseIntent normalises a raw label into a known intent. The second return
// value reports whether the label was part of the enum.
func ParseIntent(s string) (Intent, bool) {
	switch Intent(strings.ToLower(strings.TrimSpace(s))) {
	case IntentPayment:
		return IntentPayment, true
	case IntentFAQ:
		return IntentFAQ, true
	case IntentGeneral:
		return IntentGeneral, true
	case IntentEscalation:
		return IntentEscalation, true
	case IntentProductSearch:
		return IntentProductSearch, true
	case IntentOrder:
		return IntentOrder, true
	default:
		return IntentGeneral, false
	}
}

// IntentClassification is the result of classifying the latest user message.
// Reasoning is diagnostic only and never drives control flow.
type IntentClassification struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// ChatInput is the public input of the dispatch graph.
type ChatInput struct {
	SessionID string         `json:"session_id"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// DispatchState is the graph-local state of one dispatch run.
// All reads/writes happen only inside Eino state handlers
// (WithStatePreHandler, WithStatePostHandler, compose.ProcessState),
// which serialize access; no extra locking is needed.
type DispatchState struct {
	SessionID      string
	Metadata       map[string]any
	History        []*schema.Message
	Classification *IntentClassification
	Session        *SessionContext // attached by the handler load bracket when needed
}

// Document is one retrieved chunk from the similarity index. Score is a
// normalized relevance measure in [0,1], higher meaning more relevant.
// Documents live only for the duration of one retrieval workflow run.
type Document struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

// NoAnswerCause distinguishes the apology wording of the no-answer terminal
// state. It carries no control-flow significance.
type NoAnswerCause int

const (
	CauseGeneric NoAnswerCause = iota
	CauseNoDocuments
	CauseRetriesExhausted
)

// RetrievalState is the graph-local state of one retrieval workflow run.
// Messages is append-only within the run; Documents is replaced wholesale
// on each retrieval attempt. Owned by exactly one invocation.
type RetrievalState struct {
	Question     string // the user's verbatim question
	CurrentQuery string // the query of the current attempt, possibly rewritten
	RetryCount   int
	Documents    []Document
	Messages     []*schema.Message
	Cause        NoAnswerCause
}
