package model

import "time"

// Phase is the coarse conversation state used by handlers to disambiguate
// pronoun references ("that one"). Transitions are monotonic within a single
// order lifecycle and reset to browsing only on an explicit reset.
type Phase string

const (
	PhaseBrowsing  Phase = "browsing"
	PhaseSelected  Phase = "selected"
	PhaseOrdered   Phase = "ordered"
	PhasePaying    Phase = "paying"
	PhaseCompleted Phase = "completed"
)

// ItemSummary is a lightweight view of a catalog product, kept in session
// context so follow-up messages can reference search results by position.
type ItemSummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
	Stock    int     `json:"stock"`
}

// SessionContext is the per-user conversation-scoped mutable state bridging
// otherwise-stateless handler calls. At most one pending order per session.
type SessionContext struct {
	SessionID       string        `json:"session_id"`
	LastViewedItems []ItemSummary `json:"last_viewed_items"`
	SelectedItemID  string        `json:"selected_item_id,omitempty"`
	PendingOrderID  string        `json:"pending_order_id,omitempty"`
	Phase           Phase         `json:"phase"`
	LastUpdated     time.Time     `json:"last_updated"`
}

// NewSessionContext returns a default-valued context for the session.
func NewSessionContext(sessionID string) *SessionContext {
	return &SessionContext{
		SessionID:   sessionID,
		Phase:       PhaseBrowsing,
		LastUpdated: time.Now(),
	}
}

// Clone returns an independent copy. Mutating the clone (including its
// viewed-items list) never touches the original.
func (c *SessionContext) Clone() *SessionContext {
	cp := *c
	cp.LastViewedItems = append([]ItemSummary(nil), c.LastViewedItems...)
	return &cp
}

// ClearOrder drops the pending order reference.
func (c *SessionContext) ClearOrder() {
	c.PendingOrderID = ""
}

// Reset returns every field to its initial value.
func (c *SessionContext) Reset() {
	c.LastViewedItems = nil
	c.SelectedItemID = ""
	c.PendingOrderID = ""
	c.Phase = PhaseBrowsing
	c.LastUpdated = time.Now()
}
