package model

import (
	"sync"

	"github.com/cloudwego/eino/schema"
)

// UsageSnapshot is a point-in-time copy of the process-wide model usage.
type UsageSnapshot struct {
	Calls            int64   `json:"calls"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	TotalCostUSD     float64 `json:"total_cost_usd"`
}

// UsageTracker tallies model calls, tokens and cost across the whole
// process. Incrementing is thread-safe; Reset returns every counter to zero.
type UsageTracker struct {
	mu sync.Mutex
	s  UsageSnapshot
}

func NewUsageTracker() *UsageTracker {
	return &UsageTracker{}
}

// Record adds one model call and its token usage/cost to the tally.
// A nil usage still counts the call.
func (t *UsageTracker) Record(usage *schema.TokenUsage, costUSD float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.Calls++
	t.s.TotalCostUSD += costUSD
	if usage != nil {
		t.s.PromptTokens += int64(usage.PromptTokens)
		t.s.CompletionTokens += int64(usage.CompletionTokens)
		t.s.TotalTokens += int64(usage.TotalTokens)
	}
}

// Snapshot returns a copy of the current counters.
func (t *UsageTracker) Snapshot() UsageSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s
}

// Reset zeroes all counters.
func (t *UsageTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s = UsageSnapshot{}
}

var usageTracker = NewUsageTracker()

// Usage is the single accessor for the process-wide usage tracker.
func Usage() *UsageTracker {
	return usageTracker
}
