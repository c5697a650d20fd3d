package handlers

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/shoptalk/assistant/internal/agent/model"
)

// RequestContext carries the per-request data a handler may read or mutate.
// Session is attached by the dispatch graph's load bracket for handlers that
// declare a session dependency and is nil otherwise; mutations on it are
// persisted by the save bracket after the handler returns.
type RequestContext struct {
	SessionID string
	Session   *model.SessionContext
	Metadata  map[string]any
}

// Handler is one terminal node of the dispatch graph. Process returns the
// user-facing response text; errors are recovered at the graph boundary and
// never reach the caller.
type Handler interface {
	Name() string
	NeedsSession() bool
	Process(ctx context.Context, messages []*schema.Message, rc *RequestContext) (string, error)
}
