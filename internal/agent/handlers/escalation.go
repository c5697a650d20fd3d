package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	logx "github.com/shoptalk/assistant/pkg/logger"
)

// EscalationHandler hands the conversation off to human support with a
// ticket reference. No model call; the hand-off must never fail on a
// provider outage.
type EscalationHandler struct{}

func NewEscalationHandler() *EscalationHandler {
	return &EscalationHandler{}
}

func (h *EscalationHandler) Name() string       { return "escalation" }
func (h *EscalationHandler) NeedsSession() bool { return false }

func (h *EscalationHandler) Process(ctx context.Context, messages []*schema.Message, rc *RequestContext) (string, error) {
	ticket := "tkt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	logx.Info().Str("ticket", ticket).Str("session_id", rc.SessionID).Msg("escalating to human support")

	return fmt.Sprintf(
		"I'll connect you with our support team right away. Your ticket reference is %s - please keep it handy. An agent will follow up shortly.",
		ticket,
	), nil
}

var _ Handler = (*EscalationHandler)(nil)
