package server

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/shoptalk/assistant/internal/agent/conversations"
	"github.com/shoptalk/assistant/internal/agent/graph/dispatch"
	"github.com/shoptalk/assistant/internal/agent/graph/rag"
	"github.com/shoptalk/assistant/internal/agent/model"
	"github.com/shoptalk/assistant/internal/agent/session"
	errx "github.com/shoptalk/assistant/internal/core/error"
	logx "github.com/shoptalk/assistant/pkg/logger"
)

type chatRequest struct {
	Message   string         `json:"message"`
	SessionID string         `json:"session_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type chatResponse struct {
	Message    string         `json:"message"`
	SessionID  string         `json:"session_id"`
	Intent     string         `json:"intent,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type ragRequest struct {
	Question string `json:"question"`
}

type ragResponse struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	RetryCount int      `json:"retry_count"`
	Sources    []string `json:"sources,omitempty"`
}

type historyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatController exposes the dispatch and retrieval graphs over HTTP.
type ChatController struct {
	dispatcher dispatch.Runner
	retrieval  rag.Runner
	manager    *conversations.Manager
	sessions   *session.Store
}

func NewChatController(dispatcher dispatch.Runner, retrieval rag.Runner, manager *conversations.Manager, sessions *session.Store) *ChatController {
	return &ChatController{
		dispatcher: dispatcher,
		retrieval:  retrieval,
		manager:    manager,
		sessions:   sessions,
	}
}

// Chat runs one dispatch turn. Handler failures inside the graph still
// produce a 200 with the fallback body; only boundary validation and
// infrastructure errors surface as non-200.
func (c *ChatController) Chat(ctx *fiber.Ctx) error {
	var req chatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errx.New(err, http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return errx.New(errx.ErrNoMessages, http.StatusBadRequest, errx.EmptyInputMessage)
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	result, err := c.dispatcher.Invoke(ctx.Context(), model.ChatInput{
		SessionID: req.SessionID,
		Message:   req.Message,
		Metadata:  req.Metadata,
	})
	if err != nil {
		logx.Error().Err(err).Str("session_id", req.SessionID).Msg("dispatch failed")
		return err
	}

	return ctx.JSON(chatResponse{
		Message:    result.Response,
		SessionID:  result.SessionID,
		Intent:     result.Intent,
		Confidence: result.Confidence,
		Metadata:   req.Metadata,
	})
}

func (c *ChatController) History(ctx *fiber.Ctx) error {
	sessionID := ctx.Params("session_id")

	history, err := c.manager.History(ctx.Context(), sessionID)
	if err != nil {
		return err
	}

	messages := make([]historyMessage, 0, len(history))
	for _, m := range history {
		messages = append(messages, historyMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return ctx.JSON(fiber.Map{
		"session_id": sessionID,
		"messages":   messages,
	})
}

func (c *ChatController) Delete(ctx *fiber.Ctx) error {
	sessionID := ctx.Params("session_id")

	if err := c.manager.Clear(ctx.Context(), sessionID); err != nil {
		return err
	}
	c.sessions.Clear(sessionID)

	return ctx.JSON(fiber.Map{"session_id": sessionID, "status": "deleted"})
}

func (c *ChatController) Reset(ctx *fiber.Ctx) error {
	sessionID := ctx.Params("session_id")
	sc := c.sessions.Reset(sessionID)
	return ctx.JSON(sc)
}

func (c *ChatController) RAGQuery(ctx *fiber.Ctx) error {
	var req ragRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errx.New(err, http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Question) == "" {
		return errx.New(errx.ErrNoMessages, http.StatusBadRequest, errx.EmptyInputMessage)
	}

	answer, err := c.retrieval.Ask(ctx.Context(), req.Question)
	if err != nil {
		logx.Error().Err(err).Msg("retrieval workflow failed")
		return err
	}

	sources := make([]string, 0, len(answer.Documents))
	for _, d := range answer.Documents {
		if d.Source != "" {
			sources = append(sources, d.Source)
		}
	}
	return ctx.JSON(ragResponse{
		Question:   req.Question,
		Answer:     answer.Answer,
		RetryCount: answer.RetryCount,
		Sources:    sources,
	})
}

func (c *ChatController) Usage(ctx *fiber.Ctx) error {
	return ctx.JSON(model.Usage().Snapshot())
}
