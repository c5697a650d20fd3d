package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	errx "github.com/shoptalk/assistant/internal/core/error"
	logx "github.com/shoptalk/assistant/pkg/logger"
)

// Config is the HTTP listener configuration.
type Config struct {
	Port      string `envconfig:"SERVER_PORT" default:"8080"`
	BodyLimit int    `envconfig:"SERVER_BODY_LIMIT" default:"1048576"`
}

// Server wires the chat controller into a fiber app.
type Server struct {
	app  *fiber.App
	cfg  Config
	chat *ChatController
}

func New(cfg Config, chat *ChatController) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit:    cfg.BodyLimit,
		ErrorHandler: errorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New())

	s := &Server{app: app, cfg: cfg, chat: chat}
	s.registerRoutes()
	return s
}

func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	logx.Info().Str("port", s.cfg.Port).Msg("server listening")
	return s.app.Listen(":" + s.cfg.Port)
}

func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) registerRoutes() {
	api := s.app.Group("/api/v1")

	api.Post("/chat", s.chat.Chat)
	api.Get("/chat/:session_id/history", s.chat.History)
	api.Delete("/chat/:session_id", s.chat.Delete)
	api.Post("/chat/:session_id/reset", s.chat.Reset)

	api.Post("/rag/query", s.chat.RAGQuery)

	api.Get("/usage", s.chat.Usage)

	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}

// errorHandler maps errx errors to their carried status and everything else
// to a generic 500 without leaking internals.
func errorHandler(c *fiber.Ctx, err error) error {
	var appErr *errx.Error
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(fiber.Map{"error": appErr.Message})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}

	logx.Error().Err(err).Str("path", c.Path()).Msg("unhandled request error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": errx.SystemErrorMessage})
}
