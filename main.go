package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/shoptalk/assistant/internal/agent/chatmodel"
	"github.com/shoptalk/assistant/internal/agent/classifier"
	"github.com/shoptalk/assistant/internal/agent/conversations"
	"github.com/shoptalk/assistant/internal/agent/graph/dispatch"
	"github.com/shoptalk/assistant/internal/agent/graph/rag"
	"github.com/shoptalk/assistant/internal/agent/handlers"
	"github.com/shoptalk/assistant/internal/agent/model"
	"github.com/shoptalk/assistant/internal/agent/repo"
	"github.com/shoptalk/assistant/internal/agent/retrieval"
	"github.com/shoptalk/assistant/internal/agent/session"
	"github.com/shoptalk/assistant/internal/core"
	"github.com/shoptalk/assistant/internal/payment"
	"github.com/shoptalk/assistant/internal/server"
	"github.com/shoptalk/assistant/internal/store"
	logx "github.com/shoptalk/assistant/pkg/logger"
	"github.com/shoptalk/assistant/pkg/postgres"
	pkgredis "github.com/shoptalk/assistant/pkg/redis"
)

// AppConfig aggregates every configurable parameter of the assistant,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Redis       pkgredis.Config
	PostgresDSN string `envconfig:"POSTGRES_DSN"`

	// Model provider
	Model chatmodel.Config

	// Agent configs
	Conversation model.ConversationConfig
	Session      model.SessionConfig
	Retrieval    model.RetrievalConfig
	Prompt       model.PromptConfig

	Server server.Config
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(cfg.Environment)})

	rdb, err := cfg.Redis.New()
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to initialise redis client")
	}
	defer rdb.Close()

	conversationTTL, err := time.ParseDuration(cfg.Conversation.TTL)
	if err != nil {
		logx.Fatal().Err(err).Str("ttl", cfg.Conversation.TTL).Msg("invalid CONVERSATION_TTL")
	}
	sessionTTL, err := time.ParseDuration(cfg.Session.TTL)
	if err != nil {
		logx.Fatal().Err(err).Str("ttl", cfg.Session.TTL).Msg("invalid SESSION_TTL")
	}

	models, err := chatmodel.New(ctx, cfg.Model)
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to initialise chat models")
	}

	// Storage: postgres when a DSN is configured, in-memory seed data
	// otherwise so the service runs standalone.
	var (
		products  store.ProductRepository
		orders    store.OrderRepository
		retriever retrieval.Retriever
	)
	if cfg.PostgresDSN != "" {
		pgCfg := postgres.Config{DSN: cfg.PostgresDSN}
		db, err := pgCfg.New()
		if err != nil {
			logx.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		products = store.NewGormProductRepository(db)
		orders = store.NewGormOrderRepository(db, products)
		embedder := retrieval.NewGenAIEmbedder(models.GenAIClient, cfg.Retrieval.EmbeddingModel)
		retriever = retrieval.NewPgVectorRetriever(db, embedder)
		logx.Info().Msg("using postgres storage and pgvector retrieval")
	} else {
		products = store.NewMemoryProductRepository(nil)
		orders = store.NewMemoryOrderRepository(products)
		retriever = retrieval.NewMemoryRetriever(nil)
		logx.Info().Msg("no POSTGRES_DSN set, using in-memory storage")
	}

	manager := conversations.NewManager(
		repo.NewRedisConversationRepository(rdb, conversationTTL),
		cfg.Conversation,
	)
	sessions := session.NewStore(sessionTTL)

	dispatcher, err := dispatch.BuildGraph(ctx, &dispatch.GraphConfig{
		Classifier: classifier.New(models.Classifier, models.ClassifierName),
		Handlers: dispatch.Handlers{
			Conversation:  handlers.NewConversationHandler(models.Response, models.ResponseName, cfg.Prompt),
			FAQ:           handlers.NewFAQHandler(models.Response, models.ResponseName),
			Escalation:    handlers.NewEscalationHandler(),
			ProductSearch: handlers.NewProductSearchHandler(models.Response, models.ResponseName, products),
			Order:         handlers.NewOrderHandler(models.Response, models.ResponseName, products, orders),
			Payment:       handlers.NewPaymentHandler(orders, payment.NewMockProcessor()),
		},
		Sessions:        sessions,
		MessagesManager: manager,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to build dispatch graph")
	}

	ragRunner, err := rag.BuildGraph(ctx, &rag.GraphConfig{
		Retriever: retriever,
		Chat:      models.Response,
		ModelName: models.ResponseName,
		Retrieval: cfg.Retrieval,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to build retrieval graph")
	}

	srv := server.New(cfg.Server, server.NewChatController(dispatcher, ragRunner, manager, sessions))
	if err := srv.Run(); err != nil {
		logx.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
