package chatmodel

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/shoptalk/assistant/internal/agent/model"
	logx "github.com/shoptalk/assistant/pkg/logger"
)

// BackendGemini is the shipped model backend. New backends add a case in
// New; callers only ever see the eino capability interface.
const BackendGemini = "gemini"

// Config selects and parameterises the model backend at construction time.
type Config struct {
	Backend       string `envconfig:"MODEL_BACKEND" default:"gemini"`
	APIKey        string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL       string `envconfig:"GEMINI_BASE_URL"`
	ClassifierCfg model.ClassifierModelConfig
	ResponseCfg   model.ResponseModelConfig
}

// Models holds the two chat models the graphs use plus the genai client
// shared with the embedder.
type Models struct {
	Classifier     einomodel.BaseChatModel
	Response       einomodel.BaseChatModel
	ClassifierName string
	ResponseName   string
	GenAIClient    *genai.Client
}

// New constructs the configured backend. Only gemini ships today; the
// switch is the single place provider branching is allowed.
func New(ctx context.Context, cfg Config) (*Models, error) {
	switch cfg.Backend {
	case "", BackendGemini:
		return newGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown model backend %q", cfg.Backend)
	}
}

func newGemini(ctx context.Context, cfg Config) (*Models, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	classifierModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.ClassifierCfg.Model,
		Temperature: &cfg.ClassifierCfg.Temperature,
		MaxTokens:   &cfg.ClassifierCfg.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("error creating classifier model")
		return nil, fmt.Errorf("error creating classifier model: %w", err)
	}

	responseModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.ResponseCfg.Model,
		Temperature: &cfg.ResponseCfg.Temperature,
		MaxTokens:   &cfg.ResponseCfg.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("error creating response model")
		return nil, fmt.Errorf("error creating response model: %w", err)
	}

	return &Models{
		Classifier:     classifierModel,
		Response:       responseModel,
		ClassifierName: cfg.ClassifierCfg.Model,
		ResponseName:   cfg.ResponseCfg.Model,
		GenAIClient:    client,
	}, nil
}

// Generate runs one completion and records usage/cost in the process-wide
// tracker before returning the message.
func Generate(ctx context.Context, cm einomodel.BaseChatModel, modelName string, msgs []*schema.Message) (*schema.Message, error) {
	out, err := cm.Generate(ctx, msgs)
	if err != nil {
		return nil, err
	}
	var usage *schema.TokenUsage
	if out != nil && out.ResponseMeta != nil {
		usage = out.ResponseMeta.Usage
	}
	_, _, totalCost := model.ComputeCost(usage, model.ResolvePricing(modelName))
	model.Usage().Record(usage, totalCost)
	if usage != nil {
		logx.Debug().
			Str("model", modelName).
			Int("prompt_tokens", usage.PromptTokens).
			Int("completion_tokens", usage.CompletionTokens).
			Int("total_tokens", usage.TotalTokens).
			Float64("total_cost_usd", totalCost).
			Msg("LLM usage")
	}
	return out, nil
}
