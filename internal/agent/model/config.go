package model

// ================ Config ================

type ConversationConfig struct {
	TTL      string `envconfig:"CONVERSATION_TTL" default:"15m"`
	MaxTurns int    `envconfig:"CONVERSATION_MAX_TURNS" default:"10"`
}

type SessionConfig struct {
	TTL string `envconfig:"SESSION_TTL" default:"60m"`
}

type ClassifierModelConfig struct {
	Model       string  `envconfig:"CLASSIFIER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"CLASSIFIER_MAX_TOKENS" default:"500"`
	Temperature float32 `envconfig:"CLASSIFIER_TEMPERATURE" default:"0.0"`
}

type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.4"`
}

type RetrievalConfig struct {
	TopK                int     `envconfig:"RETRIEVAL_TOP_K" default:"4"`
	SimilarityThreshold float64 `envconfig:"RETRIEVAL_SIMILARITY_THRESHOLD" default:"0.6"`
	RewriteEnabled      bool    `envconfig:"RETRIEVAL_REWRITE_ENABLED" default:"true"`
	EmbeddingModel      string  `envconfig:"RETRIEVAL_EMBEDDING_MODEL" default:"text-embedding-004"`
}

type PromptConfig struct {
	BusinessType string `envconfig:"PROMPT_BUSINESS_TYPE" default:"electronics store"`
	BusinessName string `envconfig:"PROMPT_BUSINESS_NAME" default:"TechHub"`
}
