package classifier

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shoptalk/assistant/internal/agent/model"
)

// extractJSON strips markdown code fences that chat models like to wrap
// around structured output.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseClassification decodes a model response into a classification.
// Out-of-enum intents and out-of-range confidences are errors; the caller
// decides how to degrade.
func parseClassification(content string) (*model.IntentClassification, error) {
	var raw struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(extractJSON(content)), &raw); err != nil {
		return nil, fmt.Errorf("decode classification: %w", err)
	}

	intent, ok := model.ParseIntent(raw.Intent)
	if !ok {
		return nil, fmt.Errorf("intent %q outside enum", raw.Intent)
	}
	if raw.Confidence < 0 || raw.Confidence > 1 {
		return nil, fmt.Errorf("confidence %v out of range", raw.Confidence)
	}

	return &model.IntentClassification{
		Intent:     intent,
		Confidence: raw.Confidence,
		Reasoning:  raw.Reasoning,
	}, nil
}
