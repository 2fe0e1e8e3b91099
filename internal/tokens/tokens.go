// Package tokens wraps tiktoken so the rest of the proxy can treat token
// counting as an opaque integer-producing function.
package tokens

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/argobridge/argobridge/internal/models"
)

// Counter produces token counts for usage reporting.
type Counter struct{}

func NewCounter() *Counter {
	return &Counter{}
}

// CountTokens returns the token count of text under the model's encoding.
// Failures degrade to zero rather than blocking the response.
func (c *Counter) CountTokens(text, model string) int {
	enc, err := tiktoken.GetEncoding(models.EncodingFor(model))
	if err != nil {
		return 0
	}
	return len(enc.Encode(text, nil, nil))
}

// CalculatePromptTokens sums the token counts of all textual content in a
// prepared request body: messages, system content and legacy prompt lists.
func (c *Counter) CalculatePromptTokens(data map[string]any, model string) int {
	total := 0

	count := func(v any) {
		switch s := v.(type) {
		case string:
			total += c.CountTokens(s, model)
		case []any:
			for _, item := range s {
				if str, ok := item.(string); ok {
					total += c.CountTokens(str, model)
				}
			}
		}
	}

	if messages, ok := data["messages"].([]any); ok {
		for _, msg := range messages {
			if msgMap, ok := msg.(map[string]any); ok {
				count(msgMap["content"])
			}
		}
	}
	count(data["system"])
	count(data["prompt"])

	return total
}
