package handlers

import (
	"fmt"

	"github.com/argobridge/argobridge/internal/models"
	"github.com/argobridge/argobridge/internal/toolcall"
)

// Request fields the Responses dialect carries that the upstream has no
// concept of. tools/tool_choice/parallel_tool_calls are stripped by the
// prompt-injection path before this cleanup runs, but stay listed so a
// native passthrough never leaks them either.
var incompatibleResponseFields = []string{
	"include",
	"metadata",
	"parallel_tool_calls",
	"previous_response_id",
	"reasoning",
	"service_tier",
	"store",
	"text",
	"tool_choice",
	"tools",
	"truncation",
}

// prepareChatRequest rewrites a chat-style request for the upstream:
// injects the configured user, remaps the model alias, normalizes the
// legacy prompt field, demotes system content for models that reject it,
// and runs the two-tier tool strategy.
func (h *Handler) prepareChatRequest(data map[string]any) (map[string]any, error) {
	cfg := h.config.Get()
	data["user"] = cfg.User

	model, _ := data["model"].(string)
	upstream := models.Resolve(model)
	data["model"] = upstream

	if prompt, ok := data["prompt"]; ok {
		if _, isList := prompt.([]any); !isList {
			data["prompt"] = []any{prompt}
		}
	}

	if models.RejectsSystemMessages(upstream) {
		demoteSystemContent(data)
	}

	data, err := toolcall.ApplyTools(data)
	if err != nil {
		return nil, fmt.Errorf("apply tools: %w", err)
	}

	return data, nil
}

// prepareResponsesRequest lifts the Responses dialect's input/instructions
// fields into the chat shape, then applies the shared chat preparation
// and drops fields the upstream cannot accept.
func (h *Handler) prepareResponsesRequest(data map[string]any) (map[string]any, error) {
	messages, _ := data["input"].([]any)
	if input, ok := data["input"].(string); ok {
		messages = []any{map[string]any{"role": "user", "content": input}}
	}
	if instructions, ok := data["instructions"].(string); ok && instructions != "" {
		messages = append([]any{map[string]any{"role": "system", "content": instructions}}, messages...)
		delete(data, "instructions")
	}
	data["messages"] = messages
	delete(data, "input")

	if maxTokens, ok := data["max_output_tokens"]; ok {
		data["max_tokens"] = maxTokens
		delete(data, "max_output_tokens")
	}

	data, err := h.prepareChatRequest(data)
	if err != nil {
		return nil, err
	}

	for _, field := range incompatibleResponseFields {
		delete(data, field)
	}

	return data, nil
}

// demoteSystemContent converts system messages to user role and folds a
// top-level system field into the prompt list, for o-series models.
func demoteSystemContent(data map[string]any) {
	if messages, ok := data["messages"].([]any); ok {
		for _, msg := range messages {
			if msgMap, ok := msg.(map[string]any); ok {
				if role, _ := msgMap["role"].(string); role == "system" {
					msgMap["role"] = "user"
				}
			}
		}
	}

	system, ok := data["system"]
	if !ok {
		return
	}

	var systemList []any
	switch s := system.(type) {
	case string:
		systemList = []any{s}
	case []any:
		systemList = s
	default:
		return
	}

	prompt, _ := data["prompt"].([]any)
	data["prompt"] = append(systemList, prompt...)
	delete(data, "system")
}
