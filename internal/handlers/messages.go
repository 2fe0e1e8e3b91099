package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/argobridge/argobridge/internal/responses"
	"github.com/argobridge/argobridge/internal/sse"
	"github.com/argobridge/argobridge/internal/toolcall"
)

// Messages serves the Anthropic Messages dialect. The upstream reply is
// scanned for tool calls and reshaped into content blocks.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	data, err := h.readJSONBody(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	h.logVerbose("[messages] input", data)

	stream, _ := data["stream"].(bool)
	delete(data, "stream")

	prepared, err := h.prepareChatRequest(data)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	model, _ := prepared["model"].(string)
	promptTokens := h.counter.CalculatePromptTokens(prepared, model)

	resp, err := h.forward(r.Context(), h.config.Get().ArgoURL, prepared, false)
	if err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "%v", err)
		return
	}
	if resp.StatusCode != http.StatusOK {
		h.writeUpstreamError(w, resp)
		return
	}
	defer resp.Body.Close()

	text, err := h.readUpstreamText(resp)
	if err != nil {
		h.writeError(w, http.StatusBadGateway, "%v", err)
		return
	}

	calls, cleaned := toolcall.Process(text)
	completionTokens := h.counter.CountTokens(text, model)

	if stream {
		h.streamMessages(w, r, model, promptTokens, cleaned, calls)
		return
	}

	content := []any{}
	if cleaned != "" {
		content = append(content, map[string]any{"type": "text", "text": cleaned})
	}
	for _, call := range calls {
		block, err := anthropicToolUseBlock(call)
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, "normalize tool calls: %v", err)
			return
		}
		content = append(content, block)
	}

	stopReason := "end_turn"
	if len(calls) > 0 {
		stopReason = "tool_use"
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"id":            "msg_" + responses.NewHexID(),
		"type":          "message",
		"role":          "assistant",
		"model":         model,
		"content":       content,
		"stop_reason":   stopReason,
		"stop_sequence": nil,
		"usage": map[string]any{
			"input_tokens":  promptTokens,
			"output_tokens": completionTokens,
		},
	})
}

// anthropicToolUseBlock converts a parsed tool call into a tool_use
// content block. Anthropic carries arguments as a decoded object, and
// its IDs use the toolu_ prefix over the same random tail.
func anthropicToolUseBlock(call toolcall.ParsedToolCall) (map[string]any, error) {
	id, err := toolcall.GenerateID(toolcall.IDModeChatCompletion)
	if err != nil {
		return nil, err
	}
	id = "toolu_" + strings.TrimPrefix(id, "call_")

	input := map[string]any{}
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &input); err != nil {
			input = map[string]any{}
		}
	}

	return map[string]any{
		"type":  "tool_use",
		"id":    id,
		"name":  call.Name,
		"input": input,
	}, nil
}

// streamMessages synthesizes the Anthropic event sequence from the
// complete reply: message_start, one content block per text/tool_use
// unit, message_delta with the stop reason, message_stop.
func (h *Handler) streamMessages(w http.ResponseWriter, r *http.Request, model string, promptTokens int, cleaned string, calls []toolcall.ParsedToolCall) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	out := sse.NewWriter(w)
	ctx := r.Context()
	id := "msg_" + responses.NewHexID()

	send := func(event string, payload map[string]any) error {
		payload["type"] = event
		return out.SendEvent(event, payload)
	}

	if err := send("message_start", map[string]any{
		"message": map[string]any{
			"id":            id,
			"type":          "message",
			"role":          "assistant",
			"model":         model,
			"content":       []any{},
			"stop_reason":   nil,
			"stop_sequence": nil,
			"usage": map[string]any{
				"input_tokens":  promptTokens,
				"output_tokens": 0,
			},
		},
	}); err != nil {
		return
	}

	blockIndex := 0

	if cleaned != "" {
		if err := send("content_block_start", map[string]any{
			"index":         blockIndex,
			"content_block": map[string]any{"type": "text", "text": ""},
		}); err != nil {
			return
		}
		for _, chunk := range responses.ChunkRunes(cleaned, streamChunkSize) {
			if err := send("content_block_delta", map[string]any{
				"index": blockIndex,
				"delta": map[string]any{"type": "text_delta", "text": chunk},
			}); err != nil {
				return
			}
			select {
			case <-time.After(streamChunkDelay):
			case <-ctx.Done():
				return
			}
		}
		if err := send("content_block_stop", map[string]any{"index": blockIndex}); err != nil {
			return
		}
		blockIndex++
	}

	for _, call := range calls {
		block, err := anthropicToolUseBlock(call)
		if err != nil {
			h.logger.Error("Stream aborted", "error", err)
			return
		}
		args, _ := json.Marshal(block["input"])
		block["input"] = map[string]any{}

		if err := send("content_block_start", map[string]any{
			"index":         blockIndex,
			"content_block": block,
		}); err != nil {
			return
		}
		if err := send("content_block_delta", map[string]any{
			"index": blockIndex,
			"delta": map[string]any{"type": "input_json_delta", "partial_json": string(args)},
		}); err != nil {
			return
		}
		if err := send("content_block_stop", map[string]any{"index": blockIndex}); err != nil {
			return
		}
		blockIndex++
	}

	stopReason := "end_turn"
	if len(calls) > 0 {
		stopReason = "tool_use"
	}
	outputTokens := h.counter.CountTokens(cleaned, model)

	if err := send("message_delta", map[string]any{
		"delta": map[string]any{"stop_reason": stopReason, "stop_sequence": nil},
		"usage": map[string]any{"output_tokens": outputTokens},
	}); err != nil {
		return
	}
	_ = send("message_stop", map[string]any{})
}
