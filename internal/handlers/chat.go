package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/argobridge/argobridge/internal/responses"
	"github.com/argobridge/argobridge/internal/sse"
	"github.com/argobridge/argobridge/internal/toolcall"
)

const (
	streamChunkSize  = 20
	streamChunkDelay = 20 * time.Millisecond
)

// ChatCompletions serves the OpenAI Chat Completions dialect.
func (h *Handler) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	data, err := h.readJSONBody(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	h.logVerbose("[chat] input", data)

	stream, _ := data["stream"].(bool)
	delete(data, "stream")

	prepared, err := h.prepareChatRequest(data)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	model, _ := prepared["model"].(string)
	promptTokens := h.counter.CalculatePromptTokens(prepared, model)

	if stream {
		h.streamChat(w, r, prepared, model, promptTokens)
		return
	}
	h.completeChat(w, r, prepared, model, promptTokens)
}

func (h *Handler) completeChat(w http.ResponseWriter, r *http.Request, data map[string]any, model string, promptTokens int) {
	resp, err := h.forward(r.Context(), h.config.Get().ArgoURL, data, false)
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

	message := map[string]any{
		"role":    "assistant",
		"content": cleaned,
	}
	finishReason := "stop"
	if len(calls) > 0 {
		normalized, err := toolcall.ToOpenAI(calls, toolcall.FormatChatCompletion)
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, "normalize tool calls: %v", err)
			return
		}
		message["tool_calls"] = normalized
		finishReason = "tool_calls"
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"id":      "chatcmpl-" + responses.NewHexID(),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []any{
			map[string]any{
				"index":         0,
				"message":       message,
				"finish_reason": finishReason,
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
			"total_tokens":      promptTokens + completionTokens,
		},
	})
}

// streamChat serves a streaming chat response. With a streaming upstream
// each network chunk is scanned and re-emitted as it arrives; without one
// the complete reply is chopped into fixed-size chunks at a fixed cadence.
func (h *Handler) streamChat(w http.ResponseWriter, r *http.Request, data map[string]any, model string, promptTokens int) {
	cfg := h.config.Get()

	if cfg.ArgoStreamURL != "" {
		h.streamChatLive(w, r, data, model, promptTokens)
		return
	}
	h.streamChatFake(w, r, data, model, promptTokens)
}

func (h *Handler) streamChatLive(w http.ResponseWriter, r *http.Request, data map[string]any, model string, promptTokens int) {
	resp, err := h.forward(r.Context(), h.config.Get().ArgoStreamURL, data, true)
	if err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "%v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		h.writeUpstreamError(w, resp)
		return
	}

	reader, err := h.decompressReader(resp)
	if err != nil {
		h.writeError(w, http.StatusBadGateway, "%v", err)
		return
	}

	emitter, err := h.newChatEmitter(w, model)
	if err != nil {
		return
	}

	scanner := toolcall.NewStreamScanner()
	buf := make([]byte, 4096)
	for {
		n, readErr := reader.Read(buf)
		if n > 0 {
			if err := emitter.emitAll(scanner.Feed(string(buf[:n]))); err != nil {
				h.logger.Error("Stream write failed", "error", err)
				return
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			// Mid-stream upstream failure: stop emitting, close the
			// connection. Buffered partial state is discarded.
			h.logger.Error("Upstream stream failed", "error", readErr)
			return
		}
	}
	if err := emitter.emitAll(scanner.Flush()); err != nil {
		h.logger.Error("Stream write failed", "error", err)
		return
	}

	emitter.finish(h.counter, promptTokens)
}

func (h *Handler) streamChatFake(w http.ResponseWriter, r *http.Request, data map[string]any, model string, promptTokens int) {
	resp, err := h.forward(r.Context(), h.config.Get().ArgoURL, data, false)
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

	emitter, err := h.newChatEmitter(w, model)
	if err != nil {
		return
	}

	ctx := r.Context()
	for _, chunk := range responses.ChunkRunes(cleaned, streamChunkSize) {
		if err := emitter.emitText(chunk); err != nil {
			h.logger.Error("Stream write failed", "error", err)
			return
		}

		select {
		case <-time.After(streamChunkDelay):
		case <-ctx.Done():
			return
		}
	}

	for _, call := range calls {
		if err := emitter.emitToolCall(call); err != nil {
			h.logger.Error("Stream write failed", "error", err)
			return
		}
	}

	emitter.finish(h.counter, promptTokens)
}

// chatEmitter shapes scanner events as chat.completion.chunk SSE frames.
type chatEmitter struct {
	writer    *sse.Writer
	id        string
	model     string
	created   int64
	toolIndex int
	cumulated strings.Builder
}

func (h *Handler) newChatEmitter(w http.ResponseWriter, model string) (*chatEmitter, error) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	e := &chatEmitter{
		writer:  sse.NewWriter(w),
		id:      "chatcmpl-" + responses.NewHexID(),
		model:   model,
		created: time.Now().Unix(),
	}

	// Opening chunk carries the assistant role.
	if err := e.send(map[string]any{"role": "assistant", "content": ""}, nil); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *chatEmitter) send(delta map[string]any, extra map[string]any) error {
	chunk := map[string]any{
		"id":      e.id,
		"object":  "chat.completion.chunk",
		"created": e.created,
		"model":   e.model,
		"choices": []any{
			map[string]any{
				"index":         0,
				"delta":         delta,
				"finish_reason": nil,
			},
		},
	}
	for k, v := range extra {
		chunk[k] = v
	}
	return e.writer.Send(chunk)
}

func (e *chatEmitter) emitAll(events []toolcall.Event) error {
	for _, ev := range events {
		if ev.ToolCall != nil {
			if err := e.emitToolCall(*ev.ToolCall); err != nil {
				return err
			}
			continue
		}
		if err := e.emitText(ev.Text); err != nil {
			return err
		}
	}
	return nil
}

func (e *chatEmitter) emitText(text string) error {
	if text == "" {
		return nil
	}
	e.cumulated.WriteString(text)
	return e.send(map[string]any{"content": text}, nil)
}

func (e *chatEmitter) emitToolCall(call toolcall.ParsedToolCall) error {
	delta, err := toolcall.ToOpenAIStreamDelta(call, e.toolIndex, toolcall.FormatChatCompletion)
	if err != nil {
		return err
	}
	e.toolIndex++
	return e.send(map[string]any{"tool_calls": []any{delta}}, nil)
}

// finish sends the terminal chunk with finish_reason and usage, then the
// [DONE] marker.
func (e *chatEmitter) finish(counter interface {
	CountTokens(text, model string) int
}, promptTokens int,
) {
	finishReason := "stop"
	if e.toolIndex > 0 {
		finishReason = "tool_calls"
	}

	completionTokens := counter.CountTokens(e.cumulated.String(), e.model)
	final := map[string]any{
		"id":      e.id,
		"object":  "chat.completion.chunk",
		"created": e.created,
		"model":   e.model,
		"choices": []any{
			map[string]any{
				"index":         0,
				"delta":         map[string]any{},
				"finish_reason": finishReason,
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
			"total_tokens":      promptTokens + completionTokens,
		},
	}

	if err := e.writer.Send(final); err != nil {
		return
	}
	_ = e.writer.SendDone()
}

