package handlers

import (
	"net/http"
	"time"

	"github.com/argobridge/argobridge/internal/responses"
	"github.com/argobridge/argobridge/internal/sse"
)

// Completions serves the legacy text-completions dialect. Tool calls do
// not exist in this shape, so the reply text is forwarded untouched.
func (h *Handler) Completions(w http.ResponseWriter, r *http.Request) {
	data, err := h.readJSONBody(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	h.logVerbose("[completions] input", data)

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

	if stream {
		h.streamCompletions(w, r, model, text)
		return
	}

	completionTokens := h.counter.CountTokens(text, model)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"id":      "cmpl-" + responses.NewHexID(),
		"object":  "text_completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []any{
			map[string]any{
				"index":         0,
				"text":          text,
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
			"total_tokens":      promptTokens + completionTokens,
		},
	})
}

func (h *Handler) streamCompletions(w http.ResponseWriter, r *http.Request, model, text string) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writer := newCompletionChunkWriter(w, model)
	ctx := r.Context()

	for _, chunk := range responses.ChunkRunes(text, streamChunkSize) {
		if err := writer.send(chunk, nil); err != nil {
			h.logger.Error("Stream write failed", "error", err)
			return
		}

		select {
		case <-time.After(streamChunkDelay):
		case <-ctx.Done():
			return
		}
	}

	if err := writer.send("", "stop"); err != nil {
		return
	}
	_ = writer.out.SendDone()
}

type completionChunkWriter struct {
	out     *sse.Writer
	id      string
	model   string
	created int64
}

func newCompletionChunkWriter(w http.ResponseWriter, model string) *completionChunkWriter {
	return &completionChunkWriter{
		out:     sse.NewWriter(w),
		id:      "cmpl-" + responses.NewHexID(),
		model:   model,
		created: time.Now().Unix(),
	}
}

func (c *completionChunkWriter) send(text string, finishReason any) error {
	return c.out.Send(map[string]any{
		"id":      c.id,
		"object":  "text_completion",
		"created": c.created,
		"model":   c.model,
		"choices": []any{
			map[string]any{
				"index":         0,
				"text":          text,
				"finish_reason": finishReason,
			},
		},
	})
}
