package handlers

import (
	"net/http"
	"time"

	"github.com/argobridge/argobridge/internal/responses"
	"github.com/argobridge/argobridge/internal/sse"
	"github.com/argobridge/argobridge/internal/toolcall"
)

// Responses serves the OpenAI Responses dialect. Streaming here is always
// synthesized from the complete upstream reply.
func (h *Handler) Responses(w http.ResponseWriter, r *http.Request) {
	data, err := h.readJSONBody(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "%v", err)
		return
	}
	h.logVerbose("[responses] input", data)

	stream, _ := data["stream"].(bool)
	delete(data, "stream")

	prepared, err := h.prepareResponsesRequest(data)
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
	normalized, err := toolcall.ToOpenAI(calls, toolcall.FormatResponse)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "normalize tool calls: %v", err)
		return
	}

	if stream {
		h.streamResponses(w, r, model, promptTokens, cleaned, normalized)
		return
	}

	completionTokens := h.counter.CountTokens(text, model)
	part := responses.NewOutputText(cleaned)
	message := &responses.OutputMessage{
		ID:      "msg_" + responses.NewHexID(),
		Type:    "message",
		Role:    "assistant",
		Status:  "completed",
		Content: []responses.OutputText{part},
	}

	output := []any{message}
	output = append(output, normalized...)

	h.writeJSON(w, http.StatusOK, responses.Envelope{
		ID:        "resp_" + responses.NewHexID(),
		Object:    "response",
		CreatedAt: time.Now().Unix(),
		Model:     model,
		Status:    "completed",
		Output:    output,
		Usage: &responses.Usage{
			InputTokens:  promptTokens,
			OutputTokens: completionTokens,
			TotalTokens:  promptTokens + completionTokens,
		},
	})
}

func (h *Handler) streamResponses(w http.ResponseWriter, r *http.Request, model string, promptTokens int, cleaned string, calls []any) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	seq := responses.NewSequencer(model, promptTokens, h.counter, sse.NewWriter(w))
	seq.AppendOutput(calls...)
	if err := seq.RunFake(r.Context(), cleaned); err != nil {
		// Mid-stream failure: stop emitting and let the connection close.
		h.logger.Error("Response stream aborted", "error", err)
	}
}
