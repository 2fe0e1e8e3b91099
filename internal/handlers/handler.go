// Package handlers is the thin forwarding layer between the client-facing
// dialect endpoints and the upstream Argo API. All translation work is
// delegated to the toolcall and responses packages.
package handlers

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/argobridge/argobridge/internal/config"
	"github.com/argobridge/argobridge/internal/tokens"
)

type Handler struct {
	config  *config.Manager
	counter *tokens.Counter
	logger  *slog.Logger
	client  *http.Client
}

func New(config *config.Manager, logger *slog.Logger) *Handler {
	return &Handler{
		config:  config,
		counter: tokens.NewCounter(),
		logger:  logger,
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

// readJSONBody reads and decodes the client request body into a mutable
// map, the working representation for all request surgery.
func (h *Handler) readJSONBody(r *http.Request) (map[string]any, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty request body")
	}

	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("decode request body: %w", err)
	}
	return data, nil
}

// forward posts the prepared request to the upstream, forcing the stream
// flag to the given value on the wire.
func (h *Handler) forward(ctx context.Context, url string, data map[string]any, stream bool) (*http.Response, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal upstream request: %w", err)
	}
	body, err = sjson.SetBytes(body, "stream", stream)
	if err != nil {
		return nil, fmt.Errorf("set stream flag: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/plain")
		req.Header.Set("Accept-Encoding", "identity")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	return resp, nil
}

// decompressReader unwraps gzip and brotli upstream bodies.
func (h *Handler) decompressReader(resp *http.Response) (io.Reader, error) {
	var bodyReader io.Reader = resp.Body

	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		bodyReader = gzipReader
	case "br":
		bodyReader = brotli.NewReader(resp.Body)
	}

	return bodyReader, nil
}

// readUpstreamText reads a non-streaming upstream reply and extracts the
// response text from the Argo envelope.
func (h *Handler) readUpstreamText(resp *http.Response) (string, error) {
	reader, err := h.decompressReader(resp)
	if err != nil {
		return "", err
	}
	if closer, ok := reader.(io.Closer); ok {
		defer closer.Close()
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read upstream response: %w", err)
	}

	text := gjson.GetBytes(body, "response")
	if !text.Exists() {
		return "", fmt.Errorf("upstream response missing response field")
	}
	return text.String(), nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	h.logger.Error("Request error", "status", status, "message", msg)
	h.writeJSON(w, status, map[string]any{"error": msg})
}

// writeUpstreamError surfaces an upstream failure as a single JSON error
// envelope, preserving the upstream status code. Used only before any
// streaming has begun; a partial event sequence is never followed by one.
func (h *Handler) writeUpstreamError(w http.ResponseWriter, resp *http.Response) {
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	h.writeJSON(w, resp.StatusCode, map[string]any{
		"error": fmt.Sprintf("Upstream API error: %d %s", resp.StatusCode, string(body)),
	})
}

func (h *Handler) logVerbose(label string, data map[string]any) {
	if !h.config.Get().Verbose {
		return
	}
	pretty, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return
	}
	h.logger.Debug(label, "payload", string(pretty))
}
