// Package sse provides the single outbound primitive the translation core
// needs: write one Server-Sent-Event frame now.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Writer sends one JSON payload per SSE data frame over an
// http.ResponseWriter, flushing after every frame.
type Writer struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func NewWriter(w http.ResponseWriter) *Writer {
	flusher, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: flusher}
}

// Send writes payload as a `data: <json>` frame and flushes it.
func (s *Writer) Send(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sse payload: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write sse frame: %w", err)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// SendEvent writes a named event frame, the Anthropic wire style.
func (s *Writer) SendEvent(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sse payload: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return fmt.Errorf("write sse frame: %w", err)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// SendDone writes the OpenAI-style stream terminator.
func (s *Writer) SendDone() error {
	if _, err := fmt.Fprint(s.w, "data: [DONE]\n\n"); err != nil {
		return fmt.Errorf("write sse terminator: %w", err)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
