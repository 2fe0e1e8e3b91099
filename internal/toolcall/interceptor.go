package toolcall

import (
	"context"
	"encoding/json"
	"strings"
	"unicode"
)

const (
	openTag  = "<tool_call>"
	closeTag = "</tool_call>"
)

// ParsedToolCall is a tool invocation extracted from a <tool_call> region.
// Name passes through as-is, even when the model omitted it. Arguments may
// be any JSON value including null, or nil when the field was absent.
type ParsedToolCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Event is one output of the streaming scanner: either a completed tool
// call (ToolCall != nil) or a chunk of plain text.
type Event struct {
	ToolCall *ParsedToolCall
	Text     string
}

// Process scans a complete response body for <tool_call> regions.
//
// Well-formed JSON payloads become ParsedToolCalls in order of appearance.
// Malformed payloads are demoted to <invalid>...</invalid> markers in the
// returned text so nothing is silently lost. Content after an unclosed
// <tool_call> is absorbed and dropped. When no tool call was found the
// input is returned unchanged; otherwise the clean text is the remaining
// fragments joined in order, with leading whitespace trimmed.
func Process(text string) ([]ParsedToolCall, string) {
	var (
		toolCalls []ParsedToolCall
		remaining []string
	)

	buf := text
	inToolCall := false
	callBuf := ""

	for buf != "" {
		if !inToolCall {
			start := strings.Index(buf, openTag)
			if start == -1 {
				remaining = append(remaining, buf)
				buf = ""
				continue
			}
			if start > 0 {
				remaining = append(remaining, buf[:start])
			}
			buf = buf[start+len(openTag):]
			inToolCall = true
			callBuf = ""
			continue
		}

		end := strings.Index(buf, closeTag)
		if end == -1 {
			// Unterminated region: absorb the rest, emit nothing.
			callBuf += buf
			buf = ""
			continue
		}

		callBuf += buf[:end]
		if call, ok := parsePayload(callBuf); ok {
			toolCalls = append(toolCalls, call)
		} else {
			remaining = append(remaining, "<invalid>"+callBuf+"</invalid>")
		}
		buf = buf[end+len(closeTag):]
		inToolCall = false
		callBuf = ""
	}

	cleaned := strings.Join(remaining, "")
	if len(toolCalls) == 0 {
		return nil, cleaned
	}
	return toolCalls, strings.TrimLeftFunc(cleaned, unicode.IsSpace)
}

func parsePayload(payload string) (ParsedToolCall, bool) {
	var call ParsedToolCall
	if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &call); err != nil {
		return ParsedToolCall{}, false
	}
	return call, true
}

// StreamScanner is the incremental form of Process. Fragments arrive in
// order through Feed, each returning the events that became unambiguous;
// Flush drains whatever is left once the stream ends. A scanner serves
// exactly one stream and must not be shared or reused.
type StreamScanner struct {
	buf        string
	inToolCall bool
	callBuf    string
}

func NewStreamScanner() *StreamScanner {
	return &StreamScanner{}
}

// Feed folds one fragment into the scanner and returns completed events.
// Text is released as soon as its suffix can no longer be the start of a
// tag; at most len(closeTag)-1 trailing bytes are held back waiting for
// more input.
func (s *StreamScanner) Feed(fragment string) []Event {
	s.buf += fragment

	var events []Event
	for {
		if !s.inToolCall {
			start := strings.Index(s.buf, openTag)
			if start == -1 {
				// Hold back only a suffix that might grow into a tag.
				hold := partialTagStart(s.buf)
				if text := s.buf[:hold]; text != "" {
					events = append(events, Event{Text: text})
				}
				s.buf = s.buf[hold:]
				return events
			}
			if start > 0 {
				events = append(events, Event{Text: s.buf[:start]})
			}
			s.buf = s.buf[start+len(openTag):]
			s.inToolCall = true
			s.callBuf = ""
			continue
		}

		end := strings.Index(s.buf, closeTag)
		if end == -1 {
			hold := partialTagStart(s.buf)
			s.callBuf += s.buf[:hold]
			s.buf = s.buf[hold:]
			return events
		}

		s.callBuf += s.buf[:end]
		if call, ok := parsePayload(s.callBuf); ok {
			events = append(events, Event{ToolCall: &call})
		} else {
			events = append(events, Event{Text: "<invalid>" + s.callBuf + "</invalid>"})
		}
		s.buf = s.buf[end+len(closeTag):]
		s.inToolCall = false
		s.callBuf = ""
	}
}

// Flush ends the stream. An unterminated tool call surfaces as
// <invalid>-wrapped text rather than being dropped; trailing plain text
// is emitted as a final chunk.
func (s *StreamScanner) Flush() []Event {
	if s.inToolCall {
		if s.callBuf != "" || s.buf != "" {
			ev := Event{Text: "<invalid>" + s.callBuf + s.buf + "</invalid>"}
			s.callBuf, s.buf = "", ""
			return []Event{ev}
		}
		return nil
	}
	if s.buf != "" {
		ev := Event{Text: s.buf}
		s.buf = ""
		return []Event{ev}
	}
	return nil
}

// partialTagStart returns the index where the longest suffix of text
// that could still grow into <tool_call> or </tool_call> begins, or
// len(text) when no suffix is ambiguous. At most len(closeTag)-1 bytes
// are ever ambiguous, so the scanner's held-back window is bounded.
func partialTagStart(text string) int {
	max := len(closeTag) - 1
	if len(text) < max {
		max = len(text)
	}
	for i := max; i >= 1; i-- {
		suffix := text[len(text)-i:]
		if strings.HasPrefix(openTag, suffix) || strings.HasPrefix(closeTag, suffix) {
			return len(text) - i
		}
	}
	return len(text)
}

// ProcessStream drives a StreamScanner from a channel of fragments,
// yielding events as they complete. The output channel closes when the
// input closes or ctx is cancelled; cancellation discards any open
// tool-call region rather than force-closing it.
func ProcessStream(ctx context.Context, fragments <-chan string) <-chan Event {
	out := make(chan Event)

	go func() {
		defer close(out)
		scanner := NewStreamScanner()

		emit := func(events []Event) bool {
			for _, ev := range events {
				select {
				case out <- ev:
				case <-ctx.Done():
					return false
				}
			}
			return true
		}

		for {
			select {
			case fragment, ok := <-fragments:
				if !ok {
					emit(scanner.Flush())
					return
				}
				if !emit(scanner.Feed(fragment)) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
