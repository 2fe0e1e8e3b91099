package toolcall

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessNoToolCalls(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"plain text", "The answer is 42."},
		{"empty", ""},
		{"leading whitespace preserved", "  indented reply"},
		{"angle brackets that are not tags", "a < b and b > c"},
		{"partial open tag", "text with <tool_cal left hanging"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls, cleaned := Process(tt.input)
			assert.Nil(t, calls)
			assert.Equal(t, tt.input, cleaned)
		})
	}
}

func TestProcessSingleToolCall(t *testing.T) {
	calls, cleaned := Process(`<tool_call>{"name": "add", "arguments": {"a": 1, "b": 2}}</tool_call> done`)

	require.Len(t, calls, 1)
	assert.Equal(t, "add", calls[0].Name)
	assert.JSONEq(t, `{"a": 1, "b": 2}`, string(calls[0].Arguments))
	assert.Equal(t, "done", cleaned)
}

func TestProcessMultipleToolCalls(t *testing.T) {
	input := `first <tool_call>{"name": "a"}</tool_call> middle <tool_call>{"name": "b"}</tool_call> last`

	calls, cleaned := Process(input)

	require.Len(t, calls, 2)
	assert.Equal(t, "a", calls[0].Name)
	assert.Equal(t, "b", calls[1].Name)
	assert.Equal(t, "first  middle  last", cleaned)
}

func TestProcessMalformedPayload(t *testing.T) {
	calls, cleaned := Process(`<tool_call>not json</tool_call>`)

	assert.Nil(t, calls)
	assert.Equal(t, "<invalid>not json</invalid>", cleaned)
}

func TestProcessMalformedBetweenValid(t *testing.T) {
	input := `<tool_call>{"name": "ok"}</tool_call><tool_call>{broken</tool_call>tail`

	calls, cleaned := Process(input)

	require.Len(t, calls, 1)
	assert.Equal(t, "ok", calls[0].Name)
	assert.Equal(t, "<invalid>{broken</invalid>tail", cleaned)
}

func TestProcessUnterminatedRegionDropped(t *testing.T) {
	calls, cleaned := Process(`before <tool_call>{"name": "x"`)

	assert.Nil(t, calls)
	assert.Equal(t, "before ", cleaned)
}

func TestProcessLeadingWhitespaceTrimmedOnlyWithCalls(t *testing.T) {
	calls, cleaned := Process("\n  <tool_call>{\"name\": \"x\"}</tool_call>")
	require.Len(t, calls, 1)
	assert.Equal(t, "", cleaned)

	calls, cleaned = Process("\n  just text")
	assert.Nil(t, calls)
	assert.Equal(t, "\n  just text", cleaned)
}

func TestProcessTrimsUnicodeWhitespace(t *testing.T) {
	// NBSP and ideographic space count as leading whitespace too.
	calls, cleaned := Process(" 　<tool_call>{\"name\": \"x\"}</tool_call> tail")

	require.Len(t, calls, 1)
	assert.Equal(t, "tail", cleaned)
}

func TestProcessArgumentsVariants(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantArgs string
	}{
		{"object", `{"name": "f", "arguments": {"k": "v"}}`, `{"k": "v"}`},
		{"null", `{"name": "f", "arguments": null}`, "null"},
		{"absent", `{"name": "f"}`, ""},
		{"string", `{"name": "f", "arguments": "raw"}`, `"raw"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls, _ := Process("<tool_call>" + tt.payload + "</tool_call>")
			require.Len(t, calls, 1)
			assert.Equal(t, tt.wantArgs, string(calls[0].Arguments))
		})
	}
}

func TestProcessWhitespaceAroundPayload(t *testing.T) {
	calls, cleaned := Process("<tool_call>\n  {\"name\": \"f\"}\n</tool_call>")

	require.Len(t, calls, 1)
	assert.Equal(t, "f", calls[0].Name)
	assert.Equal(t, "", cleaned)
}

func collectEvents(t *testing.T, input string, chunkSize int) []Event {
	t.Helper()
	s := NewStreamScanner()

	var events []Event
	for i := 0; i < len(input); i += chunkSize {
		end := i + chunkSize
		if end > len(input) {
			end = len(input)
		}
		events = append(events, s.Feed(input[i:end])...)
	}
	return append(events, s.Flush()...)
}

// flatten joins a scanned event stream back into comparable form: the
// concatenated text and the tool calls in order.
func flatten(events []Event) (string, []ParsedToolCall) {
	var text string
	var calls []ParsedToolCall
	for _, ev := range events {
		if ev.ToolCall != nil {
			calls = append(calls, *ev.ToolCall)
			continue
		}
		text += ev.Text
	}
	return text, calls
}

func TestStreamScannerRechunkIdempotence(t *testing.T) {
	inputs := []string{
		`plain text, no tags at all`,
		`<tool_call>{"name": "add", "arguments": {"a": 1}}</tool_call> done`,
		`pre <tool_call>{"name": "a"}</tool_call> mid <tool_call>{"name": "b", "arguments": null}</tool_call> post`,
		`<tool_call>broken json</tool_call> after`,
		`text with < stray > brackets and <tool_cal fakeout`,
	}

	for _, input := range inputs {
		whole := collectEvents(t, input, len(input)+1)
		wantText, wantCalls := flatten(whole)

		for _, size := range []int{1, 2, 3, 7, 11, 13} {
			gotText, gotCalls := flatten(collectEvents(t, input, size))
			assert.Equal(t, wantText, gotText, "input %q chunk size %d", input, size)
			assert.Equal(t, wantCalls, gotCalls, "input %q chunk size %d", input, size)
		}
	}
}

func TestStreamScannerTagSplitAcrossFeeds(t *testing.T) {
	s := NewStreamScanner()

	var events []Event
	events = append(events, s.Feed("before <tool_")...)
	events = append(events, s.Feed(`call>{"name": "f"}</tool_`)...)
	events = append(events, s.Feed("call> after")...)
	events = append(events, s.Flush()...)

	text, calls := flatten(events)
	require.Len(t, calls, 1)
	assert.Equal(t, "f", calls[0].Name)
	assert.Equal(t, "before  after", text)
}

func TestStreamScannerHoldsPossibleTagPrefix(t *testing.T) {
	s := NewStreamScanner()

	events := s.Feed("safe text <")
	// The trailing "<" might become a tag, so it is withheld.
	text, _ := flatten(events)
	assert.Equal(t, "safe text ", text)

	events = s.Feed("3 is small")
	text, _ = flatten(events)
	assert.Equal(t, "<3 is small", text)
}

func TestStreamScannerFlushUnterminated(t *testing.T) {
	s := NewStreamScanner()
	s.Feed(`<tool_call>{"name": "x"`)

	events := s.Flush()
	require.Len(t, events, 1)
	assert.Equal(t, `<invalid>{"name": "x"</invalid>`, events[0].Text)
}

func TestStreamScannerFlushEmptyRegion(t *testing.T) {
	s := NewStreamScanner()
	s.Feed("<tool_call>")

	assert.Empty(t, s.Flush())
}

func TestStreamScannerFlushTrailingText(t *testing.T) {
	s := NewStreamScanner()
	s.Feed("ends with <")

	events := s.Flush()
	require.Len(t, events, 1)
	assert.Equal(t, "ends with <", events[0].Text)
}

func TestProcessStreamChannelDriver(t *testing.T) {
	fragments := make(chan string, 3)
	fragments <- "hello <tool_call>"
	fragments <- `{"name": "f"}`
	fragments <- "</tool_call> bye"
	close(fragments)

	var events []Event
	for ev := range ProcessStream(context.Background(), fragments) {
		events = append(events, ev)
	}

	text, calls := flatten(events)
	require.Len(t, calls, 1)
	assert.Equal(t, "f", calls[0].Name)
	assert.Equal(t, "hello  bye", text)
}

func TestProcessStreamCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fragments := make(chan string)

	out := ProcessStream(ctx, fragments)
	cancel()

	_, open := <-out
	assert.False(t, open)
}
