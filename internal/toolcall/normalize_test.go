package toolcall

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToOpenAIChatCompletionFormat(t *testing.T) {
	calls := []ParsedToolCall{
		{Name: "add", Arguments: json.RawMessage(`{"a": 1}`)},
		{Name: "sub", Arguments: json.RawMessage(`{"b": 2}`)},
	}

	out, err := ToOpenAI(calls, FormatChatCompletion)
	require.NoError(t, err)
	require.Len(t, out, 2)

	first, ok := out[0].(ChatToolCall)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(first.ID, "call_"))
	assert.Equal(t, "function", first.Type)
	assert.Equal(t, "add", first.Function.Name)
	assert.Equal(t, `{"a":1}`, first.Function.Arguments)

	second := out[1].(ChatToolCall)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestToOpenAIResponseFormat(t *testing.T) {
	out, err := ToOpenAI([]ParsedToolCall{{Name: "lookup"}}, FormatResponse)
	require.NoError(t, err)
	require.Len(t, out, 1)

	fc, ok := out[0].(ResponseFunctionCall)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(fc.ID, "fc_"))
	assert.True(t, strings.HasPrefix(fc.CallID, "call_"))
	assert.Equal(t, "function_call", fc.Type)
	assert.Equal(t, "lookup", fc.Name)
	assert.Equal(t, `""`, fc.Arguments)
	assert.Equal(t, "completed", fc.Status)
}

func TestToOpenAIUnknownFormat(t *testing.T) {
	_, err := ToOpenAI([]ParsedToolCall{{Name: "x"}}, APIFormat("bogus"))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestToOpenAIEmptyInput(t *testing.T) {
	out, err := ToOpenAI(nil, FormatChatCompletion)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSerializeArguments(t *testing.T) {
	tests := []struct {
		name string
		raw  json.RawMessage
		want string
	}{
		{"absent", nil, `""`},
		{"null", json.RawMessage("null"), "null"},
		{"object compacted", json.RawMessage(`{ "a" : 1 }`), `{"a":1}`},
		{"string value", json.RawMessage(`"text"`), `"text"`},
		{"array", json.RawMessage(`[1, 2]`), `[1,2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serializeArguments(tt.raw))
		})
	}
}

func TestToOpenAIStreamDelta(t *testing.T) {
	call := ParsedToolCall{Name: "f", Arguments: json.RawMessage(`{"x": true}`)}

	delta, err := ToOpenAIStreamDelta(call, 3, FormatChatCompletion)
	require.NoError(t, err)
	assert.Equal(t, 3, delta.Index)
	assert.True(t, strings.HasPrefix(delta.ID, "call_"))
	assert.Equal(t, "function", delta.Type)
	assert.Equal(t, "f", delta.Function.Name)
	assert.Equal(t, `{"x":true}`, delta.Function.Arguments)
}

func TestToOpenAIStreamDeltaResponseFormatNotImplemented(t *testing.T) {
	_, err := ToOpenAIStreamDelta(ParsedToolCall{Name: "f"}, 0, FormatResponse)
	assert.ErrorIs(t, err, ErrNotImplemented)
}
