package toolcall

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Strategy-level errors. Parsing problems never surface here; they are
// folded into the scanner's text output instead.
var (
	ErrNotImplemented  = errors.New("not implemented")
	ErrInvalidArgument = errors.New("invalid argument")
)

// APIFormat selects the target dialect for normalized tool calls.
type APIFormat string

const (
	FormatChatCompletion APIFormat = "chat_completion"
	FormatResponse       APIFormat = "response"
)

// ChatToolCall is the chat-completion dialect's tool call object.
type ChatToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ResponseFunctionCall is the Responses dialect's function call item.
type ResponseFunctionCall struct {
	ID        string `json:"id"`
	CallID    string `json:"call_id"`
	Type      string `json:"type"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	Status    string `json:"status"`
}

// ChatToolCallDelta is the streaming variant, carrying the positional
// index clients use to reassemble fragmented calls.
type ChatToolCallDelta struct {
	Index    int          `json:"index"`
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// ToOpenAI converts parsed tool calls into the requested dialect shape,
// assigning each a fresh identifier. There is no error path for the call
// contents themselves: a missing name stays empty, missing arguments
// serialize as the empty string and a JSON null as the string "null".
func ToOpenAI(calls []ParsedToolCall, format APIFormat) ([]any, error) {
	out := make([]any, 0, len(calls))

	for _, call := range calls {
		args := serializeArguments(call.Arguments)

		switch format {
		case FormatChatCompletion:
			id, err := GenerateID(IDModeChatCompletion)
			if err != nil {
				return nil, err
			}
			out = append(out, ChatToolCall{
				ID:   id,
				Type: "function",
				Function: FunctionCall{
					Name:      call.Name,
					Arguments: args,
				},
			})
		case FormatResponse:
			id, err := GenerateID(IDModeResponse)
			if err != nil {
				return nil, err
			}
			callID, err := GenerateID(IDModeChatCompletion)
			if err != nil {
				return nil, err
			}
			out = append(out, ResponseFunctionCall{
				ID:        id,
				CallID:    callID,
				Type:      "function_call",
				Name:      call.Name,
				Arguments: args,
				Status:    "completed",
			})
		default:
			return nil, fmt.Errorf("%w: unknown api format %q", ErrInvalidArgument, format)
		}
	}

	return out, nil
}

// ToOpenAIStreamDelta shapes one tool call as a streaming delta at the
// given index. The Responses dialect has no streaming tool-call delta
// conversion yet; that path reports ErrNotImplemented so the caller can
// route around it.
func ToOpenAIStreamDelta(call ParsedToolCall, index int, format APIFormat) (*ChatToolCallDelta, error) {
	switch format {
	case FormatChatCompletion:
		id, err := GenerateID(IDModeChatCompletion)
		if err != nil {
			return nil, err
		}
		return &ChatToolCallDelta{
			Index: index,
			ID:    id,
			Type:  "function",
			Function: FunctionCall{
				Name:      call.Name,
				Arguments: serializeArguments(call.Arguments),
			},
		}, nil
	case FormatResponse:
		return nil, fmt.Errorf("streaming tool call delta for response format: %w", ErrNotImplemented)
	default:
		return nil, fmt.Errorf("%w: unknown api format %q", ErrInvalidArgument, format)
	}
}

// serializeArguments JSON-encodes the raw arguments value to a string.
// Absent arguments default to the empty string, so the result is `""`;
// an explicit null stays the 4-character string "null".
func serializeArguments(raw json.RawMessage) string {
	if len(raw) == 0 {
		return `""`
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return `""`
	}
	return compact.String()
}
