// Package responses implements the OpenAI Responses dialect: the response
// envelope, the streaming event sequence, and the sequencer that drives a
// live connection through it.
package responses

// Usage is the token accounting attached to a completed response.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// OutputText is one text content part of an output message.
type OutputText struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	Annotations []any  `json:"annotations"`
}

func NewOutputText(text string) OutputText {
	return OutputText{Type: "output_text", Text: text, Annotations: []any{}}
}

// OutputMessage is the assistant message item inside a response's output.
type OutputMessage struct {
	ID      string       `json:"id"`
	Type    string       `json:"type"`
	Role    string       `json:"role"`
	Status  string       `json:"status"`
	Content []OutputText `json:"content"`
}

// Envelope is the response object itself. Output holds OutputMessage and
// function-call items; it stays heterogeneous because tool calls and
// messages share the array.
type Envelope struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	CreatedAt int64  `json:"created_at"`
	Model     string `json:"model"`
	Status    string `json:"status"`
	Output    []any  `json:"output"`
	Usage     *Usage `json:"usage,omitempty"`
}

// Streaming protocol events. Field names and nesting follow the published
// Responses streaming schema; client SDKs parse these structurally.

type CreatedEvent struct {
	Type           string    `json:"type"`
	Response       *Envelope `json:"response"`
	SequenceNumber int       `json:"sequence_number"`
}

type InProgressEvent struct {
	Type           string    `json:"type"`
	Response       *Envelope `json:"response"`
	SequenceNumber int       `json:"sequence_number"`
}

type OutputItemAddedEvent struct {
	Type           string         `json:"type"`
	OutputIndex    int            `json:"output_index"`
	Item           *OutputMessage `json:"item"`
	SequenceNumber int            `json:"sequence_number"`
}

type ContentPartAddedEvent struct {
	Type           string     `json:"type"`
	ItemID         string     `json:"item_id"`
	OutputIndex    int        `json:"output_index"`
	ContentIndex   int        `json:"content_index"`
	Part           OutputText `json:"part"`
	SequenceNumber int        `json:"sequence_number"`
}

type TextDeltaEvent struct {
	Type           string `json:"type"`
	ItemID         string `json:"item_id"`
	OutputIndex    int    `json:"output_index"`
	ContentIndex   int    `json:"content_index"`
	Delta          string `json:"delta"`
	SequenceNumber int    `json:"sequence_number"`
}

type TextDoneEvent struct {
	Type           string `json:"type"`
	ItemID         string `json:"item_id"`
	OutputIndex    int    `json:"output_index"`
	ContentIndex   int    `json:"content_index"`
	Text           string `json:"text"`
	SequenceNumber int    `json:"sequence_number"`
}

type ContentPartDoneEvent struct {
	Type           string     `json:"type"`
	ItemID         string     `json:"item_id"`
	OutputIndex    int        `json:"output_index"`
	ContentIndex   int        `json:"content_index"`
	Part           OutputText `json:"part"`
	SequenceNumber int        `json:"sequence_number"`
}

type OutputItemDoneEvent struct {
	Type           string         `json:"type"`
	OutputIndex    int            `json:"output_index"`
	Item           *OutputMessage `json:"item"`
	SequenceNumber int            `json:"sequence_number"`
}

type CompletedEvent struct {
	Type           string    `json:"type"`
	Response       *Envelope `json:"response"`
	SequenceNumber int       `json:"sequence_number"`
}
