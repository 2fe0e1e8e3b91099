package responses

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Fake streaming slices a fully-received upstream reply into fixed-size
// chunks with a small delay so clients see a live stream.
const (
	fakeChunkSize  = 20
	fakeChunkDelay = 20 * time.Millisecond
)

// Sender writes one protocol event frame to the client now. The sequencer
// does not manage the underlying transport.
type Sender interface {
	Send(payload any) error
}

// TokenCounter populates the usage summary at completion.
type TokenCounter interface {
	CountTokens(text, model string) int
}

// Sequencer drives one streamed response through the fixed event order:
// created, in_progress, output_item.added, content_part.added, zero or
// more output_text.delta, output_text.done, content_part.done,
// output_item.done, completed. Every event carries the next value of a
// strictly increasing sequence number starting at zero. A sequencer
// serves exactly one response.
type Sequencer struct {
	sender       Sender
	counter      TokenCounter
	model        string
	promptTokens int

	seq         int
	envelope    *Envelope
	message     *OutputMessage
	extraOutput []any
}

func NewSequencer(model string, promptTokens int, counter TokenCounter, sender Sender) *Sequencer {
	return &Sequencer{
		sender:       sender,
		counter:      counter,
		model:        model,
		promptTokens: promptTokens,
	}
}

// AppendOutput queues extra output items, such as function calls, that
// the completed envelope lists after the text message.
func (s *Sequencer) AppendOutput(items ...any) {
	s.extraOutput = append(s.extraOutput, items...)
}

func (s *Sequencer) next() int {
	n := s.seq
	s.seq++
	return n
}

// NewHexID returns a fresh 32-char lowercase hex identifier tail, used
// with the resp_/msg_ style prefixes.
func NewHexID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// start emits the four preamble events and sets up the envelope and the
// output message placeholder.
func (s *Sequencer) start() error {
	id := NewHexID()
	s.envelope = &Envelope{
		ID:        "resp_" + id,
		Object:    "response",
		CreatedAt: time.Now().Unix(),
		Model:     s.model,
		Status:    "in_progress",
		Output:    []any{},
	}

	if err := s.sender.Send(CreatedEvent{
		Type:           "response.created",
		Response:       s.envelope,
		SequenceNumber: s.next(),
	}); err != nil {
		return fmt.Errorf("send response.created: %w", err)
	}

	// Carries nothing new, but the wire contract requires both events.
	if err := s.sender.Send(InProgressEvent{
		Type:           "response.in_progress",
		Response:       s.envelope,
		SequenceNumber: s.next(),
	}); err != nil {
		return fmt.Errorf("send response.in_progress: %w", err)
	}

	s.message = &OutputMessage{
		ID:      "msg_" + id,
		Type:    "message",
		Role:    "assistant",
		Status:  "in_progress",
		Content: []OutputText{},
	}
	if err := s.sender.Send(OutputItemAddedEvent{
		Type:           "response.output_item.added",
		OutputIndex:    0,
		Item:           s.message,
		SequenceNumber: s.next(),
	}); err != nil {
		return fmt.Errorf("send response.output_item.added: %w", err)
	}

	if err := s.sender.Send(ContentPartAddedEvent{
		Type:           "response.content_part.added",
		ItemID:         s.message.ID,
		OutputIndex:    0,
		ContentIndex:   0,
		Part:           NewOutputText(""),
		SequenceNumber: s.next(),
	}); err != nil {
		return fmt.Errorf("send response.content_part.added: %w", err)
	}

	return nil
}

func (s *Sequencer) delta(text string) error {
	if err := s.sender.Send(TextDeltaEvent{
		Type:           "response.output_text.delta",
		ItemID:         s.message.ID,
		OutputIndex:    0,
		ContentIndex:   0,
		Delta:          text,
		SequenceNumber: s.next(),
	}); err != nil {
		return fmt.Errorf("send response.output_text.delta: %w", err)
	}
	return nil
}

// finish emits the four postamble events, mutating the envelope into its
// completed form and populating usage.
func (s *Sequencer) finish(cumulated string) error {
	if err := s.sender.Send(TextDoneEvent{
		Type:           "response.output_text.done",
		ItemID:         s.message.ID,
		OutputIndex:    0,
		ContentIndex:   0,
		Text:           cumulated,
		SequenceNumber: s.next(),
	}); err != nil {
		return fmt.Errorf("send response.output_text.done: %w", err)
	}

	part := NewOutputText(cumulated)
	if err := s.sender.Send(ContentPartDoneEvent{
		Type:           "response.content_part.done",
		ItemID:         s.message.ID,
		OutputIndex:    0,
		ContentIndex:   0,
		Part:           part,
		SequenceNumber: s.next(),
	}); err != nil {
		return fmt.Errorf("send response.content_part.done: %w", err)
	}

	s.message.Content = []OutputText{part}
	s.message.Status = "completed"
	if err := s.sender.Send(OutputItemDoneEvent{
		Type:           "response.output_item.done",
		OutputIndex:    0,
		Item:           s.message,
		SequenceNumber: s.next(),
	}); err != nil {
		return fmt.Errorf("send response.output_item.done: %w", err)
	}

	outputTokens := s.counter.CountTokens(cumulated, s.model)
	s.envelope.Output = append(s.envelope.Output, s.message)
	s.envelope.Output = append(s.envelope.Output, s.extraOutput...)
	s.envelope.Status = "completed"
	s.envelope.Usage = &Usage{
		InputTokens:  s.promptTokens,
		OutputTokens: outputTokens,
		TotalTokens:  s.promptTokens + outputTokens,
	}
	if err := s.sender.Send(CompletedEvent{
		Type:           "response.completed",
		Response:       s.envelope,
		SequenceNumber: s.next(),
	}); err != nil {
		return fmt.Errorf("send response.completed: %w", err)
	}

	return nil
}

// Run streams live upstream fragments: each received chunk becomes
// exactly one delta event, with no delay injected by this layer.
// Cancellation stops emission immediately; no partial postamble is sent.
func (s *Sequencer) Run(ctx context.Context, fragments <-chan string) error {
	if err := s.start(); err != nil {
		return err
	}

	var cumulated strings.Builder
	for {
		select {
		case fragment, ok := <-fragments:
			if !ok {
				return s.finish(cumulated.String())
			}
			cumulated.WriteString(fragment)
			if err := s.delta(fragment); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunFake chops one already-complete upstream reply into fixed-size
// chunks at a fixed cadence to simulate a live stream. Chunking is by
// rune so a multi-byte character never straddles a delta boundary.
func (s *Sequencer) RunFake(ctx context.Context, text string) error {
	if err := s.start(); err != nil {
		return err
	}

	for _, chunk := range ChunkRunes(text, fakeChunkSize) {
		if err := s.delta(chunk); err != nil {
			return err
		}

		select {
		case <-time.After(fakeChunkDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return s.finish(text)
}

// ChunkRunes splits text into pieces of at most size runes, keeping
// every character intact across piece boundaries.
func ChunkRunes(text string, size int) []string {
	runes := []rune(text)

	var chunks []string
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
