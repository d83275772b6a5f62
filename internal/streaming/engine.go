package streaming

import (
	"context"
	"fmt"

	"github.com/danielchristiancazares/forge-sub003/internal/protocol"
)

// channelCapacity bounds the in-flight event buffer so a slow consumer
// applies backpressure to the provider read loop instead of letting an
// unbounded goroutine pile up chunks in memory.
const channelCapacity = 1024

// Engine drives one provider stream into a bounded, journaled event
// sequence. Errored returns true once any EventError has been observed;
// FinishStreaming refuses to hand back queued tool calls when Errored is
// true, so a stream that died mid-response can never trigger tool
// execution from a partial, unreviewed tail.
type Engine struct {
	events  chan Event
	journal *Journal
	errored bool
	seq     uint64
	toolUse []*protocol.ToolUseBlock
	text    []byte
}

func NewEngine(journal *Journal) *Engine {
	return &Engine{
		events:  make(chan Event, channelCapacity),
		journal: journal,
	}
}

// StreamFunc is a caller-supplied function that drives a provider's
// callback-based stream, invoking onChunk once per chunk the provider
// emits. Callers adapt their own provider interface into this shape at the
// call site, which is what keeps this package free of any dependency on a
// specific provider abstraction.
type StreamFunc func(ctx context.Context, onChunk func(*Chunk) error) error

// Run drives a callback-based stream into the engine's channel, coalesces
// adjacent content deltas, and returns once stream returns (which may be
// before the consumer has drained every queued event).
func (e *Engine) Run(ctx context.Context, stream StreamFunc) error {
	err := stream(ctx, func(chunk *Chunk) error {
		e.seq++
		ev := FromChunk(e.seq, chunk)
		return e.push(ev)
	})
	if err != nil {
		e.push(Event{Sequence: e.seq + 1, Kind: EventError, Err: err})
	}
	close(e.events)
	return err
}

func (e *Engine) push(ev Event) error {
	if e.journal != nil {
		if err := e.journal.Append(ev); err != nil {
			return fmt.Errorf("streaming: journal append failed: %w", err)
		}
	}
	if ev.Kind == EventError {
		e.errored = true
	}
	if ev.Kind == EventToolUse {
		e.toolUse = append(e.toolUse, ev.ToolUse)
	}
	if ev.Kind == EventContentDelta {
		e.text = append(e.text, ev.Delta...)
	}

	// A full channel applies backpressure here rather than dropping the
	// event: losing one would desync the journal from what a consumer
	// actually saw.
	e.events <- ev
	return nil
}

// Events exposes the channel for a consumer to range over as the stream
// progresses (e.g. to update a live terminal render).
func (e *Engine) Events() <-chan Event { return e.events }

// Errored reports whether any EventError has been observed on this stream.
func (e *Engine) Errored() bool { return e.errored }

// Text returns the coalesced content-delta text accumulated so far.
func (e *Engine) Text() string { return string(e.text) }

// ErrStreamErrored is returned by FinishStreaming when the stream observed
// an error event, blocking tool dispatch.
var ErrStreamErrored = fmt.Errorf("streaming: refusing to dispatch tool calls from an errored stream")

// FinishStreaming commits the journal, and returns the queued tool-use
// blocks for dispatch — unless the stream errored, in which case it returns
// ErrStreamErrored and no tool calls, regardless of how many were queued
// before the error. This ordering (check Errored before ever returning
// ToolUse) is the one security-relevant invariant of this type: a
// truncated, error-terminated stream must never cause partial or
// speculative tool execution.
func (e *Engine) FinishStreaming() ([]*protocol.ToolUseBlock, error) {
	if e.journal != nil {
		if err := e.journal.Commit(); err != nil {
			return nil, fmt.Errorf("streaming: journal commit failed: %w", err)
		}
	}
	if e.errored {
		return nil, ErrStreamErrored
	}
	return e.toolUse, nil
}
