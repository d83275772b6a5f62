// Package streaming runs a provider's token stream through a bounded event
// channel, coalesces adjacent text deltas, and journals every event to disk
// so an interrupted turn can be resumed or at least accounted for instead of
// silently losing output.
package streaming

import (
	"github.com/danielchristiancazares/forge-sub003/internal/protocol"
	"github.com/danielchristiancazares/forge-sub003/internal/sanitize"
)

// EventKind discriminates the wire-agnostic events the engine emits,
// independent of which provider (Anthropic/OpenAI/Gemini) produced them.
type EventKind int

const (
	EventContentDelta EventKind = iota
	EventReasoningDelta
	EventToolUse
	EventMessageStop
	EventError
)

// Event is the provider-agnostic unit the engine moves through its channel
// and journal. Sequence is monotonically increasing within one stream and
// is what the journal uses to detect gaps after a crash.
type Event struct {
	Sequence       uint64
	Kind           EventKind
	Delta          string
	ReasoningDelta string
	ToolUse        *protocol.ToolUseBlock
	StopReason     string
	Err            error
}

// Chunk is the minimal provider-stream unit the engine consumes. It
// mirrors the shape of whatever concrete stream-chunk type a caller's
// provider abstraction uses, without the streaming package depending on
// that package — callers adapt their own chunk type into a Chunk at the
// call site (see agent.Controller's use of Engine.Run).
type Chunk struct {
	Delta          string
	ReasoningDelta string
	ToolUse        *protocol.ToolUseBlock
	StopReason     string
}

// FromChunk adapts a provider chunk into an Event, assigning it the given
// sequence number. Text deltas are run through SanitizeTerminalText before
// they leave the engine, so a provider that echoes raw control bytes or
// ANSI sequences back at us can never reach the journal or the UI.
func FromChunk(seq uint64, chunk *Chunk) Event {
	ev := Event{Sequence: seq}
	switch {
	case chunk.ToolUse != nil:
		ev.Kind = EventToolUse
		ev.ToolUse = chunk.ToolUse
	case chunk.StopReason != "":
		ev.Kind = EventMessageStop
		ev.StopReason = chunk.StopReason
	case chunk.ReasoningDelta != "":
		ev.Kind = EventReasoningDelta
		ev.ReasoningDelta = sanitize.SanitizeTerminalText(chunk.ReasoningDelta)
	default:
		ev.Kind = EventContentDelta
		ev.Delta = sanitize.SanitizeTerminalText(chunk.Delta)
	}
	return ev
}
