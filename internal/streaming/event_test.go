package streaming

import (
	"testing"

	"github.com/danielchristiancazares/forge-sub003/internal/protocol"
)

func TestFromChunkClassifiesContentDelta(t *testing.T) {
	ev := FromChunk(1, &Chunk{Delta: "hello"})
	if ev.Kind != EventContentDelta || ev.Delta != "hello" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestFromChunkClassifiesReasoningDelta(t *testing.T) {
	ev := FromChunk(1, &Chunk{ReasoningDelta: "thinking..."})
	if ev.Kind != EventReasoningDelta || ev.ReasoningDelta != "thinking..." {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestFromChunkClassifiesToolUse(t *testing.T) {
	chunk := &Chunk{ToolUse: &protocol.ToolUseBlock{ID: "t1", Name: "read_file"}}
	ev := FromChunk(1, chunk)
	if ev.Kind != EventToolUse || ev.ToolUse.Name != "read_file" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestFromChunkClassifiesMessageStop(t *testing.T) {
	ev := FromChunk(1, &Chunk{StopReason: "end_turn"})
	if ev.Kind != EventMessageStop || ev.StopReason != "end_turn" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}
