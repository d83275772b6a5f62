package streaming

import (
	"context"
	"errors"
	"testing"

	"github.com/danielchristiancazares/forge-sub003/internal/protocol"
)

// stubStream adapts a fixed slice of Chunks into a StreamFunc, the way
// agent.Controller adapts a real provider's ChatStream callback.
func stubStream(chunks []*Chunk, err error) StreamFunc {
	return func(ctx context.Context, onChunk func(*Chunk) error) error {
		for _, c := range chunks {
			if cbErr := onChunk(c); cbErr != nil {
				return cbErr
			}
		}
		return err
	}
}

func drainEngine(e *Engine) {
	for range e.Events() {
	}
}

func TestEngineCoalescesTextAcrossDeltas(t *testing.T) {
	stream := stubStream([]*Chunk{
		{Delta: "hello "},
		{Delta: "world"},
	}, nil)
	e := NewEngine(nil)
	done := make(chan struct{})
	go func() { drainEngine(e); close(done) }()

	if err := e.Run(context.Background(), stream); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	<-done

	if e.Text() != "hello world" {
		t.Fatalf("expected coalesced text, got %q", e.Text())
	}
}

func TestFinishStreamingReturnsToolUseOnCleanStream(t *testing.T) {
	stream := stubStream([]*Chunk{
		{ToolUse: &protocol.ToolUseBlock{ID: "t1", Name: "read_file"}},
	}, nil)
	e := NewEngine(nil)
	go drainEngine(e)

	if err := e.Run(context.Background(), stream); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	calls, err := e.FinishStreaming()
	if err != nil {
		t.Fatalf("FinishStreaming returned error: %v", err)
	}
	if len(calls) != 1 || calls[0].Name != "read_file" {
		t.Fatalf("expected one queued tool call, got %+v", calls)
	}
}

func TestFinishStreamingBlocksToolDispatchAfterError(t *testing.T) {
	stream := stubStream([]*Chunk{
		{ToolUse: &protocol.ToolUseBlock{ID: "t1", Name: "read_file"}},
	}, errors.New("connection reset"))
	e := NewEngine(nil)
	go drainEngine(e)

	_ = e.Run(context.Background(), stream)

	calls, err := e.FinishStreaming()
	if err != ErrStreamErrored {
		t.Fatalf("expected ErrStreamErrored, got %v", err)
	}
	if calls != nil {
		t.Fatalf("expected no tool calls returned on an errored stream, got %+v", calls)
	}
}
