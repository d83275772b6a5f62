package agent

import "testing"

func TestOperationStateHandlerStartsIdle(t *testing.T) {
	h := NewOperationStateHandler()
	if h.Current() != OpIdle {
		t.Fatalf("expected initial state Idle, got %v", h.Current())
	}
}

func TestOperationStateHandlerValidTransition(t *testing.T) {
	h := NewOperationStateHandler()
	if err := h.Transition(OpStreaming); err != nil {
		t.Fatalf("expected Idle->Streaming to be valid, got %v", err)
	}
	if h.Current() != OpStreaming {
		t.Fatalf("expected state Streaming, got %v", h.Current())
	}
}

func TestOperationStateHandlerRejectsInvalidTransition(t *testing.T) {
	h := NewOperationStateHandler()
	err := h.Transition(OpToolLoop)
	if err == nil {
		t.Fatalf("expected Idle->ToolLoop to be rejected")
	}
	if _, ok := err.(ErrInvalidTransition); !ok {
		t.Fatalf("expected ErrInvalidTransition, got %T", err)
	}
	if h.Current() != OpIdle {
		t.Fatalf("expected state to remain Idle after a rejected transition")
	}
}

func TestOperationStateHandlerToolLoopReachableFromStreaming(t *testing.T) {
	h := NewOperationStateHandler()
	_ = h.Transition(OpStreaming)
	if err := h.Transition(OpToolLoop); err != nil {
		t.Fatalf("expected Streaming->ToolLoop to be valid, got %v", err)
	}
}

func TestOperationStateHandlerCancelInvokesArmedFunc(t *testing.T) {
	h := NewOperationStateHandler()
	_ = h.Transition(OpStreaming)

	called := false
	h.ArmCancel(func() { called = true })

	if err := h.Cancel(); err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}
	if !called {
		t.Fatalf("expected armed cancel func to be invoked")
	}
	if h.Current() != OpRecovery {
		t.Fatalf("expected state Recovery after cancel, got %v", h.Current())
	}
}

func TestOperationStateHandlerCancelFromIdleIsNoop(t *testing.T) {
	h := NewOperationStateHandler()
	if err := h.Cancel(); err != nil {
		t.Fatalf("Cancel from Idle returned error: %v", err)
	}
	if h.Current() != OpIdle {
		t.Fatalf("expected state to remain Idle")
	}
}

func TestOperationStateHandlerResetReturnsToIdle(t *testing.T) {
	h := NewOperationStateHandler()
	_ = h.Transition(OpStreaming)
	_ = h.Transition(OpRecovery)
	h.Reset()
	if h.Current() != OpIdle {
		t.Fatalf("expected Idle after Reset, got %v", h.Current())
	}
}
