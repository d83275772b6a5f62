package agent

import (
	"fmt"
	"sync"
	"time"
)

// OperationState is the top-level state of one turn's lifecycle, mirroring
// the state machine every tool-call loop, approval prompt, and plan
// approval must be a transition out of Idle and eventually back into it.
type OperationState int

const (
	OpIdle OperationState = iota
	OpStreaming
	OpToolLoop
	OpApproval
	OpPlanApproval
	OpRecovery
)

func (s OperationState) String() string {
	switch s {
	case OpIdle:
		return "idle"
	case OpStreaming:
		return "streaming"
	case OpToolLoop:
		return "tool_loop"
	case OpApproval:
		return "approval"
	case OpPlanApproval:
		return "plan_approval"
	case OpRecovery:
		return "recovery"
	default:
		return "unknown"
	}
}

// validTransitions enumerates the edges a Transition call is allowed to
// take. Idle is reachable from every state (cancellation/completion always
// gets you home); OpRecovery is reachable from every non-idle state (a
// failure at any point in the loop routes through recovery before Idle).
var validTransitions = map[OperationState]map[OperationState]bool{
	OpIdle: {
		OpStreaming: true,
	},
	OpStreaming: {
		OpToolLoop:     true,
		OpApproval:     true,
		OpPlanApproval: true,
		OpIdle:         true,
		OpRecovery:     true,
	},
	OpToolLoop: {
		OpStreaming: true,
		OpApproval:  true,
		OpIdle:      true,
		OpRecovery:  true,
	},
	OpApproval: {
		OpToolLoop: true,
		OpIdle:     true,
		OpRecovery: true,
	},
	OpPlanApproval: {
		OpStreaming: true,
		OpIdle:      true,
		OpRecovery:  true,
	},
	OpRecovery: {
		OpIdle: true,
	},
}

// ErrInvalidTransition is returned when a requested state change is not a
// valid edge in the operation state machine.
type ErrInvalidTransition struct {
	From, To OperationState
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("agent: invalid operation state transition %s -> %s", e.From, e.To)
}

// OperationStateHandler tracks the current OperationState with the same
// mutex-guarded idiom MessageStateHandler uses for the message log, kept
// separate so state reads never block on a message-log write or vice versa.
type OperationStateHandler struct {
	mu        sync.RWMutex
	state     OperationState
	updatedAt time.Time
	cancel    func()
}

func NewOperationStateHandler() *OperationStateHandler {
	return &OperationStateHandler{state: OpIdle, updatedAt: time.Now()}
}

// Current returns the current state.
func (h *OperationStateHandler) Current() OperationState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// Transition moves to `to` if the edge from the current state is valid,
// otherwise returns ErrInvalidTransition without changing state.
func (h *OperationStateHandler) Transition(to OperationState) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	edges, ok := validTransitions[h.state]
	if !ok || !edges[to] {
		return ErrInvalidTransition{From: h.state, To: to}
	}
	h.state = to
	h.updatedAt = time.Now()
	return nil
}

// ArmCancel records the cancel func for the in-flight turn, so Cancel can
// invoke it without the caller threading a context.CancelFunc through every
// layer of the orchestrator.
func (h *OperationStateHandler) ArmCancel(cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancel = cancel
}

// Cancel invokes the armed cancel func, if any, and transitions to
// Recovery — a cancellation is always treated as an abnormal exit from
// whatever state the turn was in, never a silent return to Idle, so the
// caller gets a chance to clean up (e.g. roll back a partial tool write)
// before the next turn starts.
func (h *OperationStateHandler) Cancel() error {
	h.mu.Lock()
	cancel := h.cancel
	h.cancel = nil
	current := h.state
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if current == OpIdle {
		return nil
	}
	return h.Transition(OpRecovery)
}

// Reset forces the handler back to Idle unconditionally, used once
// recovery cleanup has finished.
func (h *OperationStateHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = OpIdle
	h.cancel = nil
	h.updatedAt = time.Now()
}

func (h *OperationStateHandler) UpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.updatedAt
}
