package plan

import (
	"testing"

	"github.com/danielchristiancazares/forge-sub003/internal/checkpoints"
)

func newTestManager() *Manager {
	return NewManager(checkpoints.NewStore(10))
}

func TestRequestCreateThenResolveActivatesPlan(t *testing.T) {
	m := newTestManager()
	pending, err := m.RequestCreate([]PhaseInput{
		{Name: "phase-1", Steps: []StepInput{{Description: "a"}}},
	})
	if err != nil {
		t.Fatalf("RequestCreate returned error: %v", err)
	}
	if err := m.ResolveApproval(pending, 0); err != nil {
		t.Fatalf("ResolveApproval returned error: %v", err)
	}
	if m.Active() == nil {
		t.Fatalf("expected an active plan after approval")
	}
	if m.Active().Phases[0].Steps[0].Status != StepActive {
		t.Fatalf("expected first step auto-activated on create")
	}
}

func TestRequestCreateRejectedWhileAnotherPlanActive(t *testing.T) {
	m := newTestManager()
	pending, _ := m.RequestCreate([]PhaseInput{{Name: "p", Steps: []StepInput{{Description: "a"}}}})
	if err := m.ResolveApproval(pending, 0); err != nil {
		t.Fatalf("ResolveApproval returned error: %v", err)
	}

	if _, err := m.RequestCreate([]PhaseInput{{Name: "q", Steps: []StepInput{{Description: "b"}}}}); err != ErrAlreadyActive {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}
}

func TestRequestEditRequiresJustification(t *testing.T) {
	m := newTestManager()
	pending, _ := m.RequestCreate([]PhaseInput{{Name: "p", Steps: []StepInput{{Description: "a"}}}})
	_ = m.ResolveApproval(pending, 0)

	stepID := m.Active().Phases[0].Steps[0].ID
	_, err := m.RequestEdit(EditOp{Kind: EditRemoveStep, StepID: stepID})
	if err != ErrEmptyJustification {
		t.Fatalf("expected ErrEmptyJustification, got %v", err)
	}
}

func TestEditInsertStepAppendsToPhase(t *testing.T) {
	m := newTestManager()
	pending, _ := m.RequestCreate([]PhaseInput{{Name: "p", Steps: []StepInput{{Description: "a"}}}})
	_ = m.ResolveApproval(pending, 0)

	editPending, err := m.RequestEdit(EditOp{
		Kind:          EditInsertStep,
		PhaseIndex:    0,
		NewStep:       StepInput{Description: "b"},
		Justification: "scope grew",
	})
	if err != nil {
		t.Fatalf("RequestEdit returned error: %v", err)
	}
	if err := m.ResolveApproval(editPending, 0); err != nil {
		t.Fatalf("ResolveApproval returned error: %v", err)
	}
	if len(m.Active().Phases[0].Steps) != 2 {
		t.Fatalf("expected 2 steps after insert, got %d", len(m.Active().Phases[0].Steps))
	}
}

func TestResolvePlanToolCallsRejectsMultiple(t *testing.T) {
	if err := ResolvePlanToolCalls(1); err != nil {
		t.Fatalf("expected single call to be permitted, got %v", err)
	}
	if err := ResolvePlanToolCalls(2); err != ErrMultiplePlanCalls {
		t.Fatalf("expected ErrMultiplePlanCalls, got %v", err)
	}
}
