package plan

import "testing"

func makePlan() *Plan {
	return FromInput([]PhaseInput{
		{
			Name: "phase-1",
			Steps: []StepInput{
				{Description: "step a"},
				{Description: "step b"},
			},
		},
		{
			Name: "phase-2",
			Steps: []StepInput{
				{Description: "step c"},
			},
		},
	})
}

func TestActivateNextEligibleActivatesFirstPending(t *testing.T) {
	p := makePlan()
	p.ActivateNextEligible()

	if p.Phases[0].Steps[0].Status != StepActive {
		t.Fatalf("expected first step active, got %v", p.Phases[0].Steps[0].Status)
	}
	if p.Phases[0].Steps[1].Status != StepPending {
		t.Fatalf("expected second step still pending, got %v", p.Phases[0].Steps[1].Status)
	}
}

func TestActivateNextEligibleNoOpWhenAlreadyActive(t *testing.T) {
	p := makePlan()
	p.ActivateNextEligible()
	firstID := p.Phases[0].Steps[0].ID

	p.ActivateNextEligible()

	if p.Phases[0].Steps[0].ID != firstID || p.Phases[0].Steps[0].Status != StepActive {
		t.Fatalf("expected no change to already-active step")
	}
	if p.Phases[0].Steps[1].Status == StepActive {
		t.Fatalf("expected second step not to also become active")
	}
}

func TestAdvanceCompletesAndActivatesNext(t *testing.T) {
	p := makePlan()
	p.ActivateNextEligible()
	activeID := p.Phases[0].Steps[0].ID

	if err := p.Advance(activeID); err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if p.Phases[0].Steps[0].Status != StepCompleted {
		t.Fatalf("expected step completed, got %v", p.Phases[0].Steps[0].Status)
	}
	if p.Phases[0].Steps[1].Status != StepActive {
		t.Fatalf("expected second step activated, got %v", p.Phases[0].Steps[1].Status)
	}
}

func TestAdvanceRejectsNonActiveStep(t *testing.T) {
	p := makePlan()
	pendingID := p.Phases[0].Steps[0].ID // never activated

	if err := p.Advance(pendingID); err != ErrStepNotActive {
		t.Fatalf("expected ErrStepNotActive, got %v", err)
	}
}

func TestAdvanceUnknownStepReturnsNotFound(t *testing.T) {
	p := makePlan()
	if err := p.Advance(999999); err != ErrStepNotFound {
		t.Fatalf("expected ErrStepNotFound, got %v", err)
	}
}

func TestFailDoesNotAutoActivateNextStep(t *testing.T) {
	p := makePlan()
	p.ActivateNextEligible()
	activeID := p.Phases[0].Steps[0].ID

	if err := p.Fail(activeID, "boom"); err != nil {
		t.Fatalf("Fail returned error: %v", err)
	}
	if p.Phases[0].Steps[0].Status != StepFailed {
		t.Fatalf("expected step failed")
	}
	if p.Phases[0].Steps[1].Status == StepActive {
		t.Fatalf("a failed step must not auto-activate the next step")
	}
}

func TestDependentStepWaitsForDependency(t *testing.T) {
	p := FromInput([]PhaseInput{
		{
			Name: "phase-1",
			Steps: []StepInput{
				{Description: "a"},
			},
		},
	})
	depID := p.Phases[0].Steps[0].ID
	p.Phases[0].Steps = append(p.Phases[0].Steps, Step{
		ID:          depID + 1,
		Description: "b depends on a",
		DependsOn:   []uint32{depID},
		Status:      StepPending,
	})

	p.ActivateNextEligible()
	if p.Phases[0].Steps[0].Status != StepActive {
		t.Fatalf("expected dependency step active first")
	}
	if p.Phases[0].Steps[1].Status != StepPending {
		t.Fatalf("expected dependent step to remain pending until dependency completes")
	}

	if err := p.Advance(p.Phases[0].Steps[0].ID); err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if p.Phases[0].Steps[1].Status != StepActive {
		t.Fatalf("expected dependent step activated once dependency completed")
	}
}

func TestPlanCompletesWhenAllStepsTerminal(t *testing.T) {
	p := FromInput([]PhaseInput{
		{Name: "only", Steps: []StepInput{{Description: "a"}}},
	})
	p.ActivateNextEligible()
	id := p.Phases[0].Steps[0].ID
	if err := p.Advance(id); err != nil {
		t.Fatalf("Advance returned error: %v", err)
	}
	if p.State != PlanComplete {
		t.Fatalf("expected plan state Complete, got %v", p.State)
	}
}
