// Package plan implements the phased step state machine the Plan tool
// drives: Create/Advance/Skip/Fail/Edit/Status, with approval gating on
// Create and Edit and a strict one-plan-call-per-batch constraint enforced
// by the caller (see ResolvePlanToolCalls).
package plan

import (
	"fmt"
)

// StepStatus is the state machine every Step moves through.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepActive
	StepCompleted
	StepSkipped
	StepFailed
)

func (s StepStatus) Terminal() bool {
	return s == StepCompleted || s == StepSkipped || s == StepFailed
}

func (s StepStatus) TerminalNonFailed() bool {
	return s == StepCompleted || s == StepSkipped
}

// Step is one unit of work within a Phase.
type Step struct {
	ID          uint32
	Description string
	DependsOn   []uint32
	Status      StepStatus
	Reason      string // populated on Skip/Fail
}

// Phase groups a sequence of Steps.
type Phase struct {
	Name  string
	Steps []Step
}

// PlanState is the lifecycle of the plan as a whole.
type PlanState int

const (
	PlanInactive PlanState = iota
	PlanProposed
	PlanActive
	PlanComplete
)

// Plan is the full phased step state machine for one batch of work.
type Plan struct {
	State  PlanState
	Phases []Phase
}

// PhaseInput/StepInput mirror what plan_create accepts from the model.
type StepInput struct {
	Description string
	DependsOn   []uint32
}

type PhaseInput struct {
	Name  string
	Steps []StepInput
}

var nextStepID uint32 = 1

// FromInput builds a Plan from a Create call's phases, assigning each step
// a fresh monotonically increasing id.
func FromInput(phases []PhaseInput) *Plan {
	p := &Plan{State: PlanProposed}
	for _, ph := range phases {
		phase := Phase{Name: ph.Name}
		for _, st := range ph.Steps {
			phase.Steps = append(phase.Steps, Step{
				ID:          nextStepID,
				Description: st.Description,
				DependsOn:   st.DependsOn,
				Status:      StepPending,
			})
			nextStepID++
		}
		p.Phases = append(p.Phases, phase)
	}
	return p
}

var (
	ErrAlreadyActive  = fmt.Errorf("plan: a plan is already active")
	ErrStepNotFound   = fmt.Errorf("plan: step not found")
	ErrStepNotActive  = fmt.Errorf("plan: step is not active")
	ErrEmptyJustification = fmt.Errorf("plan: edit requires a non-empty justification")
)

func (p *Plan) findStep(id uint32) (*Step, int, int) {
	for pi := range p.Phases {
		for si := range p.Phases[pi].Steps {
			if p.Phases[pi].Steps[si].ID == id {
				return &p.Phases[pi].Steps[si], pi, si
			}
		}
	}
	return nil, -1, -1
}

// dependenciesSatisfied reports whether every dependency of step is
// terminal-non-failed.
func (p *Plan) dependenciesSatisfied(step Step) bool {
	for _, dep := range step.DependsOn {
		s, _, _ := p.findStep(dep)
		if s == nil || !s.Status.TerminalNonFailed() {
			return false
		}
	}
	return true
}

// ActivateNextEligible activates the first eligible Pending step: if an
// Active step already exists anywhere in the plan, this is a no-op. It
// scans phases in order; when the current phase (the one containing the
// last Active/terminal step cluster) has no eligible step, it advances to
// the next phase.
func (p *Plan) ActivateNextEligible() {
	for _, ph := range p.Phases {
		for _, s := range ph.Steps {
			if s.Status == StepActive {
				return // an active step already exists; no-op
			}
		}
	}

	for pi := range p.Phases {
		activated := false
		for si := range p.Phases[pi].Steps {
			s := &p.Phases[pi].Steps[si]
			if s.Status != StepPending {
				continue
			}
			if p.dependenciesSatisfied(*s) {
				s.Status = StepActive
				activated = true
				break
			}
		}
		if activated {
			return
		}
		// No eligible step in this phase: only advance past it if every
		// step in it is terminal, otherwise stop (a step here is still
		// pending on a dependency from a later phase, which should not
		// happen under well-formed input, but we stay conservative).
		allTerminal := true
		for _, s := range p.Phases[pi].Steps {
			if !s.Status.Terminal() {
				allTerminal = false
				break
			}
		}
		if !allTerminal {
			return
		}
	}
}

// CompletionStatus reports whether every step across every phase is
// terminal-non-failed.
func (p *Plan) TryComplete() bool {
	for _, ph := range p.Phases {
		for _, s := range ph.Steps {
			if !s.Status.TerminalNonFailed() {
				return false
			}
		}
	}
	p.State = PlanComplete
	return true
}

// Advance completes the Active step matching stepID and activates the next
// eligible step.
func (p *Plan) Advance(stepID uint32) error {
	step, _, _ := p.findStep(stepID)
	if step == nil {
		return ErrStepNotFound
	}
	if step.Status != StepActive {
		return ErrStepNotActive
	}
	step.Status = StepCompleted
	p.ActivateNextEligible()
	p.TryComplete()
	return nil
}

// Skip marks the Active step matching stepID as Skipped.
func (p *Plan) Skip(stepID uint32, reason string) error {
	step, _, _ := p.findStep(stepID)
	if step == nil {
		return ErrStepNotFound
	}
	if step.Status != StepActive {
		return ErrStepNotActive
	}
	step.Status = StepSkipped
	step.Reason = reason
	p.ActivateNextEligible()
	p.TryComplete()
	return nil
}

// Fail marks the Active step matching stepID as Failed. A failed step does
// not auto-activate the next step — a human decides how to proceed.
func (p *Plan) Fail(stepID uint32, reason string) error {
	step, _, _ := p.findStep(stepID)
	if step == nil {
		return ErrStepNotFound
	}
	if step.Status != StepActive {
		return ErrStepNotActive
	}
	step.Status = StepFailed
	step.Reason = reason
	return nil
}

// Status renders a plain-text summary of the plan for display.
func (p *Plan) Status() string {
	out := ""
	for _, ph := range p.Phases {
		out += ph.Name + ":\n"
		for _, s := range ph.Steps {
			out += fmt.Sprintf("  [%s] #%d %s\n", statusGlyph(s.Status), s.ID, s.Description)
		}
	}
	return out
}

func statusGlyph(s StepStatus) string {
	switch s {
	case StepPending:
		return " "
	case StepActive:
		return ">"
	case StepCompleted:
		return "x"
	case StepSkipped:
		return "-"
	case StepFailed:
		return "!"
	default:
		return "?"
	}
}
