package plan

import (
	"fmt"

	"github.com/danielchristiancazares/forge-sub003/internal/checkpoints"
)

// EditOpKind enumerates the mutations Edit accepts against an active plan.
type EditOpKind int

const (
	EditInsertStep EditOpKind = iota
	EditRemoveStep
	EditReorderStep
	EditRetarget // move a step to a different phase
)

// EditOp is one requested mutation; Justification is mandatory and is shown
// to the approving human verbatim.
type EditOp struct {
	Kind          EditOpKind
	PhaseIndex    int
	StepID        uint32
	NewStep       StepInput
	Justification string
}

// PendingPlanApproval is the capability token returned while a Create or
// Edit call is awaiting human sign-off; ResolveApproval consumes it.
type PendingPlanApproval struct {
	kind   pendingKind
	create []PhaseInput
	edit   EditOp
}

type pendingKind int

const (
	pendingCreate pendingKind = iota
	pendingEdit
)

// Manager enforces the one-plan-per-batch constraint and wires plan
// transitions into the checkpoint store for step-grained rewind.
type Manager struct {
	active      *Plan
	checkpoints *checkpoints.Store
}

func NewManager(store *checkpoints.Store) *Manager {
	return &Manager{checkpoints: store}
}

var (
	ErrNoActivePlan    = fmt.Errorf("plan: no active plan")
	ErrMultiplePlanCalls = fmt.Errorf("plan: only one plan tool call is permitted per batch")
)

// RequestCreate validates there is no already-active plan and returns a
// PendingPlanApproval for the caller to surface to the human.
func (m *Manager) RequestCreate(phases []PhaseInput) (PendingPlanApproval, error) {
	if m.active != nil && m.active.State == PlanActive {
		return PendingPlanApproval{}, ErrAlreadyActive
	}
	return PendingPlanApproval{kind: pendingCreate, create: phases}, nil
}

// RequestEdit validates a plan is active and returns a PendingPlanApproval.
func (m *Manager) RequestEdit(op EditOp) (PendingPlanApproval, error) {
	if m.active == nil {
		return PendingPlanApproval{}, ErrNoActivePlan
	}
	if op.Justification == "" {
		return PendingPlanApproval{}, ErrEmptyJustification
	}
	return PendingPlanApproval{kind: pendingEdit, edit: op}, nil
}

// ResolveApproval commits a previously-requested Create or Edit once a human
// has approved it, activating the plan and checkpointing the result.
func (m *Manager) ResolveApproval(pending PendingPlanApproval, conversationLen int) error {
	switch pending.kind {
	case pendingCreate:
		p := FromInput(pending.create)
		p.State = PlanActive
		p.ActivateNextEligible()
		m.active = p
	case pendingEdit:
		if err := m.applyEdit(pending.edit); err != nil {
			return err
		}
	}
	_, errs := m.checkpoints.CreateForFiles(checkpoints.KindPlanStep, conversationLen, nil)
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (m *Manager) applyEdit(op EditOp) error {
	if m.active == nil {
		return ErrNoActivePlan
	}
	switch op.Kind {
	case EditInsertStep:
		if op.PhaseIndex < 0 || op.PhaseIndex >= len(m.active.Phases) {
			return fmt.Errorf("plan: phase index %d out of range", op.PhaseIndex)
		}
		nextStepID++
		step := Step{
			ID:          nextStepID,
			Description: op.NewStep.Description,
			DependsOn:   op.NewStep.DependsOn,
			Status:      StepPending,
		}
		m.active.Phases[op.PhaseIndex].Steps = append(m.active.Phases[op.PhaseIndex].Steps, step)
	case EditRemoveStep:
		for pi := range m.active.Phases {
			steps := m.active.Phases[pi].Steps
			for si, s := range steps {
				if s.ID == op.StepID {
					if s.Status == StepActive {
						return fmt.Errorf("plan: cannot remove the active step; skip or fail it first")
					}
					m.active.Phases[pi].Steps = append(steps[:si], steps[si+1:]...)
					return nil
				}
			}
		}
		return ErrStepNotFound
	case EditReorderStep, EditRetarget:
		step, pi, si := m.active.findStep(op.StepID)
		if step == nil {
			return ErrStepNotFound
		}
		target := op.PhaseIndex
		if target < 0 || target >= len(m.active.Phases) {
			return fmt.Errorf("plan: phase index %d out of range", target)
		}
		moved := *step
		m.active.Phases[pi].Steps = append(m.active.Phases[pi].Steps[:si], m.active.Phases[pi].Steps[si+1:]...)
		m.active.Phases[target].Steps = append(m.active.Phases[target].Steps, moved)
	}
	return nil
}

// Advance/Skip/Fail delegate to the active plan and checkpoint the result.
func (m *Manager) Advance(stepID uint32, conversationLen int) error {
	if m.active == nil {
		return ErrNoActivePlan
	}
	if err := m.active.Advance(stepID); err != nil {
		return err
	}
	_, errs := m.checkpoints.CreateForFiles(checkpoints.KindPlanStep, conversationLen, nil)
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (m *Manager) Skip(stepID uint32, reason string, conversationLen int) error {
	if m.active == nil {
		return ErrNoActivePlan
	}
	if err := m.active.Skip(stepID, reason); err != nil {
		return err
	}
	_, errs := m.checkpoints.CreateForFiles(checkpoints.KindPlanStep, conversationLen, nil)
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

func (m *Manager) Fail(stepID uint32, reason string, conversationLen int) error {
	if m.active == nil {
		return ErrNoActivePlan
	}
	if err := m.active.Fail(stepID, reason); err != nil {
		return err
	}
	_, errs := m.checkpoints.CreateForFiles(checkpoints.KindPlanStep, conversationLen, nil)
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Status returns the active plan's rendered status, or an error if there is
// no active plan.
func (m *Manager) Status() (string, error) {
	if m.active == nil {
		return "", ErrNoActivePlan
	}
	return m.active.Status(), nil
}

// Active exposes the current plan for read-only inspection (e.g. rendering).
func (m *Manager) Active() *Plan { return m.active }

// ResolvePlanToolCalls enforces the spec's one-plan-tool-call-per-batch
// constraint: given the plan-tool calls present in a single model turn, it
// returns an error naming the violation if there is more than one.
func ResolvePlanToolCalls(callCount int) error {
	if callCount > 1 {
		return ErrMultiplePlanCalls
	}
	return nil
}
