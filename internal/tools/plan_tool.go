package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/danielchristiancazares/forge-sub003/internal/plan"
)

// PlanTool is the single tool surface for the plan machine: one argument
// blob with a "subcommand" discriminator, dispatched to the underlying
// plan.Manager. The caller (the tool-call resolver in the orchestrator) is
// responsible for enforcing that at most one plan call appears per model
// turn via plan.ResolvePlanToolCalls.
type PlanTool struct {
	Manager *plan.Manager
}

func NewPlanTool(m *plan.Manager) *PlanTool {
	return &PlanTool{Manager: m}
}

func (t *PlanTool) Name() string        { return "plan" }
func (t *PlanTool) Description() string {
	return "Create, advance, skip, fail, edit, or inspect the current phased task plan."
}

func (t *PlanTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"subcommand": map[string]any{"type": "string", "enum": []string{"create", "advance", "skip", "fail", "edit", "status"}},
			"phases":     map[string]any{"type": "array"},
			"step_id":    map[string]any{"type": "integer"},
			"reason":     map[string]any{"type": "string"},
			"edit":       map[string]any{"type": "object"},
		},
		"required": []string{"subcommand"},
	}
}

func (t *PlanTool) IsSideEffecting(map[string]any) bool { return true }
func (t *PlanTool) ReadsUserData(map[string]any) bool   { return false }
func (t *PlanTool) RequiresApproval() bool              { return true }
func (t *PlanTool) RiskLevel(map[string]any) RiskLevel  { return RiskMedium }
func (t *PlanTool) Timeout() time.Duration              { return 5 * time.Second }
func (t *PlanTool) TargetProvider() (string, bool)      { return "", false }

func (t *PlanTool) ApprovalSummary(args map[string]any) (string, error) {
	sub, _ := args["subcommand"].(string)
	switch sub {
	case "create":
		return "Create a new plan for this batch of work", nil
	case "edit":
		return "Edit the active plan", nil
	default:
		return fmt.Sprintf("Plan: %s", sub), nil
	}
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func uint32Arg(args map[string]any, key string) uint32 {
	return uint32(intArg(args, key))
}

func phasesArg(args map[string]any) []plan.PhaseInput {
	raw, ok := args["phases"].([]any)
	if !ok {
		return nil
	}
	phases := make([]plan.PhaseInput, 0, len(raw))
	for _, rp := range raw {
		pm, ok := rp.(map[string]any)
		if !ok {
			continue
		}
		phase := plan.PhaseInput{Name: stringArg(pm, "name")}
		if rawSteps, ok := pm["steps"].([]any); ok {
			for _, rs := range rawSteps {
				sm, ok := rs.(map[string]any)
				if !ok {
					continue
				}
				step := plan.StepInput{Description: stringArg(sm, "description")}
				if deps, ok := sm["depends_on"].([]any); ok {
					for _, d := range deps {
						if f, ok := d.(float64); ok {
							step.DependsOn = append(step.DependsOn, uint32(f))
						}
					}
				}
				phase.Steps = append(phase.Steps, step)
			}
		}
		phases = append(phases, phase)
	}
	return phases
}

func editArg(args map[string]any) (plan.EditOp, error) {
	raw, ok := args["edit"].(map[string]any)
	if !ok {
		return plan.EditOp{}, fmt.Errorf("tools: edit subcommand requires an \"edit\" object")
	}
	op := plan.EditOp{
		PhaseIndex:    intArg(raw, "phase_index"),
		StepID:        uint32Arg(raw, "step_id"),
		Justification: stringArg(raw, "justification"),
	}
	if ns, ok := raw["new_step"].(map[string]any); ok {
		op.NewStep = plan.StepInput{Description: stringArg(ns, "description")}
	}
	switch stringArg(raw, "kind") {
	case "insert_step":
		op.Kind = plan.EditInsertStep
	case "remove_step":
		op.Kind = plan.EditRemoveStep
	case "reorder_step":
		op.Kind = plan.EditReorderStep
	case "retarget":
		op.Kind = plan.EditRetarget
	default:
		return plan.EditOp{}, fmt.Errorf("tools: unknown edit kind %q", stringArg(raw, "kind"))
	}
	return op, nil
}

// Execute dispatches the subcommand. Create and Edit stage a
// PendingPlanApproval and resolve it immediately: the approval gate itself
// is enforced upstream by RequiresApproval(), which routes the call through
// the orchestrator's approval prompt before Execute ever runs.
func (t *PlanTool) Execute(ctx context.Context, args map[string]any, tc *ToolCtx) (string, error) {
	switch stringArg(args, "subcommand") {
	case "create":
		pending, err := t.Manager.RequestCreate(phasesArg(args))
		if err != nil {
			return "", err
		}
		if err := t.Manager.ResolveApproval(pending, 0); err != nil {
			return "", err
		}
		return "plan created", nil
	case "advance":
		if err := t.Manager.Advance(uint32Arg(args, "step_id"), 0); err != nil {
			return "", err
		}
		return "advanced", nil
	case "skip":
		if err := t.Manager.Skip(uint32Arg(args, "step_id"), stringArg(args, "reason"), 0); err != nil {
			return "", err
		}
		return "skipped", nil
	case "fail":
		if err := t.Manager.Fail(uint32Arg(args, "step_id"), stringArg(args, "reason"), 0); err != nil {
			return "", err
		}
		return "failed", nil
	case "edit":
		op, err := editArg(args)
		if err != nil {
			return "", err
		}
		pending, err := t.Manager.RequestEdit(op)
		if err != nil {
			return "", err
		}
		if err := t.Manager.ResolveApproval(pending, 0); err != nil {
			return "", err
		}
		return "plan edited", nil
	case "status":
		return t.Manager.Status()
	default:
		return "", fmt.Errorf("tools: unknown plan subcommand %q", stringArg(args, "subcommand"))
	}
}
