package tools

import (
	"context"
	"testing"

	"github.com/danielchristiancazares/forge-sub003/internal/checkpoints"
	"github.com/danielchristiancazares/forge-sub003/internal/plan"
)

func newTestPlanTool() *PlanTool {
	return NewPlanTool(plan.NewManager(checkpoints.NewStore(10)))
}

func TestPlanToolCreateThenStatus(t *testing.T) {
	tool := newTestPlanTool()
	ctx := context.Background()

	createArgs := map[string]any{
		"subcommand": "create",
		"phases": []any{
			map[string]any{
				"name": "phase-1",
				"steps": []any{
					map[string]any{"description": "do the thing"},
				},
			},
		},
	}
	if _, err := tool.Execute(ctx, createArgs, &ToolCtx{}); err != nil {
		t.Fatalf("create returned error: %v", err)
	}

	status, err := tool.Execute(ctx, map[string]any{"subcommand": "status"}, &ToolCtx{})
	if err != nil {
		t.Fatalf("status returned error: %v", err)
	}
	if status == "" {
		t.Fatalf("expected non-empty status output")
	}
}

func TestPlanToolAdvanceUnknownStepErrors(t *testing.T) {
	tool := newTestPlanTool()
	ctx := context.Background()

	createArgs := map[string]any{
		"subcommand": "create",
		"phases": []any{
			map[string]any{
				"name": "phase-1",
				"steps": []any{
					map[string]any{"description": "a"},
				},
			},
		},
	}
	if _, err := tool.Execute(ctx, createArgs, &ToolCtx{}); err != nil {
		t.Fatalf("create returned error: %v", err)
	}

	_, err := tool.Execute(ctx, map[string]any{
		"subcommand": "advance",
		"step_id":    float64(999999),
	}, &ToolCtx{})
	if err != plan.ErrStepNotFound {
		t.Fatalf("expected ErrStepNotFound, got %v", err)
	}
}

func TestPlanToolRejectsUnknownSubcommand(t *testing.T) {
	tool := newTestPlanTool()
	_, err := tool.Execute(context.Background(), map[string]any{"subcommand": "bogus"}, &ToolCtx{})
	if err == nil {
		t.Fatalf("expected an error for an unknown subcommand")
	}
}
