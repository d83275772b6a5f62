package host

import (
	"context"
	"runtime"
	"strings"
	"testing"
)

func TestBuildCommandMatchesHostPlatform(t *testing.T) {
	o := NewCommandOrchestrator(t.TempDir())
	cmd := o.buildCommand(context.Background(), "echo hi")

	switch runtime.GOOS {
	case "windows":
		if cmd.Path == "" || cmd.Args[0] != "powershell" {
			t.Fatalf("expected powershell invocation on windows, got %v", cmd.Args)
		}
	default:
		// darwin without sandbox-exec falls back to the same sh -c shape as
		// every other POSIX host, so only the final two args are checked.
		n := len(cmd.Args)
		if n < 2 || cmd.Args[n-2] != "-c" || cmd.Args[n-1] != "echo hi" {
			t.Fatalf("expected a -c 'echo hi' invocation, got %v", cmd.Args)
		}
	}
}

func TestExecuteRunsCommandAndCapturesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("echo via sh -c is POSIX-specific")
	}
	o := NewCommandOrchestrator(t.TempDir())
	state, err := o.Execute(context.Background(), "echo hello-sandbox", false)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if state.Status != StatusCompleted {
		t.Fatalf("expected command to complete, got status %q (err: %s)", state.Status, state.Error)
	}
	if !strings.Contains(state.Output, "hello-sandbox") {
		t.Fatalf("expected output to contain command text, got %q", state.Output)
	}
}
