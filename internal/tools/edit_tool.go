package tools

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danielchristiancazares/forge-sub003/internal/sandbox"
	"github.com/danielchristiancazares/forge-sub003/internal/sanitize"
	"github.com/danielchristiancazares/forge-sub003/internal/tools/lp1"
)

// EditTool implements the typed ToolExecutor contract for applying an LP1
// patch to one or more files, gated by the stale-file ObservedRegion
// capability token each file must already carry from a prior Read.
type EditTool struct {
	Sandbox     *sandbox.Sandbox
	Cache       *FileCache
	MaxPatchSize int
}

func NewEditTool(sb *sandbox.Sandbox, cache *FileCache) *EditTool {
	return &EditTool{Sandbox: sb, Cache: cache, MaxPatchSize: 1 << 20}
}

func (t *EditTool) Name() string        { return "apply_patch" }
func (t *EditTool) Description() string { return "Apply an LP1 patch to one or more files." }
func (t *EditTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"patch": map[string]any{"type": "string"},
		},
		"required": []string{"patch"},
	}
}
func (t *EditTool) IsSideEffecting(map[string]any) bool { return true }
func (t *EditTool) ReadsUserData(map[string]any) bool   { return false }
func (t *EditTool) RequiresApproval() bool              { return true }
func (t *EditTool) RiskLevel(map[string]any) RiskLevel  { return RiskHigh }
func (t *EditTool) Timeout() time.Duration              { return 15 * time.Second }
func (t *EditTool) TargetProvider() (string, bool)      { return "", false }

func (t *EditTool) ApprovalSummary(args map[string]any) (string, error) {
	patch, _ := args["patch"].(string)
	files, err := lp1.ParsePatch(patch)
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Path)
	}
	return sanitize.Redact("Apply patch to: " + strings.Join(names, ", ")), nil
}

func (t *EditTool) Execute(ctx context.Context, args map[string]any, tc *ToolCtx) (string, error) {
	patch, _ := args["patch"].(string)
	if len(patch) == 0 {
		return "", fmt.Errorf("tools: apply_patch requires a non-empty patch")
	}
	if len(patch) > t.MaxPatchSize {
		return "", fmt.Errorf("tools: patch exceeds max size of %d bytes", t.MaxPatchSize)
	}

	filePatches, err := lp1.ParsePatch(patch)
	if err != nil {
		return "", err
	}

	staged := make([]StagedFile, 0, len(filePatches))
	for _, fp := range filePatches {
		resolved, err := t.Sandbox.ResolvePathForCreate(fp.Path, tc.WorkingDir)
		if err != nil {
			return "", err
		}

		isCreate := len(fp.Ops) == 1 && fp.Ops[0].Kind == lp1.OpCreateFile

		info, statErr := os.Stat(resolved)
		existed := statErr == nil
		if isCreate && existed {
			return "", fmt.Errorf("tools: create op targets an existing file: %s", fp.Path)
		}
		if !isCreate && !existed {
			return "", fmt.Errorf("tools: match-based op targets a non-existent file: %s", fp.Path)
		}

		var original []byte
		perm := os.FileMode(0644)
		if existed {
			perm = info.Mode()
			original, err = os.ReadFile(resolved)
			if err != nil {
				return "", err
			}
			if err := t.verifyStale(resolved, fp, original); err != nil {
				return "", err
			}
			if err := t.Sandbox.ValidateCreatedParent(resolved); err != nil {
				return "", err
			}
		}

		newBytes, err := lp1.ApplyOps(original, fp.Ops)
		if err != nil {
			return "", err
		}

		staged = append(staged, StagedFile{Path: resolved, Existed: existed, Permissions: perm, Bytes: newBytes})
	}

	if err := ApplyStagedFiles(staged); err != nil {
		return "", err
	}

	for _, sf := range staged {
		t.Cache.Invalidate(sf.Path)
	}

	names := make([]string, 0, len(staged))
	for _, sf := range staged {
		names = append(names, sf.Path)
	}
	return "Applied patch to: " + strings.Join(names, ", "), nil
}

// verifyStale checks that every line range this file's ops touch is still
// covered by a valid ObservedRegion from a prior Read.
func (t *EditTool) verifyStale(path string, fp lp1.FilePatch, original []byte) error {
	prefixHash := ComputeSHA256(original)
	for _, op := range fp.Ops {
		if op.Kind == lp1.OpCreateFile {
			continue
		}
		lines := strings.Split(string(original), "\n")
		end := op.EndLine
		if end > len(lines) {
			end = len(lines)
		}
		start := op.StartLine
		if start < 1 {
			start = 1
		}
		regionHash := ComputeSHA256([]byte(strings.Join(lines[start-1:end], "\n")))
		if err := t.Cache.VerifyForEdit(path, op.StartLine, op.EndLine, prefixHash, regionHash); err != nil {
			return err
		}
	}
	return nil
}
