package tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/danielchristiancazares/forge-sub003/internal/sandbox"
	"github.com/danielchristiancazares/forge-sub003/internal/sanitize"
)

// ReadTool implements the typed ToolExecutor contract for reading a file
// (or a line range of one), recording an ObservedRegion capability token
// that a later Edit must present to prove the file is still as observed.
type ReadTool struct {
	Sandbox         *sandbox.Sandbox
	Cache           *FileCache
	MaxScanBytes    int64
	MaxOutputBytes  int64
	SniffWindowSize int
}

func NewReadTool(sb *sandbox.Sandbox, cache *FileCache) *ReadTool {
	return &ReadTool{
		Sandbox:         sb,
		Cache:           cache,
		MaxScanBytes:    8 << 20,
		MaxOutputBytes:  1 << 20,
		SniffWindowSize: 8192,
	}
}

func (t *ReadTool) Name() string        { return "read_file" }
func (t *ReadTool) Description() string { return "Read a file, or a line range of it." }
func (t *ReadTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":       map[string]any{"type": "string"},
			"start_line": map[string]any{"type": "integer"},
			"end_line":   map[string]any{"type": "integer"},
		},
		"required": []string{"path"},
	}
}
func (t *ReadTool) IsSideEffecting(map[string]any) bool { return false }
func (t *ReadTool) ReadsUserData(map[string]any) bool   { return true }
func (t *ReadTool) RequiresApproval() bool              { return true }
func (t *ReadTool) RiskLevel(map[string]any) RiskLevel  { return RiskMedium }
func (t *ReadTool) Timeout() time.Duration              { return 10 * time.Second }
func (t *ReadTool) TargetProvider() (string, bool)      { return "", false }

func (t *ReadTool) ApprovalSummary(args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	start, end := lineRangeArgs(args)
	if start > 0 || end > 0 {
		return sanitize.Redact(fmt.Sprintf("Read %s lines %d-%d", path, start, end)), nil
	}
	return sanitize.Redact(fmt.Sprintf("Read %s", path)), nil
}

func lineRangeArgs(args map[string]any) (int, int) {
	start := intArg(args, "start_line")
	end := intArg(args, "end_line")
	return start, end
}

func intArg(args map[string]any, key string) int {
	v, ok := args[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

func (t *ReadTool) Execute(ctx context.Context, args map[string]any, tc *ToolCtx) (string, error) {
	rawPath, _ := args["path"].(string)
	if rawPath == "" {
		return "", fmt.Errorf("tools: read_file requires a non-empty path")
	}
	start, end := lineRangeArgs(args)
	if start > 0 && end > 0 && start > end {
		return "", fmt.Errorf("tools: read_file start_line must be <= end_line")
	}

	resolved, err := t.Sandbox.ResolvePath(rawPath, tc.WorkingDir)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", sandbox.ErrIsDirectory
	}

	f, err := os.Open(resolved)
	if err != nil {
		return "", err
	}
	defer f.Close()

	outputLimit := t.MaxOutputBytes
	if tc.AvailableCapacityBytes > 0 && tc.AvailableCapacityBytes < outputLimit {
		outputLimit = tc.AvailableCapacityBytes
	}

	sniff := make([]byte, t.SniffWindowSize)
	n, _ := f.Read(sniff)
	sniff = sniff[:n]
	binary := sniffBinary(sniff)

	if _, err := f.Seek(0, 0); err != nil {
		return "", err
	}

	if binary {
		return t.readBinary(f, info.Size(), outputLimit, resolved)
	}
	return t.readText(f, start, end, outputLimit, resolved)
}

func sniffBinary(window []byte) bool {
	for _, b := range window {
		if b == 0 {
			return true
		}
	}
	return !utf8.Valid(window)
}

func (t *ReadTool) readBinary(f *os.File, size int64, outputLimit int64, path string) (string, error) {
	maxRaw := (outputLimit / 4) * 3
	limit := size
	truncated := false
	if limit > maxRaw {
		limit = maxRaw
		truncated = true
	}
	buf := make([]byte, limit)
	if _, err := f.Read(buf); err != nil {
		return "", err
	}
	encoded := base64.StdEncoding.EncodeToString(buf)
	header := "[binary:base64]\n"
	if truncated {
		header += "[truncated]\n"
	}

	full, err := os.ReadFile(path)
	if err == nil {
		t.Cache.RecordRead(path, ObservedRegion{
			StartLine:  1,
			EndLine:    1,
			PrefixHash: ComputeSHA256(full),
			RegionHash: ComputeSHA256(full),
		})
	}
	return header + encoded, nil
}

func (t *ReadTool) readText(f *os.File, start, end int, outputLimit int64, path string) (string, error) {
	full, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if int64(len(full)) > t.MaxScanBytes {
		return "", fmt.Errorf("tools: file exceeds scan limit")
	}

	content := string(full)
	lines := strings.Split(content, "\n")

	if start == 0 && end == 0 {
		start, end = 1, len(lines)
	}
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}

	selected := strings.Join(lines[start-1:end], "\n")
	if int64(len(selected)) > outputLimit {
		selected = selected[:outputLimit]
	}

	prefixHash := ComputeSHA256(full)
	regionHash := ComputeSHA256([]byte(strings.Join(lines[start-1:end], "\n")))
	t.Cache.RecordRead(path, ObservedRegion{
		StartLine:  start,
		EndLine:    end,
		PrefixHash: prefixHash,
		RegionHash: regionHash,
	})

	return selected, nil
}
