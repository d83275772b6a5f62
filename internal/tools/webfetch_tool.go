package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/danielchristiancazares/forge-sub003/internal/webfetch"
)

// WebFetchTool implements the typed ToolExecutor contract around the
// SSRF-guarded, robots.txt-respecting web content fetcher, so a model can
// pull in page content without shelling out to curl.
type WebFetchTool struct {
	Fetcher *webfetch.Fetcher
}

func NewWebFetchTool(f *webfetch.Fetcher) *WebFetchTool {
	return &WebFetchTool{Fetcher: f}
}

func (t *WebFetchTool) Name() string { return "web_fetch" }
func (t *WebFetchTool) Description() string {
	return "Fetch a URL's readable text content, chunked to fit the available context budget."
}

func (t *WebFetchTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url":              map[string]any{"type": "string"},
			"max_chunk_tokens": map[string]any{"type": "integer", "description": "Maximum tokens per returned chunk (default 2000)"},
			"bypass_cache":     map[string]any{"type": "boolean"},
		},
		"required": []string{"url"},
	}
}

func (t *WebFetchTool) IsSideEffecting(map[string]any) bool { return false }
func (t *WebFetchTool) ReadsUserData(map[string]any) bool   { return false }
func (t *WebFetchTool) RequiresApproval() bool              { return true }
func (t *WebFetchTool) RiskLevel(map[string]any) RiskLevel  { return RiskMedium }
func (t *WebFetchTool) Timeout() time.Duration              { return 30 * time.Second }
func (t *WebFetchTool) TargetProvider() (string, bool)      { return "", false }

func (t *WebFetchTool) ApprovalSummary(args map[string]any) (string, error) {
	url, _ := args["url"].(string)
	return fmt.Sprintf("Fetch %s", url), nil
}

func (t *WebFetchTool) Execute(ctx context.Context, args map[string]any, tc *ToolCtx) (string, error) {
	url, _ := args["url"].(string)
	if url == "" {
		return "", fmt.Errorf("tools: web_fetch requires a non-empty url")
	}

	maxChunkTokens := intArg(args, "max_chunk_tokens")
	if maxChunkTokens <= 0 {
		maxChunkTokens = 2000
	}

	pref := webfetch.UseCacheIfFresh
	if b, _ := args["bypass_cache"].(bool); b {
		pref = webfetch.BypassCache
	}

	result, err := t.Fetcher.Fetch(ctx, url, pref, maxChunkTokens)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n%s\n\n", result.Title, result.FinalURL)
	for i, c := range result.Chunks {
		fmt.Fprintf(&sb, "--- chunk %d/%d (%s) ---\n%s\n\n", i+1, len(result.Chunks), c.HeadingContext, c.Text)
	}
	if result.Completeness == webfetch.Truncated {
		sb.WriteString("[content truncated]\n")
	}
	return sb.String(), nil
}
