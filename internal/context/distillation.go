package context

import (
	"fmt"
	"strings"

	"github.com/danielchristiancazares/forge-sub003/internal/protocol"
)

// DistillerPromptTemplate is the fixed system prompt assembled before a
// distillation call; {target_tokens} is substituted with the caller's
// target length for the resulting summary.
const DistillerPromptTemplate = `You are summarizing an earlier portion of a coding-assistant conversation so it can be dropped from the active context while preserving everything a future turn would need. Produce a summary of at most {target_tokens} tokens covering: what the user asked for, what was done, what files were touched, and any open threads or decisions made. Be concrete; prefer file paths and concrete facts over vague narrative.`

// DistillationRequest is everything the distiller needs to build its
// prompt.
type DistillationRequest struct {
	Messages        []protocol.Message
	TargetTokens    int
	DistillerInputCap int
}

// AssembleDistillationPrompt builds the system prompt plus the enumerated
// transcript the distiller model will summarize, and collects the set of
// file paths referenced by tool-call arguments into an "Active files" list
// appended to the prompt.
func AssembleDistillationPrompt(req DistillationRequest) (string, error) {
	system := strings.ReplaceAll(DistillerPromptTemplate, "{target_tokens}", fmt.Sprintf("%d", req.TargetTokens))

	var transcript strings.Builder
	activeFiles := map[string]bool{}

	for i, msg := range req.Messages {
		fmt.Fprintf(&transcript, "[Message %d] Role: %s\n", i, msg.Role)
		if msg.Content != "" {
			transcript.WriteString(msg.Content)
			transcript.WriteString("\n")
		}
		for _, tc := range msg.ToolUse {
			fmt.Fprintf(&transcript, "Tool call %s(%s): %s\n", tc.Name, tc.ID, string(tc.Input))
			collectPathsFromArgs(string(tc.Input), activeFiles)
		}
		for _, tr := range msg.ToolResults {
			fmt.Fprintf(&transcript, "Tool result for %s: %s\n", tr.ToolUseID, tr.Content)
		}
	}

	prompt := system + "\n\n--- Transcript ---\n" + transcript.String()

	if len(activeFiles) > 0 {
		files := make([]string, 0, len(activeFiles))
		for f := range activeFiles {
			files = append(files, f)
		}
		prompt += "\n--- Active files ---\n" + strings.Join(files, "\n")
	}

	if req.DistillerInputCap > 0 {
		if tokens := EstimateBudgetedTokens(prompt); tokens > req.DistillerInputCap {
			return "", fmt.Errorf("context: distillation prompt (%d tokens) exceeds distiller input cap (%d)", tokens, req.DistillerInputCap)
		}
	}

	return prompt, nil
}

// collectPathsFromArgs does a best-effort scan of a JSON tool-call argument
// blob for string values under common path-ish keys, without a full JSON
// schema per tool (the distillation prompt only needs a useful hint list,
// not a complete inventory).
func collectPathsFromArgs(rawArgs string, out map[string]bool) {
	for _, key := range []string{"path", "file_path", "paths"} {
		marker := `"` + key + `":"`
		idx := 0
		for {
			pos := strings.Index(rawArgs[idx:], marker)
			if pos < 0 {
				break
			}
			start := idx + pos + len(marker)
			end := strings.IndexByte(rawArgs[start:], '"')
			if end < 0 {
				break
			}
			value := rawArgs[start : start+end]
			if value != "" {
				out[value] = true
			}
			idx = start + end
		}
	}
}

// Distillate is the stored result of a successful distillation: a summary
// plus the message ids it replaces.
type Distillate struct {
	ID       uint64
	Content  string
	Replaces []uint64
}
