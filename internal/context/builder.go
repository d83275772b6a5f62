package context

import (
	"github.com/danielchristiancazares/forge-sub003/internal/protocol"
)

// BuildBasic concatenates every non-thinking message's content, ignoring
// the token budget entirely. Used by providers/modes that do not need
// distillation.
func BuildBasic(messages []protocol.Message) []protocol.Message {
	out := make([]protocol.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "thinking" {
			continue
		}
		out = append(out, m)
	}
	return out
}

// MessageWithID pairs a message with the id it will be recorded under in
// history, so BuildBudgeted can report which ids a Distillate would need to
// replace.
type MessageWithID struct {
	ID      uint64
	Message protocol.Message
}

// recentReserve is the number of most-recent messages BuildBudgeted never
// offers up for distillation, matching the "cache all but the last 4"
// convention used by the streaming engine's prompt-caching decision.
const recentReserve = 4

// BuildBudgeted tries to fit entries within tokenBudget. If it fits, it
// returns a WorkingContext with one Original segment per entry. If it
// doesn't fit, it returns a *BuildError describing whether the caller
// should start a summarization turn (older messages can be dropped) or
// report RecentMessagesTooLarge (even the tail alone overflows budget).
func BuildBudgeted(entries []MessageWithID, tokenBudget int) (*WorkingContext, *BuildError) {
	wc := NewWorkingContext(tokenBudget)

	total := 0
	tokensByIndex := make([]int, len(entries))
	for i, e := range entries {
		t := EstimateMessageBudgetedTokens(e.Message)
		tokensByIndex[i] = t
		total += t
	}

	if total <= tokenBudget {
		for i, e := range entries {
			wc.PushOriginal(e.ID, tokensByIndex[i])
		}
		return wc, nil
	}

	tailStart := len(entries) - recentReserve
	if tailStart < 0 {
		tailStart = 0
	}
	tailTokens := 0
	for i := tailStart; i < len(entries); i++ {
		tailTokens += tokensByIndex[i]
	}

	if tailTokens > tokenBudget {
		return nil, &BuildError{
			Outcome:        BuildRecentMessagesTooLarge,
			RequiredTokens: tailTokens,
			BudgetTokens:   tokenBudget,
			MessageCount:   len(entries) - tailStart,
		}
	}

	return nil, &BuildError{
		Outcome:      BuildSummarizationNeeded,
		ExcessTokens: total - tokenBudget,
		Suggestion:   "distill the oldest messages into a single summary segment",
	}
}
