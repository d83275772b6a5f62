package context

import (
	"fmt"
)

// DistillatePrefix marks a distilled segment when materialized as a system
// message, so the model can tell summarized context apart from the
// original conversation.
const DistillatePrefix = "[Earlier conversation Distillate]"

// SegmentKind discriminates a WorkingContext segment.
type SegmentKind int

const (
	SegmentOriginal SegmentKind = iota
	SegmentDistilled
)

// ContextSegment is either a pointer to an original history entry, or a
// distillate replacing a contiguous run of original entries.
type ContextSegment struct {
	Kind        SegmentKind
	MessageID   uint64   // valid when Kind == SegmentOriginal
	DistillateID uint64  // valid when Kind == SegmentDistilled
	Replaces    []uint64 // message ids the distillate stands in for
	Tokens      int
}

func NewOriginalSegment(id uint64, tokens int) ContextSegment {
	return ContextSegment{Kind: SegmentOriginal, MessageID: id, Tokens: tokens}
}

func NewDistilledSegment(distillateID uint64, replaces []uint64, tokens int) ContextSegment {
	return ContextSegment{Kind: SegmentDistilled, DistillateID: distillateID, Replaces: replaces, Tokens: tokens}
}

func (s ContextSegment) IsOriginal() bool  { return s.Kind == SegmentOriginal }
func (s ContextSegment) IsDistilled() bool { return s.Kind == SegmentDistilled }

// WorkingContext is the ordered, token-budgeted view of the conversation
// that actually gets sent to the model: a sequence of original messages
// interleaved with distillate segments that stand in for earlier runs of
// messages once the full log would overflow the budget.
type WorkingContext struct {
	segments    []ContextSegment
	tokenBudget int
}

func NewWorkingContext(tokenBudget int) *WorkingContext {
	return &WorkingContext{tokenBudget: tokenBudget}
}

func (w *WorkingContext) PushOriginal(id uint64, tokens int) {
	w.segments = append(w.segments, NewOriginalSegment(id, tokens))
}

func (w *WorkingContext) PushDistillate(distillateID uint64, replaces []uint64, tokens int) {
	w.segments = append(w.segments, NewDistilledSegment(distillateID, replaces, tokens))
}

func (w *WorkingContext) Segments() []ContextSegment { return w.segments }
func (w *WorkingContext) TokenBudget() int            { return w.tokenBudget }

func (w *WorkingContext) TotalTokens() int {
	total := 0
	for _, s := range w.segments {
		total += s.Tokens
	}
	return total
}

func (w *WorkingContext) RemainingBudget() int {
	return w.tokenBudget - w.TotalTokens()
}

func (w *WorkingContext) FitsBudget() bool {
	return w.TotalTokens() <= w.tokenBudget
}

func (w *WorkingContext) OriginalCount() int {
	n := 0
	for _, s := range w.segments {
		if s.IsOriginal() {
			n++
		}
	}
	return n
}

func (w *WorkingContext) DistillateCount() int {
	n := 0
	for _, s := range w.segments {
		if s.IsDistilled() {
			n++
		}
	}
	return n
}

// HistoryLookup resolves a message id to its content and a distillate id to
// its summarized text, so Materialize can stay agnostic of the concrete
// history/distillate storage.
type HistoryLookup interface {
	MessageText(id uint64) (string, bool)
	DistillateText(id uint64) (string, bool)
}

// Materialize walks the segments in order, producing the plain-text view
// sent to the model: original messages verbatim, distillates injected as a
// system-style entry prefixed with DistillatePrefix.
func (w *WorkingContext) Materialize(lookup HistoryLookup) ([]string, error) {
	out := make([]string, 0, len(w.segments))
	for _, seg := range w.segments {
		switch seg.Kind {
		case SegmentOriginal:
			text, ok := lookup.MessageText(seg.MessageID)
			if !ok {
				return nil, fmt.Errorf("context: message %d referenced by working context not found in history", seg.MessageID)
			}
			out = append(out, text)
		case SegmentDistilled:
			text, ok := lookup.DistillateText(seg.DistillateID)
			if !ok {
				return nil, fmt.Errorf("context: distillate %d referenced by working context not found", seg.DistillateID)
			}
			out = append(out, DistillatePrefix+"\n"+text)
		}
	}
	return out, nil
}

// Usage is a snapshot of token consumption for display.
type Usage struct {
	UsedTokens       int
	BudgetTokens     int
	DistilledSegments int
}

func UsageFromContext(w *WorkingContext) Usage {
	return Usage{UsedTokens: w.TotalTokens(), BudgetTokens: w.tokenBudget, DistilledSegments: w.DistillateCount()}
}

// Percentage returns used/budget*100, or 0 when budget is 0 (rather than
// dividing by zero).
func (u Usage) Percentage() float64 {
	if u.BudgetTokens == 0 {
		return 0
	}
	return float64(u.UsedTokens) / float64(u.BudgetTokens) * 100
}

// Severity buckets Percentage into 0 (<=70%), 1 ((70,90]), or 2 (>90%).
// The boundaries are inclusive on the low side: exactly 70% stays at 0,
// exactly 90% stays at 1.
func (u Usage) Severity() int {
	pct := u.Percentage()
	if pct > 90.0 {
		return 2
	}
	if pct > 70.0 {
		return 1
	}
	return 0
}

// FormatCompact renders e.g. "2.1k / 200.0k (1%)" with an optional
// " [Ns]" suffix noting how many segments were distilled.
func (u Usage) FormatCompact() string {
	base := fmt.Sprintf("%s / %s (%.0f%%)", formatK(u.UsedTokens), formatK(u.BudgetTokens), u.Percentage())
	if u.DistilledSegments > 0 {
		base += fmt.Sprintf(" [%dS]", u.DistilledSegments)
	}
	return base
}

func formatK(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1000:
		return fmt.Sprintf("%.1fk", float64(n)/1000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// ContextBuildOutcome is what the context builder returns when it cannot
// fit the requested messages into budget.
type ContextBuildOutcome int

const (
	BuildOK ContextBuildOutcome = iota
	BuildSummarizationNeeded
	BuildRecentMessagesTooLarge
)

// BuildError carries the detail for the two overflow outcomes.
type BuildError struct {
	Outcome       ContextBuildOutcome
	ExcessTokens  int
	Suggestion    string
	RequiredTokens int
	BudgetTokens  int
	MessageCount  int
}

func (e *BuildError) Error() string {
	switch e.Outcome {
	case BuildSummarizationNeeded:
		return fmt.Sprintf("context: %d tokens over budget; summarization suggested (%s)", e.ExcessTokens, e.Suggestion)
	case BuildRecentMessagesTooLarge:
		return fmt.Sprintf("context: the %d most recent messages need %d tokens but only %d are budgeted", e.MessageCount, e.RequiredTokens, e.BudgetTokens)
	default:
		return "context: build error"
	}
}
