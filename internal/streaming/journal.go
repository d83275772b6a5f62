package streaming

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// journalRecord is the on-disk shape of one Event, flattened for JSON lines
// encoding; ToolUse is serialized separately since agent.StreamChunk embeds
// protocol types not worth journaling in full.
type journalRecord struct {
	Sequence       uint64 `json:"seq"`
	Kind           int    `json:"kind"`
	Delta          string `json:"delta,omitempty"`
	ReasoningDelta string `json:"reasoning_delta,omitempty"`
	ToolName       string `json:"tool_name,omitempty"`
	StopReason     string `json:"stop_reason,omitempty"`
	Err            string `json:"err,omitempty"`
}

// Journal append-only-logs a stream's events to a file guarded by an
// inter-process flock, so a crash mid-stream leaves a readable record of
// exactly what the user already saw instead of silently losing it.
type Journal struct {
	path string
	lock *flock.Flock
	file *os.File
	w    *bufio.Writer
}

// OpenJournal creates (or truncates, for a fresh turn) the journal file at
// dir/streamID.jsonl and acquires an exclusive flock for the duration of
// the stream.
func OpenJournal(dir, streamID string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("streaming: journal dir: %w", err)
	}
	path := filepath.Join(dir, streamID+".jsonl")

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("streaming: acquiring journal lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("streaming: journal %s is already locked by another process", streamID)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("streaming: opening journal: %w", err)
	}

	return &Journal{path: path, lock: lock, file: f, w: bufio.NewWriter(f)}, nil
}

// Append writes one event as a JSON line and flushes immediately, so the
// file on disk never lags more than one event behind what a consumer saw.
func (j *Journal) Append(ev Event) error {
	rec := journalRecord{
		Sequence:       ev.Sequence,
		Kind:           int(ev.Kind),
		Delta:          ev.Delta,
		ReasoningDelta: ev.ReasoningDelta,
		StopReason:     ev.StopReason,
	}
	if ev.ToolUse != nil {
		rec.ToolName = ev.ToolUse.Name
	}
	if ev.Err != nil {
		rec.Err = ev.Err.Error()
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := j.w.Write(line); err != nil {
		return err
	}
	if _, err := j.w.WriteString("\n"); err != nil {
		return err
	}
	return j.w.Flush()
}

// Commit fsyncs the journal file and releases the lock, marking the stream
// as cleanly finished. It does not delete the file: a completed journal is
// kept for post-hoc inspection until the session's log retention sweeps it.
func (j *Journal) Commit() error {
	if err := j.w.Flush(); err != nil {
		return err
	}
	if err := j.file.Sync(); err != nil {
		return err
	}
	if err := j.file.Close(); err != nil {
		return err
	}
	return j.lock.Unlock()
}

// ReadJournal replays a journal file back into Events, for resuming after a
// crash or for rendering a post-mortem of a failed turn.
func ReadJournal(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		var rec journalRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("streaming: corrupt journal line: %w", err)
		}
		ev := Event{
			Sequence:       rec.Sequence,
			Kind:           EventKind(rec.Kind),
			Delta:          rec.Delta,
			ReasoningDelta: rec.ReasoningDelta,
			StopReason:     rec.StopReason,
		}
		if rec.Err != "" {
			ev.Err = fmt.Errorf("%s", rec.Err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
