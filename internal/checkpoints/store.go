package checkpoints

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates why a checkpoint was created.
type Kind int

const (
	KindTurn Kind = iota
	KindToolEdit
	KindPlanStep
)

// FileSnapshot is either the captured bytes+permissions of a file that
// existed when the checkpoint was taken, or a marker that it did not exist.
type FileSnapshot struct {
	Existed     bool
	Bytes       []byte
	Permissions os.FileMode
}

// WorkspaceSnapshot is the set of per-file snapshots a checkpoint carries.
type WorkspaceSnapshot struct {
	Files map[string]FileSnapshot
}

// Checkpoint is one entry in the ring.
type Checkpoint struct {
	ID             string
	CreatedAt      time.Time
	Kind           Kind
	PlanStepID     string // only set when Kind == KindPlanStep
	ConversationLen int
	Workspace      *WorkspaceSnapshot // nil for a conversation-only checkpoint
}

// PreparedRewind proves a checkpoint with the given id exists in the store
// at the moment it was prepared. It carries no exported fields so callers
// cannot construct one except through Store.Prepare*.
type PreparedRewind struct {
	checkpoint Checkpoint
}

func (p PreparedRewind) Checkpoint() Checkpoint { return p.checkpoint }

// PreparedCodeRewind additionally proves the checkpoint carries a workspace
// snapshot.
type PreparedCodeRewind struct {
	checkpoint Checkpoint
}

func (p PreparedCodeRewind) Checkpoint() Checkpoint { return p.checkpoint }

// PreparedFileBaseline proves a checkpoint carries a baseline for one
// specific file.
type PreparedFileBaseline struct {
	checkpoint Checkpoint
	path       string
	snapshot   FileSnapshot
}

func (p PreparedFileBaseline) Snapshot() FileSnapshot { return p.snapshot }

var (
	// ErrNotFound is returned when a checkpoint id does not exist.
	ErrNotFound = fmt.Errorf("checkpoints: checkpoint not found")
	// ErrNoWorkspace is returned by PrepareCode when the checkpoint has no
	// workspace snapshot.
	ErrNoWorkspace = fmt.Errorf("checkpoints: checkpoint has no workspace snapshot")
	// ErrNoBaseline is returned by FindBaselineForFile when no ToolEdit
	// checkpoint records a baseline for the requested path.
	ErrNoBaseline = fmt.Errorf("checkpoints: no baseline found for file")
)

// Store is a bounded, FIFO-evicted ring of checkpoints. It is owned
// exclusively by the orchestrator and is not safe to share across
// goroutines beyond the mutex it already holds internally.
type Store struct {
	mu          sync.Mutex
	checkpoints []Checkpoint
	maxEntries  int
}

func NewStore(maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = 50
	}
	return &Store{maxEntries: maxEntries}
}

// CreateForFiles snapshots paths (recording Missing for any that don't
// exist) and appends a new checkpoint of the given kind. An empty paths set
// produces a conversation-only checkpoint by design — not every checkpoint
// needs a workspace component.
func (s *Store) CreateForFiles(kind Kind, conversationLen int, paths []string) (Checkpoint, []error) {
	var warnings []error
	var workspace *WorkspaceSnapshot
	if len(paths) > 0 {
		files := make(map[string]FileSnapshot, len(paths))
		for _, p := range paths {
			snap, err := snapshotFile(p)
			if err != nil {
				warnings = append(warnings, fmt.Errorf("checkpoints: snapshotting %s: %w", p, err))
				continue
			}
			files[p] = snap
		}
		workspace = &WorkspaceSnapshot{Files: files}
	}

	cp := Checkpoint{
		ID:              uuid.NewString(),
		CreatedAt:       time.Now(),
		Kind:            kind,
		ConversationLen: conversationLen,
		Workspace:       workspace,
	}

	s.mu.Lock()
	s.checkpoints = append(s.checkpoints, cp)
	if len(s.checkpoints) > s.maxEntries {
		s.checkpoints = s.checkpoints[len(s.checkpoints)-s.maxEntries:]
	}
	s.mu.Unlock()

	return cp, warnings
}

func snapshotFile(path string) (FileSnapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileSnapshot{Existed: false}, nil
		}
		return FileSnapshot{}, err
	}
	if info.IsDir() {
		return FileSnapshot{}, fmt.Errorf("refusing to snapshot a directory")
	}
	bytes, err := os.ReadFile(path)
	if err != nil {
		return FileSnapshot{}, err
	}
	return FileSnapshot{Existed: true, Bytes: bytes, Permissions: info.Mode()}, nil
}

func (s *Store) find(id string) (Checkpoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cp := range s.checkpoints {
		if cp.ID == id {
			return cp, true
		}
	}
	return Checkpoint{}, false
}

// Prepare returns a PreparedRewind for the checkpoint with the given id.
func (s *Store) Prepare(id string) (PreparedRewind, error) {
	cp, ok := s.find(id)
	if !ok {
		return PreparedRewind{}, ErrNotFound
	}
	return PreparedRewind{checkpoint: cp}, nil
}

// PrepareLatest returns a PreparedRewind for the most recent checkpoint.
func (s *Store) PrepareLatest() (PreparedRewind, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.checkpoints) == 0 {
		return PreparedRewind{}, ErrNotFound
	}
	return PreparedRewind{checkpoint: s.checkpoints[len(s.checkpoints)-1]}, nil
}

// PrepareLatestOfKind returns a PreparedRewind for the most recent
// checkpoint of the given kind.
func (s *Store) PrepareLatestOfKind(kind Kind) (PreparedRewind, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.checkpoints) - 1; i >= 0; i-- {
		if s.checkpoints[i].Kind == kind {
			return PreparedRewind{checkpoint: s.checkpoints[i]}, nil
		}
	}
	return PreparedRewind{}, ErrNotFound
}

// PrepareCode upgrades a PreparedRewind into a PreparedCodeRewind, proving
// the checkpoint carries a workspace snapshot.
func PrepareCode(proof PreparedRewind) (PreparedCodeRewind, error) {
	if proof.checkpoint.Workspace == nil {
		return PreparedCodeRewind{}, ErrNoWorkspace
	}
	return PreparedCodeRewind{checkpoint: proof.checkpoint}, nil
}

// FindBaselineForFile walks newest-first through ToolEdit checkpoints and
// returns the first snapshot recorded for path.
func (s *Store) FindBaselineForFile(path string) (PreparedFileBaseline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.checkpoints) - 1; i >= 0; i-- {
		cp := s.checkpoints[i]
		if cp.Kind != KindToolEdit || cp.Workspace == nil {
			continue
		}
		if snap, ok := cp.Workspace.Files[path]; ok {
			return PreparedFileBaseline{checkpoint: cp, path: path, snapshot: snap}, nil
		}
	}
	return PreparedFileBaseline{}, ErrNoBaseline
}

// PruneAfter drops every checkpoint strictly newer than id — used after a
// conversation rewind so stale checkpoints cannot be targeted again.
func (s *Store) PruneAfter(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i, cp := range s.checkpoints {
		if cp.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	s.checkpoints = s.checkpoints[:idx+1]
	return nil
}

// List returns a copy of the checkpoints currently held, oldest first.
func (s *Store) List() []Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Checkpoint, len(s.checkpoints))
	copy(out, s.checkpoints)
	return out
}

// RestoreReport summarizes what RestoreWorkspace actually did.
type RestoreReport struct {
	RestoredFiles []string
	RemovedFiles  []string
}

// RestoreWorkspace writes back every Existed file's bytes/permissions
// (creating parent directories as needed) and removes every Missing file
// that currently exists on disk. Restoration is best-effort per file:
// failures are collected and returned, but processing continues so a
// single bad path does not block restoring the rest of the snapshot.
func RestoreWorkspace(snapshot WorkspaceSnapshot) (RestoreReport, []error) {
	var report RestoreReport
	var errs []error

	for path, snap := range snapshot.Files {
		if snap.Existed {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				errs = append(errs, fmt.Errorf("checkpoints: restoring %s: %w", path, err))
				continue
			}
			perm := snap.Permissions
			if perm == 0 {
				perm = 0644
			}
			if err := os.WriteFile(path, snap.Bytes, perm); err != nil {
				errs = append(errs, fmt.Errorf("checkpoints: restoring %s: %w", path, err))
				continue
			}
			report.RestoredFiles = append(report.RestoredFiles, path)
		} else {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				errs = append(errs, fmt.Errorf("checkpoints: removing %s: %w", path, err))
				continue
			}
			report.RemovedFiles = append(report.RemovedFiles, path)
		}
	}
	return report, errs
}

// RewindScope selects what a rewind operation touches.
type RewindScope int

const (
	ScopeConversation RewindScope = iota
	ScopeCode
	ScopeBoth
)
