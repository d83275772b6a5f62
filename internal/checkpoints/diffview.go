package checkpoints

// DiffView wraps the shadow-git CheckpointService for human-readable diff
// display only. Store (store.go) is the source of truth for restore: it
// operates on explicit byte/permission snapshots and typed capability
// proofs, never on the shadow git worktree. CheckpointService remains
// useful here purely because "git diff --stat" is a better diff renderer
// than anything worth hand-rolling for a status view.
type DiffView struct {
	service *CheckpointService
}

// NewDiffView wraps an already-initialized CheckpointService.
func NewDiffView(service *CheckpointService) *DiffView {
	return &DiffView{service: service}
}

// Stat returns a human-readable "git diff --stat"-style summary between two
// shadow-git commits, or against the working tree when toHash is empty.
func (d *DiffView) Stat(fromHash, toHash string) (string, error) {
	return d.service.GetDiff(fromHash, toHash)
}
