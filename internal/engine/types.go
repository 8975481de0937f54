package engine

import (
	"fmt"

	"github.com/niterpack/niter/internal/download"
	"github.com/niterpack/niter/internal/source"
)

// ErrFilesystem covers create, write, and delete failures in the target
// directory.
var ErrFilesystem = download.ErrFilesystem

// Action is what the synchronizer does with one file name.
type Action int

const (
	// ActionKeep leaves a matching local file alone.
	ActionKeep Action = iota
	// ActionStale deletes a local file whose hash differs, then downloads.
	ActionStale
	// ActionOrphan deletes a local file nothing in the build wants.
	ActionOrphan
	// ActionNew downloads an artifact that has no local file.
	ActionNew
)

func (a Action) String() string {
	switch a {
	case ActionKeep:
		return "keep"
	case ActionStale:
		return "stale"
	case ActionOrphan:
		return "orphan"
	case ActionNew:
		return "new"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// LocalFile is a regular file or symlink found in the target directory. Hash is only
// computed when a desired artifact of the same name claims a hash.
type LocalFile struct {
	Name string
	Hash string
}

// PlanEntry is one file-level decision.
type PlanEntry struct {
	Action   Action
	Filename string
	Artifact *source.Artifact // nil for orphans
	Local    string           // local hash when computed
}

// Plan is the full set of decisions for a directory. Entries are sorted by
// file name.
type Plan struct {
	Entries []PlanEntry

	// Duplicates are artifacts dropped because an earlier artifact in the
	// build claimed the same file name.
	Duplicates []source.Artifact
}

// Filter returns the entries with the given action.
func (p Plan) Filter(action Action) []PlanEntry {
	var out []PlanEntry
	for _, e := range p.Entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// Ops returns the entries that change the directory.
func (p Plan) Ops() []PlanEntry {
	var out []PlanEntry
	for _, e := range p.Entries {
		if e.Action != ActionKeep {
			out = append(out, e)
		}
	}
	return out
}

// Converged reports whether applying the plan would change nothing.
func (p Plan) Converged() bool {
	return len(p.Ops()) == 0
}

// OpResult is a completed operation.
type OpResult struct {
	PlanEntry
	Size      int64 // bytes written, zero for deletions
	FromCache bool
}

// ArtifactError attaches the artifact to a failed operation.
type ArtifactError struct {
	Name     string // mod name, empty for orphans
	Filename string
	Action   Action
	Err      error
}

func (e *ArtifactError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s '%s': %s", e.Action, e.Filename, e.Err)
	}
	return fmt.Sprintf("mod '%s' (%s '%s'): %s", e.Name, e.Action, e.Filename, e.Err)
}

func (e *ArtifactError) Unwrap() error {
	return e.Err
}

// SyncResult holds the outcome of a sync.
type SyncResult struct {
	Plan   Plan
	DryRun bool
	Done   []OpResult
	Errors []*ArtifactError
}

// CheckResult holds the outcome of a check. Drift lists every entry that a
// sync would act on.
type CheckResult struct {
	Clean bool
	Plan  Plan
	Drift []PlanEntry
}
