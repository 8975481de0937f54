package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/niterpack/niter/internal/digest"
	"github.com/niterpack/niter/internal/source"
)

// ScanDir lists the regular files and symlinks directly inside dir.
// Directories and other special files are ignored. A file is hashed only
// when an artifact in desired with the same file name carries a hash.
// A missing directory yields an empty listing.
func ScanDir(dir string, desired []source.Artifact) ([]LocalFile, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrFilesystem, dir, err)
	}

	hashed := make(map[string]bool)
	for _, a := range desired {
		if a.HasHash() {
			hashed[a.Filename] = true
		}
	}

	var files []LocalFile
	for _, entry := range entries {
		link := entry.Type()&fs.ModeSymlink != 0
		if !entry.Type().IsRegular() && !link {
			continue
		}
		f := LocalFile{Name: entry.Name()}
		if hashed[f.Name] {
			f.Hash, err = digest.File(filepath.Join(dir, f.Name))
			switch {
			case err != nil && link:
				// A dangling or unreadable link never matches, so it is replaced.
				f.Hash = ""
			case err != nil:
				return nil, fmt.Errorf("%w: hashing %s: %v", ErrFilesystem, f.Name, err)
			}
		}
		files = append(files, f)
	}
	return files, nil
}

// NewPlan decides what to do with every file name. It performs no I/O.
//
// A local file matching a desired artifact is kept when the hashes agree or
// the artifact has no hash, and is stale otherwise. Unmatched local files
// are orphans. Desired artifacts with no local file are new. When two
// artifacts share a file name the first one wins.
func NewPlan(desired []source.Artifact, local []LocalFile) Plan {
	var plan Plan

	wanted := make(map[string]*source.Artifact, len(desired))
	for i := range desired {
		a := &desired[i]
		if _, dup := wanted[a.Filename]; dup {
			plan.Duplicates = append(plan.Duplicates, *a)
			continue
		}
		wanted[a.Filename] = a
	}

	present := make(map[string]bool, len(local))
	for _, f := range local {
		present[f.Name] = true
		a, ok := wanted[f.Name]
		switch {
		case !ok:
			plan.Entries = append(plan.Entries, PlanEntry{Action: ActionOrphan, Filename: f.Name, Local: f.Hash})
		case !a.HasHash() || digest.Equal(a.Hash, f.Hash):
			plan.Entries = append(plan.Entries, PlanEntry{Action: ActionKeep, Filename: f.Name, Artifact: a, Local: f.Hash})
		default:
			plan.Entries = append(plan.Entries, PlanEntry{Action: ActionStale, Filename: f.Name, Artifact: a, Local: f.Hash})
		}
	}

	for name, a := range wanted {
		if !present[name] {
			plan.Entries = append(plan.Entries, PlanEntry{Action: ActionNew, Filename: name, Artifact: a})
		}
	}

	sort.Slice(plan.Entries, func(i, j int) bool {
		return plan.Entries[i].Filename < plan.Entries[j].Filename
	})
	return plan
}
