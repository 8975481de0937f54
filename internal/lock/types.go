// Package lock records the artifacts a build resolved in niter.lock, so a
// later build can reproduce them without asking the registry.
package lock

import (
	"context"
	"errors"
	"fmt"

	"github.com/niterpack/niter/internal/project"
	"github.com/niterpack/niter/internal/source"
)

// FileName is the lockfile at the project root.
const FileName = "niter.lock"

// ErrNotLocked means a mod has no lock entry or its source changed since
// the lock was written.
var ErrNotLocked = errors.New("not locked")

// Lockfile represents niter.lock.
type Lockfile struct {
	Version int         `yaml:"version"`
	Mods    []LockedMod `yaml:"mods"`
}

// LockedMod is the resolved state of one mod.
type LockedMod struct {
	Name     string `yaml:"name"`
	Source   string `yaml:"source"` // as written in the mod file, e.g. "modrinth 0.5.3"
	Filename string `yaml:"filename"`
	URL      string `yaml:"url"`
	SHA512   string `yaml:"sha512,omitempty"`
}

// New builds a lockfile from resolved artifacts. Artifacts are matched to
// mods by name; mods without an artifact, and repeated names, are left out.
func New(mods []project.Mod, artifacts []source.Artifact) *Lockfile {
	byName := make(map[string]source.Artifact, len(artifacts))
	for _, a := range artifacts {
		if _, ok := byName[a.Name]; !ok {
			byName[a.Name] = a
		}
	}

	lf := &Lockfile{Version: 1, Mods: []LockedMod{}}
	for _, m := range mods {
		a, ok := byName[m.Name]
		if !ok {
			continue
		}
		delete(byName, m.Name)
		lf.Mods = append(lf.Mods, LockedMod{
			Name:     m.Name,
			Source:   m.Source.String(),
			Filename: a.Filename,
			URL:      a.URL,
			SHA512:   a.Hash,
		})
	}
	return lf
}

// Find returns the entry for a mod.
func (lf *Lockfile) Find(name string) (LockedMod, bool) {
	for _, m := range lf.Mods {
		if m.Name == name {
			return m, true
		}
	}
	return LockedMod{}, false
}

// Resolver serves artifacts from a lockfile instead of the registry.
type Resolver struct {
	Lockfile *Lockfile
}

// ResolveAll returns the locked artifact of every mod in order. A mod that
// is missing from the lock, or whose source differs from the locked one,
// fails with ErrNotLocked. Failures are joined unless failFast is set.
func (r *Resolver) ResolveAll(ctx context.Context, mods []project.Mod, concurrency int, failFast bool) ([]source.Artifact, error) {
	artifacts := make([]source.Artifact, 0, len(mods))
	var errs []error
	for _, m := range mods {
		if err := ctx.Err(); err != nil {
			return artifacts, err
		}
		a, err := r.resolve(m)
		if err != nil {
			if failFast {
				return artifacts, err
			}
			errs = append(errs, err)
			continue
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, errors.Join(errs...)
}

func (r *Resolver) resolve(m project.Mod) (source.Artifact, error) {
	locked, ok := r.Lockfile.Find(m.Name)
	if !ok {
		return source.Artifact{}, &source.ModError{Mod: m.Name, Op: "lock", Err: ErrNotLocked, Hint: "run 'niter build' without --locked"}
	}
	if want := m.Source.String(); locked.Source != want {
		return source.Artifact{}, &source.ModError{
			Mod:  m.Name,
			Op:   "lock",
			Err:  fmt.Errorf("%w: locked '%s', mod file has '%s'", ErrNotLocked, locked.Source, want),
			Hint: "run 'niter build' without --locked",
		}
	}
	return source.Artifact{
		Name:     m.Name,
		URL:      locked.URL,
		Filename: locked.Filename,
		Hash:     locked.SHA512,
	}, nil
}
