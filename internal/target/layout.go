// Package target maps build output names to directories.
package target

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/niterpack/niter/internal/config"
)

// BuildDirName is the directory, relative to the project root, that holds
// the built-in outputs.
const BuildDirName = "build"

// Built-in output names.
const (
	Instance = "instance"
	Server   = "server"
	Modrinth = "modrinth"
)

// builtinOutputs are relative to the project root. Modrinth packs are built
// from the instance mods directory.
var builtinOutputs = map[string]string{
	Instance: filepath.Join(BuildDirName, "instance", "mods"),
	Server:   filepath.Join(BuildDirName, "server", "mods"),
	Modrinth: filepath.Join(BuildDirName, "modrinth"),
}

// Output is a resolved build output.
type Output struct {
	Name    string
	ModsDir string // absolute directory synchronized with the mods
	PackDir string // absolute directory for the .mrpack, empty for plain outputs
}

// Pack reports whether the output produces a Modrinth pack.
func (o Output) Pack() bool {
	return o.PackDir != ""
}

// Layout resolves output names for one project.
type Layout struct {
	root        string
	definitions map[string]string
}

// NewLayout creates a Layout with the built-in outputs and optional
// custom definitions, which may also move a built-in output.
func NewLayout(projectRoot string, custom []config.Output) *Layout {
	defs := make(map[string]string, len(builtinOutputs)+len(custom))
	for name, dest := range builtinOutputs {
		defs[name] = dest
	}
	for _, o := range custom {
		defs[o.Name] = o.Destination
	}
	return &Layout{root: projectRoot, definitions: defs}
}

// Resolve returns the output for a name.
func (l *Layout) Resolve(name string) (Output, error) {
	dest, ok := l.definitions[name]
	if !ok {
		return Output{}, fmt.Errorf("unknown output '%s', define it in settings: outputs: [{name: %s, destination: dist/%s/mods}]", name, name, name)
	}
	if name != Modrinth {
		return Output{Name: name, ModsDir: l.abs(dest)}, nil
	}

	instance, err := l.Resolve(Instance)
	if err != nil {
		return Output{}, err
	}
	return Output{Name: name, ModsDir: instance.ModsDir, PackDir: l.abs(dest)}, nil
}

// Names returns all known output names, sorted.
func (l *Layout) Names() []string {
	names := make([]string, 0, len(l.definitions))
	for name := range l.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsCustom reports whether name is defined in settings rather than built in.
func (l *Layout) IsCustom(name string) bool {
	_, isBuiltin := builtinOutputs[name]
	_, isDefined := l.definitions[name]
	return isDefined && !isBuiltin
}

func (l *Layout) abs(dest string) string {
	if filepath.IsAbs(dest) {
		return filepath.Clean(dest)
	}
	return filepath.Join(l.root, dest)
}
