package project

import "fmt"

// Manifest holds the modpack metadata read from niter.toml.
// It is treated as immutable for the duration of a build.
type Manifest struct {
	Name    string
	Version string

	// Loader and GameVersion narrow registry version listings.
	Loader      string
	GameVersion string

	// LoaderVersion is only needed when exporting a Modrinth pack.
	LoaderVersion string
}

// SourceKind discriminates the variants of Source.
type SourceKind int

const (
	// SourceDirect is a plain download URL.
	SourceDirect SourceKind = iota + 1
	// SourceRegistry is a Modrinth version id or version label.
	SourceRegistry
)

func (k SourceKind) String() string {
	switch k {
	case SourceDirect:
		return "url"
	case SourceRegistry:
		return "modrinth"
	default:
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
}

// Source describes where a mod comes from. Exactly one variant is set,
// selected by Kind. Build values with DirectSource or RegistrySource.
type Source struct {
	Kind SourceKind

	// URL is set for SourceDirect.
	URL string

	// Version is set for SourceRegistry: either a version id or a
	// human-readable version number.
	Version string
}

// DirectSource returns a Source pointing at a download URL.
func DirectSource(url string) Source {
	return Source{Kind: SourceDirect, URL: url}
}

// RegistrySource returns a Source referencing a registry version.
func RegistrySource(version string) Source {
	return Source{Kind: SourceRegistry, Version: version}
}

// String renders the source the way it appears in a mod file.
func (s Source) String() string {
	switch s.Kind {
	case SourceDirect:
		return "url " + s.URL
	case SourceRegistry:
		return "modrinth " + s.Version
	default:
		return "invalid source"
	}
}

// Mod is a single mod reference within a project.
type Mod struct {
	Name   string
	File   string // optional file name override
	Source Source
}

// Project is a manifest together with its mods.
type Project struct {
	Manifest Manifest
	Mods     []Mod
}

// Find returns the mod with the given name.
func (p *Project) Find(name string) (Mod, bool) {
	for _, m := range p.Mods {
		if m.Name == name {
			return m, true
		}
	}
	return Mod{}, false
}
