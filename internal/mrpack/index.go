// Package mrpack exports a built instance as a Modrinth modpack: a zip
// holding modrinth.index.json, which lists every mod with its download URL
// and hashes.
package mrpack

import (
	"crypto/sha1"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/niterpack/niter/internal/project"
	"github.com/niterpack/niter/internal/source"
)

const (
	// IndexFileName is the index entry inside a pack.
	IndexFileName = "modrinth.index.json"
	// Extension is the pack file extension.
	Extension = ".mrpack"

	formatVersion = 1
	game          = "minecraft"
)

// ErrIncomplete means the manifest lacks what a pack index requires.
var ErrIncomplete = errors.New("manifest incomplete for pack export")

// Index is the modrinth.index.json document.
type Index struct {
	FormatVersion int               `json:"formatVersion"`
	Game          string            `json:"game"`
	VersionID     string            `json:"versionId"`
	Name          string            `json:"name"`
	Summary       string            `json:"summary,omitempty"`
	Files         []File            `json:"files"`
	Dependencies  map[string]string `json:"dependencies"`
}

// File is one downloadable file of a pack.
type File struct {
	Path      string            `json:"path"`
	Hashes    map[string]string `json:"hashes"`
	Env       *Env              `json:"env,omitempty"`
	Downloads []string          `json:"downloads"`
	FileSize  int64             `json:"fileSize"`
}

// Env declares on which sides a file is needed.
type Env struct {
	Client string `json:"client"`
	Server string `json:"server"`
}

// LoaderKey maps a loader name to its dependency key in the index.
func LoaderKey(loader string) (string, error) {
	switch strings.ToLower(loader) {
	case "forge":
		return "forge", nil
	case "neoforge":
		return "neoforge", nil
	case "fabric":
		return "fabric-loader", nil
	case "quilt":
		return "quilt-loader", nil
	default:
		return "", fmt.Errorf("%w: unsupported loader '%s'", ErrIncomplete, loader)
	}
}

// Dependencies builds the dependency map: the game version plus the loader
// and its version when a loader is set.
func Dependencies(m project.Manifest) (map[string]string, error) {
	if m.GameVersion == "" {
		return nil, fmt.Errorf("%w: [minecraft] version is required", ErrIncomplete)
	}
	deps := map[string]string{game: m.GameVersion}
	if m.Loader == "" {
		return deps, nil
	}
	key, err := LoaderKey(m.Loader)
	if err != nil {
		return nil, err
	}
	if m.LoaderVersion == "" {
		return nil, fmt.Errorf("%w: [minecraft] loader-version is required for loader '%s'", ErrIncomplete, m.Loader)
	}
	deps[key] = m.LoaderVersion
	return deps, nil
}

// NewIndex builds the index for artifacts already synchronized into
// modsDir. Hashes and sizes are taken from the files on disk. Artifacts
// sharing a file name after the first are skipped.
func NewIndex(m project.Manifest, modsDir string, artifacts []source.Artifact) (*Index, error) {
	deps, err := Dependencies(m)
	if err != nil {
		return nil, err
	}

	idx := &Index{
		FormatVersion: formatVersion,
		Game:          game,
		VersionID:     m.Version,
		Name:          m.Name,
		Files:         []File{},
		Dependencies:  deps,
	}

	seen := make(map[string]bool, len(artifacts))
	for _, a := range artifacts {
		if seen[a.Filename] {
			continue
		}
		seen[a.Filename] = true

		f, err := describe(filepath.Join(modsDir, a.Filename))
		if err != nil {
			return nil, fmt.Errorf("mod '%s': %w", a.Name, err)
		}
		f.Path = "mods/" + a.Filename
		f.Downloads = []string{a.URL}
		idx.Files = append(idx.Files, f)
	}

	sort.Slice(idx.Files, func(i, j int) bool {
		return idx.Files[i].Path < idx.Files[j].Path
	})
	return idx, nil
}

// describe hashes a file with sha1 and sha512 in one pass.
func describe(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, err
	}
	defer f.Close()

	h1 := sha1.New()
	h512 := sha512.New()
	n, err := io.Copy(io.MultiWriter(h1, h512), f)
	if err != nil {
		return File{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	return File{
		Hashes: map[string]string{
			"sha1":   hex.EncodeToString(h1.Sum(nil)),
			"sha512": hex.EncodeToString(h512.Sum(nil)),
		},
		FileSize: n,
	}, nil
}
