package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	// ManifestFileName is the project manifest at the project root.
	ManifestFileName = "niter.toml"
	// ModsDirName holds one TOML file per mod.
	ModsDirName = "mods"

	modFileExt = ".toml"
)

var (
	// ErrNoManifest is returned when a directory has no niter.toml.
	ErrNoManifest = errors.New("could not find " + ManifestFileName)
	// ErrModExists is returned when adding a mod whose file already exists.
	ErrModExists = errors.New("mod already exists")
	// ErrModNotFound is returned when removing a mod that does not exist.
	ErrModNotFound = errors.New("mod does not exist")
)

type tomlManifest struct {
	Modpack   tomlModpack    `toml:"modpack"`
	Minecraft *tomlMinecraft `toml:"minecraft,omitempty"`
}

type tomlModpack struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

type tomlMinecraft struct {
	Loader        string `toml:"loader,omitempty"`
	Version       string `toml:"version,omitempty"`
	LoaderVersion string `toml:"loader-version,omitempty"`
}

type tomlMod struct {
	Name    string `toml:"name,omitempty"`
	File    string `toml:"file,omitempty"`
	URL     string `toml:"url,omitempty"`
	Version string `toml:"version,omitempty"`
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Path   string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is invalid:\n  - %s", e.Path, strings.Join(e.Errors, "\n  - "))
}

// ManifestPath returns the manifest location for a project directory.
func ManifestPath(dir string) string {
	return filepath.Join(dir, ManifestFileName)
}

// ModPath returns the file that stores the named mod.
func ModPath(dir, name string) string {
	return filepath.Join(dir, ModsDirName, name+modFileExt)
}

// Exists reports whether dir contains a manifest.
func Exists(dir string) bool {
	_, err := os.Stat(ManifestPath(dir))
	return err == nil
}

// Load reads the manifest and every mod file of the project in dir.
// Mods are returned sorted by file name.
func Load(dir string) (*Project, error) {
	m, err := LoadManifest(ManifestPath(dir))
	if err != nil {
		return nil, err
	}

	mods, err := LoadMods(filepath.Join(dir, ModsDirName))
	if err != nil {
		return nil, err
	}

	return &Project{Manifest: *m, Mods: mods}, nil
}

// LoadManifest reads and validates a niter.toml file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w in %s", ErrNoManifest, filepath.Dir(path))
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	return ParseManifest(path, data)
}

// ParseManifest decodes manifest bytes. path is only used in messages.
func ParseManifest(path string, data []byte) (*Manifest, error) {
	var tm tomlManifest
	if err := toml.Unmarshal(data, &tm); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	m := &Manifest{
		Name:    strings.TrimSpace(tm.Modpack.Name),
		Version: tm.Modpack.Version,
	}
	if tm.Minecraft != nil {
		m.Loader = tm.Minecraft.Loader
		m.GameVersion = tm.Minecraft.Version
		m.LoaderVersion = tm.Minecraft.LoaderVersion
	}

	if m.Name == "" {
		return nil, &ValidationError{Path: path, Errors: []string{"[modpack] 'name' is required"}}
	}
	return m, nil
}

// LoadMods reads every *.toml file in dir. A missing directory yields no mods.
// Two files declaring the same mod name are a validation error.
func LoadMods(dir string) ([]Mod, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading mods directory %s: %w", dir, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var mods []Mod
	var errs []error
	seen := make(map[string]string) // mod name -> first file
	var dups []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != modFileExt {
			continue
		}
		m, err := LoadMod(filepath.Join(dir, e.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if first, ok := seen[m.Name]; ok {
			dups = append(dups, fmt.Sprintf("mod '%s' is declared by both %s and %s", m.Name, first, e.Name()))
			continue
		}
		seen[m.Name] = e.Name()
		mods = append(mods, *m)
	}
	if len(dups) > 0 {
		errs = append(errs, &ValidationError{Path: dir, Errors: dups})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return mods, nil
}

// LoadMod reads a single mod file. The mod name defaults to the file stem.
func LoadMod(path string) (*Mod, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mod file %s: %w", path, err)
	}
	stem := strings.TrimSuffix(filepath.Base(path), modFileExt)
	return ParseMod(path, stem, data)
}

// ParseMod decodes mod file bytes, using defaultName when the file has no name key.
func ParseMod(path, defaultName string, data []byte) (*Mod, error) {
	var tm tomlMod
	if err := toml.Unmarshal(data, &tm); err != nil {
		return nil, fmt.Errorf("parsing mod file %s: %w", path, err)
	}

	m := &Mod{Name: tm.Name, File: tm.File}
	if m.Name == "" {
		m.Name = defaultName
	}

	var errs []string
	switch {
	case tm.URL != "" && tm.Version != "":
		errs = append(errs, "'url' and 'version' are mutually exclusive")
	case tm.URL != "":
		m.Source = DirectSource(tm.URL)
	case tm.Version != "":
		m.Source = RegistrySource(tm.Version)
	default:
		errs = append(errs, "one of 'url' or 'version' is required")
	}
	if m.File != "" && (strings.ContainsAny(m.File, `/\`) || m.File == "." || m.File == "..") {
		errs = append(errs, fmt.Sprintf("'file' must be a plain file name, got '%s'", m.File))
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Path: path, Errors: errs}
	}
	return m, nil
}

// Init writes a new manifest into dir. It refuses to overwrite an existing
// manifest unless force is set.
func Init(dir string, m Manifest, force bool) error {
	path := ManifestPath(dir)
	if !force && Exists(dir) {
		return fmt.Errorf("a modpack is already initialized in %s (use --force to overwrite)", dir)
	}
	return SaveManifest(path, m)
}

// SaveManifest writes a manifest atomically.
func SaveManifest(path string, m Manifest) error {
	tm := tomlManifest{Modpack: tomlModpack{Name: m.Name, Version: m.Version}}
	if m.Loader != "" || m.GameVersion != "" || m.LoaderVersion != "" {
		tm.Minecraft = &tomlMinecraft{Loader: m.Loader, Version: m.GameVersion, LoaderVersion: m.LoaderVersion}
	}
	data, err := toml.Marshal(tm)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	return writeAtomic(path, data)
}

// AddMod writes a new mod file into the project in dir.
func AddMod(dir string, m Mod) error {
	if !Exists(dir) {
		return fmt.Errorf("%w in %s", ErrNoManifest, dir)
	}
	path := ModPath(dir, m.Name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: '%s'", ErrModExists, m.Name)
	}
	existing, err := LoadMods(filepath.Join(dir, ModsDirName))
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.Name == m.Name {
			return fmt.Errorf("%w: '%s'", ErrModExists, m.Name)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating mods directory: %w", err)
	}
	return SaveMod(path, m)
}

// SaveMod writes a mod file atomically.
func SaveMod(path string, m Mod) error {
	tm := tomlMod{File: m.File}
	if stem := strings.TrimSuffix(filepath.Base(path), modFileExt); stem != m.Name {
		tm.Name = m.Name
	}
	switch m.Source.Kind {
	case SourceDirect:
		tm.URL = m.Source.URL
	case SourceRegistry:
		tm.Version = m.Source.Version
	default:
		return fmt.Errorf("mod '%s' has no source", m.Name)
	}

	data, err := toml.Marshal(tm)
	if err != nil {
		return fmt.Errorf("marshaling mod '%s': %w", m.Name, err)
	}
	return writeAtomic(path, data)
}

// RemoveMod deletes the named mod file from the project in dir.
func RemoveMod(dir, name string) error {
	if !Exists(dir) {
		return fmt.Errorf("%w in %s", ErrNoManifest, dir)
	}
	path := ModPath(dir, name)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: '%s'", ErrModNotFound, name)
		}
		return fmt.Errorf("removing mod '%s': %w", name, err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing temp file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming temp file to %s: %w", path, err)
	}
	return nil
}
