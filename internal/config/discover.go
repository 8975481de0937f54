package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	configFileName = "config.yaml"
	configDirName  = "niter"

	// ProjectFileName is the project-level settings file.
	ProjectFileName = ".niter.yaml"
)

// Level is the precedence level of a settings file.
type Level string

const (
	LevelSystem  Level = "system"
	LevelUser    Level = "user"
	LevelProject Level = "project"
)

// LayerInfo describes a discovered settings file and its load status.
type LayerInfo struct {
	Err    error // non-nil if the file exists but failed to load
	Path   string
	Level  Level
	Loaded bool
}

// DiscoverOptions controls how settings paths are discovered.
type DiscoverOptions struct {
	// ProjectDir holds the project-level .niter.yaml (required).
	ProjectDir string

	// SystemConfigPath overrides the default system settings path.
	// Empty means the OS default. Set to a nonexistent path to skip.
	SystemConfigPath string

	// UserConfigPath overrides the default user settings path.
	// Empty means the OS default. Set to a nonexistent path to skip.
	UserConfigPath string

	// NoInherit skips the system and user layers.
	NoInherit bool
}

// DiscoverPaths returns the settings paths to check, from lowest
// precedence (system) to highest (project). Paths are deduplicated by
// absolute path.
func DiscoverPaths(opts DiscoverOptions) []LayerInfo {
	var layers []LayerInfo
	seen := make(map[string]bool)

	addLayer := func(level Level, path string) {
		if path == "" {
			return
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if seen[abs] {
			return
		}
		seen[abs] = true
		layers = append(layers, LayerInfo{Path: path, Level: level})
	}

	if !opts.NoInherit {
		sysPath := opts.SystemConfigPath
		if sysPath == "" {
			sysPath = defaultSystemConfigPath()
		}
		addLayer(LevelSystem, sysPath)

		userPath := opts.UserConfigPath
		if userPath == "" {
			userPath = defaultUserConfigPath()
		}
		addLayer(LevelUser, userPath)
	}

	addLayer(LevelProject, filepath.Join(opts.ProjectDir, ProjectFileName))
	return layers
}

// LoadLayered discovers, loads, and merges every settings layer. Missing
// files are skipped. The first invalid file aborts loading; the returned
// layers report what was found either way.
func LoadLayered(opts DiscoverOptions) (*Settings, []LayerInfo, error) {
	layers := DiscoverPaths(opts)
	loaded := []*Settings{{}}

	for i := range layers {
		s, err := Load(layers[i].Path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			layers[i].Err = err
			return nil, layers, err
		}
		layers[i].Loaded = true
		loaded = append(loaded, s)
	}

	merged, err := MergeAll(loaded)
	if err != nil {
		return nil, layers, err
	}
	return merged, layers, nil
}

// defaultSystemConfigPath returns the platform-standard system path.
func defaultSystemConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		pd := os.Getenv("ProgramData")
		if pd == "" {
			pd = `C:\ProgramData`
		}
		return filepath.Join(pd, configDirName, configFileName)
	default:
		return filepath.Join("/etc", configDirName, configFileName)
	}
}

// defaultUserConfigPath returns the platform-standard user path, which
// honors XDG_CONFIG_HOME on Unix.
func defaultUserConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, configDirName, configFileName)
}

// EnvNoInherit reports whether NITER_NO_INHERIT is "1" or "true".
func EnvNoInherit() bool {
	return envBoolTrue("NITER_NO_INHERIT")
}

func envBoolTrue(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true"
}
