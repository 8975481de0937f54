package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/niterpack/niter/internal/digest"
	"github.com/niterpack/niter/internal/sandbox"
)

// Path returns the lockfile location for a project directory.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load reads and validates a niter.lock file.
func Load(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lockfile %s: %w", path, err)
	}

	var lf Lockfile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parsing lockfile %s: %w", path, err)
	}

	if errs := Validate(&lf); len(errs) > 0 {
		return nil, &ValidationError{Path: path, Errors: errs}
	}

	return &lf, nil
}

// Save validates and writes a lockfile atomically.
func Save(path string, lf *Lockfile) error {
	if errs := Validate(lf); len(errs) > 0 {
		return &ValidationError{Path: path, Errors: errs}
	}
	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lockfile: %w", err)
	}
	dir := sandbox.New(filepath.Dir(path))
	if err := dir.Write(filepath.Base(path), data, 0644); err != nil {
		return fmt.Errorf("writing lockfile %s: %w", path, err)
	}
	return nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Path   string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid lockfile %s:\n  - %s", e.Path, strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Lockfile for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(lf *Lockfile) []string {
	var errs []string

	if lf.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d, only version 1 is supported", lf.Version))
	}

	names := make(map[string]bool)
	for i, m := range lf.Mods {
		prefix := fmt.Sprintf("mod[%d]", i)
		if m.Name != "" {
			prefix = fmt.Sprintf("mod '%s'", m.Name)
		}

		if m.Name == "" {
			errs = append(errs, fmt.Sprintf("%s: 'name' is required", prefix))
		} else if names[m.Name] {
			errs = append(errs, fmt.Sprintf("%s: duplicate mod name", prefix))
		} else {
			names[m.Name] = true
		}

		if m.URL == "" {
			errs = append(errs, fmt.Sprintf("%s: 'url' is required", prefix))
		}
		if m.Filename == "" || m.Filename == "." || m.Filename == ".." || strings.ContainsAny(m.Filename, `/\`) {
			errs = append(errs, fmt.Sprintf("%s: 'filename' must be a plain file name, got '%s'", prefix, m.Filename))
		}
		if m.SHA512 != "" && !digest.Valid(m.SHA512) {
			errs = append(errs, fmt.Sprintf("%s: 'sha512' is not a sha-512 hex digest", prefix))
		}
	}

	return errs
}
