// Package sandbox confines file writes and removals to a single directory.
// Artifact file names come from remote registries, so every path is
// resolved (symlinks included) and checked for containment before use.
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Dir is a directory that file operations may not escape.
type Dir struct {
	Root string
}

// New returns a Dir rooted at root.
func New(root string) Dir {
	return Dir{Root: root}
}

// ValidatePath checks if name is safely within root.
// It resolves symlinks, normalizes paths, and verifies containment.
// Returns the resolved absolute path or an error.
func ValidatePath(root, name string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	realRoot, err := resolveExistingPath(absRoot)
	if err != nil {
		return "", fmt.Errorf("resolving root symlinks: %w", err)
	}

	candidate := filepath.Clean(filepath.Join(realRoot, name))
	resolved, err := resolveExistingPath(candidate)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	// Trailing separator keeps "root2" from matching "root".
	rootPrefix := realRoot + string(filepath.Separator)
	if resolved == realRoot || !strings.HasPrefix(resolved, rootPrefix) {
		return "", fmt.Errorf("path '%s' resolves to '%s' which is outside '%s'", name, resolved, realRoot)
	}
	return resolved, nil
}

// resolveExistingPath resolves symlinks for the longest existing prefix of
// the path, then appends the non-existing suffix.
func resolveExistingPath(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}

	dir := filepath.Dir(path)
	if dir == path {
		return path, nil
	}
	resolvedDir, err := resolveExistingPath(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedDir, filepath.Base(path)), nil
}

// Ensure creates the root directory if it does not exist.
func (d Dir) Ensure() error {
	if err := os.MkdirAll(d.Root, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", d.Root, err)
	}
	return nil
}

// Write atomically writes content to name inside the directory. Either the
// complete file is in place afterwards or nothing was written.
func (d Dir) Write(name string, content []byte, perm os.FileMode) error {
	if err := d.Ensure(); err != nil {
		return err
	}
	resolved, err := ValidatePath(d.Root, name)
	if err != nil {
		return err
	}
	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	// Same directory as the target so the rename cannot cross filesystems.
	tmp, err := os.CreateTemp(dir, ".niter-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, resolved); err != nil {
		return fmt.Errorf("renaming temp file to %s: %w", resolved, err)
	}

	success = true
	return nil
}

// Remove deletes name inside the directory. A missing file is not an error.
func (d Dir) Remove(name string) error {
	clean := filepath.Clean(name)
	base := filepath.Base(clean)
	if base == "." || base == ".." || base == string(filepath.Separator) {
		return fmt.Errorf("invalid file name '%s'", name)
	}

	// Only the parent is resolved, so a symlink is removed itself rather
	// than the file it points to.
	var parent string
	var err error
	if dir := filepath.Dir(clean); dir == "." {
		parent, err = d.realRoot()
	} else {
		parent, err = ValidatePath(d.Root, dir)
	}
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(parent, base)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// realRoot returns the root with symlinks resolved.
func (d Dir) realRoot() (string, error) {
	abs, err := filepath.Abs(d.Root)
	if err != nil {
		return "", fmt.Errorf("resolving root: %w", err)
	}
	return resolveExistingPath(abs)
}

// Path returns the validated absolute path of name.
func (d Dir) Path(name string) (string, error) {
	return ValidatePath(d.Root, name)
}
