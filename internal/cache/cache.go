// Package cache stores downloaded artifacts by content hash so that a
// rebuild, or a build of a different output, never fetches the same bytes
// twice.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/niterpack/niter/internal/digest"
)

// Cache provides content-addressed file storage.
// Entries are keyed by their sha-512 digest and verified on retrieval.
type Cache struct {
	dir string
}

// New creates a Cache at the given directory.
// The directory is created if it does not exist.
func New(dir string) (*Cache, error) {
	objDir := filepath.Join(dir, "objects")
	if err := os.MkdirAll(objDir, 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", objDir, err)
	}
	return &Cache{dir: dir}, nil
}

// DefaultDir returns the default cache directory.
// Uses XDG_CACHE_HOME if set, otherwise ~/.cache/niter.
func DefaultDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "niter")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		if runtime.GOOS == "windows" {
			return filepath.Join(os.TempDir(), "niter-cache")
		}
		return filepath.Join("/tmp", "niter-cache")
	}
	return filepath.Join(home, ".cache", "niter")
}

// Get retrieves a cached artifact by its hash.
// Returns nil, false if not cached. A corrupt entry is removed and
// reported as a miss.
func (c *Cache) Get(hash string) ([]byte, bool, error) {
	hash = digest.Normalize(hash)
	path := c.objectPath(hash)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry %s: %w", hash, err)
	}

	if digest.Bytes(data) != hash {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return data, true, nil
}

// Put stores content under its hash. The content must match the hash.
// No-op if already cached.
func (c *Cache) Put(hash string, content []byte) error {
	hash = digest.Normalize(hash)
	if actual := digest.Bytes(content); actual != hash {
		return fmt.Errorf("cache put: content hash %s does not match declared hash %s", actual, hash)
	}

	path := c.objectPath(hash)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating cache subdirectory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating cache temp file: %w", err)
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
		return fmt.Errorf("writing cache temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cache temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming cache temp file: %w", err)
	}

	success = true
	return nil
}

// Has checks if a hash exists in the cache without reading content.
func (c *Cache) Has(hash string) bool {
	_, err := os.Stat(c.objectPath(digest.Normalize(hash)))
	return err == nil
}

// Path returns the cache directory path.
func (c *Cache) Path() string {
	return c.dir
}

func (c *Cache) objectPath(hash string) string {
	if len(hash) < 2 {
		return filepath.Join(c.dir, "objects", hash)
	}
	return filepath.Join(c.dir, "objects", hash[:2], hash)
}
