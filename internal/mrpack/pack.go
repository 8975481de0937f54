package mrpack

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/niterpack/niter/internal/project"
	"github.com/niterpack/niter/internal/sandbox"
	"github.com/niterpack/niter/internal/source"
)

// FileName returns the pack file name for a manifest.
func FileName(m project.Manifest) string {
	if m.Version == "" {
		return m.Name + Extension
	}
	return m.Name + "-" + m.Version + Extension
}

// Encode zips the index into pack bytes.
func Encode(idx *Index) ([]byte, error) {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding index: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(IndexFileName)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", IndexFileName, err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("writing %s: %w", IndexFileName, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing pack: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads the index out of pack bytes.
func Decode(data []byte) (*Index, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening pack: %w", err)
	}
	for _, f := range zr.File {
		if f.Name != IndexFileName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		raw, err := io.ReadAll(rc)
		if err != nil {
			return nil, err
		}
		var idx Index
		if err := json.Unmarshal(raw, &idx); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", IndexFileName, err)
		}
		return &idx, nil
	}
	return nil, fmt.Errorf("pack has no %s", IndexFileName)
}

// Export writes <name>-<version>.mrpack into packDir for mods already
// synchronized into modsDir, and returns the pack path.
func Export(m project.Manifest, modsDir, packDir string, artifacts []source.Artifact) (string, error) {
	idx, err := NewIndex(m, modsDir, artifacts)
	if err != nil {
		return "", err
	}
	data, err := Encode(idx)
	if err != nil {
		return "", err
	}

	dir := sandbox.New(packDir)
	name := FileName(m)
	if err := dir.Write(name, data, 0644); err != nil {
		return "", fmt.Errorf("writing pack: %w", err)
	}
	return dir.Path(name)
}
