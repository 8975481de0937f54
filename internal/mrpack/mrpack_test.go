package mrpack

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/niterpack/niter/internal/digest"
	"github.com/niterpack/niter/internal/project"
	"github.com/niterpack/niter/internal/source"
)

func fabricPack() project.Manifest {
	return project.Manifest{
		Name:          "skyblock",
		Version:       "1.2.0",
		Loader:        "fabric",
		GameVersion:   "1.20.1",
		LoaderVersion: "0.15.7",
	}
}

func TestDependencies(t *testing.T) {
	tests := []struct {
		name    string
		m       project.Manifest
		want    map[string]string
		wantErr bool
	}{
		{"fabric", fabricPack(), map[string]string{"minecraft": "1.20.1", "fabric-loader": "0.15.7"}, false},
		{"forge", project.Manifest{GameVersion: "1.19.2", Loader: "Forge", LoaderVersion: "43.2.0"}, map[string]string{"minecraft": "1.19.2", "forge": "43.2.0"}, false},
		{"quilt", project.Manifest{GameVersion: "1.20.1", Loader: "quilt", LoaderVersion: "0.23.1"}, map[string]string{"minecraft": "1.20.1", "quilt-loader": "0.23.1"}, false},
		{"vanilla", project.Manifest{GameVersion: "1.20.1"}, map[string]string{"minecraft": "1.20.1"}, false},
		{"no game version", project.Manifest{Loader: "fabric", LoaderVersion: "1"}, nil, true},
		{"no loader version", project.Manifest{GameVersion: "1.20.1", Loader: "fabric"}, nil, true},
		{"unknown loader", project.Manifest{GameVersion: "1.20.1", Loader: "rift", LoaderVersion: "1"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Dependencies(tt.m)
			if tt.wantErr {
				if !errors.Is(err, ErrIncomplete) {
					t.Errorf("expected ErrIncomplete, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Dependencies: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestExportRoundTrip(t *testing.T) {
	root := t.TempDir()
	mods := filepath.Join(root, "mods")
	if err := os.MkdirAll(mods, 0755); err != nil {
		t.Fatal(err)
	}
	for name, content := range map[string]string{"sodium.jar": "sodium", "lithium.jar": "lithium-bytes"} {
		if err := os.WriteFile(filepath.Join(mods, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	artifacts := []source.Artifact{
		{Name: "sodium", URL: "https://cdn.modrinth.com/sodium.jar", Filename: "sodium.jar"},
		{Name: "lithium", URL: "https://cdn.modrinth.com/lithium.jar", Filename: "lithium.jar"},
		{Name: "dup", URL: "https://elsewhere.test/sodium.jar", Filename: "sodium.jar"},
	}

	path, err := Export(fabricPack(), mods, filepath.Join(root, "pack"), artifacts)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if filepath.Base(path) != "skyblock-1.2.0.mrpack" {
		t.Errorf("pack name = %s", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if idx.FormatVersion != 1 || idx.Game != "minecraft" || idx.Name != "skyblock" || idx.VersionID != "1.2.0" {
		t.Errorf("unexpected header %+v", idx)
	}
	if len(idx.Files) != 2 {
		t.Fatalf("files = %+v, want 2", idx.Files)
	}
	f := idx.Files[0]
	if f.Path != "mods/lithium.jar" || f.FileSize != int64(len("lithium-bytes")) {
		t.Errorf("unexpected first file %+v", f)
	}
	if f.Hashes["sha512"] != digest.Bytes([]byte("lithium-bytes")) {
		t.Errorf("sha512 = %s", f.Hashes["sha512"])
	}
	if len(f.Hashes["sha1"]) != 40 {
		t.Errorf("sha1 = %q", f.Hashes["sha1"])
	}
	if idx.Files[1].Downloads[0] != "https://cdn.modrinth.com/sodium.jar" {
		t.Errorf("duplicate artifact should not replace the first, got %v", idx.Files[1].Downloads)
	}
}

func TestNewIndexMissingFile(t *testing.T) {
	_, err := NewIndex(fabricPack(), t.TempDir(), []source.Artifact{{Name: "ghost", Filename: "ghost.jar"}})
	if err == nil {
		t.Fatal("expected error for unsynchronized mod")
	}
}

func TestNewIndexEmptyHasFilesArray(t *testing.T) {
	idx, err := NewIndex(fabricPack(), t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	data, err := Encode(idx)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if back.Files == nil || len(back.Files) != 0 {
		t.Errorf("files = %#v, want empty array", back.Files)
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(project.Manifest{Name: "pack"}); got != "pack.mrpack" {
		t.Errorf("FileName = %q", got)
	}
	if got := FileName(fabricPack()); got != "skyblock-1.2.0.mrpack" {
		t.Errorf("FileName = %q", got)
	}
}

func TestDecodeWithoutIndex(t *testing.T) {
	if _, err := Decode([]byte("not a zip")); err == nil {
		t.Error("expected error for invalid pack")
	}
}
