package sandbox

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestValidatePathWithinRoot(t *testing.T) {
	root := t.TempDir()

	resolved, err := ValidatePath(root, "sodium-0.5.3.jar")
	if err != nil {
		t.Fatalf("ValidatePath: %v", err)
	}

	realRoot, _ := filepath.EvalSymlinks(root)
	expected := filepath.Join(realRoot, "sodium-0.5.3.jar")
	if resolved != expected {
		t.Errorf("got %q, want %q", resolved, expected)
	}
}

func TestValidatePathMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "not", "yet")

	resolved, err := ValidatePath(root, "a.jar")
	if err != nil {
		t.Fatalf("ValidatePath: %v", err)
	}
	if filepath.Base(resolved) != "a.jar" {
		t.Errorf("got %q", resolved)
	}
}

func TestValidatePathRejects(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"../escape.jar", "mods/../../escape.jar", ".", ""} {
		if _, err := ValidatePath(root, name); err == nil {
			t.Errorf("ValidatePath(%q): expected error", name)
		} else if !strings.Contains(err.Error(), "outside") {
			t.Errorf("ValidatePath(%q): unexpected error %v", name, err)
		}
	}
}

func TestValidatePathRejectsSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test not reliable on Windows")
	}

	root := t.TempDir()
	outsideDir := t.TempDir()

	symlink := filepath.Join(root, "escape-link")
	if err := os.Symlink(outsideDir, symlink); err != nil {
		t.Fatalf("creating symlink: %v", err)
	}

	_, err := ValidatePath(root, "escape-link/file.jar")
	if err == nil {
		t.Fatal("expected error for symlink escape")
	}
}

func TestWriteCreatesDirectoryAndFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "instance", "mods")
	d := New(root)

	if err := d.Write("lithium.jar", []byte("jar bytes"), 0644); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(root, "lithium.jar"))
	if err != nil {
		t.Fatalf("reading written file: %v", err)
	}
	if string(got) != "jar bytes" {
		t.Errorf("content = %q", got)
	}

	entries, _ := os.ReadDir(root)
	if len(entries) != 1 {
		t.Errorf("expected no leftover temp files, got %d entries", len(entries))
	}
}

func TestWriteOverwritesExisting(t *testing.T) {
	d := New(t.TempDir())

	if err := d.Write("a.jar", []byte("original"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := d.Write("a.jar", []byte("updated"), 0644); err != nil {
		t.Fatal(err)
	}

	p, _ := d.Path("a.jar")
	data, _ := os.ReadFile(p)
	if string(data) != "updated" {
		t.Errorf("content = %q, want %q", data, "updated")
	}
}

func TestWriteRejectsEscape(t *testing.T) {
	parent := t.TempDir()
	d := New(filepath.Join(parent, "mods"))

	if err := d.Write("../escape.jar", []byte("bad"), 0644); err == nil {
		t.Fatal("expected error for escape attempt")
	}
	if _, err := os.Stat(filepath.Join(parent, "escape.jar")); !os.IsNotExist(err) {
		t.Error("escaping file must not be written")
	}
}

func TestRemove(t *testing.T) {
	d := New(t.TempDir())

	if err := d.Write("old.jar", []byte("bye"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := d.Remove("old.jar"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := d.Remove("old.jar"); err != nil {
		t.Fatalf("Remove of missing file: %v", err)
	}
	if err := d.Remove("../x.jar"); err == nil {
		t.Fatal("expected error for escape attempt")
	}
}

func TestRemoveSymlinkKeepsTarget(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink test not reliable on Windows")
	}

	root := t.TempDir()
	target := filepath.Join(t.TempDir(), "outside.jar")
	if err := os.WriteFile(target, []byte("keep me"), 0644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(root, "old.jar")
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("creating symlink: %v", err)
	}

	if err := New(root).Remove("old.jar"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Lstat(link); !os.IsNotExist(err) {
		t.Error("symlink should be removed")
	}
	if _, err := os.Stat(target); err != nil {
		t.Errorf("link target must survive: %v", err)
	}
}
