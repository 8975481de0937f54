package niter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/niterpack/niter/internal/config"
	"github.com/niterpack/niter/internal/digest"
	"github.com/niterpack/niter/internal/lock"
	"github.com/niterpack/niter/internal/mrpack"
	"github.com/niterpack/niter/internal/project"
	"github.com/niterpack/niter/internal/registry"
)

const sodiumJar = "sodium jar bytes"

// newCDN serves mod files.
func newCDN(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/sodium-0.5.jar":
			_, _ = w.Write([]byte(sodiumJar))
		case "/direct/lithium.jar":
			_, _ = w.Write([]byte("lithium"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newRegistry serves a Modrinth-shaped API with a "sodium" mod and a
// "shaders" resource pack.
func newRegistry(t *testing.T, cdn string) *httptest.Server {
	t.Helper()
	sodium := registry.Version{
		ID:            "AANobbMI",
		ProjectID:     "sodiumid",
		VersionNumber: "0.5.0",
		Loaders:       []string{"fabric"},
		GameVersions:  []string{"1.20.1"},
		Files: []registry.File{{
			URL:      cdn + "/sodium-0.5.jar",
			Filename: "sodium-0.5.jar",
			Primary:  true,
			Size:     int64(len(sodiumJar)),
			Hashes:   map[string]string{"sha512": digest.Bytes([]byte(sodiumJar))},
		}},
	}
	projects := map[string]registry.Project{
		"sodium":  {ID: "sodiumid", Slug: "sodium", ProjectType: "mod", Versions: []string{"OLDVERSN", "AANobbMI"}},
		"shaders": {ID: "shaderid", Slug: "shaders", ProjectType: "resourcepack", Versions: []string{"SHADERV1"}},
	}

	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	router := chi.NewRouter()
	router.Get("/project/{slug}", func(w http.ResponseWriter, r *http.Request) {
		p, ok := projects[chi.URLParam(r, "slug")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, p)
	})
	router.Get("/project/{slug}/version", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "slug") != "sodium" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, []registry.Version{sodium})
	})
	router.Get("/version/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") != sodium.ID {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, sodium)
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func boolPtr(b bool) *bool {
	return &b
}

// setupProject writes a fabric manifest with the given mods.
func setupProject(t *testing.T, mods ...Mod) string {
	t.Helper()
	dir := t.TempDir()
	m := Manifest{Name: "pack", Version: "1.0.0", Loader: "fabric", GameVersion: "1.20.1", LoaderVersion: "0.15.0"}
	if err := project.Init(dir, m, false); err != nil {
		t.Fatal(err)
	}
	for _, mod := range mods {
		if err := project.AddMod(dir, mod); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newTestClient(t *testing.T, dir string) *Client {
	t.Helper()
	reg := newRegistry(t, newCDN(t).URL)
	client, err := New(Options{
		ProjectDir: dir,
		Settings:   &config.Settings{RegistryURL: reg.URL, NoCache: boolPtr(true)},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewDefaults(t *testing.T) {
	dir := t.TempDir()
	client, err := New(Options{ProjectDir: dir, Settings: &config.Settings{NoCache: boolPtr(true)}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if client.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", client.Dir(), dir)
	}
	if got := client.Settings().Concurrency; got != config.DefaultConcurrency {
		t.Errorf("concurrency = %d, want %d", got, config.DefaultConcurrency)
	}
	if got := len(client.Outputs()); got != 3 {
		t.Errorf("outputs = %v, want the 3 built-in outputs", client.Outputs())
	}
}

func TestNewDiscoversProjectSettings(t *testing.T) {
	dir := t.TempDir()
	content := "concurrency: 2\nno_cache: true\n"
	if err := os.WriteFile(filepath.Join(dir, config.ProjectFileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	client, err := New(Options{ProjectDir: dir, NoInherit: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := client.Settings().Concurrency; got != 2 {
		t.Errorf("concurrency = %d, want 2", got)
	}
}

func TestBuildInstance(t *testing.T) {
	cdn := newCDN(t)
	dir := setupProject(t,
		Mod{Name: "sodium", Source: RegistrySource("0.5.0")},
		Mod{Name: "lithium", Source: DirectSource(cdn.URL + "/direct/lithium.jar")},
	)
	client := newTestClient(t, dir)

	modsDir := filepath.Join(dir, "build", "instance", "mods")
	if err := os.MkdirAll(modsDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(modsDir, "removed.jar"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := client.Build(context.Background(), OutputInstance, BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(res.Artifacts) != 2 {
		t.Errorf("artifacts = %+v", res.Artifacts)
	}
	if res.PackPath != "" {
		t.Errorf("instance output should not write a pack, got %s", res.PackPath)
	}

	data, err := os.ReadFile(filepath.Join(modsDir, "sodium-0.5.jar"))
	if err != nil || string(data) != sodiumJar {
		t.Errorf("sodium-0.5.jar = %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(modsDir, "lithium.jar")); err != nil {
		t.Errorf("lithium.jar missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(modsDir, "removed.jar")); !os.IsNotExist(err) {
		t.Error("orphan removed.jar should be deleted")
	}

	check, err := client.Check(context.Background(), OutputInstance)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !check.Clean {
		t.Errorf("expected clean after build, drift = %+v", check.Drift)
	}
}

func TestBuildDryRunWritesNothing(t *testing.T) {
	dir := setupProject(t, Mod{Name: "sodium", Source: RegistrySource("AANobbMI")})
	client := newTestClient(t, dir)

	res, err := client.Build(context.Background(), OutputModrinth, BuildOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !res.Sync.DryRun || len(res.Sync.Plan.Filter(ActionNew)) != 1 {
		t.Errorf("unexpected dry run result %+v", res.Sync)
	}
	if res.PackPath != "" {
		t.Error("dry run must not export a pack")
	}
	if _, err := os.Stat(lock.Path(dir)); !os.IsNotExist(err) {
		t.Error("dry run must not write niter.lock")
	}
	if _, err := os.Stat(filepath.Join(dir, "build")); !os.IsNotExist(err) {
		t.Error("dry run must not create the build directory")
	}
}

func TestBuildModrinthExportsPack(t *testing.T) {
	dir := setupProject(t, Mod{Name: "sodium", Source: RegistrySource("AANobbMI")})
	client := newTestClient(t, dir)

	res, err := client.Build(context.Background(), OutputModrinth, BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if want := filepath.Join(dir, "build", "modrinth", "pack-1.0.0.mrpack"); res.PackPath != want {
		t.Fatalf("PackPath = %q, want %q", res.PackPath, want)
	}

	data, err := os.ReadFile(res.PackPath)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := mrpack.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(idx.Files) != 1 || idx.Files[0].Path != "mods/sodium-0.5.jar" {
		t.Errorf("files = %+v", idx.Files)
	}
	if idx.Dependencies["fabric-loader"] != "0.15.0" {
		t.Errorf("dependencies = %v", idx.Dependencies)
	}
}

func TestBuildResolutionFailureLeavesOutput(t *testing.T) {
	dir := setupProject(t, Mod{Name: "sodium", Source: RegistrySource("9.9.9")})
	client := newTestClient(t, dir)

	modsDir := filepath.Join(dir, "build", "server", "mods")
	if err := os.MkdirAll(modsDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(modsDir, "sodium-old.jar"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := client.Build(context.Background(), OutputServer, BuildOptions{})
	if err == nil {
		t.Fatal("expected resolution error")
	}
	if res.Sync != nil {
		t.Error("sync should not run")
	}
	if _, err := os.Stat(filepath.Join(modsDir, "sodium-old.jar")); err != nil {
		t.Error("existing files must be left alone")
	}
}

func TestBuildUnknownOutput(t *testing.T) {
	client := newTestClient(t, setupProject(t))
	if _, err := client.Build(context.Background(), "client", BuildOptions{}); err == nil {
		t.Fatal("expected error for unknown output")
	}
}

func TestAdd(t *testing.T) {
	dir := setupProject(t)
	client := newTestClient(t, dir)
	ctx := context.Background()

	mod, err := client.Add(ctx, "sodium", "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if mod.Source.Version != "AANobbMI" {
		t.Errorf("version = %q, want the newest matching version", mod.Source.Version)
	}
	saved, err := project.LoadMod(project.ModPath(dir, "sodium"))
	if err != nil {
		t.Fatalf("LoadMod: %v", err)
	}
	if saved.Source != RegistrySource("AANobbMI") {
		t.Errorf("saved source = %v", saved.Source)
	}

	if _, err := client.Add(ctx, "sodium", ""); !errors.Is(err, project.ErrModExists) {
		t.Errorf("expected ErrModExists, got %v", err)
	}
	if _, err := client.Add(ctx, "shaders", ""); !errors.Is(err, ErrNotModProject) {
		t.Errorf("expected ErrNotModProject, got %v", err)
	}
	if _, err := client.Add(ctx, "missing-mod", ""); err == nil {
		t.Error("expected error for unknown project")
	}
}

func TestAddWithoutFiltersUsesLastProjectVersion(t *testing.T) {
	dir := t.TempDir()
	if err := project.Init(dir, Manifest{Name: "plain", Version: "0.1.0"}, false); err != nil {
		t.Fatal(err)
	}
	client := newTestClient(t, dir)

	mod, err := client.Add(context.Background(), "sodium", "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if mod.Source.Version != "AANobbMI" {
		t.Errorf("version = %q, want the last listed version", mod.Source.Version)
	}
}

func TestAddExplicitVersion(t *testing.T) {
	dir := setupProject(t)
	mod, err := newTestClient(t, dir).Add(context.Background(), "sodium", "0.4.0")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if mod.Source.Version != "0.4.0" {
		t.Errorf("version = %q", mod.Source.Version)
	}
}

func TestRemove(t *testing.T) {
	dir := setupProject(t, Mod{Name: "sodium", Source: RegistrySource("0.5.0")})
	client := newTestClient(t, dir)

	if err := client.Remove("sodium"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	p, err := client.Project()
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Mods) != 0 {
		t.Errorf("mods = %+v", p.Mods)
	}
	if err := client.Remove("sodium"); !errors.Is(err, project.ErrModNotFound) {
		t.Errorf("expected ErrModNotFound, got %v", err)
	}
}

func TestInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "my-pack")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := Init(dir, "", false)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if m.Name != "my-pack" || m.Version != "0.1.0" {
		t.Errorf("manifest = %+v", m)
	}
	if _, err := Init(dir, "other", false); err == nil {
		t.Error("expected error when already initialized")
	}
	if m, err := Init(dir, "other", true); err != nil || m.Name != "other" {
		t.Errorf("forced Init = %+v, %v", m, err)
	}
}

func TestBuildLockedUsesLockfile(t *testing.T) {
	dir := setupProject(t, Mod{Name: "sodium", Source: RegistrySource("0.5.0")})
	ctx := context.Background()

	if _, err := newTestClient(t, dir).Build(ctx, OutputInstance, BuildOptions{}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	lf, err := lock.Load(lock.Path(dir))
	if err != nil {
		t.Fatalf("lockfile: %v", err)
	}
	if m, ok := lf.Find("sodium"); !ok || m.Filename != "sodium-0.5.jar" {
		t.Errorf("locked sodium = %+v, %v", m, ok)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	offline, err := New(Options{
		ProjectDir: dir,
		Settings:   &config.Settings{RegistryURL: down.URL, NoCache: boolPtr(true), Retries: new(int)},
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := offline.Build(ctx, OutputServer, BuildOptions{Locked: true})
	if err != nil {
		t.Fatalf("locked Build: %v", err)
	}
	if len(res.Sync.Done) != 1 {
		t.Errorf("done = %+v", res.Sync.Done)
	}
	if _, err := offline.Build(ctx, OutputServer, BuildOptions{}); err == nil {
		t.Error("unlocked build should fail without a registry")
	}
}

func TestBuildLockedWithoutLockfile(t *testing.T) {
	client := newTestClient(t, setupProject(t))
	if _, err := client.Build(context.Background(), OutputInstance, BuildOptions{Locked: true}); err == nil {
		t.Fatal("expected error without niter.lock")
	}
}
