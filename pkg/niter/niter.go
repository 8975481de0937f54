// Package niter is the public Go library API for niter, a modpack manager
// that resolves mod references into downloadable files and keeps a mods
// directory in sync with them.
//
// # Basic Usage
//
//	client, err := niter.New(niter.Options{ProjectDir: "/path/to/pack"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Download, replace, and delete files until build/server/mods matches the pack
//	result, err := client.Build(ctx, niter.OutputServer, niter.BuildOptions{})
//
//	// Report drift without changing anything
//	check, err := client.Check(ctx, niter.OutputServer)
package niter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel/trace"

	"github.com/niterpack/niter/internal/cache"
	"github.com/niterpack/niter/internal/config"
	"github.com/niterpack/niter/internal/download"
	"github.com/niterpack/niter/internal/engine"
	"github.com/niterpack/niter/internal/lock"
	"github.com/niterpack/niter/internal/metrics"
	"github.com/niterpack/niter/internal/mrpack"
	"github.com/niterpack/niter/internal/project"
	"github.com/niterpack/niter/internal/registry"
	"github.com/niterpack/niter/internal/sandbox"
	"github.com/niterpack/niter/internal/source"
	"github.com/niterpack/niter/internal/target"
)

// ErrNotModProject is returned when adding a registry project that is not a mod.
var ErrNotModProject = errors.New("only mod projects can be added")

// Options configures a niter client.
type Options struct {
	// ProjectDir is the directory containing niter.toml. Default: ".".
	ProjectDir string

	// Settings overrides layered settings discovery when non-nil.
	Settings *config.Settings

	// NoInherit skips system and user settings during discovery.
	NoInherit bool

	// HTTPClient is used for registry and download requests.
	// Default: http.DefaultClient.
	HTTPClient *http.Client

	Logger  *log.Logger        // default: discard
	Metrics *metrics.Collector // optional
	Tracer  trace.Tracer       // default: the global provider
}

// BuildOptions configures a build.
type BuildOptions struct {
	DryRun bool
	// FailFast stops at the first failure. Also enabled by the fail_fast setting.
	FailFast bool
	// Locked takes artifacts from niter.lock instead of the registry.
	Locked bool
}

// BuildResult holds the outcome of a build.
type BuildResult struct {
	Output    Output
	Artifacts []Artifact
	Sync      *SyncResult // nil when resolution failed
	PackPath  string      // set for pack outputs
}

// Client is the main entry point for the niter library.
type Client struct {
	dir        string
	settings   config.Resolved
	registry   *registry.Client
	downloader *download.Downloader
	layout     *target.Layout
	logger     *log.Logger
	metrics    *metrics.Collector
	tracer     trace.Tracer
}

// New creates a client for the project in opts.ProjectDir. The project
// itself is read on every operation, so edits between calls are seen.
func New(opts Options) (*Client, error) {
	dir := opts.ProjectDir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving project directory: %w", err)
	}

	s := opts.Settings
	if s == nil {
		s, _, err = config.LoadLayered(config.DiscoverOptions{
			ProjectDir: abs,
			NoInherit:  opts.NoInherit || config.EnvNoInherit(),
		})
		if err != nil {
			return nil, err
		}
	}
	settings := s.Resolve()

	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	var httpClient registry.HTTPClient = http.DefaultClient
	if opts.HTTPClient != nil {
		httpClient = opts.HTTPClient
	}

	var c *cache.Cache
	if !settings.NoCache {
		cacheDir := settings.CacheDir
		if cacheDir == "" {
			cacheDir = cache.DefaultDir()
		}
		c, err = cache.New(cacheDir)
		if err != nil {
			return nil, fmt.Errorf("initializing cache: %w", err)
		}
	}

	userAgent := settings.UserAgent
	if userAgent == "" {
		userAgent = registry.DefaultUserAgent
	}

	return &Client{
		dir:      abs,
		settings: settings,
		registry: &registry.Client{
			BaseURL:   settings.RegistryURL,
			UserAgent: userAgent,
			HTTP:      httpClient,
			Timeout:   settings.Timeout,
			Retries:   settings.Retries,
			Logger:    logger.WithPrefix("registry"),
		},
		downloader: &download.Downloader{
			Client:    httpClient,
			Cache:     c,
			MaxSize:   settings.MaxFileSize,
			Timeout:   settings.Timeout,
			Retries:   settings.Retries,
			UserAgent: userAgent,
			Logger:    logger.WithPrefix("download"),
		},
		layout:  target.NewLayout(abs, settings.Outputs),
		logger:  logger,
		metrics: opts.Metrics,
		tracer:  opts.Tracer,
	}, nil
}

// Dir returns the absolute project directory.
func (c *Client) Dir() string {
	return c.dir
}

// Settings returns the effective settings.
func (c *Client) Settings() config.Resolved {
	return c.settings
}

// Outputs returns the names of all build outputs.
func (c *Client) Outputs() []string {
	return c.layout.Names()
}

// Output resolves an output name.
func (c *Client) Output(name string) (Output, error) {
	return c.layout.Resolve(name)
}

// Project loads the manifest and mods.
func (c *Client) Project() (*project.Project, error) {
	return project.Load(c.dir)
}

// Build resolves every mod and synchronizes the output's mods directory.
// Once every mod resolved, the artifacts are recorded in niter.lock. Pack
// outputs additionally write a .mrpack file.
func (c *Client) Build(ctx context.Context, output string, opts BuildOptions) (*BuildResult, error) {
	out, err := c.layout.Resolve(output)
	if err != nil {
		return nil, err
	}
	p, err := c.Project()
	if err != nil {
		return nil, err
	}

	b := c.builder(p.Manifest)
	if opts.Locked {
		lf, err := lock.Load(lock.Path(c.dir))
		if err != nil {
			return nil, err
		}
		b.Resolver = &lock.Resolver{Lockfile: lf}
	}
	res, err := b.Build(ctx, p.Mods, sandbox.New(out.ModsDir), engine.SyncOptions{
		DryRun:   opts.DryRun,
		FailFast: opts.FailFast || c.settings.FailFast,
	})
	result := &BuildResult{Output: out}
	if res != nil {
		result.Artifacts = res.Artifacts
		result.Sync = res.Sync
	}
	if result.Sync != nil && !opts.DryRun && !opts.Locked {
		if lerr := lock.Save(lock.Path(c.dir), lock.New(p.Mods, result.Artifacts)); lerr != nil {
			return result, errors.Join(err, fmt.Errorf("writing lockfile: %w", lerr))
		}
	}
	if err != nil {
		return result, err
	}

	if out.Pack() && !opts.DryRun {
		result.PackPath, err = mrpack.Export(p.Manifest, out.ModsDir, out.PackDir, res.Artifacts)
		if err != nil {
			return result, fmt.Errorf("exporting pack: %w", err)
		}
		c.logger.Info("wrote pack", "path", result.PackPath)
	}
	return result, nil
}

// Check resolves every mod and reports how the output differs from it.
func (c *Client) Check(ctx context.Context, output string) (*CheckResult, error) {
	out, err := c.layout.Resolve(output)
	if err != nil {
		return nil, err
	}
	p, err := c.Project()
	if err != nil {
		return nil, err
	}
	return c.builder(p.Manifest).Check(ctx, p.Mods, out.ModsDir)
}

// Resolve resolves every mod without touching any output.
func (c *Client) Resolve(ctx context.Context) ([]Artifact, error) {
	p, err := c.Project()
	if err != nil {
		return nil, err
	}
	return c.resolver(p.Manifest).ResolveAll(ctx, p.Mods, c.settings.Concurrency, c.settings.FailFast)
}

// Add looks a project up in the registry and adds it as a mod. Without an
// explicit version the newest version matching the manifest's loader and
// game version is used, falling back to the project's latest version.
func (c *Client) Add(ctx context.Context, ref, version string) (Mod, error) {
	m, err := project.LoadManifest(project.ManifestPath(c.dir))
	if err != nil {
		return Mod{}, err
	}

	proj, err := c.registry.LookupProject(ctx, ref)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return Mod{}, fmt.Errorf("project '%s' not found", ref)
	case err != nil:
		return Mod{}, fmt.Errorf("looking up project '%s': %w", ref, err)
	}
	if proj.ProjectType != "mod" {
		return Mod{}, fmt.Errorf("%w: '%s' is a %s", ErrNotModProject, proj.Slug, proj.ProjectType)
	}

	if version == "" {
		version, err = c.latestVersion(ctx, proj, *m)
		if err != nil {
			return Mod{}, err
		}
	}

	mod := Mod{Name: proj.Slug, Source: project.RegistrySource(version)}
	if err := project.AddMod(c.dir, mod); err != nil {
		return Mod{}, err
	}
	c.logger.Info("added mod", "mod", mod.Name, "version", version)
	return mod, nil
}

func (c *Client) latestVersion(ctx context.Context, proj *registry.Project, m project.Manifest) (string, error) {
	if m.Loader != "" || m.GameVersion != "" {
		versions, err := c.registry.ListVersions(ctx, proj.Slug, m.Loader, m.GameVersion)
		if err != nil {
			return "", fmt.Errorf("listing versions of '%s': %w", proj.Slug, err)
		}
		if len(versions) == 0 {
			return "", fmt.Errorf("project '%s' has no versions for loader '%s' and minecraft '%s'", proj.Slug, m.Loader, m.GameVersion)
		}
		return versions[0].ID, nil
	}
	if len(proj.Versions) == 0 {
		return "", fmt.Errorf("project '%s' doesn't have any versions", proj.Slug)
	}
	return proj.Versions[len(proj.Versions)-1], nil
}

// Remove deletes a mod from the project.
func (c *Client) Remove(name string) error {
	if err := project.RemoveMod(c.dir, name); err != nil {
		return err
	}
	c.logger.Info("removed mod", "mod", name)
	return nil
}

// Init creates a new modpack in dir. An empty name defaults to the
// directory name; the version starts at 0.1.0.
func Init(dir, name string, force bool) (*Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving directory: %w", err)
	}
	if name == "" {
		name = filepath.Base(abs)
	}
	m := Manifest{Name: name, Version: "0.1.0"}
	if err := project.Init(abs, m, force); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) resolver(m project.Manifest) *source.Resolver {
	return &source.Resolver{
		Registry: c.registry,
		Filters:  source.Filters{Loader: m.Loader, GameVersion: m.GameVersion},
		Logger:   c.logger.WithPrefix("resolve"),
		Metrics:  c.metrics,
		Tracer:   c.tracer,
	}
}

func (c *Client) builder(m project.Manifest) *engine.Builder {
	return &engine.Builder{
		Resolver: c.resolver(m),
		Sync: &engine.SyncEngine{
			Fetcher:     c.downloader,
			Concurrency: c.settings.Concurrency,
			Logger:      c.logger.WithPrefix("sync"),
			Metrics:     c.metrics,
			Tracer:      c.tracer,
		},
		Concurrency: c.settings.Concurrency,
	}
}
