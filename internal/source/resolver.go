// Package source turns the abstract source of a mod into an Artifact: a
// URL, an on-disk file name, and, when the registry publishes one, the
// sha-512 the downloaded bytes must match.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/niterpack/niter/internal/digest"
	"github.com/niterpack/niter/internal/metrics"
	"github.com/niterpack/niter/internal/project"
	"github.com/niterpack/niter/internal/registry"
)

const tracerName = "github.com/niterpack/niter/internal/source"

// RegistryClient is the part of the registry API the resolver needs.
// Implementations must report a missing version as registry.ErrNotFound.
type RegistryClient interface {
	LookupVersion(ctx context.Context, id string) (*registry.Version, error)
	ListVersions(ctx context.Context, project, loader, gameVersion string) ([]registry.Version, error)
}

// Resolver resolves mods into artifacts.
type Resolver struct {
	Registry RegistryClient
	Filters  Filters
	Logger   *log.Logger
	Metrics  *metrics.Collector // optional
	Tracer   trace.Tracer       // defaults to the global provider
}

// errNextStrategy tells the resolver to try the next registry strategy.
var errNextStrategy = errors.New("try next strategy")

// strategy looks up a registry version for a reference. It returns
// errNextStrategy when it has no answer and the chain should continue.
type strategy struct {
	name string
	find func(ctx context.Context, mod project.Mod) (*registry.Version, error)
}

// Resolve maps one mod to its artifact. Only the requests strictly needed
// are made: direct sources make none, and a registry reference that is a
// valid version id is looked up before any version listing.
func (r *Resolver) Resolve(ctx context.Context, mod project.Mod) (_ Artifact, err error) {
	ctx, span := r.tracer().Start(ctx, "source.Resolve", trace.WithAttributes(
		attribute.String("mod", mod.Name),
		attribute.String("source", mod.Source.Kind.String()),
	))
	start := time.Now()
	defer func() {
		r.Metrics.Resolve(mod.Source.Kind.String(), time.Since(start), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var a Artifact
	switch mod.Source.Kind {
	case project.SourceDirect:
		a, err = resolveDirect(mod)
	case project.SourceRegistry:
		a, err = r.resolveRegistry(ctx, mod)
	default:
		err = &ModError{Mod: mod.Name, Op: "resolve", Err: fmt.Errorf("%w: mod has no source", ErrInvalidReference)}
	}
	if err != nil {
		return Artifact{}, err
	}

	span.SetAttributes(attribute.String("filename", a.Filename), attribute.Bool("hashed", a.HasHash()))
	r.logger().Debug("resolved", "mod", a.Name, "file", a.Filename, "url", a.URL)
	return a, nil
}

// ResolveAll resolves every mod with at most concurrency resolutions in
// flight. Artifacts keep the order of mods. All failures are collected and
// returned joined, alongside the artifacts that did resolve; with failFast
// the first failure cancels the remaining work.
func (r *Resolver) ResolveAll(ctx context.Context, mods []project.Mod, concurrency int, failFast bool) ([]Artifact, error) {
	slots := make([]*Artifact, len(mods))
	errs := make([]error, len(mods))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i, mod := range mods {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = &ModError{Mod: mod.Name, Op: "resolve", Err: err}
				return nil
			}
			a, err := r.Resolve(gctx, mod)
			if err != nil {
				errs[i] = err
				if failFast {
					return err
				}
				return nil
			}
			slots[i] = &a
			return nil
		})
	}
	_ = g.Wait()

	artifacts := make([]Artifact, 0, len(mods))
	for _, a := range slots {
		if a != nil {
			artifacts = append(artifacts, *a)
		}
	}
	return artifacts, errors.Join(errs...)
}

func resolveDirect(mod project.Mod) (Artifact, error) {
	u, err := url.Parse(mod.Source.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Artifact{}, &ModError{
			Mod:  mod.Name,
			Op:   "resolve",
			Err:  fmt.Errorf("%w: '%s' is not an absolute http(s) URL", ErrMalformedReference, mod.Source.URL),
			Hint: "use a full download URL such as https://example.com/mod.jar",
		}
	}

	filename := mod.File
	if filename == "" {
		filename = lastSegment(u.Path)
	}
	if !PlainFilename(filename) {
		return Artifact{}, &ModError{
			Mod:  mod.Name,
			Op:   "resolve",
			Err:  fmt.Errorf("%w: no file name in '%s'", ErrMalformedReference, mod.Source.URL),
			Hint: "set 'file' in the mod file",
		}
	}

	return Artifact{Name: mod.Name, URL: mod.Source.URL, Filename: filename}, nil
}

// lastSegment returns the last non-empty segment of a URL path.
func lastSegment(p string) string {
	segments := strings.Split(p, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if s := segments[i]; s != "" && s != "." && s != ".." {
			return s
		}
	}
	return ""
}

func (r *Resolver) resolveRegistry(ctx context.Context, mod project.Mod) (Artifact, error) {
	ref := strings.TrimSpace(mod.Source.Version)
	if ref == "" {
		return Artifact{}, &ModError{Mod: mod.Name, Op: "resolve", Err: fmt.Errorf("%w: empty version", ErrInvalidReference)}
	}
	if r.Registry == nil {
		return Artifact{}, &ModError{Mod: mod.Name, Op: "resolve", Err: fmt.Errorf("%w: no registry client configured", ErrRegistryUnavailable)}
	}

	var version *registry.Version
	for _, s := range r.strategies() {
		v, err := s.find(ctx, mod)
		if errors.Is(err, errNextStrategy) {
			r.logger().Debug("strategy had no match", "mod", mod.Name, "strategy", s.name, "ref", ref)
			continue
		}
		if err != nil {
			return Artifact{}, err
		}
		version = v
		break
	}
	if version == nil {
		return Artifact{}, &ModError{
			Mod:  mod.Name,
			Op:   "resolve",
			Err:  fmt.Errorf("%w: '%s'", ErrVersionNotFound, ref),
			Hint: r.filterHint(),
		}
	}

	file, ok := version.PrimaryFile()
	if !ok {
		return Artifact{}, &ModError{
			Mod: mod.Name,
			Op:  "resolve",
			Err: fmt.Errorf("%w: version '%s' has no files", ErrVersionNotFound, version.VersionNumber),
		}
	}

	filename := mod.File
	if filename == "" {
		filename = file.Filename
	}
	if !PlainFilename(filename) {
		return Artifact{}, &ModError{
			Mod:  mod.Name,
			Op:   "resolve",
			Err:  fmt.Errorf("%w: registry file name '%s' is not a plain file name", ErrMalformedReference, filename),
			Hint: "set 'file' in the mod file",
		}
	}
	return Artifact{
		Name:     mod.Name,
		URL:      file.URL,
		Filename: filename,
		Hash:     digest.Normalize(file.Hashes[digest.Algorithm]),
	}, nil
}

func (r *Resolver) strategies() []strategy {
	return []strategy{
		{name: "version-id", find: r.byVersionID},
		{name: "version-number", find: r.byVersionNumber},
	}
}

// byVersionID treats the reference as a literal version id.
func (r *Resolver) byVersionID(ctx context.Context, mod project.Mod) (*registry.Version, error) {
	ref := strings.TrimSpace(mod.Source.Version)
	if !registry.IsVersionID(ref) {
		return nil, errNextStrategy
	}
	v, err := r.Registry.LookupVersion(ctx, ref)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return nil, errNextStrategy
	case err != nil:
		return nil, registryError(mod.Name, err)
	}
	return v, nil
}

// byVersionNumber scans the project's filtered version list for a
// version whose number equals the reference. The first match wins.
func (r *Resolver) byVersionNumber(ctx context.Context, mod project.Mod) (*registry.Version, error) {
	ref := strings.TrimSpace(mod.Source.Version)
	if !registry.IsProjectSlug(mod.Name) {
		return nil, &ModError{
			Mod:  mod.Name,
			Op:   "resolve",
			Err:  fmt.Errorf("%w: '%s' is not a valid project slug", ErrInvalidReference, mod.Name),
			Hint: "name the mod after its Modrinth slug, or reference the version by id",
		}
	}

	versions, err := r.Registry.ListVersions(ctx, mod.Name, r.Filters.Loader, r.Filters.GameVersion)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return nil, &ModError{
			Mod:  mod.Name,
			Op:   "resolve",
			Err:  fmt.Errorf("%w: project '%s' does not exist", ErrVersionNotFound, mod.Name),
		}
	case err != nil:
		return nil, registryError(mod.Name, err)
	}

	for i := range versions {
		if versions[i].VersionNumber == ref {
			return &versions[i], nil
		}
	}
	return nil, errNextStrategy
}

func registryError(mod string, err error) error {
	if errors.Is(err, registry.ErrInvalidID) {
		return &ModError{Mod: mod, Op: "resolve", Err: fmt.Errorf("%w: %v", ErrInvalidReference, err)}
	}
	return &ModError{
		Mod:  mod,
		Op:   "resolve",
		Err:  fmt.Errorf("%w: %v", ErrRegistryUnavailable, err),
		Hint: "check network connectivity and try again",
	}
}

func (r *Resolver) filterHint() string {
	var parts []string
	if r.Filters.Loader != "" {
		parts = append(parts, "loader "+r.Filters.Loader)
	}
	if r.Filters.GameVersion != "" {
		parts = append(parts, "minecraft "+r.Filters.GameVersion)
	}
	if len(parts) == 0 {
		return ""
	}
	return "searched versions for " + strings.Join(parts, ", ")
}

func (r *Resolver) tracer() trace.Tracer {
	if r.Tracer == nil {
		return otel.Tracer(tracerName)
	}
	return r.Tracer
}

func (r *Resolver) logger() *log.Logger {
	if r.Logger == nil {
		return log.New(io.Discard)
	}
	return r.Logger
}
