package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/niterpack/niter/internal/project"
	"github.com/niterpack/niter/internal/sandbox"
	"github.com/niterpack/niter/internal/source"
)

// Resolver turns mods into artifacts.
type Resolver interface {
	ResolveAll(ctx context.Context, mods []project.Mod, concurrency int, failFast bool) ([]source.Artifact, error)
}

// Builder resolves a project's mods and synchronizes a directory with them.
type Builder struct {
	Resolver    Resolver
	Sync        *SyncEngine
	Concurrency int
}

// BuildResult holds the outcome of a build.
type BuildResult struct {
	Artifacts []source.Artifact
	Sync      *SyncResult // nil when resolution failed
}

// Build resolves mods and syncs dir. If any mod fails to resolve the
// directory is left untouched, since syncing a partial set would delete the
// files of the mods that failed.
func (b *Builder) Build(ctx context.Context, mods []project.Mod, dir sandbox.Dir, opts SyncOptions) (_ *BuildResult, err error) {
	ctx, span := b.Sync.tracer().Start(ctx, "engine.Build", trace.WithAttributes(
		attribute.String("dir", dir.Root),
		attribute.Int("mods", len(mods)),
		attribute.Bool("dry_run", opts.DryRun),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	artifacts, err := b.Resolver.ResolveAll(ctx, mods, b.Concurrency, opts.FailFast)
	result := &BuildResult{Artifacts: artifacts}
	if err != nil {
		return result, fmt.Errorf("resolving mods: %w", err)
	}

	result.Sync, err = b.Sync.Sync(ctx, dir, artifacts, opts)
	if err != nil {
		return result, fmt.Errorf("syncing %s: %w", dir.Root, err)
	}
	return result, nil
}

// Check resolves mods and reports how dir differs from them.
func (b *Builder) Check(ctx context.Context, mods []project.Mod, dir string) (*CheckResult, error) {
	artifacts, err := b.Resolver.ResolveAll(ctx, mods, b.Concurrency, false)
	if err != nil {
		return nil, fmt.Errorf("resolving mods: %w", err)
	}
	return Check(dir, artifacts)
}
