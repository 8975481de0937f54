package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/niterpack/niter/internal/download"
	"github.com/niterpack/niter/internal/metrics"
	"github.com/niterpack/niter/internal/sandbox"
	"github.com/niterpack/niter/internal/source"
)

const tracerName = "github.com/niterpack/niter/internal/engine"

// Fetcher downloads one artifact into a directory.
type Fetcher interface {
	Download(ctx context.Context, url string, dir sandbox.Dir, filename, expectedHash string) (*download.Result, error)
}

// SyncEngine reconciles a directory with a set of artifacts.
type SyncEngine struct {
	Fetcher     Fetcher
	Concurrency int // ops in flight (0 = 1)
	Logger      *log.Logger
	Metrics     *metrics.Collector // optional
	Tracer      trace.Tracer
}

// SyncOptions configures a sync operation.
type SyncOptions struct {
	DryRun bool
	// FailFast cancels the remaining operations after the first failure.
	// Otherwise every operation runs and all failures are reported.
	FailFast bool
}

// Sync scans dir, plans against desired, and applies the plan. The plan is
// complete before anything in dir changes. With DryRun the plan is
// returned without touching the directory.
func (e *SyncEngine) Sync(ctx context.Context, dir sandbox.Dir, desired []source.Artifact, opts SyncOptions) (*SyncResult, error) {
	local, err := ScanDir(dir.Root, desired)
	if err != nil {
		return nil, err
	}
	plan := NewPlan(desired, local)
	for _, dup := range plan.Duplicates {
		e.logger().Warn("duplicate file name, artifact skipped", "mod", dup.Name, "file", dup.Filename)
	}

	if opts.DryRun {
		return &SyncResult{Plan: plan, DryRun: true}, nil
	}
	return e.Apply(ctx, dir, plan, opts.FailFast)
}

// Apply executes the operations of plan with bounded parallelism. A stale
// file is deleted and re-downloaded by the same worker, so no two workers
// ever touch the same file name. The returned error joins every failure.
func (e *SyncEngine) Apply(ctx context.Context, dir sandbox.Dir, plan Plan, failFast bool) (_ *SyncResult, err error) {
	ctx, span := e.tracer().Start(ctx, "engine.Apply", trace.WithAttributes(
		attribute.String("dir", dir.Root),
		attribute.Int("ops", len(plan.Ops())),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := dir.Ensure(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFilesystem, err)
	}

	ops := plan.Ops()
	done := make([]*OpResult, len(ops))
	errs := make([]*ArtifactError, len(ops))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(e.Concurrency, 1))
	for i, op := range ops {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = newArtifactError(op, err)
				return nil
			}
			res, err := e.run(gctx, dir, op)
			e.Metrics.SyncOp(op.Action.String(), err)
			if err != nil {
				errs[i] = newArtifactError(op, err)
				e.logger().Error("operation failed", "action", op.Action, "file", op.Filename, "err", err)
				if failFast {
					return err
				}
				return nil
			}
			e.Metrics.Download(res.Size, res.FromCache)
			done[i] = res
			return nil
		})
	}
	_ = g.Wait()

	result := &SyncResult{Plan: plan}
	var joined []error
	for i := range ops {
		if done[i] != nil {
			result.Done = append(result.Done, *done[i])
		}
		if errs[i] != nil {
			result.Errors = append(result.Errors, errs[i])
			joined = append(joined, errs[i])
		}
	}
	return result, errors.Join(joined...)
}

func (e *SyncEngine) run(ctx context.Context, dir sandbox.Dir, op PlanEntry) (*OpResult, error) {
	res := &OpResult{PlanEntry: op}

	if op.Action == ActionOrphan || op.Action == ActionStale {
		if err := dir.Remove(op.Filename); err != nil {
			return nil, fmt.Errorf("%w: deleting: %v", ErrFilesystem, err)
		}
		e.logger().Debug("deleted", "file", op.Filename, "action", op.Action)
	}
	if op.Action == ActionOrphan {
		return res, nil
	}

	if e.Fetcher == nil {
		return nil, fmt.Errorf("%w: no downloader configured", download.ErrDownloadFailed)
	}
	a := op.Artifact
	dl, err := e.Fetcher.Download(ctx, a.URL, dir, a.Filename, a.Hash)
	if err != nil {
		return nil, err
	}
	res.Size = dl.Size
	res.FromCache = dl.FromCache
	e.logger().Info("downloaded", "mod", a.Name, "file", a.Filename, "action", op.Action, "cached", dl.FromCache)
	return res, nil
}

func newArtifactError(op PlanEntry, err error) *ArtifactError {
	ae := &ArtifactError{Filename: op.Filename, Action: op.Action, Err: err}
	if op.Artifact != nil {
		ae.Name = op.Artifact.Name
	}
	return ae
}

func (e *SyncEngine) tracer() trace.Tracer {
	if e.Tracer == nil {
		return otel.Tracer(tracerName)
	}
	return e.Tracer
}

func (e *SyncEngine) logger() *log.Logger {
	if e.Logger == nil {
		return log.New(io.Discard)
	}
	return e.Logger
}
