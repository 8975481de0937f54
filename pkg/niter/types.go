package niter

import (
	"github.com/niterpack/niter/internal/engine"
	"github.com/niterpack/niter/internal/project"
	"github.com/niterpack/niter/internal/source"
	"github.com/niterpack/niter/internal/target"
)

// Type aliases re-export internal types as the public API.

type Manifest = project.Manifest
type Mod = project.Mod
type Source = project.Source
type Artifact = source.Artifact
type Plan = engine.Plan
type PlanEntry = engine.PlanEntry
type Action = engine.Action
type SyncResult = engine.SyncResult
type CheckResult = engine.CheckResult
type ArtifactError = engine.ArtifactError
type ModError = source.ModError
type Output = target.Output

// Plan actions.
const (
	ActionKeep   = engine.ActionKeep
	ActionStale  = engine.ActionStale
	ActionOrphan = engine.ActionOrphan
	ActionNew    = engine.ActionNew
)

// Built-in outputs.
const (
	OutputInstance = target.Instance
	OutputServer   = target.Server
	OutputModrinth = target.Modrinth
)

// DirectSource and RegistrySource build mod sources.
var (
	DirectSource   = project.DirectSource
	RegistrySource = project.RegistrySource
)
