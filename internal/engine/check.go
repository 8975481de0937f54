package engine

import (
	"github.com/niterpack/niter/internal/source"
)

// Check compares dir against desired without changing anything. The result
// is clean when a sync would perform no operation.
func Check(dir string, desired []source.Artifact) (*CheckResult, error) {
	local, err := ScanDir(dir, desired)
	if err != nil {
		return nil, err
	}
	plan := NewPlan(desired, local)
	drift := plan.Ops()
	return &CheckResult{
		Clean: len(drift) == 0,
		Plan:  plan,
		Drift: drift,
	}, nil
}
