package app

import (
	"context"

	"trampoline/internal/builder"
	"trampoline/internal/workspace"
	"trampoline/pkg/jobspec"
	"trampoline/pkg/runtime"
)

// Stage represents a single step in the trampoline run sequence.
// Stages execute in order, each to completion, with no retries.
type Stage interface {
	Name() string
	Execute(ctx context.Context, state *RunState) error
}

// RunState is threaded through the stages of a single run. Stages read
// what earlier stages produced and record what they decided.
type RunState struct {
	Spec      *jobspec.Spec
	Workspace *workspace.Workspace
	Runtime   runtime.ContainerRuntime
	Args      []string
	DryRun    bool

	// RegistryAuth is set by the credentials stage when running in CI.
	RegistryAuth string

	// Acquired is set by the acquire stage.
	Acquired *builder.Result

	// ExitCode is the container's exit code, set by the run stage. It
	// becomes the process exit code.
	ExitCode int

	Record *RunRecord
}
