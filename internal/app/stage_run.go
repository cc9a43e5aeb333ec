package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"trampoline/internal/config"
	trerrors "trampoline/internal/errors"
	"trampoline/internal/workspace"
	"trampoline/pkg/runtime"
)

// RunStage executes the single container invocation of the run. The
// container's exit code is recorded, never turned into an error: a
// failing build job is a valid outcome the process must re-surface.
type RunStage struct{}

// NewRunStage creates a new run stage instance.
func NewRunStage() *RunStage {
	return &RunStage{}
}

// Name returns the name of the stage.
func (s *RunStage) Name() string {
	return "run"
}

// Execute runs the build job inside the acquired image.
func (s *RunStage) Execute(ctx context.Context, state *RunState) error {
	opts := buildRunOptions(state)

	if state.DryRun {
		fmt.Printf("DRY RUN: Would run container from %s as user %s\n", opts.Image, opts.User)
		fmt.Printf("DRY RUN: Would execute command: %s\n", strings.Join(opts.Command, " "))
		for _, m := range opts.Mounts {
			mode := "rw"
			if m.ReadOnly {
				mode = "ro"
			}
			fmt.Printf("DRY RUN: Would mount %s -> %s (%s)\n", m.Source, m.Target, mode)
		}
		return nil
	}

	handle, err := state.Runtime.RunContainer(ctx, opts)
	if err != nil {
		return trerrors.NewRuntimeError(
			"Failed to start the build job container",
			err.Error(),
			"Check that the Docker daemon is running and the image entrypoint is valid",
			err)
	}
	defer func() {
		if err := handle.Close(ctx); err != nil {
			slog.Warn("Failed to clean up build job container", "error", err)
		}
	}()

	logs, err := handle.Logs(ctx)
	if err != nil {
		return trerrors.NewRuntimeError(
			"Failed to attach to the build job output",
			err.Error(),
			"",
			err)
	}
	defer logs.Close()

	if err := streamLogs(logs, os.Stdout); err != nil {
		slog.Warn("Build job output stream ended early", "error", err)
	}

	exitCode, err := handle.Wait(ctx)
	if err != nil {
		return trerrors.NewRuntimeError(
			"Failed waiting for the build job container",
			err.Error(),
			"",
			err)
	}

	state.ExitCode = exitCode
	state.Record.ExitCode = exitCode
	slog.Info("Build job finished", "exitCode", exitCode)
	return nil
}

// buildRunOptions assembles the single container invocation: host
// identity mapping, isolated HOME, project mount, staged-files mount,
// and the whitelisted environment.
func buildRunOptions(state *RunState) runtime.RunOptions {
	spec := state.Spec
	ws := state.Workspace

	command := state.Args
	if len(command) == 0 {
		command = spec.DefaultArgs
	}
	if len(command) == 0 {
		command = []string{ws.BuildFilePath(spec.BuildFile)}
	}

	mounts := []runtime.Mount{
		{Source: ws.Root, Target: workspace.ContainerProjectDir},
		{Source: ws.HomeDir, Target: workspace.ContainerHomeDir},
	}
	if spec.GfileDir != "" {
		mounts = append(mounts, runtime.Mount{Source: spec.GfileDir, Target: spec.GfileDir, ReadOnly: true})
	}

	env := config.PassDownEnv(spec)
	env = append(env, "HOME="+workspace.ContainerHomeDir)

	return runtime.RunOptions{
		Image:            spec.Image,
		Command:          command,
		Mounts:           mounts,
		Env:              env,
		User:             ws.User(),
		WorkingDirectory: workspace.ContainerProjectDir,
	}
}
