package app

import (
	"context"
	"fmt"
	"log/slog"

	"trampoline/internal/config"
	trerrors "trampoline/internal/errors"
	dockerruntime "trampoline/internal/runtime"
	"trampoline/internal/ui"
	"trampoline/internal/workspace"
	"trampoline/pkg/jobspec"
	"trampoline/pkg/runtime"
)

// Run prepares the workspace, loads the configuration, and executes the
// full trampoline sequence. The returned int is the process exit code:
// the container's own exit code once configuration and image
// acquisition succeed.
func Run(rcPath string, args []string, dryRun bool) (int, error) {
	ws, err := workspace.Prepare()
	if err != nil {
		return 1, trerrors.NewFileSystemError(
			"Failed to prepare the run workspace",
			err.Error(),
			"Check permissions on the system temp directory",
			err)
	}

	spec, err := config.Load(ws.Root, rcPath)
	if err != nil {
		return 1, trerrors.NewConfigError(
			"Failed to load the trampoline configuration",
			err.Error(),
			"Set the missing variables or fix "+config.RCFileName+" at the project root",
			err)
	}

	var containerRuntime runtime.ContainerRuntime
	if !dryRun {
		containerRuntime, err = dockerruntime.NewDockerRuntime()
		if err != nil {
			return 1, trerrors.NewRuntimeError(
				"Failed to connect to the container runtime",
				err.Error(),
				"Check that the Docker daemon is running and DOCKER_HOST is correct",
				err)
		}
	}

	return Execute(context.Background(), spec, ws, containerRuntime, args, dryRun)
}

// Execute runs the stage sequence with the supplied dependencies. The
// sequence is strictly linear, each stage to completion, no retries.
func Execute(ctx context.Context, spec *jobspec.Spec, ws *workspace.Workspace, containerRuntime runtime.ContainerRuntime, args []string, dryRun bool) (int, error) {
	console := ui.NewConsole()

	state := &RunState{
		Spec:      spec,
		Workspace: ws,
		Runtime:   containerRuntime,
		Args:      args,
		DryRun:    dryRun,
		Record:    newRecord(spec.Image, ws.CommitSHA),
	}

	if dryRun {
		console.PrintWarning("Dry run mode, no external operations will be performed")
	}
	slog.Info("Starting trampoline run", "runId", state.Record.RunID, "image", spec.Image, "inCI", spec.InCI(), "dryRun", dryRun)

	stages := []Stage{
		NewCredentialsStage(),
		NewAcquireStage(),
		NewRunStage(),
		NewPublishStage(),
	}

	defer func() {
		if err := state.Record.save(ws.ScratchDir); err != nil {
			slog.Warn("Failed to write run record", "error", err)
		}
	}()

	for i, stage := range stages {
		console.PrintInfo(fmt.Sprintf("Stage %d/%d: %s", i+1, len(stages), stage.Name()))
		if err := stage.Execute(ctx, state); err != nil {
			state.Record.FailedStage = stage.Name()
			return 1, err
		}
	}

	if state.ExitCode == 0 {
		console.PrintSuccess(fmt.Sprintf("Build job for %s succeeded", spec.Image))
	} else {
		console.PrintWarning(fmt.Sprintf("Build job for %s failed with exit code %d", spec.Image, state.ExitCode))
	}

	slog.Info("Trampoline run finished", "runId", state.Record.RunID, "exitCode", state.ExitCode)
	return state.ExitCode, nil
}
