package app

import (
	"context"
	"fmt"
	"log/slog"

	"trampoline/internal/builder"
	trerrors "trampoline/internal/errors"
)

// AcquireStage obtains a runnable job image, by pull or rebuild.
type AcquireStage struct{}

// NewAcquireStage creates a new acquire stage instance.
func NewAcquireStage() *AcquireStage {
	return &AcquireStage{}
}

// Name returns the name of the stage.
func (s *AcquireStage) Name() string {
	return "acquire"
}

// Execute pulls the configured image and rebuilds it when a build
// source is present.
func (s *AcquireStage) Execute(ctx context.Context, state *RunState) error {
	if state.DryRun {
		fmt.Printf("DRY RUN: Would pull image %s\n", state.Spec.Image)
		if state.Spec.ImageSource != "" {
			fmt.Printf("DRY RUN: Would rebuild image from %s\n", state.Spec.ImageSource)
		}
		state.Acquired = &builder.Result{Ref: state.Spec.Image, Pulled: true, Built: state.Spec.ImageSource != ""}
		return nil
	}

	imageBuilder := builder.NewImageBuilder(state.Runtime)
	result, err := imageBuilder.Acquire(ctx, state.Spec, state.Workspace.CommitSHA, state.RegistryAuth)
	if err != nil {
		if state.Spec.ImageSource != "" {
			return trerrors.NewImageBuildError(
				"Failed to obtain a runnable job image",
				err.Error(),
				"Check the Dockerfile at TRAMPOLINE_IMAGE_SOURCE and the build output above",
				err)
		}
		return trerrors.NewImagePullError(
			"Failed to obtain a runnable job image",
			err.Error(),
			"Verify TRAMPOLINE_IMAGE exists in the registry, or configure TRAMPOLINE_IMAGE_SOURCE to build it",
			err)
	}

	state.Acquired = result
	state.Record.Pulled = result.Pulled
	state.Record.Built = result.Built
	slog.Info("Image acquired", "image", result.Ref, "pulled", result.Pulled, "built", result.Built)
	return nil
}
