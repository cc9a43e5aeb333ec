package app

import (
	"context"
	"fmt"
	"log/slog"

	"trampoline/internal/publisher"
)

// PublishStage pushes the rebuilt image back to the registry when the
// publish gate passes. A push failure is logged and never changes the
// run's already-determined outcome.
type PublishStage struct{}

// NewPublishStage creates a new publish stage instance.
func NewPublishStage() *PublishStage {
	return &PublishStage{}
}

// Name returns the name of the stage.
func (s *PublishStage) Name() string {
	return "publish"
}

// Execute evaluates the publish gate and pushes when it passes.
func (s *PublishStage) Execute(ctx context.Context, state *RunState) error {
	built := state.Acquired != nil && state.Acquired.Built

	decision := publisher.Decide(state.Spec, built, state.ExitCode)
	if !decision.Publish {
		slog.Info("Image publish skipped", "image", state.Spec.Image, "reason", decision.Reason)
		return nil
	}

	if state.DryRun {
		fmt.Printf("DRY RUN: Would push image %s\n", state.Spec.Image)
		return nil
	}

	pub := publisher.NewPublisher(state.Runtime)
	if err := pub.Publish(ctx, state.Spec, built, state.ExitCode, state.RegistryAuth); err != nil {
		slog.Warn("Image publish failed, build result is unaffected", "image", state.Spec.Image, "error", err)
		return nil
	}

	state.Record.Published = true
	return nil
}
