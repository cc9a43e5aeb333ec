package publisher

import (
	"context"
	"fmt"
	"log/slog"

	"trampoline/pkg/jobspec"
	"trampoline/pkg/runtime"
)

// Decision explains whether the job image may be pushed back to the
// registry.
type Decision struct {
	Publish bool
	Reason  string
}

// Decide applies the publish gate. Every condition must hold: running
// under CI, image rebuilt this run, not a pull-request build, upload
// not skipped, and the job succeeded.
func Decide(spec *jobspec.Spec, built bool, exitCode int) Decision {
	switch {
	case !spec.InCI():
		return Decision{Reason: "not running under CI"}
	case !built:
		return Decision{Reason: "image was pulled, not rebuilt this run"}
	case spec.IsPullRequest():
		return Decision{Reason: "pull request build"}
	case spec.SkipUpload:
		return Decision{Reason: "upload disabled by TRAMPOLINE_SKIP_UPLOAD"}
	case exitCode != 0:
		return Decision{Reason: fmt.Sprintf("build job failed with exit code %d", exitCode)}
	default:
		return Decision{Publish: true, Reason: "all publish conditions met"}
	}
}

// Publisher pushes the rebuilt job image back to its registry.
type Publisher struct {
	containerRuntime runtime.ContainerRuntime
}

// NewPublisher creates a new Publisher.
func NewPublisher(containerRuntime runtime.ContainerRuntime) *Publisher {
	return &Publisher{
		containerRuntime: containerRuntime,
	}
}

// Publish evaluates the gate and pushes when it passes. A failed push
// is returned as an error; callers treat it as a warning, never as the
// run's outcome.
func (p *Publisher) Publish(ctx context.Context, spec *jobspec.Spec, built bool, exitCode int, registryAuth string) error {
	decision := Decide(spec, built, exitCode)
	if !decision.Publish {
		slog.Info("Skipping image publish", "image", spec.Image, "reason", decision.Reason)
		return nil
	}

	if err := p.containerRuntime.PushImage(ctx, spec.Image, registryAuth); err != nil {
		return fmt.Errorf("failed to publish image %s: %w", spec.Image, err)
	}

	slog.Info("Image published", "image", spec.Image)
	return nil
}
