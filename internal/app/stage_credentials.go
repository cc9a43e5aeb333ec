package app

import (
	"context"
	"fmt"
	"log/slog"

	"trampoline/internal/auth"
	"trampoline/internal/config"
	trerrors "trampoline/internal/errors"
)

// CredentialsStage activates registry credentials when running under
// CI. Outside CI the stage is a no-op and image operations stay
// anonymous.
type CredentialsStage struct{}

// NewCredentialsStage creates a new credentials stage instance.
func NewCredentialsStage() *CredentialsStage {
	return &CredentialsStage{}
}

// Name returns the name of the stage.
func (s *CredentialsStage) Name() string {
	return "credentials"
}

// Execute activates the service-account key for the image's registry.
func (s *CredentialsStage) Execute(ctx context.Context, state *RunState) error {
	if !state.Spec.InCI() {
		slog.Info("Not running under CI, skipping credential activation")
		return nil
	}

	registryHost, err := config.RegistryHost(state.Spec)
	if err != nil {
		return trerrors.NewConfigError(
			"Failed to determine the registry for the configured image",
			err.Error(),
			"Check that TRAMPOLINE_IMAGE is a valid image reference",
			err)
	}

	if state.DryRun {
		fmt.Printf("DRY RUN: Would activate service-account key %s for registry %s\n", state.Spec.ServiceAccount, registryHost)
		return nil
	}

	registryAuth, err := auth.RegistryAuth(ctx, state.Spec.ServiceAccount, registryHost)
	if err != nil {
		return trerrors.NewCredentialsError(
			"Failed to activate registry credentials for the CI run",
			err.Error(),
			"Verify the service-account key file exists and is a valid JSON key",
			err)
	}

	state.RegistryAuth = registryAuth
	return nil
}
