package auth

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/docker/docker/api/types/registry"
	"golang.org/x/oauth2/google"
)

// tokenUsername is the fixed username registries accept alongside an
// OAuth2 access token.
const tokenUsername = "oauth2accesstoken"

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// RegistryAuth activates the service-account key at keyPath and returns
// the encoded registry auth string for registryHost. The token is
// minted once per run; no refresh is needed for a single linear job.
func RegistryAuth(ctx context.Context, keyPath, registryHost string) (string, error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return "", fmt.Errorf("failed to read service-account key %s: %w", keyPath, err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, cloudPlatformScope)
	if err != nil {
		return "", fmt.Errorf("failed to load service-account credentials: %w", err)
	}

	token, err := creds.TokenSource.Token()
	if err != nil {
		return "", fmt.Errorf("failed to mint access token: %w", err)
	}

	encoded, err := registry.EncodeAuthConfig(registry.AuthConfig{
		Username:      tokenUsername,
		Password:      token.AccessToken,
		ServerAddress: registryHost,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode registry auth: %w", err)
	}

	slog.Info("Registry credentials activated", "registry", registryHost, "keyFile", keyPath)
	return encoded, nil
}
