package auth

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRegistryAuth_MissingKeyFile(t *testing.T) {
	_, err := RegistryAuth(context.Background(), filepath.Join(t.TempDir(), "missing.json"), "gcr.io")
	if err == nil {
		t.Fatal("Expected error for missing key file")
	}
	if !strings.Contains(err.Error(), "service-account key") {
		t.Errorf("Unexpected error: %s", err)
	}
}

func TestRegistryAuth_MalformedKeyFile(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "key.json")
	if err := os.WriteFile(keyPath, []byte("not a key"), 0600); err != nil {
		t.Fatalf("Failed to write key file: %s", err)
	}

	_, err := RegistryAuth(context.Background(), keyPath, "gcr.io")
	if err == nil {
		t.Fatal("Expected error for malformed key file")
	}
	if !strings.Contains(err.Error(), "credentials") {
		t.Errorf("Unexpected error: %s", err)
	}
}
