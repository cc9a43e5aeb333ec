package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trampoline/pkg/jobspec"
)

// clearTrampolineEnv blanks every variable the loader reads so tests
// are independent of the invoking environment.
func clearTrampolineEnv(t *testing.T) {
	t.Helper()
	names := []string{
		"TRAMPOLINE_IMAGE",
		"TRAMPOLINE_BUILD_FILE",
		"TRAMPOLINE_IMAGE_SOURCE",
		"TRAMPOLINE_DOCKERFILE",
		"TRAMPOLINE_SERVICE_ACCOUNT",
		"TRAMPOLINE_SKIP_UPLOAD",
		"KOKORO_GFILE_DIR",
		"KOKORO_BUILD_ID",
		"KOKORO_GITHUB_PULL_REQUEST_NUMBER",
	}
	for _, name := range names {
		t.Setenv(name, "")
	}
}

func TestLoad_MissingRequiredVariables(t *testing.T) {
	clearTrampolineEnv(t)

	_, err := Load(t.TempDir(), "")
	if err == nil {
		t.Fatal("Expected error for missing required variables, got nil")
	}

	for _, name := range []string{"TRAMPOLINE_IMAGE", "TRAMPOLINE_BUILD_FILE"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("Error should name missing variable %s, got: %s", name, err)
		}
	}
}

func TestLoad_MinimalConfiguration(t *testing.T) {
	clearTrampolineEnv(t)
	t.Setenv("TRAMPOLINE_IMAGE", "gcr.io/cloud-devrel/python:latest")
	t.Setenv("TRAMPOLINE_BUILD_FILE", "ci/build.sh")

	spec, err := Load(t.TempDir(), "")
	if err != nil {
		t.Fatalf("Load failed: %s", err)
	}

	if spec.Image != "gcr.io/cloud-devrel/python:latest" {
		t.Errorf("Unexpected image: %s", spec.Image)
	}
	if spec.BuildFile != "ci/build.sh" {
		t.Errorf("Unexpected build file: %s", spec.BuildFile)
	}
	if spec.Dockerfile != DefaultDockerfile {
		t.Errorf("Dockerfile should default to %s, got %s", DefaultDockerfile, spec.Dockerfile)
	}
	if spec.InCI() {
		t.Error("Spec should not report CI without KOKORO_BUILD_ID")
	}
	if spec.IsPullRequest() {
		t.Error("Spec should not report a pull request")
	}
}

func TestLoad_InvalidImageReference(t *testing.T) {
	clearTrampolineEnv(t)
	t.Setenv("TRAMPOLINE_IMAGE", "GCR.IO/Bad Image!!")
	t.Setenv("TRAMPOLINE_BUILD_FILE", "ci/build.sh")

	_, err := Load(t.TempDir(), "")
	if err == nil {
		t.Fatal("Expected error for invalid image reference, got nil")
	}
	if !strings.Contains(err.Error(), "image reference") {
		t.Errorf("Unexpected error: %s", err)
	}
}

func TestLoad_ServiceAccountDefaultsIntoGfileDir(t *testing.T) {
	clearTrampolineEnv(t)
	t.Setenv("TRAMPOLINE_IMAGE", "gcr.io/cloud-devrel/go:latest")
	t.Setenv("TRAMPOLINE_BUILD_FILE", "ci/build.sh")
	t.Setenv("KOKORO_GFILE_DIR", "/tmp/gfiles")

	spec, err := Load(t.TempDir(), "")
	if err != nil {
		t.Fatalf("Load failed: %s", err)
	}

	want := filepath.Join("/tmp/gfiles", defaultServiceAccountKey)
	if spec.ServiceAccount != want {
		t.Errorf("ServiceAccount = %s, want %s", spec.ServiceAccount, want)
	}
}

func TestLoad_OverrideFileExtendsLists(t *testing.T) {
	clearTrampolineEnv(t)
	t.Setenv("TRAMPOLINE_IMAGE", "gcr.io/cloud-devrel/node:latest")
	t.Setenv("TRAMPOLINE_BUILD_FILE", "ci/build.sh")

	root := t.TempDir()
	rc := `
requiredEnv:
  - NPM_TOKEN
passEnv:
  - NPM_TOKEN
env:
  CI_SYSTEM: kokoro
args:
  - /workspace/ci/lint.sh
`
	if err := os.WriteFile(filepath.Join(root, RCFileName), []byte(rc), 0644); err != nil {
		t.Fatalf("Failed to write rc file: %s", err)
	}

	// Required variable declared by the rc file is empty: must abort.
	t.Setenv("NPM_TOKEN", "")
	if _, err := Load(root, ""); err == nil || !strings.Contains(err.Error(), "NPM_TOKEN") {
		t.Fatalf("Expected missing NPM_TOKEN error, got: %v", err)
	}

	t.Setenv("NPM_TOKEN", "secret")
	spec, err := Load(root, "")
	if err != nil {
		t.Fatalf("Load failed: %s", err)
	}

	if len(spec.DefaultArgs) != 1 || spec.DefaultArgs[0] != "/workspace/ci/lint.sh" {
		t.Errorf("Unexpected default args: %v", spec.DefaultArgs)
	}

	env := PassDownEnv(spec)
	assertContains(t, env, "NPM_TOKEN=secret")
	assertContains(t, env, "CI_SYSTEM=kokoro")
}

func TestLoad_MalformedOverrideFile(t *testing.T) {
	clearTrampolineEnv(t)
	t.Setenv("TRAMPOLINE_IMAGE", "gcr.io/cloud-devrel/go:latest")
	t.Setenv("TRAMPOLINE_BUILD_FILE", "ci/build.sh")

	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, RCFileName), []byte("requiredEnv: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write rc file: %s", err)
	}

	if _, err := Load(root, ""); err == nil {
		t.Fatal("Expected error for malformed override file, got nil")
	}
}

func TestLoad_OverrideFileRejectsEmptyEntries(t *testing.T) {
	clearTrampolineEnv(t)
	t.Setenv("TRAMPOLINE_IMAGE", "gcr.io/cloud-devrel/go:latest")
	t.Setenv("TRAMPOLINE_BUILD_FILE", "ci/build.sh")

	root := t.TempDir()
	rc := `
passEnv:
  - NPM_TOKEN
  - ""
`
	if err := os.WriteFile(filepath.Join(root, RCFileName), []byte(rc), 0644); err != nil {
		t.Fatalf("Failed to write rc file: %s", err)
	}

	_, err := Load(root, "")
	if err == nil {
		t.Fatal("Expected validation error for empty passEnv entry, got nil")
	}
	if !strings.Contains(err.Error(), "invalid override file") {
		t.Errorf("Error should point at the override file, got: %s", err)
	}
	if !strings.Contains(err.Error(), "PassEnv") {
		t.Errorf("Error should name the offending field, got: %s", err)
	}
}

func TestLoad_BuiltinPassEnvWhitelist(t *testing.T) {
	clearTrampolineEnv(t)
	t.Setenv("TRAMPOLINE_IMAGE", "gcr.io/cloud-devrel/go:latest")
	t.Setenv("TRAMPOLINE_BUILD_FILE", "ci/build.sh")

	spec, err := Load(t.TempDir(), "")
	if err != nil {
		t.Fatalf("Load failed: %s", err)
	}

	for _, name := range []string{"TRAMPOLINE_IMAGE", "TRAMPOLINE_BUILD_FILE", "TRAMPOLINE_DOCKERFILE", "KOKORO_BUILD_ID", "TERM"} {
		assertContains(t, spec.PassEnv, name)
	}
	for _, name := range spec.PassEnv {
		if name == "TRAMPOLINE_SERVICE_ACCOUNT" {
			t.Error("The service-account key path must not be forwarded into the container")
		}
	}
}

func TestPassDownEnv_OnlyWhitelistedAndNonEmpty(t *testing.T) {
	clearTrampolineEnv(t)
	t.Setenv("KOKORO_BUILD_ID", "build-42")
	t.Setenv("KOKORO_JOB_NAME", "")
	t.Setenv("SOME_SECRET", "should-not-leak")

	spec := &jobspec.Spec{PassEnv: []string{"KOKORO_BUILD_ID", "KOKORO_JOB_NAME"}}

	env := PassDownEnv(spec)
	assertContains(t, env, "KOKORO_BUILD_ID=build-42")
	for _, kv := range env {
		if strings.HasPrefix(kv, "KOKORO_JOB_NAME=") {
			t.Error("Empty variables must not be forwarded")
		}
		if strings.HasPrefix(kv, "SOME_SECRET=") {
			t.Error("Non-whitelisted variables must not be forwarded")
		}
	}
}

func TestPassDownEnv_IsSorted(t *testing.T) {
	clearTrampolineEnv(t)
	t.Setenv("KOKORO_BUILD_ID", "1")
	t.Setenv("KOKORO_GFILE_DIR", "/tmp/g")

	spec := &jobspec.Spec{PassEnv: []string{"KOKORO_GFILE_DIR", "KOKORO_BUILD_ID"}}

	env := PassDownEnv(spec)
	for i := 1; i < len(env); i++ {
		if env[i-1] > env[i] {
			t.Fatalf("PassDownEnv output not sorted: %v", env)
		}
	}
}

func TestRegistryHost(t *testing.T) {
	tests := []struct {
		image string
		want  string
	}{
		{"gcr.io/cloud-devrel/python:latest", "gcr.io"},
		{"us-docker.pkg.dev/proj/repo/img:1", "us-docker.pkg.dev"},
		{"ubuntu:22.04", "docker.io"},
	}

	for _, tt := range tests {
		spec := &jobspec.Spec{Image: tt.image}
		host, err := RegistryHost(spec)
		if err != nil {
			t.Errorf("RegistryHost(%s) failed: %s", tt.image, err)
			continue
		}
		if host != tt.want {
			t.Errorf("RegistryHost(%s) = %s, want %s", tt.image, host, tt.want)
		}
	}
}

func assertContains(t *testing.T, list []string, want string) {
	t.Helper()
	for _, item := range list {
		if item == want {
			return
		}
	}
	t.Errorf("Expected %q in %v", want, list)
}
