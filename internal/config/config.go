package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/distribution/reference"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"trampoline/pkg/jobspec"
)

const (
	// RCFileName is the override file looked up at the project root.
	RCFileName = ".trampolinerc.yaml"

	// DefaultDockerfile is used when TRAMPOLINE_DOCKERFILE is unset.
	DefaultDockerfile = "Dockerfile"

	// defaultServiceAccountKey is the key file name expected inside the
	// CI file-staging directory when TRAMPOLINE_SERVICE_ACCOUNT is unset.
	defaultServiceAccountKey = "kokoro-trampoline.service-account.json"
)

// defaultPassEnv is the built-in whitelist of variables forwarded into
// the container. The override file can only extend it.
// TRAMPOLINE_SERVICE_ACCOUNT is deliberately absent: the key path is a
// host-side secret location and means nothing inside the container.
var defaultPassEnv = []string{
	"TRAMPOLINE_IMAGE",
	"TRAMPOLINE_BUILD_FILE",
	"TRAMPOLINE_IMAGE_SOURCE",
	"TRAMPOLINE_DOCKERFILE",
	"TRAMPOLINE_SKIP_UPLOAD",
	"KOKORO_GFILE_DIR",
	"KOKORO_KEYSTORE_DIR",
	"KOKORO_ARTIFACTS_DIR",
	"KOKORO_BUILD_ID",
	"KOKORO_BUILD_NUMBER",
	"KOKORO_JOB_NAME",
	"KOKORO_GIT_COMMIT",
	"KOKORO_GITHUB_COMMIT",
	"KOKORO_GITHUB_PULL_REQUEST_NUMBER",
	"KOKORO_GITHUB_PULL_REQUEST_COMMIT",
	"TERM",
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Load assembles the run configuration from the process environment and
// the optional override file, then validates it. The returned spec is
// complete: required-variable checks have already passed.
func Load(projectRoot, rcPath string) (*jobspec.Spec, error) {
	rc, err := loadRC(projectRoot, rcPath)
	if err != nil {
		return nil, err
	}

	spec := &jobspec.Spec{
		Image:          os.Getenv("TRAMPOLINE_IMAGE"),
		BuildFile:      os.Getenv("TRAMPOLINE_BUILD_FILE"),
		ImageSource:    os.Getenv("TRAMPOLINE_IMAGE_SOURCE"),
		Dockerfile:     os.Getenv("TRAMPOLINE_DOCKERFILE"),
		ServiceAccount: os.Getenv("TRAMPOLINE_SERVICE_ACCOUNT"),
		GfileDir:       os.Getenv("KOKORO_GFILE_DIR"),
		BuildID:        os.Getenv("KOKORO_BUILD_ID"),
		PullRequest:    os.Getenv("KOKORO_GITHUB_PULL_REQUEST_NUMBER"),
		SkipUpload:     os.Getenv("TRAMPOLINE_SKIP_UPLOAD") == "true",
		RequiredEnv:    append([]string{"TRAMPOLINE_IMAGE", "TRAMPOLINE_BUILD_FILE"}, rc.RequiredEnv...),
		PassEnv:        append(append([]string{}, defaultPassEnv...), rc.PassEnv...),
		ExtraEnv:       rc.Env,
		DefaultArgs:    rc.Args,
	}

	if spec.Dockerfile == "" {
		spec.Dockerfile = DefaultDockerfile
	}
	if spec.ServiceAccount == "" && spec.GfileDir != "" {
		spec.ServiceAccount = filepath.Join(spec.GfileDir, defaultServiceAccountKey)
	}

	if missing := missingRequired(spec.RequiredEnv); len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}

	if _, err := reference.ParseNormalizedNamed(spec.Image); err != nil {
		return nil, fmt.Errorf("TRAMPOLINE_IMAGE %q is not a valid image reference: %w", spec.Image, err)
	}

	return spec, nil
}

// RegistryHost returns the registry domain of the configured image.
func RegistryHost(spec *jobspec.Spec) (string, error) {
	named, err := reference.ParseNormalizedNamed(spec.Image)
	if err != nil {
		return "", fmt.Errorf("failed to parse image reference %q: %w", spec.Image, err)
	}
	return reference.Domain(named), nil
}

// PassDownEnv builds the KEY=VALUE environment list forwarded into the
// container: whitelisted host variables that are non-empty, plus the
// static bindings from the override file. The result is sorted so the
// container invocation is deterministic.
func PassDownEnv(spec *jobspec.Spec) []string {
	seen := make(map[string]string)
	for _, name := range spec.PassEnv {
		if value := os.Getenv(name); value != "" {
			seen[name] = value
		}
	}
	for name, value := range spec.ExtraEnv {
		seen[name] = value
	}

	env := make([]string, 0, len(seen))
	for name, value := range seen {
		env = append(env, name+"="+value)
	}
	sort.Strings(env)
	return env
}

// loadRC reads the override file when it exists. A missing file is not
// an error; a malformed one is.
func loadRC(projectRoot, rcPath string) (*jobspec.RC, error) {
	if rcPath == "" {
		rcPath = filepath.Join(projectRoot, RCFileName)
	}

	if _, err := os.Stat(rcPath); os.IsNotExist(err) {
		return &jobspec.RC{}, nil
	}

	v := viper.New()
	v.SetConfigFile(rcPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read override file %s: %w", rcPath, err)
	}

	var rc jobspec.RC
	if err := v.Unmarshal(&rc); err != nil {
		return nil, fmt.Errorf("failed to parse override file %s - malformed YAML: %w", rcPath, err)
	}

	if err := validate.Struct(&rc); err != nil {
		return nil, fmt.Errorf("invalid override file %s: %w", rcPath, formatValidationError(err))
	}

	return &rc, nil
}

// missingRequired returns the declared-required variable names whose
// values are empty, without duplicates, in declaration order.
func missingRequired(required []string) []string {
	var missing []string
	seen := make(map[string]bool)
	for _, name := range required {
		if seen[name] {
			continue
		}
		seen[name] = true
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var errorMessages []string
		for _, e := range validationErrors {
			errorMessages = append(errorMessages, formatFieldError(e))
		}

		if len(errorMessages) == 1 {
			return fmt.Errorf("validation error: %s", errorMessages[0])
		}

		result := "validation errors:\n"
		for _, msg := range errorMessages {
			result += fmt.Sprintf("  - %s\n", msg)
		}
		return fmt.Errorf("%s", result)
	}
	return fmt.Errorf("validation failed: %w", err)
}

// formatFieldError formats a single validation error into a user-friendly message.
func formatFieldError(e validator.FieldError) string {
	field := e.Field()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("field '%s' is required but missing", field)
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("field '%s' failed validation (%s)", field, tag)
	}
}
