package builder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"trampoline/pkg/jobspec"
	"trampoline/pkg/runtime"
)

// revisionLabel records the commit a rebuilt image was produced from.
const revisionLabel = "org.opencontainers.image.revision"

// Result describes how the job image was obtained.
type Result struct {
	Ref    string
	Pulled bool
	Built  bool
}

// ImageBuilder acquires the job image: it pulls the configured
// reference and, when a build source is set, rebuilds it with the
// pulled image as a layer cache.
type ImageBuilder struct {
	containerRuntime runtime.ContainerRuntime
}

// NewImageBuilder creates a new ImageBuilder.
func NewImageBuilder(containerRuntime runtime.ContainerRuntime) *ImageBuilder {
	return &ImageBuilder{
		containerRuntime: containerRuntime,
	}
}

// Acquire obtains a runnable image. Pull failure is fatal only when no
// build source is configured; a configured build source always triggers
// a rebuild, cached from the pulled image when the pull succeeded.
func (b *ImageBuilder) Acquire(ctx context.Context, spec *jobspec.Spec, commitSHA string, registryAuth string) (*Result, error) {
	result := &Result{Ref: spec.Image}

	if err := b.containerRuntime.PullImage(ctx, spec.Image, registryAuth); err != nil {
		if spec.ImageSource == "" {
			return nil, fmt.Errorf("failed to pull image %s and no build source is configured: %w", spec.Image, err)
		}
		slog.Warn("Image pull failed, rebuilding without layer cache", "image", spec.Image, "error", err)
	} else {
		result.Pulled = true
	}

	if spec.ImageSource == "" {
		return result, nil
	}

	contextDir, dockerfile, err := resolveBuildSource(spec)
	if err != nil {
		return nil, err
	}

	opts := runtime.BuildOptions{
		ContextDir: contextDir,
		Dockerfile: dockerfile,
		Tags:       []string{spec.Image},
	}
	if result.Pulled {
		opts.CacheFrom = []string{spec.Image}
	}
	if commitSHA != "" {
		opts.Labels = map[string]string{revisionLabel: commitSHA}
	}

	if err := b.containerRuntime.BuildImage(ctx, opts); err != nil {
		return nil, fmt.Errorf("failed to build image %s from %s: %w", spec.Image, spec.ImageSource, err)
	}

	result.Built = true
	return result, nil
}

// resolveBuildSource maps TRAMPOLINE_IMAGE_SOURCE onto a build context
// directory and a Dockerfile name within it. The source may point at
// the Dockerfile itself or at its directory.
func resolveBuildSource(spec *jobspec.Spec) (contextDir, dockerfile string, err error) {
	source, err := filepath.Abs(spec.ImageSource)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve build source path %s: %w", spec.ImageSource, err)
	}

	info, err := os.Stat(source)
	if err != nil {
		return "", "", fmt.Errorf("build source not found: %s: %w", spec.ImageSource, err)
	}

	if info.IsDir() {
		return source, spec.Dockerfile, nil
	}
	return filepath.Dir(source), filepath.Base(source), nil
}
