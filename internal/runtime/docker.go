package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"

	"trampoline/pkg/runtime"
)

// DockerRuntime implements the ContainerRuntime interface using the
// Docker SDK.
type DockerRuntime struct {
	client *client.Client
}

// NewDockerRuntime creates a new DockerRuntime instance using client.FromEnv.
func NewDockerRuntime() (*DockerRuntime, error) {
	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	// Check if Docker daemon is accessible
	ctx := context.Background()
	if _, err := dockerClient.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to Docker daemon: %w", err)
	}

	return &DockerRuntime{
		client: dockerClient,
	}, nil
}

// Ping verifies the Docker daemon is reachable.
func (d *DockerRuntime) Ping(ctx context.Context) error {
	if _, err := d.client.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping Docker daemon: %w", err)
	}
	return nil
}

// PullImage pulls an image, authenticating when registryAuth is set.
func (d *DockerRuntime) PullImage(ctx context.Context, ref string, registryAuth string) error {
	slog.Info("Pulling image", "image", ref)

	reader, err := d.client.ImagePull(ctx, ref, image.PullOptions{RegistryAuth: registryAuth})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	defer reader.Close()

	if err := drainJSONStream(reader); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}

	slog.Info("Successfully pulled image", "image", ref)
	return nil
}

// BuildImage builds an image from the context directory, tarring it up
// as the build context.
func (d *DockerRuntime) BuildImage(ctx context.Context, opts runtime.BuildOptions) error {
	slog.Info("Building image", "context", opts.ContextDir, "dockerfile", opts.Dockerfile, "tags", opts.Tags, "cacheFrom", opts.CacheFrom)

	buildContext, err := archive.TarWithOptions(opts.ContextDir, &archive.TarOptions{})
	if err != nil {
		return fmt.Errorf("failed to create build context from %s: %w", opts.ContextDir, err)
	}
	defer buildContext.Close()

	resp, err := d.client.ImageBuild(ctx, buildContext, types.ImageBuildOptions{
		Tags:       opts.Tags,
		Dockerfile: opts.Dockerfile,
		CacheFrom:  opts.CacheFrom,
		Labels:     opts.Labels,
		Remove:     true,
	})
	if err != nil {
		return fmt.Errorf("failed to build image: %w", err)
	}
	defer resp.Body.Close()

	if err := drainJSONStream(resp.Body); err != nil {
		return fmt.Errorf("image build failed: %w", err)
	}

	slog.Info("Successfully built image", "tags", opts.Tags)
	return nil
}

// PushImage pushes an image to its registry.
func (d *DockerRuntime) PushImage(ctx context.Context, ref string, registryAuth string) error {
	slog.Info("Pushing image", "image", ref)

	reader, err := d.client.ImagePush(ctx, ref, image.PushOptions{RegistryAuth: registryAuth})
	if err != nil {
		return fmt.Errorf("failed to push image %s: %w", ref, err)
	}
	defer reader.Close()

	if err := drainJSONStream(reader); err != nil {
		return fmt.Errorf("failed to push image %s: %w", ref, err)
	}

	slog.Info("Successfully pushed image", "image", ref)
	return nil
}

// RunContainer creates and starts a container and returns a handle to
// its lifecycle.
func (d *DockerRuntime) RunContainer(ctx context.Context, opts runtime.RunOptions) (runtime.RunHandle, error) {
	slog.Info("Running container", "image", opts.Image, "command", opts.Command, "user", opts.User)

	var mounts []mount.Mount
	for _, m := range opts.Mounts {
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}

	containerConfig := &container.Config{
		Image:      opts.Image,
		Cmd:        opts.Command,
		Env:        opts.Env,
		User:       opts.User,
		WorkingDir: opts.WorkingDirectory,
	}

	hostConfig := &container.HostConfig{
		Mounts: mounts,
	}

	resp, err := d.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	containerID := resp.ID

	if err := d.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		// Clean up on start failure
		if removeErr := d.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); removeErr != nil {
			slog.Error("Failed to remove container after start failure", "containerID", containerID, "error", removeErr)
		}
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	return &dockerHandle{
		client:      d.client,
		containerID: containerID,
	}, nil
}

// dockerHandle wraps a started container.
type dockerHandle struct {
	client      *client.Client
	containerID string
}

// Logs streams the container's combined stdout/stderr. The stream uses
// Docker's multiplexed format; consumers strip the frame headers.
func (h *dockerHandle) Logs(ctx context.Context) (io.ReadCloser, error) {
	logs, err := h.client.ContainerLogs(ctx, h.containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get container logs: %w", err)
	}
	return logs, nil
}

// Wait blocks until the container stops and returns its exit code.
func (h *dockerHandle) Wait(ctx context.Context) (int, error) {
	statusCh, errCh := h.client.ContainerWait(ctx, h.containerID, container.WaitConditionNotRunning)

	select {
	case err := <-errCh:
		return -1, fmt.Errorf("failed to wait for container: %w", err)
	case status := <-statusCh:
		if status.Error != nil {
			return int(status.StatusCode), fmt.Errorf("container wait reported: %s", status.Error.Message)
		}
		return int(status.StatusCode), nil
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// Close force-removes the container.
func (h *dockerHandle) Close(ctx context.Context) error {
	if err := h.client.ContainerRemove(ctx, h.containerID, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("failed to remove container %s: %w", h.containerID, err)
	}
	return nil
}

// streamMessage is the subset of the daemon's JSON progress messages we
// care about.
type streamMessage struct {
	Stream string `json:"stream"`
	Status string `json:"status"`
	Error  string `json:"error"`
}

// drainJSONStream consumes a pull/build/push progress stream and
// surfaces an embedded error message, which the daemon reports in-band
// rather than through the HTTP status.
func drainJSONStream(r io.Reader) error {
	dec := json.NewDecoder(r)
	for {
		var msg streamMessage
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to decode daemon response: %w", err)
		}
		if msg.Error != "" {
			return errors.New(msg.Error)
		}
	}
}
