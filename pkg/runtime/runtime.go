package runtime

import (
	"context"
	"io"
)

// Mount binds a host path into the container.
type Mount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// RunOptions defines the parameters for running a container.
type RunOptions struct {
	Image            string
	Command          []string
	Mounts           []Mount
	Env              []string
	User             string
	WorkingDirectory string
}

// BuildOptions defines the parameters for building an image.
type BuildOptions struct {
	ContextDir string
	Dockerfile string
	Tags       []string
	CacheFrom  []string
	Labels     map[string]string
}

// RunHandle represents a started container. Logs streams the combined
// output; Wait blocks until the container stops and returns its exit
// code; Close removes the container.
type RunHandle interface {
	Logs(ctx context.Context) (io.ReadCloser, error)
	Wait(ctx context.Context) (int, error)
	Close(ctx context.Context) error
}

// ContainerRuntime defines the contract for image and container
// operations. registryAuth is an encoded registry auth token and may be
// empty for anonymous access.
type ContainerRuntime interface {
	Ping(ctx context.Context) error
	PullImage(ctx context.Context, ref string, registryAuth string) error
	BuildImage(ctx context.Context, opts BuildOptions) error
	PushImage(ctx context.Context, ref string, registryAuth string) error
	RunContainer(ctx context.Context, opts RunOptions) (RunHandle, error)
}
