package jobspec

// Spec is the fully resolved configuration for a single trampoline run.
// It is assembled once from the process environment and the optional
// .trampolinerc.yaml override file, and is immutable afterwards.
type Spec struct {
	// Image is the full registry reference of the job image.
	Image string

	// BuildFile is the build entrypoint path, relative to the project
	// root, executed inside the container when no command is supplied.
	BuildFile string

	// ImageSource is an optional path to a Dockerfile. When set the
	// image is rebuilt from its containing directory.
	ImageSource string

	// Dockerfile is the file name passed to the image build, relative
	// to the build context directory.
	Dockerfile string

	// ServiceAccount is the path to the service-account JSON key used
	// for registry authentication when running under CI.
	ServiceAccount string

	// GfileDir is the CI file-staging directory. Mounted read-only into
	// the container and forwarded as an environment variable when set.
	GfileDir string

	// BuildID is the CI build identifier. A non-empty value means the
	// run is happening under CI.
	BuildID string

	// PullRequest is the pull-request number of the triggering change,
	// empty outside pull-request builds.
	PullRequest string

	// SkipUpload suppresses publishing even when every other gate
	// condition holds.
	SkipUpload bool

	// RequiredEnv lists variable names that must be non-empty before
	// any image or container operation is attempted.
	RequiredEnv []string

	// PassEnv lists variable names forwarded from the host environment
	// into the container when non-empty.
	PassEnv []string

	// ExtraEnv holds static environment bindings from the override file.
	ExtraEnv map[string]string

	// DefaultArgs is the container command used when no positional
	// arguments are given on the command line.
	DefaultArgs []string
}

// InCI reports whether the run is happening under the CI system.
func (s *Spec) InCI() bool {
	return s.BuildID != ""
}

// IsPullRequest reports whether the run was triggered by a pull request.
func (s *Spec) IsPullRequest() bool {
	return s.PullRequest != ""
}

// RC is the schema of the optional .trampolinerc.yaml override file at
// the project root. All fields extend, never replace, the built-in
// defaults.
type RC struct {
	RequiredEnv []string          `mapstructure:"requiredEnv" validate:"omitempty,dive,required"`
	PassEnv     []string          `mapstructure:"passEnv" validate:"omitempty,dive,required"`
	Env         map[string]string `mapstructure:"env" validate:"omitempty,dive,required"`
	Args        []string          `mapstructure:"args" validate:"omitempty,dive,required"`
}
