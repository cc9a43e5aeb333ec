package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"trampoline/internal/app"
	"trampoline/internal/config"
	"trampoline/internal/errors"
	"trampoline/internal/runtime"
	"trampoline/internal/workspace"
)

// version is set at build time via ldflags
var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "trampoline",
	Short:   "Trampoline - containerized CI build runner",
	Version: version,
	Long: `Trampoline bootstraps a Docker-based CI build job: it authenticates to
the image registry, pulls or rebuilds the job image, runs the build
entrypoint inside a container with the project mounted, and publishes
the image back on success.`,
}

var runCmd = &cobra.Command{
	Use:   "run [-- command args...]",
	Short: "Run the containerized build job",
	Long: `Run executes the full trampoline sequence. Positional arguments, when
given, replace the configured build file as the in-container command.
The process exit code equals the container's exit code.`,
	Run: func(cmd *cobra.Command, args []string) {
		rcFile, _ := cmd.Flags().GetString("rc-file")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		exitCode, err := app.Run(rcFile, args, dryRun)
		if err != nil {
			errors.HandleError(err)
			os.Exit(1)
		}
		os.Exit(exitCode)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and runtime availability",
	Long: `Check loads and validates the trampoline configuration, verifies the
Docker daemon is reachable, and prints the resolved run plan without
executing anything.`,
	Run: func(cmd *cobra.Command, args []string) {
		rcFile, _ := cmd.Flags().GetString("rc-file")

		if err := check(rcFile); err != nil {
			errors.HandleError(err)
			os.Exit(1)
		}
	},
}

// check resolves the configuration the same way run does and reports
// the resulting plan.
func check(rcFile string) error {
	ws, err := workspace.Prepare()
	if err != nil {
		return errors.NewFileSystemError(
			"Failed to prepare the run workspace",
			err.Error(),
			"Check permissions on the system temp directory",
			err)
	}

	spec, err := config.Load(ws.Root, rcFile)
	if err != nil {
		return errors.NewConfigError(
			"Failed to load the trampoline configuration",
			err.Error(),
			"Set the missing variables or fix "+config.RCFileName+" at the project root",
			err)
	}

	if _, err := runtime.NewDockerRuntime(); err != nil {
		return errors.NewRuntimeError(
			"Failed to connect to the container runtime",
			err.Error(),
			"Check that the Docker daemon is running and DOCKER_HOST is correct",
			err)
	}

	fmt.Printf("Project root     : %s\n", ws.Root)
	fmt.Printf("Image            : %s\n", spec.Image)
	fmt.Printf("Build file       : %s\n", spec.BuildFile)
	if spec.ImageSource != "" {
		fmt.Printf("Image source     : %s\n", spec.ImageSource)
	}
	fmt.Printf("Running under CI : %t\n", spec.InCI())
	fmt.Printf("Pull request     : %t\n", spec.IsPullRequest())
	fmt.Printf("Pass-down env    : %s\n", strings.Join(spec.PassEnv, ", "))
	fmt.Println("Configuration and runtime check passed.")
	return nil
}

func init() {
	runCmd.Flags().String("rc-file", "", "Path to the override file (default: .trampolinerc.yaml at the project root)")
	runCmd.Flags().Bool("dry-run", false, "Print every action without executing external operations")
	rootCmd.AddCommand(runCmd)

	checkCmd.Flags().String("rc-file", "", "Path to the override file (default: .trampolinerc.yaml at the project root)")
	rootCmd.AddCommand(checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
