package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

const (
	// ContainerProjectDir is where the project root is mounted inside
	// the container.
	ContainerProjectDir = "/workspace"

	// ContainerHomeDir is the isolated HOME inside the container,
	// backed by the scratch home directory.
	ContainerHomeDir = "/home/trampoline"
)

// Workspace captures the host-side context of a single run: the project
// root, an exclusive scratch tree with a nested home directory, the
// caller's identity, and the commit the run is building.
type Workspace struct {
	Root       string
	ScratchDir string
	HomeDir    string
	UID        string
	GID        string
	CommitSHA  string
}

// Prepare resolves the project root and creates the scratch tree. The
// scratch tree is never removed here; the CI sandbox reclaims it.
func Prepare() (*Workspace, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to determine working directory: %w", err)
	}

	root, sha := resolveProject(cwd)

	scratch, err := os.MkdirTemp("", "trampoline-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	home := filepath.Join(scratch, "home")
	if err := os.MkdirAll(home, 0750); err != nil {
		return nil, fmt.Errorf("failed to create scratch home directory: %w", err)
	}

	current, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current user: %w", err)
	}

	ws := &Workspace{
		Root:       root,
		ScratchDir: scratch,
		HomeDir:    home,
		UID:        current.Uid,
		GID:        current.Gid,
		CommitSHA:  sha,
	}

	slog.Info("Workspace prepared", "root", ws.Root, "scratchDir", ws.ScratchDir, "commit", ws.CommitSHA)
	return ws, nil
}

// User returns the uid:gid mapping applied to the container so files
// written under the project mount keep the caller's ownership.
func (w *Workspace) User() string {
	return w.UID + ":" + w.GID
}

// BuildFilePath returns the in-container path of a build entrypoint
// declared relative to the project root.
func (w *Workspace) BuildFilePath(buildFile string) string {
	return filepath.Join(ContainerProjectDir, buildFile)
}

// resolveProject walks up from dir to the enclosing git worktree root
// and reads the HEAD commit. Outside a repository the directory itself
// is the root and no commit is recorded.
func resolveProject(dir string) (root, sha string) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		slog.Warn("Not inside a git repository, using working directory as project root", "dir", dir)
		return dir, ""
	}

	wt, err := repo.Worktree()
	if err != nil {
		return dir, ""
	}
	root = wt.Filesystem.Root()

	if head, err := repo.Head(); err == nil {
		sha = head.Hash().String()
	}

	return root, sha
}
