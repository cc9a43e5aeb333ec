package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPrepare_CreatesScratchTree(t *testing.T) {
	// Run from a plain directory so project detection falls back to it.
	dir := t.TempDir()
	t.Chdir(dir)

	ws, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare failed: %s", err)
	}
	defer os.RemoveAll(ws.ScratchDir)

	if info, err := os.Stat(ws.ScratchDir); err != nil || !info.IsDir() {
		t.Errorf("Scratch directory missing: %v", err)
	}
	if info, err := os.Stat(ws.HomeDir); err != nil || !info.IsDir() {
		t.Errorf("Scratch home directory missing: %v", err)
	}
	if ws.HomeDir != filepath.Join(ws.ScratchDir, "home") {
		t.Errorf("Home directory should nest inside the scratch dir, got %s", ws.HomeDir)
	}
	if !strings.Contains(filepath.Base(ws.ScratchDir), "trampoline-") {
		t.Errorf("Scratch directory should carry the trampoline prefix, got %s", ws.ScratchDir)
	}
}

func TestPrepare_UniqueScratchDirs(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	a, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare failed: %s", err)
	}
	defer os.RemoveAll(a.ScratchDir)

	b, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare failed: %s", err)
	}
	defer os.RemoveAll(b.ScratchDir)

	if a.ScratchDir == b.ScratchDir {
		t.Error("Each run must own its scratch directory")
	}
}

func TestUser_Format(t *testing.T) {
	ws := &Workspace{UID: "1000", GID: "100"}
	if ws.User() != "1000:100" {
		t.Errorf("User() = %s, want 1000:100", ws.User())
	}
}

func TestBuildFilePath(t *testing.T) {
	ws := &Workspace{}
	if got := ws.BuildFilePath("ci/build.sh"); got != "/workspace/ci/build.sh" {
		t.Errorf("BuildFilePath = %s, want /workspace/ci/build.sh", got)
	}
}

func TestResolveProject_OutsideGitRepository(t *testing.T) {
	dir := t.TempDir()

	root, sha := resolveProject(dir)
	if root != dir {
		t.Errorf("Fallback root = %s, want %s", root, dir)
	}
	if sha != "" {
		t.Errorf("Expected empty commit outside a repository, got %s", sha)
	}
}
