package gittest

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/walteh/replacepr/pkg/git"
)

// Init creates a real repository in a temp dir with files committed on main
// and a bare repository wired up as origin. Tests are skipped when git is not
// installed.
func Init(t testing.TB, files map[string]string) (string, git.ExecRunner) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	runner := git.ExecRunner{}
	dir := t.TempDir()
	origin := t.TempDir()

	Must(t, runner, origin, "init", "--quiet", "--bare")
	Must(t, runner, dir, "init", "--quiet", "--initial-branch=main")
	Must(t, runner, dir, "config", "user.email", "test@example.com")
	Must(t, runner, dir, "config", "user.name", "test")
	Must(t, runner, dir, "config", "commit.gpgsign", "false")
	Must(t, runner, dir, "remote", "add", "origin", origin)

	for rel, content := range files {
		Write(t, dir, rel, content)
	}
	Must(t, runner, dir, "add", "--all")
	Must(t, runner, dir, "commit", "--quiet", "-m", "initial")

	return dir, runner
}

// Must runs git and fails the test on error
func Must(t testing.TB, runner git.ExecRunner, dir string, args ...string) string {
	t.Helper()
	out, err := runner.Run(context.Background(), dir, args...)
	require.NoError(t, err)
	return out
}

// Write creates rel under dir with content
func Write(t testing.TB, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
