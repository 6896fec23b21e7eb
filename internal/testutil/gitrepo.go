package testutil

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// GitRepo is a scripted, throwaway git repository for tests.
//
// The repository is isolated from the user's configuration: HOME points at
// the temp dir and GIT_CONFIG_NOSYSTEM is set, so signing hooks or global
// templates never leak into a test.
type GitRepo struct {
	t   *testing.T
	Dir string
	n   int
}

// NewGitRepo initializes an empty repository in a temp dir.
// Skips the test when git is not installed.
func NewGitRepo(t *testing.T) *GitRepo {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("resolve temp dir: %v", err)
	}
	r := &GitRepo{t: t, Dir: dir}
	r.Git("init", "--quiet")
	r.Git("config", "user.email", "ratchet@example.com")
	r.Git("config", "user.name", "Ratchet Test")
	r.Git("config", "commit.gpgsign", "false")
	return r
}

// Git runs a git command in the repository and returns trimmed stdout.
// Fails the test on error.
func (r *GitRepo) Git(args ...string) string {
	r.t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(),
		"HOME="+r.Dir,
		"GIT_CONFIG_NOSYSTEM=1",
		"GIT_AUTHOR_DATE=2026-01-01T00:00:00Z",
		"GIT_COMMITTER_DATE=2026-01-01T00:00:00Z",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		r.t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, stderr.String())
	}
	return strings.TrimSpace(string(out))
}

// Path returns the absolute path of a repository-relative file.
func (r *GitRepo) Path(rel string) string {
	return filepath.Join(r.Dir, filepath.FromSlash(rel))
}

// WriteFile writes a repository-relative file, creating parent directories.
func (r *GitRepo) WriteFile(rel, content string) {
	r.t.Helper()
	path := r.Path(rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		r.t.Fatalf("write %s: %v", rel, err)
	}
}

// Remove deletes a repository-relative file from the work tree.
func (r *GitRepo) Remove(rel string) {
	r.t.Helper()
	if err := os.Remove(r.Path(rel)); err != nil {
		r.t.Fatalf("remove %s: %v", rel, err)
	}
}

// Commit stages everything and commits, returning the new commit id.
// Empty commits are allowed so tests can model commits that do not touch
// the status file.
func (r *GitRepo) Commit(message string) string {
	r.t.Helper()
	r.n++
	r.Git("add", "--all")
	r.Git("commit", "--quiet", "--allow-empty", "-m", message)
	return r.Git("rev-parse", "HEAD")
}

// Commits returns how many commits were made through Commit.
func (r *GitRepo) Commits() int {
	return r.n
}
