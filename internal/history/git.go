package history

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Git is the read-only view of a repository the walker needs.
// Implementations must not modify the working tree, the index or refs.
type Git interface {
	// Head returns the commit id HEAD points at, or ErrNoCommits.
	Head(ctx context.Context) (string, error)
	// Resolve returns the commit id a revision names.
	Resolve(ctx context.Context, rev string) (string, error)
	// Ancestry lists the commits reachable from head, oldest first,
	// parents before children.
	Ancestry(ctx context.Context, head string) ([]string, error)
	// BlobIDs returns the blob id of path at each commit, in order, with ""
	// where the path does not exist. One call covers the whole ancestry.
	BlobIDs(ctx context.Context, commits []string, path string) ([]string, error)
	// ReadBlob returns the content of a blob.
	ReadBlob(ctx context.Context, blob string) ([]byte, error)
}

// CLI implements Git by running the git binary.
type CLI struct {
	root string
}

// Open returns a CLI for the work tree containing dir.
// Returns ErrNotRepository if dir is not inside a work tree.
func Open(ctx context.Context, dir string) (*CLI, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, fmt.Errorf("git executable not found: %w", err)
	}
	c := &CLI{root: dir}
	out, err := c.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotRepository, dir)
	}
	c.root = strings.TrimSpace(string(out))
	return c, nil
}

// Root returns the top-level directory of the work tree.
func (c *CLI) Root() string {
	return c.root
}

// RelPath converts a filesystem path into the slash-separated,
// repository-relative form git expects in "<commit>:<path>".
func (c *CLI) RelPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	root := c.root
	// Resolve symlinks on both sides; temp dirs are often symlinked.
	if r, err := filepath.EvalSymlinks(root); err == nil {
		root = r
	}
	if d, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		abs = filepath.Join(d, filepath.Base(abs))
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the repository %s", path, c.root)
	}
	return filepath.ToSlash(rel), nil
}

// Head implements Git.
func (c *CLI) Head(ctx context.Context) (string, error) {
	out, ok, err := c.runQuiet(ctx, "rev-parse", "--verify", "--quiet", "HEAD^{commit}")
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoCommits
	}
	return strings.TrimSpace(string(out)), nil
}

// Resolve implements Git.
func (c *CLI) Resolve(ctx context.Context, rev string) (string, error) {
	out, ok, err := c.runQuiet(ctx, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("unknown revision %q", rev)
	}
	return strings.TrimSpace(string(out)), nil
}

// Ancestry implements Git.
func (c *CLI) Ancestry(ctx context.Context, head string) ([]string, error) {
	out, err := c.run(ctx, "rev-list", "--topo-order", "--reverse", head)
	if err != nil {
		return nil, err
	}
	return strings.Fields(string(out)), nil
}

// BlobIDs implements Git with a single "cat-file --batch-check" process
// fed one "<commit>:<path>" line per commit.
func (c *CLI) BlobIDs(ctx context.Context, commits []string, path string) ([]string, error) {
	if len(commits) == 0 {
		return nil, nil
	}
	if strings.ContainsAny(path, "\n\r") {
		return nil, fmt.Errorf("path %q contains a line break", path)
	}
	var in bytes.Buffer
	for _, commit := range commits {
		fmt.Fprintf(&in, "%s:%s\n", commit, path)
	}

	cmd := c.command(ctx, "cat-file", "--batch-check=%(objectname) %(objecttype)")
	cmd.Stdin = &in
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git cat-file --batch-check failed: %w (%s)", err,
			strings.TrimSpace(cmd.Stderr.(*bytes.Buffer).String()))
	}

	lines := strings.Split(strings.TrimSuffix(string(out), "\n"), "\n")
	if len(lines) != len(commits) {
		return nil, fmt.Errorf("git cat-file --batch-check: %d answers for %d commits", len(lines), len(commits))
	}
	ids := make([]string, len(commits))
	for i, line := range lines {
		// Absent paths come back as "<commit>:<path> missing"; a directory
		// with the file's name is a tree and counts as absent too.
		if strings.HasSuffix(line, " missing") {
			continue
		}
		name, kind, ok := strings.Cut(line, " ")
		if ok && kind == "blob" {
			ids[i] = name
		}
	}
	return ids, nil
}

// ReadBlob implements Git.
func (c *CLI) ReadBlob(ctx context.Context, blob string) ([]byte, error) {
	return c.run(ctx, "cat-file", "blob", blob)
}

func (c *CLI) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", c.root}, args...)...)
	cmd.Stderr = new(bytes.Buffer)
	return cmd
}

func (c *CLI) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := c.command(ctx, args...)
	out, err := cmd.Output()
	if err != nil {
		// include stderr so the failure is actionable
		return nil, fmt.Errorf("git %s failed: %w (%s)", strings.Join(args, " "), err,
			strings.TrimSpace(cmd.Stderr.(*bytes.Buffer).String()))
	}
	return out, nil
}

// runQuiet runs a "--verify --quiet" query, where exit status 1 with no
// stderr means "does not exist" rather than failure.
func (c *CLI) runQuiet(ctx context.Context, args ...string) ([]byte, bool, error) {
	cmd := c.command(ctx, args...)
	out, err := cmd.Output()
	if err == nil {
		return out, true, nil
	}
	var exitErr *exec.ExitError
	stderr := strings.TrimSpace(cmd.Stderr.(*bytes.Buffer).String())
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && stderr == "" {
		return nil, false, nil
	}
	return nil, false, fmt.Errorf("git %s failed: %w (%s)", strings.Join(args, " "), err, stderr)
}
