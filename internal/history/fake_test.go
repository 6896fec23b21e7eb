package history

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// fakeGit is an in-memory linear history. Each commit maps the status file
// path to its content; a missing entry means the file does not exist there.
type fakeGit struct {
	commits  []string
	files    map[string]string // commit → content of the status file
	blobs    map[string]string // blob id → content
	head     string
	noCommit bool
	reads    int
	lookups  int
}

func newFakeGit() *fakeGit {
	return &fakeGit{files: map[string]string{}, blobs: map[string]string{}}
}

// commit appends a commit. content nil means the status file is absent.
func (f *fakeGit) commit(content *string) string {
	id := fmt.Sprintf("%040d", len(f.commits)+1)
	f.commits = append(f.commits, id)
	if content != nil {
		f.files[id] = *content
		sum := sha1.Sum([]byte(*content))
		f.blobs[hex.EncodeToString(sum[:])] = *content
	}
	f.head = id
	return id
}

func (f *fakeGit) Head(ctx context.Context) (string, error) {
	if f.noCommit || f.head == "" {
		return "", ErrNoCommits
	}
	return f.head, nil
}

func (f *fakeGit) Resolve(ctx context.Context, rev string) (string, error) {
	for _, c := range f.commits {
		if c == rev {
			return c, nil
		}
	}
	if rev == "HEAD" && f.head != "" {
		return f.head, nil
	}
	return "", fmt.Errorf("unknown revision %q", rev)
}

func (f *fakeGit) Ancestry(ctx context.Context, head string) ([]string, error) {
	for i, c := range f.commits {
		if c == head {
			return append([]string(nil), f.commits[:i+1]...), nil
		}
	}
	return nil, fmt.Errorf("unknown head %s", head)
}

func (f *fakeGit) BlobIDs(ctx context.Context, commits []string, path string) ([]string, error) {
	f.lookups++
	ids := make([]string, len(commits))
	for i, commit := range commits {
		if content, ok := f.files[commit]; ok {
			sum := sha1.Sum([]byte(content))
			ids[i] = hex.EncodeToString(sum[:])
		}
	}
	return ids, nil
}

func (f *fakeGit) ReadBlob(ctx context.Context, blob string) ([]byte, error) {
	content, ok := f.blobs[blob]
	if !ok {
		return nil, fmt.Errorf("unknown blob %s", blob)
	}
	return []byte(content), nil
}

func str(s string) *string { return &s }
