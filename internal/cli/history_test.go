package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ratchet/internal/status"
	"github.com/roach88/ratchet/internal/testutil"
)

func TestHistory_Consistent(t *testing.T) {
	repo := newProject(t)
	repo.WriteFile(status.DefaultFileName, `{"tests":{"legacy":"passing"}}`)
	intro := repo.Commit("adopt ratchet")
	repo.WriteFile(status.DefaultFileName, `{"tests":{"legacy":"passing","foo::bar":"pending"}}`)
	repo.Commit("failing test")

	stdout, _, err := execute(t, nil, "--dir", repo.Dir, "history")
	require.NoError(t, err)
	assert.Contains(t, stdout, "history: consistent (2 snapshot(s))")
	assert.Contains(t, stdout, "baseline  "+intro[:12]+" (introduced)")
	assert.Contains(t, stdout, "1 passing, 0 pending (grandfathered)")
}

func TestHistory_JSON(t *testing.T) {
	repo := newProject(t)
	repo.WriteFile(status.DefaultFileName, `{"tests":{}}`)
	repo.Commit("adopt ratchet")
	repo.WriteFile(status.DefaultFileName, `{"tests":{"foo::bar":"pending"}}`)
	base := repo.Commit("failing test")

	stdout, _, err := execute(t, nil, "--dir", repo.Dir, "--format", "json", "history", "--baseline", base)
	require.NoError(t, err)

	var resp struct {
		Data HistoryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, base, resp.Data.Baseline)
	assert.Equal(t, "override", resp.Data.BaselineReason)
	require.Len(t, resp.Data.Snapshots, 1)
	assert.Equal(t, 1, resp.Data.Snapshots[0].Pending)
}

func TestHistory_NoCommits(t *testing.T) {
	repo := testutil.NewGitRepo(t)

	stdout, _, err := execute(t, nil, "--dir", repo.Dir, "history")
	require.NoError(t, err)
	assert.Contains(t, stdout, "repository has no commits")
}

func TestHistory_InconsistentExitsTwo(t *testing.T) {
	repo := newProject(t)
	repo.WriteFile(status.DefaultFileName, `{"tests":{}}`)
	repo.Commit("adopt ratchet")
	repo.WriteFile(status.DefaultFileName, `{"tests":{"foo::bar":"pending"}}`)
	repo.Commit("failing test")
	repo.WriteFile(status.DefaultFileName, `{"tests":{"foo::bar":"passing"}}`)
	repo.Commit("implementation")
	repo.WriteFile(status.DefaultFileName, `{"tests":{"foo::bar":"pending"}}`)
	repo.Commit("demote")

	_, stderr, err := execute(t, nil, "--dir", repo.Dir, "history")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr, "foo::bar: passing → pending")
}
