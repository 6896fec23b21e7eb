package status

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_LoadMissingFileIsEmpty(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), DefaultFileName))

	exists, err := s.Exists()
	require.NoError(t, err)
	assert.False(t, exists)

	doc, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Len())
}

func TestStore_LoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("{ not valid json }"), 0o644))

	_, err := NewStore(path).Load()
	require.Error(t, err)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, path, perr.Source)
}

func TestStore_SaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	s := NewStore(path)

	original := FromMap(map[string]TestState{
		"test_one": Passing,
		"test_two": Pending,
	})
	require.NoError(t, s.Save(original))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.True(t, original.Equal(loaded))

	exists, err := s.Exists()
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStore_SaveOverwritesAndLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	s := NewStore(path)

	require.NoError(t, s.Save(FromMap(map[string]TestState{"a": Pending})))
	require.NoError(t, s.Save(FromMap(map[string]TestState{"a": Passing})))

	loaded, err := s.Load()
	require.NoError(t, err)
	st, _ := loaded.Get("a")
	assert.Equal(t, Passing, st)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the status file should remain")
	assert.Equal(t, DefaultFileName, entries[0].Name())
}

func TestStore_SaveIntoMissingDirectoryFails(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "missing", DefaultFileName))
	err := s.Save(NewDocument())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save status file")
}
