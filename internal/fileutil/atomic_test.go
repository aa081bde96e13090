package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAtomic_Success(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "state.json")

	require.NoError(t, os.WriteFile(target, []byte("old"), 0o644)) //nolint:gosec // G306: Test file, relaxed perms OK
	require.NoError(t, WriteAtomic(target, []byte("new"), 0o600))

	data, err := os.ReadFile(target) //nolint:gosec // G304: Test path from t.TempDir()
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestWriteAtomic_CreatesParentDirs(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "a", "b", "flag")
	require.NoError(t, WriteAtomic(target, []byte("1"), 0o600))

	data, found, err := ReadOptional(target)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1", string(data))
}

func TestWriteAtomic_ParentIsFile(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	err := WriteAtomic(filepath.Join(blocker, "child"), []byte("x"), 0o600)
	require.Error(t, err)
}

func TestWriteAtomic_EmptyPath(t *testing.T) {
	t.Parallel()
	require.ErrorIs(t, WriteAtomic("", []byte("data"), 0o600), ErrEmptyPath)
}

func TestReadOptional(t *testing.T) {
	t.Parallel()

	data, found, err := ReadOptional(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, data)

	_, _, err = ReadOptional("")
	require.ErrorIs(t, err, ErrEmptyPath)

	// A directory cannot be read as a file.
	_, _, err = ReadOptional(t.TempDir())
	require.Error(t, err)
}

func TestRemoveIfExists(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "flag")
	require.NoError(t, RemoveIfExists(target))

	require.NoError(t, os.WriteFile(target, []byte("1"), 0o600))
	require.NoError(t, RemoveIfExists(target))

	_, err := os.Stat(target)
	require.ErrorIs(t, err, os.ErrNotExist)

	require.ErrorIs(t, RemoveIfExists(""), ErrEmptyPath)
}
