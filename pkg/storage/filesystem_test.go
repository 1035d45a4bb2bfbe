package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveReadList(t *testing.T) {
	store, err := NewLocalStorage(filepath.Join(t.TempDir(), "backups"))
	require.NoError(t, err)

	_, err = store.Save("backup_20261017_080000.json", []byte("[]"))
	require.NoError(t, err)
	_, err = store.Save("backup_20261018_080000.json", []byte("[{}]"))
	require.NoError(t, err)
	_, err = store.Save("notes.txt", []byte("x"))
	require.NoError(t, err)

	files, err := store.List(".json")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "backup_20261018_080000.json", files[0].Name)
	assert.Equal(t, int64(4), files[0].Size)

	data, err := store.Read("backup_20261017_080000.json")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
	assert.True(t, store.Exists("notes.txt"))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"../escape.json", "/etc/passwd", "a/b.json", "..", ""} {
		_, err := store.Read(name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
		assert.False(t, store.Exists(name))
	}
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	oldPath, err := store.Save("old.csv", []byte("a"))
	require.NoError(t, err)
	_, err = store.Save("new.csv", []byte("b"))
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, past, past))

	deleted, err := store.CleanupOlderThan(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.csv"}, deleted)
	assert.False(t, store.Exists("old.csv"))
	assert.True(t, store.Exists("new.csv"))
}
