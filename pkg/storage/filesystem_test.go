package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoragePutOpenDelete(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	info, err := store.Put(ctx, "deposits/dep-1/file-1", bytes.NewReader([]byte("test")), 4, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, int64(4), info.Size)
	assert.Equal(t, "md5:098f6bcd4621d373cade4e832627b4f6", info.Checksum)

	obj, err := store.Open(ctx, "deposits/dep-1/file-1")
	require.NoError(t, err)
	data, err := io.ReadAll(obj)
	require.NoError(t, err)
	require.NoError(t, obj.Close())
	assert.Equal(t, "test", string(data))
	assert.Equal(t, int64(4), obj.Size)

	require.NoError(t, store.Delete(ctx, "deposits/dep-1/file-1"))
	_, err = store.Open(ctx, "deposits/dep-1/file-1")
	require.ErrorIs(t, err, ErrObjectNotFound)

	require.NoError(t, store.Delete(ctx, "deposits/dep-1/file-1"))
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, key := range []string{"", "../outside", "/etc/passwd", "a/../../b"} {
		_, err := store.Put(ctx, key, bytes.NewReader([]byte("x")), 1, "")
		assert.Error(t, err, key)
	}
}

func TestLocalStoragePutHonoursContext(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Put(ctx, "deposits/dep-1/file-1", bytes.NewReader([]byte("test")), 4, "")
	require.ErrorIs(t, err, context.Canceled)
	_, err = store.Open(context.Background(), "deposits/dep-1/file-1")
	require.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalStorageCleanupTemp(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	stale := filepath.Join(dir, "deposits", "stale"+tempSuffix)
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o750))
	require.NoError(t, os.WriteFile(stale, []byte("partial"), 0o600))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	kept := filepath.Join(dir, "deposits", "kept")
	require.NoError(t, os.WriteFile(kept, []byte("done"), 0o600))
	require.NoError(t, os.Chtimes(kept, old, old))

	deleted, err := store.CleanupTemp(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("deposits", "stale"+tempSuffix)}, deleted)
	_, err = os.Stat(kept)
	assert.NoError(t, err)
}
