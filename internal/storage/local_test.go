package storage

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/mediavault/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	return store
}

func TestStore_CopyInAndOpen(t *testing.T) {
	store := newTestStore(t)

	src := filepath.Join(t.TempDir(), "src.bin")
	require.NoError(t, os.WriteFile(src, []byte("blob content"), 0o644))

	rel := PlacementPath(testFingerprint, ".bin")
	require.NoError(t, store.CopyIn(src, rel))

	exists, err := store.Exists(rel)
	require.NoError(t, err)
	assert.True(t, exists)

	r, err := store.Open(rel)
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []byte("blob content"), data)
}

func TestStore_CopyIn_RewriteKeepsBlobComplete(t *testing.T) {
	store := newTestStore(t)
	srcDir := t.TempDir()

	src := filepath.Join(srcDir, "src.bin")
	require.NoError(t, os.WriteFile(src, []byte("blob content"), 0o644))

	rel := PlacementPath(testFingerprint, ".bin")
	require.NoError(t, store.CopyIn(src, rel))

	// A racing writer of the same content replaces the blob via rename; an
	// open reader keeps its complete view and no temp file is left behind.
	r, err := store.Open(rel)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, store.CopyIn(src, rel))

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []byte("blob content"), data)

	dir, err := os.ReadDir(filepath.Dir(store.AbsPath(rel)))
	require.NoError(t, err)
	require.Len(t, dir, 1, "only the blob itself lives in the shard directory")
	assert.Equal(t, filepath.Base(rel), dir[0].Name())
}

func TestStore_AbsPath_PassesThroughAbsolute(t *testing.T) {
	store := newTestStore(t)

	abs := filepath.Join(t.TempDir(), "kept-in-place.jpg")
	assert.Equal(t, abs, store.AbsPath(abs))
	assert.Equal(t, filepath.Join(store.Root(), "media/ab"), store.AbsPath("media/ab"))
}

func TestStore_CopyIn_MissingSource(t *testing.T) {
	store := newTestStore(t)

	err := store.CopyIn(filepath.Join(t.TempDir(), "missing"), PlacementPath(testFingerprint, ""))
	assert.True(t, errors.Is(err, domain.ErrFileNotFound))
}

func TestStore_Remove(t *testing.T) {
	store := newTestStore(t)

	src := filepath.Join(t.TempDir(), "src.bin")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	rel := PlacementPath(testFingerprint, ".bin")
	require.NoError(t, store.CopyIn(src, rel))
	require.NoError(t, store.Remove(rel))

	exists, err := store.Exists(rel)
	require.NoError(t, err)
	assert.False(t, exists)

	err = store.Remove(rel)
	assert.True(t, errors.Is(err, domain.ErrBlobNotFound))
}

func TestStore_Walk(t *testing.T) {
	store := newTestStore(t)

	src := filepath.Join(t.TempDir(), "src.bin")
	require.NoError(t, os.WriteFile(src, []byte("walk me"), 0o644))

	relA := PlacementPath(testFingerprint, ".bin")
	relB := PlacementPath("ff"+testFingerprint[2:], ".jpg")
	require.NoError(t, store.CopyIn(src, relA))
	require.NoError(t, store.CopyIn(src, relB))

	var seen []string
	err := store.Walk(func(relPath string, info fs.FileInfo) error {
		seen = append(seen, relPath)
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{relA, relB}, seen)
}

func TestStore_Walk_EmptyStore(t *testing.T) {
	store := newTestStore(t)

	err := store.Walk(func(relPath string, info fs.FileInfo) error {
		t.Fatalf("unexpected blob %s in empty store", relPath)
		return nil
	})
	assert.NoError(t, err)
}
