package files

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/davfs/pkg/store"
)

func TestDelete_File(t *testing.T) {
	s, usr := newTestStore(t)
	ctx := context.Background()

	writeFile(t, s, "/data/alice/f.txt", "x")

	require.NoError(t, s.Delete(ctx, usr, "/f.txt"))

	exists, err := afero.Exists(s.fs, "/data/alice/f.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDelete_RecursiveDirectory(t *testing.T) {
	s, usr := newTestStore(t)
	ctx := context.Background()

	writeFile(t, s, "/data/alice/dir/a.txt", "a")
	writeFile(t, s, "/data/alice/dir/sub/b.txt", "b")

	require.NoError(t, s.Delete(ctx, usr, "/dir"))

	for _, uri := range []string{"/dir", "/dir/a.txt", "/dir/sub", "/dir/sub/b.txt"} {
		exists, err := s.Exists(ctx, usr, uri)
		require.NoError(t, err)
		assert.False(t, exists, "expected %s to be gone", uri)
	}
}

func TestDelete_Missing(t *testing.T) {
	s, usr := newTestStore(t)

	err := s.Delete(context.Background(), usr, "/missing")
	require.Error(t, err)
	assert.True(t, store.IsCode(err, store.ErrNotFound))
}

func TestCopyMove_CopyFile(t *testing.T) {
	s, usr := newTestStore(t)
	ctx := context.Background()

	writeFile(t, s, "/data/alice/src.txt", "content")

	overwrote, err := s.CopyMove(ctx, usr, false, "/src.txt", "/dst.txt", unlimited)
	require.NoError(t, err)
	assert.False(t, overwrote)

	// Source survives a copy.
	for _, path := range []string{"/data/alice/src.txt", "/data/alice/dst.txt"} {
		content, err := afero.ReadFile(s.fs, path)
		require.NoError(t, err)
		assert.Equal(t, "content", string(content))
	}
}

func TestCopyMove_CopyTree(t *testing.T) {
	s, usr := newTestStore(t)
	ctx := context.Background()

	writeFile(t, s, "/data/alice/src/x.txt", "x-bytes")
	writeFile(t, s, "/data/alice/src/sub/y.txt", "y-bytes")

	overwrote, err := s.CopyMove(ctx, usr, false, "/src", "/dst", unlimited)
	require.NoError(t, err)
	assert.False(t, overwrote)

	content, err := afero.ReadFile(s.fs, "/data/alice/dst/x.txt")
	require.NoError(t, err)
	assert.Equal(t, "x-bytes", string(content))

	content, err = afero.ReadFile(s.fs, "/data/alice/dst/sub/y.txt")
	require.NoError(t, err)
	assert.Equal(t, "y-bytes", string(content))
}

func TestCopyMove_MoveFile(t *testing.T) {
	s, usr := newTestStore(t)
	ctx := context.Background()

	writeFile(t, s, "/data/alice/src.txt", "content")

	overwrote, err := s.CopyMove(ctx, usr, true, "/src.txt", "/dst.txt", unlimited)
	require.NoError(t, err)
	assert.False(t, overwrote)

	exists, err := s.Exists(ctx, usr, "/src.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	content, err := afero.ReadFile(s.fs, "/data/alice/dst.txt")
	require.NoError(t, err)
	assert.Equal(t, "content", string(content))
}

func TestCopyMove_OverwriteReplaces(t *testing.T) {
	s, usr := newTestStore(t)
	ctx := context.Background()

	writeFile(t, s, "/data/alice/src.txt", "fresh")
	writeFile(t, s, "/data/alice/dst/old.txt", "stale")

	// Destination is a directory: replaced wholesale, not merged into.
	overwrote, err := s.CopyMove(ctx, usr, false, "/src.txt", "/dst", unlimited)
	require.NoError(t, err)
	assert.True(t, overwrote)

	content, err := afero.ReadFile(s.fs, "/data/alice/dst")
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(content))
}

func TestCopyMove_Errors(t *testing.T) {
	s, usr := newTestStore(t)
	ctx := context.Background()

	writeFile(t, s, "/data/alice/src.txt", "0123456789")

	_, err := s.CopyMove(ctx, usr, false, "/missing.txt", "/dst.txt", unlimited)
	assert.True(t, store.IsCode(err, store.ErrNotFound))

	_, err = s.CopyMove(ctx, usr, false, "/src.txt", "/no-parent/dst.txt", unlimited)
	assert.True(t, store.IsCode(err, store.ErrConflict))

	// Source is 10 bytes, only 5 free.
	_, err = s.CopyMove(ctx, usr, false, "/src.txt", "/dst.txt", 5)
	assert.True(t, store.IsCode(err, store.ErrQuotaExceeded))

	exists, statErr := s.Exists(ctx, usr, "/dst.txt")
	require.NoError(t, statErr)
	assert.False(t, exists)
}

func TestMakeCollection(t *testing.T) {
	s, usr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.MakeCollection(ctx, usr, "/photos", unlimited))

	info, err := s.fs.Stat("/data/alice/photos")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestMakeCollection_Errors(t *testing.T) {
	s, usr := newTestStore(t)
	ctx := context.Background()

	writeFile(t, s, "/data/alice/f.txt", "x")

	err := s.MakeCollection(ctx, usr, "/photos", 0)
	assert.True(t, store.IsCode(err, store.ErrQuotaExceeded))

	err = s.MakeCollection(ctx, usr, "/f.txt", unlimited)
	assert.True(t, store.IsCode(err, store.ErrMethodNotAllowed))

	err = s.MakeCollection(ctx, usr, "/a/b/c", unlimited)
	assert.True(t, store.IsCode(err, store.ErrConflict))
}
