package files

import (
	"context"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/davfs/pkg/store"
	"github.com/marmos91/davfs/pkg/user"
)

func newTestStore(t *testing.T) (*Store, *user.User) {
	t.Helper()

	fs := afero.NewMemMapFs()
	usr := &user.User{Login: "alice", Path: "/data/alice", Quota: 0}
	require.NoError(t, fs.MkdirAll(usr.Path, 0700))

	return NewStore(fs), usr
}

func writeFile(t *testing.T, s *Store, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(s.fs, path, []byte(content), 0660))
}

func TestResolve(t *testing.T) {
	s, usr := newTestStore(t)

	tests := []struct {
		name    string
		uri     string
		want    string
		wantErr bool
	}{
		{name: "root", uri: "/", want: "/data/alice"},
		{name: "simple file", uri: "/docs/report.txt", want: "/data/alice/docs/report.txt"},
		{name: "missing leading slash", uri: "docs/a.txt", want: "/data/alice/docs/a.txt"},
		{name: "dot segments collapse", uri: "/docs/../pics/cat.jpg", want: "/data/alice/pics/cat.jpg"},
		{name: "escape collapses to root", uri: "/../../etc/passwd", want: "/data/alice/etc/passwd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			abs, err := s.Resolve(usr, tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, store.IsCode(err, store.ErrBadRequest))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, abs)
		})
	}
}

func TestExists(t *testing.T) {
	s, usr := newTestStore(t)
	ctx := context.Background()

	writeFile(t, s, "/data/alice/f.txt", "hello")

	exists, err := s.Exists(ctx, usr, "/f.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = s.Exists(ctx, usr, "/missing.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = s.Exists(ctx, usr, "/")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestOpen(t *testing.T) {
	s, usr := newTestStore(t)
	ctx := context.Background()

	writeFile(t, s, "/data/alice/f.txt", "hello world")

	handle, err := s.Open(ctx, usr, "/f.txt")
	require.NoError(t, err)
	require.NotNil(t, handle)
	assert.Equal(t, "f.txt", handle.Name)
	assert.Equal(t, int64(11), handle.Size)
	assert.False(t, handle.IsDir)

	reader, err := handle.Reader()
	require.NoError(t, err)
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	assert.Equal(t, "hello world", string(content))

	// Absence is (nil, nil), not an error.
	handle, err = s.Open(ctx, usr, "/missing.txt")
	require.NoError(t, err)
	assert.Nil(t, handle)
}

func TestList_Order(t *testing.T) {
	s, usr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.fs.MkdirAll("/data/alice/A", 0700))
	writeFile(t, s, "/data/alice/b.txt", "b")
	writeFile(t, s, "/data/alice/a.txt", "a")

	entries, err := s.List(ctx, usr, "/")
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name)
	}

	// Directories first, then files in case-insensitive order.
	assert.Equal(t, []string{"A", "a.txt", "b.txt"}, names)
	assert.True(t, entries[0].IsDir)
}

func TestList_NaturalOrder(t *testing.T) {
	s, usr := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"img10.png", "img2.png", "img1.png"} {
		writeFile(t, s, "/data/alice/"+name, "x")
	}

	entries, err := s.List(ctx, usr, "/")
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name)
	}
	assert.Equal(t, []string{"img1.png", "img2.png", "img10.png"}, names)
}

func TestList_Errors(t *testing.T) {
	s, usr := newTestStore(t)
	ctx := context.Background()

	writeFile(t, s, "/data/alice/f.txt", "x")

	_, err := s.List(ctx, usr, "/missing")
	assert.True(t, store.IsCode(err, store.ErrNotFound))

	// A file is not a collection.
	_, err = s.List(ctx, usr, "/f.txt")
	assert.True(t, store.IsCode(err, store.ErrNotFound))
}

func TestList_EmptyDirectory(t *testing.T) {
	s, usr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.fs.MkdirAll("/data/alice/empty", 0700))

	entries, err := s.List(ctx, usr, "/empty")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUsage(t *testing.T) {
	s, usr := newTestStore(t)
	ctx := context.Background()

	writeFile(t, s, "/data/alice/a.txt", "12345")
	writeFile(t, s, "/data/alice/sub/b.txt", "1234567890")

	total, err := s.Usage(ctx, usr)
	require.NoError(t, err)
	assert.Equal(t, int64(15), total)
}

func TestNaturalLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"img2", "img10", true},
		{"img10", "img2", false},
		{"a.txt", "B.txt", true},
		{"B.txt", "a.txt", false},
		{"file", "file2", true},
		{"img01", "img1", true},
		{"x", "x", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, naturalLess(tt.a, tt.b), "naturalLess(%q, %q)", tt.a, tt.b)
	}
}

func TestIsJunkName(t *testing.T) {
	junk := []string{".DS_Store", "Thumbs.db", "desktop.ini", "._report.txt", ".~lock.doc.odt#", "~$budget.xlsx", "db.lock"}
	for _, name := range junk {
		assert.True(t, isJunkName(name), "expected %q to be junk", name)
	}

	clean := []string{"report.txt", ".hidden", "locker.txt", "DS_Store"}
	for _, name := range clean {
		assert.False(t, isJunkName(name), "expected %q to be clean", name)
	}
}
