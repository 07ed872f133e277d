package facade

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/davfs/pkg/quota"
	"github.com/marmos91/davfs/pkg/store"
	"github.com/marmos91/davfs/pkg/store/files"
	"github.com/marmos91/davfs/pkg/store/metadata"
	"github.com/marmos91/davfs/pkg/store/metadata/memory"
	"github.com/marmos91/davfs/pkg/user"
)

func newTestStorage(t *testing.T, quotaBytes int64) (*Storage, *user.User) {
	t.Helper()

	fs := afero.NewMemMapFs()
	usr := &user.User{Login: "alice", Path: "/data/alice", Quota: quotaBytes}
	require.NoError(t, fs.MkdirAll(usr.Path, 0700))

	filesStore := files.NewStore(fs)
	metaStore := memory.NewMemoryStore()
	tracker := quota.NewTracker(filesStore)

	return NewStorage(filesStore, metaStore, tracker, time.Minute), usr
}

func TestPutThenGet(t *testing.T) {
	s, usr := newTestStorage(t, 0)
	ctx := context.Background()

	created, err := s.Put(ctx, usr, "/docs/report.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.True(t, created)

	handle, err := s.Get(ctx, usr, "/docs/report.txt")
	require.NoError(t, err)
	require.NotNil(t, handle)

	reader, err := handle.Reader()
	require.NoError(t, err)
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	assert.Equal(t, "hello", string(content))
}

func TestPut_EnforcesQuota(t *testing.T) {
	s, usr := newTestStorage(t, 10)
	ctx := context.Background()

	created, err := s.Put(ctx, usr, "/small.txt", strings.NewReader("12345"))
	require.NoError(t, err)
	assert.True(t, created)

	// 5 bytes used, 5 free: a 6-byte upload must fail.
	_, err = s.Put(ctx, usr, "/big.txt", strings.NewReader("123456"))
	require.Error(t, err)
	assert.True(t, store.IsCode(err, store.ErrQuotaExceeded))

	exists, err := s.Exists(ctx, usr, "/big.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPut_ConcurrentUploadsRespectQuota(t *testing.T) {
	s, usr := newTestStorage(t, 100)
	ctx := context.Background()

	// Two 60-byte uploads against a 100-byte quota: at most one can land.
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uri := "/file-" + string(rune('a'+i)) + ".txt"
			_, results[i] = s.Put(ctx, usr, uri, strings.NewReader(strings.Repeat("x", 60)))
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range results {
		if err != nil {
			assert.True(t, store.IsCode(err, store.ErrQuotaExceeded))
			failures++
		}
	}
	assert.Equal(t, 1, failures)

	snapshot, err := s.Quota(ctx, usr)
	require.NoError(t, err)
	assert.LessOrEqual(t, snapshot.Used, int64(100))
}

func TestDelete_PurgesProperties(t *testing.T) {
	s, usr := newTestStorage(t, 0)
	ctx := context.Background()

	_, err := s.Put(ctx, usr, "/dir/f.txt", strings.NewReader("x"))
	require.NoError(t, err)

	err = s.SetProperties(ctx, usr, "/dir/f.txt", metadata.PropertyUpdate{
		Set: []metadata.Property{{Namespace: "ns", Name: "color", Value: "red"}},
	})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, usr, "/dir"))

	props, err := s.StoredProperties(ctx, usr, "/dir/f.txt")
	require.NoError(t, err)
	assert.Empty(t, props)
}

func TestMove_CarriesProperties(t *testing.T) {
	s, usr := newTestStorage(t, 0)
	ctx := context.Background()

	_, err := s.Put(ctx, usr, "/src/f.txt", strings.NewReader("x"))
	require.NoError(t, err)

	err = s.SetProperties(ctx, usr, "/src/f.txt", metadata.PropertyUpdate{
		Set: []metadata.Property{{Namespace: "ns", Name: "color", Value: "red"}},
	})
	require.NoError(t, err)

	require.NoError(t, s.MakeCollection(ctx, usr, "/dst-parent"))
	overwrote, err := s.Move(ctx, usr, "/src", "/dst-parent/dst")
	require.NoError(t, err)
	assert.False(t, overwrote)

	props, err := s.StoredProperties(ctx, usr, "/dst-parent/dst/f.txt")
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, "red", props[0].Value)

	props, err = s.StoredProperties(ctx, usr, "/src/f.txt")
	require.NoError(t, err)
	assert.Empty(t, props)
}

func TestLockLifecycle(t *testing.T) {
	s, usr := newTestStorage(t, 0)
	ctx := context.Background()

	require.NoError(t, s.Lock(ctx, usr, "/a/b", "tok1", metadata.LockScopeExclusive))

	// Depth-1 inheritance: the child is guarded by the parent's lock.
	scope, found, err := s.GetLock(ctx, usr, "/a/b/c", "")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, metadata.LockScopeExclusive, scope)

	require.NoError(t, s.Unlock(ctx, usr, "/a/b", "tok1"))

	_, found, err = s.GetLock(ctx, usr, "/a/b", "")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLock_InvalidScope(t *testing.T) {
	s, usr := newTestStorage(t, 0)

	err := s.Lock(context.Background(), usr, "/a", "tok1", metadata.LockScope("bogus"))
	require.Error(t, err)
	assert.True(t, store.IsCode(err, store.ErrBadRequest))
}

func TestSetProperties_AtomicBatch(t *testing.T) {
	s, usr := newTestStorage(t, 0)
	ctx := context.Background()

	err := s.SetProperties(ctx, usr, "/f.txt", metadata.PropertyUpdate{
		Set: []metadata.Property{
			{Namespace: "ns", Name: "first", Value: "1"},
			{Namespace: "", Name: "broken", Value: "2"},
		},
	})
	require.Error(t, err)
	assert.True(t, store.IsCode(err, store.ErrBadRequest))

	props, err := s.StoredProperties(ctx, usr, "/f.txt")
	require.NoError(t, err)
	assert.Empty(t, props)
}

func TestMakeCollection_QuotaExhausted(t *testing.T) {
	s, usr := newTestStorage(t, 5)
	ctx := context.Background()

	_, err := s.Put(ctx, usr, "/f.txt", strings.NewReader("12345"))
	require.NoError(t, err)

	err = s.MakeCollection(ctx, usr, "/photos")
	require.Error(t, err)
	assert.True(t, store.IsCode(err, store.ErrQuotaExceeded))
}

func TestSweepExpiredLocks(t *testing.T) {
	fs := afero.NewMemMapFs()
	usr := &user.User{Login: "alice", Path: "/data/alice"}
	require.NoError(t, fs.MkdirAll(usr.Path, 0700))

	filesStore := files.NewStore(fs)
	metaStore := memory.NewMemoryStore()

	// A one-nanosecond lease expires immediately.
	s := NewStorage(filesStore, metaStore, quota.NewTracker(filesStore), time.Nanosecond)
	ctx := context.Background()

	require.NoError(t, s.Lock(ctx, usr, "/f.txt", "tok1", metadata.LockScopeShared))
	time.Sleep(10 * time.Millisecond)

	removed, err := s.SweepExpiredLocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}
