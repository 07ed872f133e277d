package testing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/davfs/pkg/store/metadata"
)

func (suite *StoreTestSuite) RunLockTests(test *testing.T) {
	test.Run("Lock_SetAndGet", suite.TestLock_SetAndGet)
	test.Run("Lock_ParentInheritance", suite.TestLock_ParentInheritance)
	test.Run("Lock_NoGrandparentInheritance", suite.TestLock_NoGrandparentInheritance)
	test.Run("Lock_Replace", suite.TestLock_Replace)
	test.Run("Lock_TokenFilter", suite.TestLock_TokenFilter)
	test.Run("Lock_ExpiredIsAbsent", suite.TestLock_ExpiredIsAbsent)
	test.Run("Unlock_Success", suite.TestUnlock_Success)
	test.Run("Unlock_TokenMismatchIsNoop", suite.TestUnlock_TokenMismatchIsNoop)
	test.Run("Sweep_RemovesOnlyExpired", suite.TestSweep_RemovesOnlyExpired)
}

// activeLock builds a lock row expiring well in the future.
func activeLock(login, uri, token string, scope metadata.LockScope) *metadata.Lock {
	return &metadata.Lock{
		Login:     login,
		URI:       uri,
		Token:     token,
		Scope:     scope,
		ExpiresAt: time.Now().Add(5 * time.Minute),
	}
}

func (suite *StoreTestSuite) TestLock_SetAndGet(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, store.SetLock(ctx, activeLock("alice", "/docs/report.txt", "tok1", metadata.LockScopeExclusive)))

	lock, err := store.GetLock(ctx, "alice", "/docs/report.txt", "")
	require.NoError(test, err)
	require.NotNil(test, lock)
	assert.Equal(test, "tok1", lock.Token)
	assert.Equal(test, metadata.LockScopeExclusive, lock.Scope)

	// Another user sees no lock.
	lock, err = store.GetLock(ctx, "bob", "/docs/report.txt", "")
	require.NoError(test, err)
	assert.Nil(test, lock)
}

func (suite *StoreTestSuite) TestLock_ParentInheritance(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, store.SetLock(ctx, activeLock("alice", "/a/b", "tok1", metadata.LockScopeExclusive)))

	// A lock on the collection guards its direct children.
	lock, err := store.GetLock(ctx, "alice", "/a/b/c", "")
	require.NoError(test, err)
	require.NotNil(test, lock)
	assert.Equal(test, metadata.LockScopeExclusive, lock.Scope)
}

func (suite *StoreTestSuite) TestLock_NoGrandparentInheritance(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, store.SetLock(ctx, activeLock("alice", "/a", "tok1", metadata.LockScopeExclusive)))

	// Depth-1 only: a lock two levels up does not guard the resource.
	lock, err := store.GetLock(ctx, "alice", "/a/b/c", "")
	require.NoError(test, err)
	assert.Nil(test, lock)
}

func (suite *StoreTestSuite) TestLock_Replace(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, store.SetLock(ctx, activeLock("alice", "/f.txt", "tok1", metadata.LockScopeExclusive)))
	require.NoError(test, store.SetLock(ctx, activeLock("alice", "/f.txt", "tok2", metadata.LockScopeShared)))

	// Last writer wins: the second lock replaced the first.
	lock, err := store.GetLock(ctx, "alice", "/f.txt", "")
	require.NoError(test, err)
	require.NotNil(test, lock)
	assert.Equal(test, "tok2", lock.Token)
	assert.Equal(test, metadata.LockScopeShared, lock.Scope)
}

func (suite *StoreTestSuite) TestLock_TokenFilter(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, store.SetLock(ctx, activeLock("alice", "/f.txt", "tok1", metadata.LockScopeExclusive)))

	lock, err := store.GetLock(ctx, "alice", "/f.txt", "tok1")
	require.NoError(test, err)
	assert.NotNil(test, lock)

	lock, err = store.GetLock(ctx, "alice", "/f.txt", "other-token")
	require.NoError(test, err)
	assert.Nil(test, lock)
}

func (suite *StoreTestSuite) TestLock_ExpiredIsAbsent(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	expired := activeLock("alice", "/f.txt", "tok1", metadata.LockScopeExclusive)
	expired.ExpiresAt = time.Now().Add(-1 * time.Minute)
	require.NoError(test, store.SetLock(ctx, expired))

	lock, err := store.GetLock(ctx, "alice", "/f.txt", "")
	require.NoError(test, err)
	assert.Nil(test, lock)
}

func (suite *StoreTestSuite) TestUnlock_Success(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, store.SetLock(ctx, activeLock("alice", "/a/b", "tok1", metadata.LockScopeExclusive)))
	require.NoError(test, store.RemoveLock(ctx, "alice", "/a/b", "tok1"))

	lock, err := store.GetLock(ctx, "alice", "/a/b", "")
	require.NoError(test, err)
	assert.Nil(test, lock)
}

func (suite *StoreTestSuite) TestUnlock_TokenMismatchIsNoop(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	require.NoError(test, store.SetLock(ctx, activeLock("alice", "/a/b", "tok1", metadata.LockScopeExclusive)))
	require.NoError(test, store.RemoveLock(ctx, "alice", "/a/b", "wrong-token"))

	// The lock survives a mismatched unlock.
	lock, err := store.GetLock(ctx, "alice", "/a/b", "")
	require.NoError(test, err)
	assert.NotNil(test, lock)
}

func (suite *StoreTestSuite) TestSweep_RemovesOnlyExpired(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	expired := activeLock("alice", "/old.txt", "tok1", metadata.LockScopeExclusive)
	expired.ExpiresAt = time.Now().Add(-1 * time.Hour)
	require.NoError(test, store.SetLock(ctx, expired))
	require.NoError(test, store.SetLock(ctx, activeLock("alice", "/new.txt", "tok2", metadata.LockScopeExclusive)))

	removed, err := store.SweepExpiredLocks(ctx, time.Now())
	require.NoError(test, err)
	assert.Equal(test, 1, removed)

	lock, err := store.GetLock(ctx, "alice", "/new.txt", "")
	require.NoError(test, err)
	assert.NotNil(test, lock)
}
