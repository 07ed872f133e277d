package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/davfs/pkg/store/metadata"
	metatesting "github.com/marmos91/davfs/pkg/store/metadata/testing"
)

func newTestStore(t *testing.T) metadata.Store {
	t.Helper()

	s, err := NewBadgerStore(context.Background(), BadgerStoreConfig{
		DBPath: t.TempDir(),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	return s
}

func TestBadgerStore_Conformance(t *testing.T) {
	suite := &metatesting.StoreTestSuite{NewStore: newTestStore}
	suite.RunAll(t)
}

func TestBadgerStore_Healthcheck(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Healthcheck(context.Background()))
}
