package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/davfs/pkg/store/metadata"
	metatesting "github.com/marmos91/davfs/pkg/store/metadata/testing"
)

func TestMemoryStore_Conformance(t *testing.T) {
	suite := &metatesting.StoreTestSuite{
		NewStore: func(t *testing.T) metadata.Store {
			return NewMemoryStore()
		},
	}
	suite.RunAll(t)
}

func TestMemoryStore_CloseResets(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	err := s.UpdateProperties(ctx, "alice", "/f.txt", metadata.PropertyUpdate{
		Set: []metadata.Property{{Namespace: "ns", Name: "p", Value: "1"}},
	})
	require.NoError(t, err)

	require.NoError(t, s.Close())

	props, err := s.Properties(ctx, "alice", "/f.txt")
	require.NoError(t, err)
	require.Empty(t, props)
}
