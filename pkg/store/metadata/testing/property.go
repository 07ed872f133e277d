package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/davfs/pkg/store"
	"github.com/marmos91/davfs/pkg/store/metadata"
)

func (suite *StoreTestSuite) RunPropertyTests(test *testing.T) {
	test.Run("Property_SetAndGet", suite.TestProperty_SetAndGet)
	test.Run("Property_Overwrite", suite.TestProperty_Overwrite)
	test.Run("Property_BatchSetAndRemove", suite.TestProperty_BatchSetAndRemove)
	test.Run("Property_EmptyNamespaceAbortsBatch", suite.TestProperty_EmptyNamespaceAbortsBatch)
	test.Run("Property_RemoveMissingIsNoop", suite.TestProperty_RemoveMissingIsNoop)
	test.Run("Property_PerUserIsolation", suite.TestProperty_PerUserIsolation)
	test.Run("Property_PurgeSubtree", suite.TestProperty_PurgeSubtree)
	test.Run("Property_MoveSubtree", suite.TestProperty_MoveSubtree)
}

// setProp stores a single property and fails the test on error.
func setProp(test *testing.T, s metadata.Store, login, uri, namespace, name, value string) {
	test.Helper()

	err := s.UpdateProperties(context.Background(), login, uri, metadata.PropertyUpdate{
		Set: []metadata.Property{{
			Namespace: namespace,
			Name:      name,
			Value:     value,
		}},
	})
	require.NoError(test, err)
}

func (suite *StoreTestSuite) TestProperty_SetAndGet(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	err := s.UpdateProperties(ctx, "alice", "/f.txt", metadata.PropertyUpdate{
		Set: []metadata.Property{{
			Namespace: "urn:example:props",
			Name:      "color",
			Value:     "<x:color xmlns:x=\"urn:example:props\">red</x:color>",
			Prefixes:  map[string]string{"x": "urn:example:props"},
		}},
	})
	require.NoError(test, err)

	props, err := s.Properties(ctx, "alice", "/f.txt")
	require.NoError(test, err)
	require.Len(test, props, 1)
	assert.Equal(test, "alice", props[0].Login)
	assert.Equal(test, "/f.txt", props[0].URI)
	assert.Equal(test, "urn:example:props", props[0].Namespace)
	assert.Equal(test, "color", props[0].Name)
	assert.Equal(test, map[string]string{"x": "urn:example:props"}, props[0].Prefixes)
}

func (suite *StoreTestSuite) TestProperty_Overwrite(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	setProp(test, s, "alice", "/f.txt", "ns", "color", "red")
	setProp(test, s, "alice", "/f.txt", "ns", "color", "blue")

	props, err := s.Properties(ctx, "alice", "/f.txt")
	require.NoError(test, err)
	require.Len(test, props, 1)
	assert.Equal(test, "blue", props[0].Value)
}

func (suite *StoreTestSuite) TestProperty_BatchSetAndRemove(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	setProp(test, s, "alice", "/f.txt", "ns", "old", "value")

	// One batch that sets two properties and removes one.
	err := s.UpdateProperties(ctx, "alice", "/f.txt", metadata.PropertyUpdate{
		Set: []metadata.Property{
			{Namespace: "ns", Name: "a", Value: "1"},
			{Namespace: "ns", Name: "b", Value: "2"},
		},
		Remove: []metadata.PropertyRef{
			{Namespace: "ns", Name: "old"},
		},
	})
	require.NoError(test, err)

	props, err := s.Properties(ctx, "alice", "/f.txt")
	require.NoError(test, err)
	assert.Len(test, props, 2)

	names := make(map[string]string)
	for _, prop := range props {
		names[prop.Name] = prop.Value
	}
	assert.Equal(test, map[string]string{"a": "1", "b": "2"}, names)
}

func (suite *StoreTestSuite) TestProperty_EmptyNamespaceAbortsBatch(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	err := s.UpdateProperties(ctx, "alice", "/f.txt", metadata.PropertyUpdate{
		Set: []metadata.Property{
			{Namespace: "ns", Name: "good", Value: "1"},
			{Namespace: "", Name: "bad", Value: "2"},
		},
	})
	require.Error(test, err)
	assert.True(test, store.IsCode(err, store.ErrBadRequest))

	// The valid set in the same batch must not have been applied.
	props, err := s.Properties(ctx, "alice", "/f.txt")
	require.NoError(test, err)
	assert.Empty(test, props)
}

func (suite *StoreTestSuite) TestProperty_RemoveMissingIsNoop(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	err := s.UpdateProperties(ctx, "alice", "/f.txt", metadata.PropertyUpdate{
		Remove: []metadata.PropertyRef{
			{Namespace: "ns", Name: "never-set"},
		},
	})
	require.NoError(test, err)
}

func (suite *StoreTestSuite) TestProperty_PerUserIsolation(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	setProp(test, s, "alice", "/f.txt", "ns", "color", "red")

	props, err := s.Properties(ctx, "bob", "/f.txt")
	require.NoError(test, err)
	assert.Empty(test, props)
}

func (suite *StoreTestSuite) TestProperty_PurgeSubtree(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	setProp(test, s, "alice", "/dir", "ns", "p", "1")
	setProp(test, s, "alice", "/dir/file.txt", "ns", "p", "2")
	setProp(test, s, "alice", "/dir/nested/deep.txt", "ns", "p", "3")
	setProp(test, s, "alice", "/dir2/other.txt", "ns", "p", "4")

	require.NoError(test, s.PurgeProperties(ctx, "alice", "/dir"))

	for _, uri := range []string{"/dir", "/dir/file.txt", "/dir/nested/deep.txt"} {
		props, err := s.Properties(ctx, "alice", uri)
		require.NoError(test, err)
		assert.Empty(test, props, "properties under %s should be gone", uri)
	}

	// A sibling with a common name prefix survives.
	props, err := s.Properties(ctx, "alice", "/dir2/other.txt")
	require.NoError(test, err)
	assert.Len(test, props, 1)
}

func (suite *StoreTestSuite) TestProperty_MoveSubtree(test *testing.T) {
	s := suite.NewStore(test)
	ctx := context.Background()

	setProp(test, s, "alice", "/src", "ns", "p", "root")
	setProp(test, s, "alice", "/src/file.txt", "ns", "p", "leaf")

	require.NoError(test, s.MoveProperties(ctx, "alice", "/src", "/dst"))

	props, err := s.Properties(ctx, "alice", "/src")
	require.NoError(test, err)
	assert.Empty(test, props)

	props, err = s.Properties(ctx, "alice", "/dst")
	require.NoError(test, err)
	require.Len(test, props, 1)
	assert.Equal(test, "root", props[0].Value)
	assert.Equal(test, "/dst", props[0].URI)

	props, err = s.Properties(ctx, "alice", "/dst/file.txt")
	require.NoError(test, err)
	require.Len(test, props, 1)
	assert.Equal(test, "leaf", props[0].Value)
	assert.Equal(test, "/dst/file.txt", props[0].URI)
}
