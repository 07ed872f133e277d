// Package testing provides a conformance suite for metadata.Store
// implementations.
//
// Every implementation (badger, memory) runs the same suite, so behavioral
// drift between backends shows up as a test failure rather than a
// production surprise.
package testing

import (
	"testing"

	"github.com/marmos91/davfs/pkg/store/metadata"
)

// StoreTestSuite runs conformance tests against a metadata.Store
// implementation.
type StoreTestSuite struct {
	// NewStore returns a fresh, empty store for each test.
	NewStore func(t *testing.T) metadata.Store
}

// RunAll runs the complete conformance suite.
func (suite *StoreTestSuite) RunAll(test *testing.T) {
	suite.RunLockTests(test)
	suite.RunPropertyTests(test)
}
