package metadata

import (
	"context"
	"time"
)

// ============================================================================
// Store Interface
// ============================================================================

// Store persists the metadata the filesystem itself cannot hold: advisory
// lock rows and namespaced resource properties.
//
// The interface is deliberately protocol-agnostic: the WebDAV engine
// translates LOCK/UNLOCK/PROPPATCH wire semantics into these operations and
// maps returned errors onto status codes. Rows are keyed per tenant, so one
// store instance serves every user.
//
// Consistency:
//   - Lock replacement (SetLock) is last-writer-wins per (login, uri).
//   - UpdateProperties applies its whole batch in a single transaction;
//     a mid-batch failure must leave no partial writes behind.
//   - Lookups never return expired lock rows. Physical removal of expired
//     rows is the sweeper's job (SweepExpiredLocks); lookups only filter.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
type Store interface {
	// ========================================================================
	// Lock Table
	// ========================================================================

	// GetLock returns the active lock guarding uri for the given user.
	//
	// Both uri itself and its parent collection are consulted (depth-1
	// inheritance: a lock on a collection also guards its direct children).
	// Expired rows are treated as absent. When token is non-empty, only a
	// lock carrying that token matches.
	//
	// Returns (nil, nil) when no active lock matches.
	GetLock(ctx context.Context, login, uri, token string) (*Lock, error)

	// SetLock stores a lock row, replacing any existing row for the same
	// (login, uri) regardless of holder or expiry.
	SetLock(ctx context.Context, lock *Lock) error

	// RemoveLock deletes the row matching all of (login, uri, token).
	// A mismatched token is a no-op, not an error; the protocol engine
	// decides whether to surface that to the client.
	RemoveLock(ctx context.Context, login, uri, token string) error

	// SweepExpiredLocks removes rows whose lease ended before now and
	// returns how many were removed.
	SweepExpiredLocks(ctx context.Context, now time.Time) (int, error)

	// ========================================================================
	// Property Store
	// ========================================================================

	// Properties returns all properties stored for (login, uri).
	// A resource with no properties yields an empty slice, not an error.
	Properties(ctx context.Context, login, uri string) ([]Property, error)

	// UpdateProperties applies one batch of sets and removes atomically.
	//
	// Fails with store.ErrBadRequest if a set operation carries no
	// namespace; in that case no mutation of the batch is applied.
	// Removing a property that does not exist is a no-op.
	UpdateProperties(ctx context.Context, login, uri string, update PropertyUpdate) error

	// PurgeProperties deletes every property under uri, including the
	// resource itself and all descendants. Lifecycle hook for Delete.
	PurgeProperties(ctx context.Context, login, uri string) error

	// MoveProperties re-keys every property under src to the corresponding
	// URI under dst. Lifecycle hook for Move; copies keep source rows
	// untouched and start the destination with no properties.
	MoveProperties(ctx context.Context, login, src, dst string) error

	// ========================================================================
	// Lifecycle
	// ========================================================================

	// Healthcheck verifies the store can serve requests.
	Healthcheck(ctx context.Context) error

	// Close releases all resources. The store must not be used afterwards.
	Close() error
}
