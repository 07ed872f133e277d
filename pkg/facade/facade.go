// Package facade composes the filesystem adapter, the metadata store and
// the quota tracker into the storage operations the WebDAV protocol engine
// consumes.
//
// The facade is the only entry point the protocol engine sees. Every
// operation takes the authenticated user explicitly; no request state lives
// in the facade itself, so one instance serves all concurrent requests.
//
// Quota-sensitive operations (Put, Copy, MakeCollection) serialize per user:
// the quota check and the write run under a per-user mutex, so two
// simultaneous uploads for the same tenant cannot both pass the check
// before either's bytes are counted.
package facade

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/marmos91/davfs/internal/logger"
	"github.com/marmos91/davfs/pkg/quota"
	"github.com/marmos91/davfs/pkg/store"
	"github.com/marmos91/davfs/pkg/store/files"
	"github.com/marmos91/davfs/pkg/store/metadata"
	"github.com/marmos91/davfs/pkg/user"
)

// DefaultLockLease is the lock lifetime applied when no lease is configured.
const DefaultLockLease = 5 * time.Minute

// Storage composes the storage components behind the protocol-facing API.
type Storage struct {
	files *files.Store
	meta  metadata.Store
	quota *quota.Tracker
	lease time.Duration

	// userMu serializes quota-sensitive writes per login.
	mu     sync.Mutex
	userMu map[string]*sync.Mutex
}

// NewStorage creates the storage facade.
//
// lease is the lock lifetime granted by Lock; zero or negative selects
// DefaultLockLease.
func NewStorage(filesStore *files.Store, metaStore metadata.Store, tracker *quota.Tracker, lease time.Duration) *Storage {
	if lease <= 0 {
		lease = DefaultLockLease
	}

	return &Storage{
		files:  filesStore,
		meta:   metaStore,
		quota:  tracker,
		lease:  lease,
		userMu: make(map[string]*sync.Mutex),
	}
}

// lockUser acquires the per-user write mutex and returns its unlock func.
func (s *Storage) lockUser(login string) func() {
	s.mu.Lock()
	mu, ok := s.userMu[login]
	if !ok {
		mu = &sync.Mutex{}
		s.userMu[login] = mu
	}
	s.mu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// ============================================================================
// Read operations
// ============================================================================

// List enumerates the direct children of the collection at uri, directories
// first, natural order within each group.
func (s *Storage) List(ctx context.Context, usr *user.User, uri string) ([]files.Entry, error) {
	return s.files.List(ctx, usr, uri)
}

// Get returns a streaming handle for the resource at uri, or (nil, nil)
// when it does not exist.
func (s *Storage) Get(ctx context.Context, usr *user.User, uri string) (*files.Handle, error) {
	return s.files.Open(ctx, usr, uri)
}

// Exists reports whether a resource exists at uri.
func (s *Storage) Exists(ctx context.Context, usr *user.User, uri string) (bool, error) {
	return s.files.Exists(ctx, usr, uri)
}

// FileProperty computes one filesystem-derived property for uri.
func (s *Storage) FileProperty(ctx context.Context, usr *user.User, uri string, kind files.PropKind, depth int) (string, bool, error) {
	return s.files.FileProperty(ctx, usr, uri, kind, depth)
}

// Properties computes a set of filesystem-derived properties for uri; nil
// kinds selects the default set. Returns nil when the resource is absent.
func (s *Storage) Properties(ctx context.Context, usr *user.User, uri string, kinds []files.PropKind, depth int) ([]files.PropertyValue, error) {
	return s.files.Properties(ctx, usr, uri, kinds, depth)
}

// Quota returns the user's current quota snapshot.
func (s *Storage) Quota(ctx context.Context, usr *user.User) (*quota.Snapshot, error) {
	return s.quota.Snapshot(ctx, usr)
}

// ============================================================================
// Write operations (quota-enforced, serialized per user)
// ============================================================================

// Put streams body into the resource at uri under quota enforcement.
// Returns true when the resource was newly created.
func (s *Storage) Put(ctx context.Context, usr *user.User, uri string, body io.Reader) (bool, error) {
	unlock := s.lockUser(usr.Login)
	defer unlock()

	snapshot, err := s.quota.Snapshot(ctx, usr)
	if err != nil {
		return false, err
	}

	return s.files.Put(ctx, usr, uri, body, snapshot.Free)
}

// Delete removes the resource at uri (recursively for collections) and
// purges the stored properties of the whole deleted subtree.
func (s *Storage) Delete(ctx context.Context, usr *user.User, uri string) error {
	if err := s.files.Delete(ctx, usr, uri); err != nil {
		return err
	}

	if err := s.meta.PurgeProperties(ctx, usr.Login, uri); err != nil {
		// The filesystem delete already committed; orphaned property rows
		// are a consistency debt, not a failed delete.
		logger.Warn("delete: failed to purge properties for %s %s: %v", usr.Login, uri, err)
	}

	return nil
}

// Copy copies the resource at src to dst, replacing any existing
// destination. Returns true when a destination was replaced. Stored
// properties of a replaced destination are purged; the source's properties
// are not duplicated onto the copy.
func (s *Storage) Copy(ctx context.Context, usr *user.User, src, dst string) (bool, error) {
	return s.copyMove(ctx, usr, false, src, dst)
}

// Move moves the resource at src to dst, replacing any existing
// destination and re-keying the source subtree's stored properties to the
// destination.
func (s *Storage) Move(ctx context.Context, usr *user.User, src, dst string) (bool, error) {
	return s.copyMove(ctx, usr, true, src, dst)
}

func (s *Storage) copyMove(ctx context.Context, usr *user.User, move bool, src, dst string) (bool, error) {
	unlock := s.lockUser(usr.Login)
	defer unlock()

	snapshot, err := s.quota.Snapshot(ctx, usr)
	if err != nil {
		return false, err
	}

	overwrote, err := s.files.CopyMove(ctx, usr, move, src, dst, snapshot.Free)
	if err != nil {
		return false, err
	}

	// Property lifecycle: a replaced destination loses its rows; a move
	// carries the source subtree's rows along.
	var lifecycle error
	if overwrote {
		if err := s.meta.PurgeProperties(ctx, usr.Login, dst); err != nil {
			lifecycle = multierror.Append(lifecycle, err)
		}
	}
	if move {
		if err := s.meta.MoveProperties(ctx, usr.Login, src, dst); err != nil {
			lifecycle = multierror.Append(lifecycle, err)
		}
	}
	if lifecycle != nil {
		logger.Warn("copymove: property lifecycle for %s -> %s left debt: %v", src, dst, lifecycle)
	}

	return overwrote, nil
}

// MakeCollection creates the directory at uri.
func (s *Storage) MakeCollection(ctx context.Context, usr *user.User, uri string) error {
	unlock := s.lockUser(usr.Login)
	defer unlock()

	snapshot, err := s.quota.Snapshot(ctx, usr)
	if err != nil {
		return err
	}

	return s.files.MakeCollection(ctx, usr, uri, snapshot.Free)
}

// ============================================================================
// Locks
// ============================================================================

// Lock grants (or replaces) the user's lock on uri with a fresh lease.
// A new lock always wins over an existing row for the same (user, uri).
func (s *Storage) Lock(ctx context.Context, usr *user.User, uri, token string, scope metadata.LockScope) error {
	if !scope.Valid() {
		return store.BadRequest("unknown lock scope " + string(scope))
	}

	return s.meta.SetLock(ctx, &metadata.Lock{
		Login:     usr.Login,
		URI:       uri,
		Token:     token,
		Scope:     scope,
		ExpiresAt: time.Now().Add(s.lease),
	})
}

// Unlock removes the lock matching (user, uri, token). A mismatched token
// is a no-op; the protocol engine decides whether that is client-visible.
func (s *Storage) Unlock(ctx context.Context, usr *user.User, uri, token string) error {
	return s.meta.RemoveLock(ctx, usr.Login, uri, token)
}

// GetLock returns the scope of the active lock guarding uri (the resource
// itself or its parent collection, depth-1 semantics), optionally filtered
// by token. found is false when no active lock matches.
func (s *Storage) GetLock(ctx context.Context, usr *user.User, uri, token string) (metadata.LockScope, bool, error) {
	lock, err := s.meta.GetLock(ctx, usr.Login, uri, token)
	if err != nil {
		return "", false, err
	}
	if lock == nil {
		return "", false, nil
	}
	return lock.Scope, true, nil
}

// SweepExpiredLocks removes expired lock rows; the server runs this
// periodically.
func (s *Storage) SweepExpiredLocks(ctx context.Context) (int, error) {
	return s.meta.SweepExpiredLocks(ctx, time.Now())
}

// ============================================================================
// Stored properties
// ============================================================================

// StoredProperties returns all namespaced properties stored for uri.
func (s *Storage) StoredProperties(ctx context.Context, usr *user.User, uri string) ([]metadata.Property, error) {
	return s.meta.Properties(ctx, usr.Login, uri)
}

// SetProperties applies one batch of property sets and removes atomically:
// all operations commit together or none do. A set without a namespace
// fails the whole batch with BadRequest.
func (s *Storage) SetProperties(ctx context.Context, usr *user.User, uri string, update metadata.PropertyUpdate) error {
	return s.meta.UpdateProperties(ctx, usr.Login, uri, update)
}
