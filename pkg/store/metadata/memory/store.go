// Package memory implements an in-memory metadata store.
//
// This implementation provides a fully functional lock table and property
// store backed by in-memory maps. It is suitable for:
//   - Testing and development environments
//   - Ephemeral deployments where locks and properties need not survive
//     a restart
//
// Thread Safety:
// All operations are protected by a single read-write mutex, making the
// store safe for concurrent access from multiple goroutines. This
// coarse-grained locking is simple and correct; the working set (active
// locks and custom properties) is small enough that contention is not a
// concern.
package memory

import (
	"context"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/davfs/pkg/store"
	"github.com/marmos91/davfs/pkg/store/metadata"
)

// lockKey addresses one lock row.
type lockKey struct {
	login string
	uri   string
}

// propKey addresses one property row.
type propKey struct {
	login     string
	uri       string
	namespace string
	name      string
}

// MemoryStore implements metadata.Store using in-memory maps.
type MemoryStore struct {
	mu    sync.RWMutex
	locks map[lockKey]*metadata.Lock
	props map[propKey]*metadata.Property
}

// NewMemoryStore creates an empty in-memory metadata store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locks: make(map[lockKey]*metadata.Lock),
		props: make(map[propKey]*metadata.Property),
	}
}

func normURI(uri string) string {
	return path.Clean("/" + uri)
}

// GetLock returns the active lock on uri or its parent collection,
// optionally filtered by token. Expired rows are treated as absent.
func (s *MemoryStore) GetLock(ctx context.Context, login, uri, token string) (*metadata.Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()

	candidates := []string{normURI(uri)}
	if parent := metadata.ParentURI(uri); parent != "" {
		candidates = append(candidates, parent)
	}

	for _, candidate := range candidates {
		lock, ok := s.locks[lockKey{login: login, uri: candidate}]
		if !ok || lock.Expired(now) {
			continue
		}
		if token != "" && lock.Token != token {
			continue
		}
		copied := *lock
		return &copied, nil
	}

	return nil, nil
}

// SetLock stores a lock row, replacing any existing row for (login, uri).
func (s *MemoryStore) SetLock(ctx context.Context, lock *metadata.Lock) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *lock
	copied.URI = normURI(lock.URI)
	s.locks[lockKey{login: lock.Login, uri: copied.URI}] = &copied

	return nil
}

// RemoveLock deletes the row matching (login, uri, token); a mismatched
// token is a no-op.
func (s *MemoryStore) RemoveLock(ctx context.Context, login, uri, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := lockKey{login: login, uri: normURI(uri)}
	if lock, ok := s.locks[key]; ok && lock.Token == token {
		delete(s.locks, key)
	}

	return nil
}

// SweepExpiredLocks removes rows whose lease ended before now.
func (s *MemoryStore) SweepExpiredLocks(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, lock := range s.locks {
		if lock.Expired(now) {
			delete(s.locks, key)
			removed++
		}
	}

	return removed, nil
}

// Properties returns all properties stored for (login, uri).
func (s *MemoryStore) Properties(ctx context.Context, login, uri string) ([]metadata.Property, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	target := normURI(uri)
	props := []metadata.Property{}
	for key, prop := range s.props {
		if key.login == login && key.uri == target {
			props = append(props, *prop)
		}
	}

	return props, nil
}

// UpdateProperties applies one batch of sets and removes atomically.
//
// The batch is validated in full before any mutation, so a set without a
// namespace leaves the map untouched.
func (s *MemoryStore) UpdateProperties(ctx context.Context, login, uri string, update metadata.PropertyUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, prop := range update.Set {
		if prop.Namespace == "" {
			return store.BadRequest("property set operation carries no namespace")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := normURI(uri)

	for _, prop := range update.Set {
		row := prop
		row.Login = login
		row.URI = target
		s.props[propKey{login: login, uri: target, namespace: prop.Namespace, name: prop.Name}] = &row
	}
	for _, ref := range update.Remove {
		delete(s.props, propKey{login: login, uri: target, namespace: ref.Namespace, name: ref.Name})
	}

	return nil
}

// PurgeProperties deletes every property stored for uri and its subtree.
func (s *MemoryStore) PurgeProperties(ctx context.Context, login, uri string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	base := normURI(uri)
	for key := range s.props {
		if key.login == login && inSubtree(key.uri, base) {
			delete(s.props, key)
		}
	}

	return nil
}

// MoveProperties re-keys every property under src to the corresponding URI
// under dst.
func (s *MemoryStore) MoveProperties(ctx context.Context, login, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	srcBase := normURI(src)
	dstBase := normURI(dst)

	for key, prop := range s.props {
		if key.login != login || !inSubtree(key.uri, srcBase) {
			continue
		}

		newURI := dstBase
		if key.uri != srcBase {
			newURI = dstBase + strings.TrimPrefix(key.uri, srcBase)
		}

		moved := *prop
		moved.URI = newURI
		delete(s.props, key)
		s.props[propKey{login: login, uri: newURI, namespace: key.namespace, name: key.name}] = &moved
	}

	return nil
}

// Healthcheck always succeeds: there are no external dependencies to check.
func (s *MemoryStore) Healthcheck(ctx context.Context) error {
	return ctx.Err()
}

// Close releases the maps.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.locks = make(map[lockKey]*metadata.Lock)
	s.props = make(map[propKey]*metadata.Property)

	return nil
}

// inSubtree reports whether uri equals base or lies below it.
func inSubtree(uri, base string) bool {
	if uri == base {
		return true
	}
	if base == "/" {
		return strings.HasPrefix(uri, "/")
	}
	return strings.HasPrefix(uri, base+"/")
}
