package badger

import (
	"context"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/davfs/pkg/store/metadata"
)

// GetLock returns the active lock guarding uri for the given user.
//
// Lookup order implements depth-1 inheritance: the exact URI first, then the
// parent collection. Expired rows are skipped, not removed — physical
// cleanup belongs to SweepExpiredLocks so reads stay write-free.
//
// When token is non-empty, only a row carrying that token matches.
func (s *BadgerStore) GetLock(ctx context.Context, login, uri, token string) (*metadata.Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := []string{normURI(uri)}
	if parent := metadata.ParentURI(uri); parent != "" {
		candidates = append(candidates, parent)
	}

	now := time.Now()
	var found *metadata.Lock

	err := s.db.View(func(txn *badger.Txn) error {
		for _, candidate := range candidates {
			item, err := txn.Get(keyLock(login, candidate))
			if err == badger.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}

			var lock *metadata.Lock
			if err := item.Value(func(val []byte) error {
				lock, err = decodeLock(val)
				return err
			}); err != nil {
				return err
			}

			if lock.Expired(now) {
				continue
			}
			if token != "" && lock.Token != token {
				continue
			}

			found = lock
			return nil
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to look up lock: %w", err)
	}

	return found, nil
}

// SetLock stores a lock row, replacing any existing row for (login, uri).
//
// The replacement semantics (last-writer-wins, no queuing) fall out of the
// key design: one key per (login, uri), overwritten in place.
func (s *BadgerStore) SetLock(ctx context.Context, lock *metadata.Lock) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encodeLock(lock)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyLock(lock.Login, lock.URI), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store lock: %w", err)
	}

	return nil
}

// RemoveLock deletes the row matching all of (login, uri, token).
//
// A missing row or a mismatched token is a no-op: the protocol engine is
// responsible for surfacing token mismatches as client-visible failures.
func (s *BadgerStore) RemoveLock(ctx context.Context, login, uri, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := keyLock(login, uri)

	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		var lock *metadata.Lock
		if err := item.Value(func(val []byte) error {
			lock, err = decodeLock(val)
			return err
		}); err != nil {
			return err
		}

		if lock.Token != token {
			return nil
		}

		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("failed to remove lock: %w", err)
	}

	return nil
}

// SweepExpiredLocks removes rows whose lease ended before now.
//
// The scan covers the whole lock namespace across all users; the namespace
// stays small because every row expires within one lease duration.
func (s *BadgerStore) SweepExpiredLocks(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var expired [][]byte

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyLockPrefix()

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			var lock *metadata.Lock
			if err := item.Value(func(val []byte) error {
				var err error
				lock, err = decodeLock(val)
				return err
			}); err != nil {
				return err
			}

			if lock.Expired(now) {
				expired = append(expired, item.KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scan locks: %w", err)
	}

	if len(expired) == 0 {
		return 0, nil
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, key := range expired {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired locks: %w", err)
	}

	return len(expired), nil
}
