package badger

import (
	"context"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/davfs/pkg/store"
	"github.com/marmos91/davfs/pkg/store/metadata"
)

// Properties returns all properties stored for (login, uri).
func (s *BadgerStore) Properties(ctx context.Context, login, uri string) ([]metadata.Property, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	props := []metadata.Property{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = keyPropertyResourcePrefix(login, uri)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := it.Item().Value(func(val []byte) error {
				prop, err := decodeProperty(val)
				if err != nil {
					return err
				}
				props = append(props, *prop)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read properties: %w", err)
	}

	return props, nil
}

// UpdateProperties applies one batch of sets and removes atomically.
//
// The whole batch runs inside a single BadgerDB transaction: a validation
// failure (set without a namespace) or any storage error aborts the
// transaction, so no mix of applied and unapplied changes can be observed.
func (s *BadgerStore) UpdateProperties(ctx context.Context, login, uri string, update metadata.PropertyUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, prop := range update.Set {
			if prop.Namespace == "" {
				return store.BadRequest("property set operation carries no namespace")
			}

			row := prop
			row.Login = login
			row.URI = normURI(uri)

			data, err := encodeProperty(&row)
			if err != nil {
				return err
			}
			if err := txn.Set(keyProperty(login, uri, prop.Namespace, prop.Name), data); err != nil {
				return err
			}
		}

		for _, ref := range update.Remove {
			err := txn.Delete(keyProperty(login, uri, ref.Namespace, ref.Name))
			if err != nil && err != badger.ErrKeyNotFound {
				return err
			}
		}

		return nil
	})
	if err != nil {
		if store.IsCode(err, store.ErrBadRequest) {
			return err
		}
		return fmt.Errorf("failed to update properties: %w", err)
	}

	return nil
}

// PurgeProperties deletes every property stored for uri and its subtree.
func (s *BadgerStore) PurgeProperties(ctx context.Context, login, uri string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	keys, err := s.collectSubtreeKeys(login, uri)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to purge properties: %w", err)
	}

	return nil
}

// MoveProperties re-keys every property under src to the corresponding URI
// under dst.
func (s *BadgerStore) MoveProperties(ctx context.Context, login, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	keys, err := s.collectSubtreeKeys(login, src)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	srcBase := normURI(src)
	dstBase := normURI(dst)

	err = s.db.Update(func(txn *badger.Txn) error {
		for _, key := range keys {
			item, err := txn.Get(key)
			if err != nil {
				return err
			}

			var prop *metadata.Property
			if err := item.Value(func(val []byte) error {
				prop, err = decodeProperty(val)
				return err
			}); err != nil {
				return err
			}

			newURI := dstBase
			if prop.URI != srcBase {
				newURI = dstBase + strings.TrimPrefix(prop.URI, srcBase)
			}
			prop.URI = newURI

			data, err := encodeProperty(prop)
			if err != nil {
				return err
			}
			if err := txn.Set(keyProperty(login, newURI, prop.Namespace, prop.Name), data); err != nil {
				return err
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to move properties: %w", err)
	}

	return nil
}

// collectSubtreeKeys gathers the keys of all property rows for uri itself
// and everything below it.
func (s *BadgerStore) collectSubtreeKeys(login, uri string) ([][]byte, error) {
	var keys [][]byte
	seen := make(map[string]bool)

	prefixes := [][]byte{
		keyPropertyResourcePrefix(login, uri),
		keyPropertySubtreePrefix(login, uri),
	}

	err := s.db.View(func(txn *badger.Txn) error {
		for _, prefix := range prefixes {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			opts.Prefix = prefix

			it := txn.NewIterator(opts)
			for it.Rewind(); it.Valid(); it.Next() {
				key := it.Item().KeyCopy(nil)
				// The two prefixes overlap when uri is the root.
				if !seen[string(key)] {
					seen[string(key)] = true
					keys = append(keys, key)
				}
			}
			it.Close()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan properties: %w", err)
	}

	return keys, nil
}
