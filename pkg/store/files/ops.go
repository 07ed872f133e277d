package files

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/marmos91/davfs/pkg/store"
	"github.com/marmos91/davfs/pkg/user"
)

// Delete removes the resource at uri.
//
// Directories are removed recursively, children first. The property
// lifecycle (purging rows for the deleted subtree) is driven by the storage
// facade, not here.
//
// Returns:
//   - error: NotFound if nothing exists at uri
func (s *Store) Delete(ctx context.Context, usr *user.User, uri string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	abs, err := s.Resolve(usr, uri)
	if err != nil {
		return err
	}

	info, err := s.fs.Stat(abs)
	if os.IsNotExist(err) {
		return store.NotFound(uri)
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", uri, err)
	}

	if info.IsDir() {
		if err := s.fs.RemoveAll(abs); err != nil {
			return fmt.Errorf("failed to delete collection %s: %w", uri, err)
		}
		return nil
	}

	if err := s.fs.Remove(abs); err != nil {
		return fmt.Errorf("failed to delete %s: %w", uri, err)
	}

	return nil
}

// CopyMove copies (move=false) or moves (move=true) the resource at src to
// dst, replacing any existing destination.
//
// Semantics:
//   - NotFound if src does not exist.
//   - Conflict if dst's parent directory does not exist.
//   - For a file copy, QuotaExceeded before any write if the source size
//     exceeds free (negative free means unlimited).
//   - An existing destination is deleted first (recursively for a
//     collection): overwrite-replace, never a merge.
//   - Moves use the filesystem rename primitive for files and directories
//     alike. Directory copies walk the tree self-first, creating each
//     directory before copying its children.
//
// Returns:
//   - bool: true if an existing destination was replaced
//   - error: One of the taxonomy errors above, or a wrapped I/O failure
func (s *Store) CopyMove(ctx context.Context, usr *user.User, move bool, src, dst string, free int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	srcAbs, err := s.Resolve(usr, src)
	if err != nil {
		return false, err
	}
	dstAbs, err := s.Resolve(usr, dst)
	if err != nil {
		return false, err
	}

	srcInfo, err := s.fs.Stat(srcAbs)
	if os.IsNotExist(err) {
		return false, store.NotFound(src)
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", src, err)
	}

	parentInfo, err := s.fs.Stat(filepath.Dir(dstAbs))
	if os.IsNotExist(err) || (err == nil && !parentInfo.IsDir()) {
		return false, store.Conflict("destination parent does not exist", dst)
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat destination parent of %s: %w", dst, err)
	}

	if !move && !srcInfo.IsDir() && free >= 0 && srcInfo.Size() > free {
		return false, store.QuotaExceeded(dst)
	}

	// ========================================================================
	// Step 1: Clear an existing destination (overwrite-replace)
	// ========================================================================

	overwrote := false
	if exists, err := afero.Exists(s.fs, dstAbs); err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", dst, err)
	} else if exists {
		overwrote = true
		if err := s.fs.RemoveAll(dstAbs); err != nil {
			return false, fmt.Errorf("failed to replace %s: %w", dst, err)
		}
	}

	// ========================================================================
	// Step 2: Perform the transfer
	// ========================================================================

	switch {
	case move:
		if err := s.fs.Rename(srcAbs, dstAbs); err != nil {
			return false, fmt.Errorf("failed to move %s to %s: %w", src, dst, err)
		}

	case srcInfo.IsDir():
		if err := s.copyTree(ctx, srcAbs, dstAbs); err != nil {
			return false, fmt.Errorf("failed to copy collection %s to %s: %w", src, dst, err)
		}

	default:
		if err := s.copyFile(srcAbs, dstAbs, srcInfo.Mode()); err != nil {
			return false, fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
		}
	}

	return overwrote, nil
}

// copyTree copies the directory at srcAbs into dstAbs, self-first: each
// directory is created before its children are visited, so every file copy
// has an existing parent.
func (s *Store) copyTree(ctx context.Context, srcAbs, dstAbs string) error {
	return afero.Walk(s.fs, srcAbs, func(walkPath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel := strings.TrimPrefix(walkPath, srcAbs)
		target := filepath.Join(dstAbs, rel)

		if info.IsDir() {
			return s.fs.MkdirAll(target, info.Mode().Perm())
		}
		return s.copyFile(walkPath, target, info.Mode())
	})
}

// copyFile copies one regular file, preserving its permission bits.
func (s *Store) copyFile(srcAbs, dstAbs string, mode os.FileMode) error {
	in, err := s.fs.Open(srcAbs)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := s.fs.OpenFile(dstAbs, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}

// MakeCollection creates the directory at uri with owner-only permissions.
//
// Semantics:
//   - QuotaExceeded when the user's quota is fully exhausted (free == 0).
//     Directories are otherwise assumed zero-cost.
//   - MethodNotAllowed when a resource already exists at uri.
//   - Conflict when the parent directory does not exist.
func (s *Store) MakeCollection(ctx context.Context, usr *user.User, uri string, free int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if free == 0 {
		return store.QuotaExceeded(uri)
	}

	abs, err := s.Resolve(usr, uri)
	if err != nil {
		return err
	}

	if exists, err := afero.Exists(s.fs, abs); err != nil {
		return fmt.Errorf("failed to stat %s: %w", uri, err)
	} else if exists {
		return store.MethodNotAllowed(uri)
	}

	parentInfo, err := s.fs.Stat(filepath.Dir(abs))
	if os.IsNotExist(err) || (err == nil && !parentInfo.IsDir()) {
		return store.Conflict("parent collection does not exist", uri)
	}
	if err != nil {
		return fmt.Errorf("failed to stat parent of %s: %w", uri, err)
	}

	if err := s.fs.Mkdir(abs, 0700); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", uri, err)
	}

	return nil
}
