// Package files implements the filesystem adapter for davfs.
//
// The adapter maps user-relative URIs onto a per-user directory tree and
// performs the listing, read, write, delete, copy, move and
// directory-creation operations the storage facade composes. All filesystem
// access goes through an afero.Fs, so production runs on the OS filesystem
// while tests run on an in-memory one.
//
// This file contains the store type, URI resolution, and the read-side
// operations (Exists, Open, List, Usage).
package files

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/marmos91/davfs/pkg/store"
	"github.com/marmos91/davfs/pkg/user"
)

// Store implements the filesystem adapter on top of an afero.Fs.
//
// The store itself holds no per-user state: every operation takes the user
// whose root the URI is relative to. One Store instance serves all tenants.
//
// Thread Safety:
// The underlying filesystem operations are thread-safe at the OS level.
// Concurrent writes to the same URI are serialized by the storage facade,
// not here.
type Store struct {
	fs afero.Fs
}

// NewStore creates a filesystem adapter backed by the given filesystem.
func NewStore(fs afero.Fs) *Store {
	return &Store{fs: fs}
}

// Filesystem returns the backing afero.Fs.
//
// The quota tracker and the facade's streaming reads share the same
// filesystem handle as the adapter.
func (s *Store) Filesystem() afero.Fs {
	return s.fs
}

// Resolve translates a user-relative URI into an absolute path under the
// user's root.
//
// The URI is cleaned before joining, so ".." segments cannot climb above the
// root. The protocol engine normalizes URIs before calling in; the check
// here re-validates because the root boundary is a hard invariant.
//
// Parameters:
//   - usr: The storage tenant whose root anchors the URI
//   - uri: Slash-separated path relative to the user's root
//
// Returns:
//   - string: Absolute filesystem path inside the user's root
//   - error: BadRequest if the URI would escape the root
func (s *Store) Resolve(usr *user.User, uri string) (string, error) {
	cleaned := path.Clean("/" + uri)
	abs := filepath.Join(usr.Path, filepath.FromSlash(cleaned))

	root := filepath.Clean(usr.Path)
	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return "", store.BadRequest(fmt.Sprintf("uri %q escapes the storage root", uri))
	}

	return abs, nil
}

// Exists reports whether a resource (file or directory) exists at uri.
func (s *Store) Exists(ctx context.Context, usr *user.User, uri string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	abs, err := s.Resolve(usr, uri)
	if err != nil {
		return false, err
	}

	exists, err := afero.Exists(s.fs, abs)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", uri, err)
	}

	return exists, nil
}

// Handle is a reference to an existing resource, usable by the caller to
// stream file bytes without the adapter buffering the content.
type Handle struct {
	fs afero.Fs

	// AbsPath is the resolved filesystem path of the resource.
	AbsPath string

	// Name is the base name of the resource.
	Name string

	// Size is the byte length (0 for directories).
	Size int64

	// ModTime is the filesystem modification time.
	ModTime time.Time

	// IsDir reports whether the resource is a collection.
	IsDir bool
}

// Reader opens the resource for streaming reads. The caller owns the
// returned ReadCloser.
func (h *Handle) Reader() (io.ReadCloser, error) {
	file, err := h.fs.Open(h.AbsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", h.Name, err)
	}
	return file, nil
}

// Open returns a handle for the resource at uri, or (nil, nil) when the
// resource does not exist. Absence is not an error at this layer: the
// protocol engine decides whether a missing resource is a 404.
func (s *Store) Open(ctx context.Context, usr *user.User, uri string) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	abs, err := s.Resolve(usr, uri)
	if err != nil {
		return nil, err
	}

	info, err := s.fs.Stat(abs)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", uri, err)
	}

	return &Handle{
		fs:      s.fs,
		AbsPath: abs,
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}, nil
}

// Entry is one direct child in a directory listing.
type Entry struct {
	// Name is the child's base name.
	Name string

	// IsDir reports whether the child is a collection.
	IsDir bool
}

// List enumerates the direct children of the collection at uri.
//
// Directories are listed before files; within each group, entries are
// ordered by case-insensitive natural sort, so "img2" sorts before "img10".
//
// Returns:
//   - []Entry: Children in listing order (empty for an empty collection)
//   - error: NotFound if uri does not resolve to an existing directory
func (s *Store) List(ctx context.Context, usr *user.User, uri string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	abs, err := s.Resolve(usr, uri)
	if err != nil {
		return nil, err
	}

	info, err := s.fs.Stat(abs)
	if os.IsNotExist(err) {
		return nil, store.NotFound(uri)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", uri, err)
	}
	if !info.IsDir() {
		return nil, store.NotFound(uri)
	}

	infos, err := afero.ReadDir(s.fs, abs)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", uri, err)
	}

	entries := make([]Entry, 0, len(infos))
	for _, child := range infos {
		entries = append(entries, Entry{Name: child.Name(), IsDir: child.IsDir()})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return naturalLess(entries[i].Name, entries[j].Name)
	})

	return entries, nil
}

// Usage returns the user's aggregate on-disk usage in bytes: the sum of all
// file sizes under the user's root. Directories count as zero.
//
// The walk runs on every call; the quota tracker never caches usage across
// requests, so concurrent uploads see each other's committed bytes.
func (s *Store) Usage(ctx context.Context, usr *user.User) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var total int64

	err := afero.Walk(s.fs, filepath.Clean(usr.Path), func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	if os.IsNotExist(err) {
		// A user whose root was never created uses no space.
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to compute usage for %s: %w", usr.Login, err)
	}

	return total, nil
}
