package files

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/h2non/filetype"
	"github.com/spf13/afero"

	"github.com/marmos91/davfs/pkg/store"
	"github.com/marmos91/davfs/pkg/user"
)

// PropKind identifies one computable resource property. The closed set of
// kinds replaces name-keyed string dispatch, so a missing case is a compile
// error, not a silent null.
type PropKind int

const (
	// PropSize is the byte length, 0 for collections.
	PropSize PropKind = iota

	// PropContentType is the MIME type, sniffed from leading bytes with an
	// extension fallback.
	PropContentType

	// PropResourceType is "collection" for directories, empty for files.
	PropResourceType

	// PropLastModified is the modification time; at the storage root with
	// depth 0 it is the maximum mtime across the whole tree.
	PropLastModified

	// PropEtag is an opaque token stable for a given file state; the root
	// variant hashes the tree aggregate instead of one file's metadata.
	PropEtag

	// PropDisplayName is the base name of the resource.
	PropDisplayName

	// PropHidden is "true" when the base name starts with a dot.
	PropHidden

	// PropLastAccessed is the access time. The filesystem abstraction only
	// exposes mtime, so this falls back to the modification time.
	PropLastAccessed

	// PropCreationDate is the creation time, same mtime fallback as above.
	PropCreationDate

	// PropDirectID is a stable per-(user, uri) identifier.
	PropDirectID

	// PropPermissions is the fixed capability grant: read, get, delete,
	// rename, move, create and mkcol are all allowed.
	PropPermissions

	// PropAggregateSize is the sum of descendant file sizes for collections,
	// the plain size for files.
	PropAggregateSize
)

// permissionGrant is the fixed capability string: no per-resource ACL in
// this design.
const permissionGrant = "RGDNVCK"

// directoryContentType is the conventional MIME type for collections.
const directoryContentType = "httpd/unix-directory"

// defaultPropKinds is the property set served when the caller does not name
// specific properties.
var defaultPropKinds = []PropKind{
	PropSize,
	PropContentType,
	PropResourceType,
	PropLastModified,
	PropDisplayName,
	PropHidden,
	PropEtag,
	PropDirectID,
}

// PropertyValue is one computed property in a Properties result. Order in
// the result slice follows request order.
type PropertyValue struct {
	Kind  PropKind
	Value string
}

// FileProperty computes a single property for the resource at uri.
//
// depth distinguishes the storage-root aggregate case: for uri "/" with
// depth 0, last-modified and etag describe the whole tree rather than the
// root directory entry.
//
// Returns:
//   - string: The property value when present
//   - bool: false when the property is not applicable (the caller omits it)
//   - error: Wrapped I/O failures only; an absent value is not an error
func (s *Store) FileProperty(ctx context.Context, usr *user.User, uri string, kind PropKind, depth int) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	abs, err := s.Resolve(usr, uri)
	if err != nil {
		return "", false, err
	}

	info, err := s.fs.Stat(abs)
	if os.IsNotExist(err) {
		return "", false, store.NotFound(uri)
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to stat %s: %w", uri, err)
	}

	atRoot := path.Clean("/"+uri) == "/" && depth == 0

	switch kind {
	case PropSize:
		if info.IsDir() {
			return "0", true, nil
		}
		return strconv.FormatInt(info.Size(), 10), true, nil

	case PropContentType:
		if info.IsDir() {
			return directoryContentType, true, nil
		}
		return s.sniffContentType(abs), true, nil

	case PropResourceType:
		if info.IsDir() {
			return "collection", true, nil
		}
		return "", true, nil

	case PropLastModified:
		if atRoot {
			latest, found, err := s.aggregateModTime(abs)
			if err != nil {
				return "", false, err
			}
			if !found {
				return "", false, nil
			}
			return latest.UTC().Format(http.TimeFormat), true, nil
		}
		return info.ModTime().UTC().Format(http.TimeFormat), true, nil

	case PropEtag:
		if atRoot {
			return s.aggregateEtag(abs)
		}
		return fileEtag(abs, info), true, nil

	case PropDisplayName:
		return path.Base(path.Clean("/" + uri)), true, nil

	case PropHidden:
		return strconv.FormatBool(strings.HasPrefix(info.Name(), ".")), true, nil

	case PropLastAccessed, PropCreationDate:
		// afero exposes mtime only; both timestamps degrade to it.
		return info.ModTime().UTC().Format(http.TimeFormat), true, nil

	case PropDirectID:
		id := xxhash.Sum64String(usr.Login + ":" + path.Clean("/"+uri))
		return fmt.Sprintf("%016x", id), true, nil

	case PropPermissions:
		return permissionGrant, true, nil

	case PropAggregateSize:
		if !info.IsDir() {
			return strconv.FormatInt(info.Size(), 10), true, nil
		}
		total, err := s.aggregateSize(abs)
		if err != nil {
			return "", false, err
		}
		return strconv.FormatInt(total, 10), true, nil
	}

	// An unmapped kind yields null rather than failing.
	return "", false, nil
}

// Properties computes a set of properties for the resource at uri.
//
// A nil kinds slice selects the default property set. Properties that
// compute to null are omitted from the result; the rest appear in request
// order.
//
// Returns:
//   - []PropertyValue: Computed properties, nil when the resource is absent
//   - error: Wrapped I/O failures
func (s *Store) Properties(ctx context.Context, usr *user.User, uri string, kinds []PropKind, depth int) ([]PropertyValue, error) {
	exists, err := s.Exists(ctx, usr, uri)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	if kinds == nil {
		kinds = defaultPropKinds
	}

	values := make([]PropertyValue, 0, len(kinds))
	for _, kind := range kinds {
		value, found, err := s.FileProperty(ctx, usr, uri, kind, depth)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		values = append(values, PropertyValue{Kind: kind, Value: value})
	}

	return values, nil
}

// sniffContentType determines a file's MIME type from its leading bytes,
// falling back to the extension and finally to application/octet-stream.
func (s *Store) sniffContentType(abs string) string {
	file, err := s.fs.Open(abs)
	if err == nil {
		head := make([]byte, 261)
		n, _ := file.Read(head)
		file.Close()

		if kind, err := filetype.Match(head[:n]); err == nil && kind != filetype.Unknown {
			return kind.MIME.Value
		}
	}

	if byExt := mime.TypeByExtension(filepath.Ext(abs)); byExt != "" {
		return byExt
	}

	return "application/octet-stream"
}

// fileEtag derives the etag for one file from its mtime, size and path. Any
// content or metadata change produces a new token; the same state always
// produces the same token.
func fileEtag(abs string, info os.FileInfo) string {
	return etagOf(fmt.Sprintf("%d:%d:%s", info.ModTime().UnixNano(), info.Size(), abs))
}

// aggregateEtag derives the storage-root etag from the tree's aggregate
// size and latest mtime, so any change anywhere below the root rolls it.
func (s *Store) aggregateEtag(abs string) (string, bool, error) {
	total, err := s.aggregateSize(abs)
	if err != nil {
		return "", false, err
	}
	latest, _, err := s.aggregateModTime(abs)
	if err != nil {
		return "", false, err
	}

	return etagOf(fmt.Sprintf("%d:%d:%s", total, latest.UnixNano(), abs)), true, nil
}

// etagOf renders two independent 64-bit hashes of the state string as a
// 128-bit hex token.
func etagOf(state string) string {
	h1 := xxhash.Sum64String(state)
	h2 := xxhash.Sum64String("davfs:" + state)
	return fmt.Sprintf("%016x%016x", h1, h2)
}

// aggregateSize sums all descendant file sizes under abs.
func (s *Store) aggregateSize(abs string) (int64, error) {
	var total int64

	err := afero.Walk(s.fs, abs, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to compute aggregate size: %w", err)
	}

	return total, nil
}

// aggregateModTime returns the maximum file mtime under abs. found is false
// when the tree holds no files at all.
func (s *Store) aggregateModTime(abs string) (time.Time, bool, error) {
	var latest time.Time
	found := false

	err := afero.Walk(s.fs, abs, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && info.ModTime().After(latest) {
			latest = info.ModTime()
			found = true
		}
		return nil
	})
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to compute aggregate mtime: %w", err)
	}

	return latest, found, nil
}
