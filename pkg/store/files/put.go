package files

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/marmos91/davfs/internal/logger"
	"github.com/marmos91/davfs/pkg/store"
	"github.com/marmos91/davfs/pkg/user"
)

// putChunkSize is the fixed read size for streaming uploads. Memory use per
// upload is bounded by this, not by file size.
const putChunkSize = 8 * 1024

// Put streams the request body into the resource at uri, enforcing the
// user's remaining quota.
//
// The write is two-phase: bytes are staged into a uniquely named temp file
// in the target's directory (same filesystem, so the final rename is
// atomic), then renamed onto the target on success. The visible file is
// never partially written, and a failed upload never corrupts an existing
// file.
//
// Quota accounting: free is the user's remaining byte allowance (negative
// means unlimited). When overwriting, the old file's size is credited back
// before counting streamed bytes, so a same-size overwrite does not
// double-count. The moment the running counter exceeds free, the upload is
// aborted, the temp file removed, and QuotaExceeded returned.
//
// Base names matching the OS-junk deny-list are silently rejected: no write
// happens and created is false.
//
// Parameters:
//   - ctx: Context for cancellation
//   - usr: The storage tenant
//   - uri: Target resource path relative to the user's root
//   - body: Upload byte stream
//   - free: Remaining quota in bytes, negative for unlimited
//
// Returns:
//   - bool: true if the resource was newly created (false on overwrite or
//     junk rejection)
//   - error: Conflict if the target is an existing directory, QuotaExceeded
//     if the stream outgrows free
func (s *Store) Put(ctx context.Context, usr *user.User, uri string, body io.Reader, free int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if isJunkName(path.Base(path.Clean("/" + uri))) {
		logger.Debug("put: dropping junk name %s for user %s", uri, usr.Login)
		return false, nil
	}

	abs, err := s.Resolve(usr, uri)
	if err != nil {
		return false, err
	}

	// ========================================================================
	// Step 1: Inspect the target and credit back an overwritten file's size
	// ========================================================================

	var oldSize int64
	existed := false

	info, err := s.fs.Stat(abs)
	switch {
	case err == nil:
		if info.IsDir() {
			return false, store.Conflict("target is an existing collection", uri)
		}
		existed = true
		oldSize = info.Size()
	case os.IsNotExist(err):
		// New resource.
	default:
		return false, fmt.Errorf("failed to stat %s: %w", uri, err)
	}

	parent := filepath.Dir(abs)
	if err := s.fs.MkdirAll(parent, 0770); err != nil {
		return false, fmt.Errorf("failed to create parent directories for %s: %w", uri, err)
	}

	// ========================================================================
	// Step 2: Stage the stream into a sibling temp file, counting bytes
	// ========================================================================

	tempPath := filepath.Join(parent, ".davfs-"+uuid.NewString()+".upload")

	temp, err := s.fs.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0660)
	if err != nil {
		return false, fmt.Errorf("failed to create upload staging file for %s: %w", uri, err)
	}

	discard := func() {
		if closeErr := temp.Close(); closeErr != nil {
			logger.Warn("put: failed to close staging file %s: %v", tempPath, closeErr)
		}
		if removeErr := s.fs.Remove(tempPath); removeErr != nil {
			logger.Warn("put: failed to remove staging file %s: %v", tempPath, removeErr)
		}
	}

	size := -oldSize
	chunk := make([]byte, putChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			discard()
			return false, err
		}

		n, readErr := body.Read(chunk)
		if n > 0 {
			size += int64(n)
			if free >= 0 && size > free {
				discard()
				return false, store.QuotaExceeded(uri)
			}
			if _, writeErr := temp.Write(chunk[:n]); writeErr != nil {
				discard()
				return false, fmt.Errorf("failed to write upload for %s: %w", uri, writeErr)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			// Client disconnects surface as read errors; same cleanup path.
			discard()
			return false, fmt.Errorf("failed to read upload body for %s: %w", uri, readErr)
		}
	}

	// ========================================================================
	// Step 3: Commit by atomic rename onto the target
	// ========================================================================

	if err := temp.Close(); err != nil {
		if removeErr := s.fs.Remove(tempPath); removeErr != nil {
			logger.Warn("put: failed to remove staging file %s: %v", tempPath, removeErr)
		}
		return false, fmt.Errorf("failed to finalize upload for %s: %w", uri, err)
	}

	if err := s.fs.Rename(tempPath, abs); err != nil {
		if removeErr := s.fs.Remove(tempPath); removeErr != nil {
			logger.Warn("put: failed to remove staging file %s: %v", tempPath, removeErr)
		}
		return false, fmt.Errorf("failed to commit upload for %s: %w", uri, err)
	}

	return !existed, nil
}
