// Package quota computes per-user storage quota snapshots.
//
// A snapshot is derived, never stored: usage is recomputed from the
// filesystem on every call so concurrent uploads always see each other's
// committed bytes. Caching a snapshot across requests would reintroduce the
// stale-quota race the recomputation exists to avoid.
package quota

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/marmos91/davfs/internal/logger"
	"github.com/marmos91/davfs/pkg/user"
)

// Unlimited is the Free value reported for users without a quota limit.
const Unlimited int64 = -1

// Snapshot describes a user's storage position at one point in time.
type Snapshot struct {
	// Used is the aggregate size of all files under the user's root.
	Used int64

	// Free is the remaining allowance in bytes; Unlimited (-1) when the
	// user has no limit.
	Free int64

	// Total is the configured limit in bytes; 0 when unlimited.
	Total int64
}

// UsageReporter computes a user's aggregate on-disk usage. Implemented by
// the filesystem adapter.
type UsageReporter interface {
	Usage(ctx context.Context, usr *user.User) (int64, error)
}

// Tracker produces quota snapshots for storage tenants.
type Tracker struct {
	files UsageReporter
}

// NewTracker creates a tracker reading usage from the given reporter.
func NewTracker(files UsageReporter) *Tracker {
	return &Tracker{files: files}
}

// Snapshot recomputes the user's quota position.
//
// For an unlimited user (Quota <= 0) the snapshot carries Free=-1 and
// Total=0. A limited user who already exceeds the limit reports Free=0,
// never negative: existing overshoot blocks new writes but is not a
// separate error.
func (t *Tracker) Snapshot(ctx context.Context, usr *user.User) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	used, err := t.files.Usage(ctx, usr)
	if err != nil {
		return nil, fmt.Errorf("failed to compute quota usage: %w", err)
	}

	if usr.Unlimited() {
		return &Snapshot{Used: used, Free: Unlimited, Total: 0}, nil
	}

	free := usr.Quota - used
	if free < 0 {
		free = 0
	}

	logger.Debug("quota: user %s uses %s of %s (%s free)",
		usr.Login, humanize.IBytes(uint64(used)), humanize.IBytes(uint64(usr.Quota)), humanize.IBytes(uint64(free)))

	return &Snapshot{Used: used, Free: free, Total: usr.Quota}, nil
}
