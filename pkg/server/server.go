// Package server manages the storage backend's runtime lifecycle.
package server

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/davfs/internal/logger"
	"github.com/marmos91/davfs/pkg/facade"
	"github.com/marmos91/davfs/pkg/store/metadata"
)

// Server owns the storage facade's backing stores and runs the periodic
// maintenance the backend needs while requests are served: sweeping expired
// lock rows out of the metadata store.
//
// Lifecycle:
//  1. Creation: New() with the facade and its metadata store
//  2. Startup: Serve() blocks, running maintenance until ctx is cancelled
//  3. Shutdown: Close() releases the metadata store
//
// The protocol engine embedding this backend drives request traffic
// directly through the facade; the server never sits on the request path.
//
// Thread safety:
// Serve() must only be called once per instance. Close() may be called
// after Serve() returns.
type Server struct {
	storage *facade.Storage
	meta    metadata.Store

	// sweepInterval is how often expired lock rows are removed.
	sweepInterval time.Duration

	serveOnce sync.Once
}

// New creates a server for the given facade and metadata store.
//
// sweepInterval controls expired-lock cleanup; zero or negative selects one
// minute.
//
// Panics if storage or meta is nil (programmer error).
func New(storage *facade.Storage, meta metadata.Store, sweepInterval time.Duration) *Server {
	if storage == nil {
		panic("storage facade cannot be nil")
	}
	if meta == nil {
		panic("metadata store cannot be nil")
	}

	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}

	return &Server{
		storage:       storage,
		meta:          meta,
		sweepInterval: sweepInterval,
	}
}

// Serve blocks, running periodic maintenance until the context is
// cancelled.
//
// An initial sweep runs immediately so a restart does not wait one interval
// to clear rows that expired while the process was down.
//
// Returns:
//   - error: The context's error once cancelled (context.Canceled on
//     graceful shutdown)
func (s *Server) Serve(ctx context.Context) error {
	var err error

	s.serveOnce.Do(func() {
		err = s.serve(ctx)
	})

	return err
}

func (s *Server) serve(ctx context.Context) error {
	logger.Info("storage backend running (lock sweep every %s)", s.sweepInterval)

	s.sweep(ctx)

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("storage backend shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep removes expired lock rows; failures are logged, never fatal.
func (s *Server) sweep(ctx context.Context) {
	removed, err := s.storage.SweepExpiredLocks(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("expired-lock sweep failed: %v", err)
		}
		return
	}
	if removed > 0 {
		logger.Debug("expired-lock sweep removed %d rows", removed)
	}
}

// Close releases the metadata store. Call after Serve has returned.
func (s *Server) Close() error {
	return s.meta.Close()
}
