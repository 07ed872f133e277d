package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"

	"github.com/marmos91/davfs/internal/logger"
	"github.com/marmos91/davfs/pkg/config"
	"github.com/marmos91/davfs/pkg/facade"
	"github.com/marmos91/davfs/pkg/quota"
	"github.com/marmos91/davfs/pkg/server"
	"github.com/marmos91/davfs/pkg/store/files"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Override the configured log level (DEBUG, INFO, WARN, ERROR)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	if err := logger.Setup(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Println("davfs - WebDAV storage backend")
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	// ========================================================================
	// Wire the storage components
	// ========================================================================

	metaStore, err := config.BuildMetadataStore(ctx, cfg.Metadata)
	if err != nil {
		log.Fatalf("Failed to create metadata store: %v", err)
	}
	logger.Info("Metadata store: %s", cfg.Metadata.Type)

	provider := config.BuildUserProvider(cfg)
	logger.Info("Serving %d storage tenant(s)", len(cfg.Users))

	fs := afero.NewOsFs()
	for _, usr := range provider.All() {
		if err := fs.MkdirAll(usr.Path, 0700); err != nil {
			log.Fatalf("Failed to create storage root for %s: %v", usr.Login, err)
		}
	}

	filesStore := files.NewStore(fs)
	tracker := quota.NewTracker(filesStore)
	storage := facade.NewStorage(filesStore, metaStore, tracker, cfg.Locks.Lease)

	srv := server.New(storage, metaStore, cfg.Locks.SweepInterval)

	// ========================================================================
	// Run until interrupted
	// ========================================================================

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Storage backend is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel()
		<-serverDone

	case err := <-serverDone:
		if err != nil && err != context.Canceled {
			logger.Error("Server error: %v", err)
			if closeErr := srv.Close(); closeErr != nil {
				logger.Error("Failed to close stores: %v", closeErr)
			}
			os.Exit(1)
		}
	}

	if err := srv.Close(); err != nil {
		logger.Error("Failed to close stores: %v", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
