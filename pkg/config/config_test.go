package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: debug
  format: json
  output: stderr
server:
  shutdown_timeout: 10s
metadata:
  type: badger
  badger:
    db_path: /var/lib/davfs/meta
storage:
  default_quota: 1073741824
users:
  - login: alice
    path: /srv/dav/alice
  - login: bob
    path: /srv/dav/bob
    quota: 536870912
locks:
  lease: 2m
  sweep_interval: 30s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "badger", cfg.Metadata.Type)
	assert.Equal(t, 2*time.Minute, cfg.Locks.Lease)
	assert.Equal(t, 30*time.Second, cfg.Locks.SweepInterval)

	require.Len(t, cfg.Users, 2)
	// alice inherits the default quota, bob keeps his explicit one.
	assert.Equal(t, int64(1073741824), cfg.Users[0].Quota)
	assert.Equal(t, int64(536870912), cfg.Users[1].Quota)
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeConfigFile(t, `
users:
  - login: alice
    path: /srv/dav/alice
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "memory", cfg.Metadata.Type)
	assert.Equal(t, 5*time.Minute, cfg.Locks.Lease)
	assert.Equal(t, time.Minute, cfg.Locks.SweepInterval)
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{
			name:   "no users",
			mutate: func(cfg *Config) { cfg.Users = nil },
		},
		{
			name: "duplicate logins",
			mutate: func(cfg *Config) {
				cfg.Users = append(cfg.Users, cfg.Users[0])
			},
		},
		{
			name: "relative user path",
			mutate: func(cfg *Config) {
				cfg.Users[0].Path = "relative/path"
			},
		},
		{
			name: "nested user roots",
			mutate: func(cfg *Config) {
				cfg.Users = append(cfg.Users, UserConfig{
					Login: "bob",
					Path:  filepath.Join(cfg.Users[0].Path, "nested"),
				})
			},
		},
		{
			name: "bad log level",
			mutate: func(cfg *Config) {
				cfg.Logging.Level = "LOUD"
			},
		},
		{
			name: "bad metadata type",
			mutate: func(cfg *Config) {
				cfg.Metadata.Type = "postgres"
			},
		},
		{
			name: "badger without db_path",
			mutate: func(cfg *Config) {
				cfg.Metadata.Type = "badger"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestValidate_DefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, Validate(GetDefaultConfig()))
}

func TestBuildMetadataStore(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		store, err := BuildMetadataStore(ctx, MetadataConfig{Type: "memory"})
		require.NoError(t, err)
		require.NotNil(t, store)
		require.NoError(t, store.Close())
	})

	t.Run("badger", func(t *testing.T) {
		store, err := BuildMetadataStore(ctx, MetadataConfig{
			Type:   "badger",
			Badger: map[string]any{"db_path": t.TempDir()},
		})
		require.NoError(t, err)
		require.NotNil(t, store)
		require.NoError(t, store.Close())
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := BuildMetadataStore(ctx, MetadataConfig{Type: "postgres"})
		require.Error(t, err)
	})
}

func TestBuildUserProvider(t *testing.T) {
	cfg := &Config{
		Users: []UserConfig{
			{Login: "alice", Path: "/srv/dav/alice", Quota: 100},
		},
	}

	provider := BuildUserProvider(cfg)

	usr, err := provider.Lookup("alice")
	require.NoError(t, err)
	assert.Equal(t, "/srv/dav/alice", usr.Path)
	assert.Equal(t, int64(100), usr.Quota)

	_, err = provider.Lookup("nobody")
	require.Error(t, err)
}
