package config

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/davfs/pkg/store/metadata"
	"github.com/marmos91/davfs/pkg/store/metadata/badger"
	metadatamemory "github.com/marmos91/davfs/pkg/store/metadata/memory"
	"github.com/marmos91/davfs/pkg/user"
)

// BuildMetadataStore creates the metadata store selected by the
// configuration. The type-specific section is decoded into the store's own
// configuration type.
func BuildMetadataStore(ctx context.Context, cfg MetadataConfig) (metadata.Store, error) {
	switch cfg.Type {
	case "memory":
		return metadatamemory.NewMemoryStore(), nil
	case "badger":
		return buildBadgerStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown metadata store type: %q", cfg.Type)
	}
}

// buildBadgerStore creates a BadgerDB metadata store.
func buildBadgerStore(ctx context.Context, cfg MetadataConfig) (metadata.Store, error) {
	var badgerCfg badger.BadgerStoreConfig
	if err := mapstructure.Decode(cfg.Badger, &badgerCfg); err != nil {
		return nil, fmt.Errorf("invalid badger config: %w", err)
	}

	store, err := badger.NewBadgerStore(ctx, badgerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return store, nil
}

// BuildUserProvider creates the static user provider from the configured
// tenants. Defaults (inherited quotas) are already applied by
// ApplyDefaults.
func BuildUserProvider(cfg *Config) *user.StaticProvider {
	users := make([]user.User, 0, len(cfg.Users))
	for _, u := range cfg.Users {
		users = append(users, user.User{
			Login: u.Login,
			Path:  u.Path,
			Quota: u.Quota,
		})
	}

	return user.NewStaticProvider(users)
}
