// Package storage persists the small amount of client state that must survive a restart.
package storage

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/redis"
)

// Store is a durable key-value store. SetAll and Delete apply to all given keys at once.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetAll(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

// Open builds the backend selected in configuration.
func Open(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Store, error) {
	profile := cfg.Session.Profile
	switch cfg.Storage.NormalizedBackend() {
	case config.StorageMemory:
		return NewMemory(), nil
	case config.StorageSQLite:
		client, err := db.New(ctx, cfg.Storage.SQLitePath, logg)
		if err != nil {
			return nil, err
		}
		return NewSQL(client, profile), nil
	case config.StorageRedis:
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, err
		}
		return NewRedis(client, profile), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
