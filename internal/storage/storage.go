// Package storage opens the configured object store backend.
package storage

import (
	"context"
	"fmt"

	"github.com/Rrens/energy-agent/internal/config"
	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/Rrens/energy-agent/internal/storage/mongo"
	"github.com/Rrens/energy-agent/internal/storage/sqlite"
)

// Open returns the object store selected by cfg.Storage.Driver
func Open(ctx context.Context, cfg *config.Config) (domain.ObjectStore, error) {
	switch cfg.Storage.Driver {
	case "mongo":
		store, err := mongo.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Storage.Collection, cfg.Mongo.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "sqlite", "":
		store, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}
}
