package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/energy-agent/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	collectionCachePrefix = "collection:"
	defaultCollectionTTL  = 5 * time.Minute
)

// CollectionCache caches collection records read while linking sessions
type CollectionCache struct {
	client *Client
	ttl    time.Duration
}

// NewCollectionCache creates a new collection cache
func NewCollectionCache(client *Client, ttl time.Duration) *CollectionCache {
	if ttl <= 0 {
		ttl = defaultCollectionTTL
	}
	return &CollectionCache{client: client, ttl: ttl}
}

// Get returns the cached collection, or nil on a cache miss
func (c *CollectionCache) Get(ctx context.Context, id string) (*domain.Collection, error) {
	data, err := c.client.rdb.Get(ctx, collectionCachePrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached collection: %w", err)
	}

	var col domain.Collection
	if err := json.Unmarshal(data, &col); err != nil {
		return nil, fmt.Errorf("failed to unmarshal collection: %w", err)
	}
	return &col, nil
}

// Set caches a collection
func (c *CollectionCache) Set(ctx context.Context, col *domain.Collection) error {
	data, err := json.Marshal(col)
	if err != nil {
		return fmt.Errorf("failed to marshal collection: %w", err)
	}
	return c.client.rdb.Set(ctx, collectionCachePrefix+col.ID, data, c.ttl).Err()
}

// Invalidate removes a cached collection
func (c *CollectionCache) Invalidate(ctx context.Context, id string) error {
	return c.client.rdb.Del(ctx, collectionCachePrefix+id).Err()
}

// FlushAll removes every cached collection
func (c *CollectionCache) FlushAll(ctx context.Context) (int64, error) {
	return c.client.deleteByPattern(ctx, collectionCachePrefix+"*")
}
