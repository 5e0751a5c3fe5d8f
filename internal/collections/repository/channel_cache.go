// internal/collections/repository/channel_cache.go
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"collections-reminders/internal/collections"
	"collections-reminders/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

const (
	channelCachePrefix = "collections:channel:"
	// noChannel marks a tenant known to have no messaging channel.
	noChannel = "-"
)

// CachedChannelStore is a read-through Redis cache in front of a ChannelStore.
// Redis errors fall through to the wrapped store.
type CachedChannelStore struct {
	collections.Store
	redis  redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedChannelStore(store collections.Store, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedChannelStore {
	return &CachedChannelStore{Store: store, redis: rdb, ttl: ttl, logger: log}
}

func (c *CachedChannelStore) ChannelConfig(ctx context.Context, tenantID string) (*collections.ChannelConfig, error) {
	key := channelCachePrefix + tenantID

	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil && val == noChannel:
		return nil, collections.ErrNotFound
	case err == nil:
		var cfg collections.ChannelConfig
		if jsonErr := json.Unmarshal([]byte(val), &cfg); jsonErr == nil {
			return &cfg, nil
		}
		c.logger.Warn("discarding unreadable channel cache entry", map[string]interface{}{"tenantId": tenantID})
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("channel cache read failed", map[string]interface{}{
			"tenantId": tenantID,
			"error":    err.Error(),
		})
	}

	cfg, err := c.Store.ChannelConfig(ctx, tenantID)
	switch {
	case errors.Is(err, collections.ErrNotFound):
		c.set(ctx, key, noChannel)
		return nil, err
	case err != nil:
		return nil, err
	}

	if data, err := json.Marshal(cfg); err == nil {
		c.set(ctx, key, string(data))
	}
	return cfg, nil
}

// SetCollectionsEnabled writes the toggle and drops the tenant's cached channel,
// so re-enabling a tenant after a channel change picks up the new settings. Other
// channel edits are seen once the entry expires.
func (c *CachedChannelStore) SetCollectionsEnabled(ctx context.Context, tenantID string, enabled bool) error {
	if err := c.Store.SetCollectionsEnabled(ctx, tenantID, enabled); err != nil {
		return err
	}
	if err := c.Invalidate(ctx, tenantID); err != nil {
		c.logger.Warn("channel cache invalidation failed", map[string]interface{}{
			"tenantId": tenantID,
			"error":    err.Error(),
		})
	}
	return nil
}

// Invalidate drops the cached entry for a tenant.
func (c *CachedChannelStore) Invalidate(ctx context.Context, tenantID string) error {
	return c.redis.Del(ctx, channelCachePrefix+tenantID).Err()
}

func (c *CachedChannelStore) set(ctx context.Context, key, value string) {
	if err := c.redis.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.Warn("channel cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}
