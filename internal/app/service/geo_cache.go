package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sifan077/MailPulse/internal/app/model"
)

const geoCacheKeyPrefix = "geo:"

// RedisGeoCache keeps resolved locations in Redis under geo:{ip}.
type RedisGeoCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGeoCache returns a cache whose entries expire after ttl.
func NewRedisGeoCache(client *redis.Client, ttl time.Duration) *RedisGeoCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisGeoCache{client: client, ttl: ttl}
}

func (c *RedisGeoCache) Get(ctx context.Context, ip string) (model.GeoLocation, bool, error) {
	raw, err := c.client.Get(ctx, geoCacheKeyPrefix+ip).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.GeoLocation{}, false, nil
	}
	if err != nil {
		return model.GeoLocation{}, false, err
	}

	var loc model.GeoLocation
	if err := json.Unmarshal(raw, &loc); err != nil {
		return model.GeoLocation{}, false, err
	}
	return loc, true, nil
}

func (c *RedisGeoCache) Set(ctx context.Context, ip string, loc model.GeoLocation) error {
	raw, err := json.Marshal(loc)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, geoCacheKeyPrefix+ip, raw, c.ttl).Err()
}
