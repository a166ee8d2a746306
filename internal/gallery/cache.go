package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheNamespace = "gallery"

type Cache interface {
	Get(ctx context.Context, key string) ([]Asset, bool, error)
	Set(ctx context.Context, key string, assets []Asset, ttl time.Duration) error
}

// RedisCache stores collection listings as JSON under gallery:<key>.
type RedisCache struct {
	client redis.UniversalClient
}

type RedisConfig struct {
	Addrs    []string
	Password string
	DB       int
}

func NewRedisCache(cfg RedisConfig) *RedisCache {
	var rdb redis.UniversalClient
	if len(cfg.Addrs) > 1 {
		rdb = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
	} else {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Addrs[0],
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}
	return &RedisCache{client: rdb}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]Asset, bool, error) {
	raw, err := c.client.Get(ctx, cacheNamespace+":"+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var assets []Asset
	if err := json.Unmarshal(raw, &assets); err != nil {
		return nil, false, err
	}
	return assets, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, assets []Asset, ttl time.Duration) error {
	raw, err := json.Marshal(assets)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheNamespace+":"+key, raw, ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
