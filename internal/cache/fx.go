package cache

import (
	"github.com/arthafin/limitengine/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewRedisClient connects to redis when an address is configured. A nil
// client is a valid result; consumers fall back to the in-memory cache.
func NewRedisClient(cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Info("redis not configured, using in-memory cache")
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// NewCache picks the redis-backed cache when available.
func NewCache(client *redis.Client) Cache {
	if rc := NewRedisCache(client); rc != nil {
		return rc
	}
	return NewTTLCache()
}

// Module provides the redis client and the Cache port.
var Module = fx.Module("cache",
	fx.Provide(
		NewRedisClient,
		NewCache,
	),
)
