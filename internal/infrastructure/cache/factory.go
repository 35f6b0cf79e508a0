package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rgimprovise/NM-dashboard-sub000/internal/infrastructure/config"
)

const redisPingTimeout = 5 * time.Second

// ProviderCache holds raw upstream payloads keyed by provider namespace
type ProviderCache = TTLCache[[]json.RawMessage]

// NewProviderCache creates the cache shared by all upstream clients
func NewProviderCache(cfg config.CacheConfig, logger *zap.Logger) *ProviderCache {
	return New[[]json.RawMessage](
		WithSweepInterval[[]json.RawMessage](cfg.SweepInterval),
		WithLogger[[]json.RawMessage](logger.Named("cache")),
	)
}

// NewRedisClient opens a client for cfg and pings it once. The client is
// closed again when the ping fails.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", opts.Addr, err)
	}
	return client, nil
}
