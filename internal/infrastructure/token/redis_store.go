package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rgimprovise/NM-dashboard-sub000/internal/domain/integration"
)

const defaultRedisKey = "dashboard:vk:token"

// RedisStore keeps the credential under a single Redis key without expiry
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a Redis-backed token store
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisStore{
		client: client,
		key:    key,
	}
}

// Load reads the stored credential
func (s *RedisStore) Load(ctx context.Context) (integration.TokenData, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return integration.TokenData{}, integration.ErrTokenNotFound
	}
	if err != nil {
		return integration.TokenData{}, fmt.Errorf("failed to read token from Redis: %w", err)
	}

	var token integration.TokenData
	if err := json.Unmarshal(data, &token); err != nil {
		return integration.TokenData{}, fmt.Errorf("failed to decode token from Redis: %w", err)
	}
	return token, nil
}

// Save replaces the stored credential
func (s *RedisStore) Save(ctx context.Context, token integration.TokenData) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write token to Redis: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ integration.TokenStore = (*RedisStore)(nil)
