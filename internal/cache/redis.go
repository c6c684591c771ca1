package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"docvault/internal/config"
)

const tokenKeyPrefix = "docvault:token:"

// Redis is a TokenCache backed by go-redis.
type Redis struct {
	client redis.UniversalClient
}

var _ TokenCache = (*Redis)(nil)

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// New returns a Redis cache when cfg.Addr is set and Noop otherwise.
// The connection is verified with a PING.
func New(ctx context.Context, cfg config.RedisConfig) (TokenCache, func() error, error) {
	if cfg.Addr == "" {
		return Noop{}, func() error { return nil }, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedis(client), client.Close, nil
}

func tokenKey(tokenHash string) string {
	return tokenKeyPrefix + tokenHash
}

// Get looks the digest up.
func (r *Redis) Get(ctx context.Context, tokenHash string) (string, bool, error) {
	userID, err := r.client.Get(ctx, tokenKey(tokenHash)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}

// Set caches the digest. A non-positive ttl stores the entry without expiry.
func (r *Redis) Set(ctx context.Context, tokenHash, userID string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, tokenKey(tokenHash), userID, ttl).Err()
}

// Delete evicts the digest. Evicting a missing key is not an error.
func (r *Redis) Delete(ctx context.Context, tokenHash string) error {
	return r.client.Del(ctx, tokenKey(tokenHash)).Err()
}
