package denylist

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type (
	redisStore struct {
		client *redis.Client
		prefix string
	}
)

// NewRedis shares revocations between every instance pointing to the
// same redis, keys expire together with the token they revoke.
func NewRedis(ctx context.Context, cfg *RedisConfig) (Denylist, error) {
	if cfg == nil || cfg.Addr == "" {
		return nil, fmt.Errorf("denylist: redis address required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("denylist: redis ping failed, cause %w", err)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "todobox:revoked:"
	}
	return &redisStore{client: client, prefix: prefix}, nil
}

func (s *redisStore) key(id string) string {
	return s.prefix + id
}

func (s *redisStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, s.key(tokenID), 1, ttl).Err()
}

func (s *redisStore) Revoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
