package denylist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/cespare/xxhash/v2"
)

type (
	memStore struct {
		cache *bigcache.BigCache
	}

	xxhasher struct{}
)

func (xxhasher) Sum64(key string) uint64 {
	return xxhash.Sum64String(key)
}

// NewMemory keeps revoked tokens in process memory, entries are evicted
// ttl after being revoked. Revocations are lost on restart and are not
// shared between instances. The cache lives until Close is called.
func NewMemory(_ context.Context, ttl time.Duration) (Denylist, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("denylist: memory ttl must be positive")
	}
	cfg := bigcache.DefaultConfig(ttl)
	cfg.CleanWindow = time.Minute
	cfg.Hasher = xxhasher{}
	cache, err := bigcache.NewBigCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("denylist: unable to create memory cache, cause %w", err)
	}
	return &memStore{
		cache: cache,
	}, nil
}

func (m *memStore) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if !time.Now().Before(until) {
		return nil
	}
	return m.cache.Set(tokenID, []byte{1})
}

func (m *memStore) Revoked(ctx context.Context, tokenID string) (bool, error) {
	buf, err := m.cache.Get(tokenID)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return (len(buf) > 0 && buf[0] == 1), nil
}

func (m *memStore) Close() error {
	return m.cache.Close()
}
