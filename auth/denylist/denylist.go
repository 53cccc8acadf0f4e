// Package denylist keeps track of tokens revoked before they expire.
//
// Tokens are stateless, so by default a token stays valid until its
// expiration no matter what. Enabling a denylist lets clients log out
// for real, at the cost of one extra lookup per request.
package denylist

import (
	"context"
	"fmt"
	"time"
)

type (
	Denylist interface {
		// Revoke marks tokenID as revoked until the given moment, after
		// that the token would be rejected for being expired anyway.
		Revoke(ctx context.Context, tokenID string, until time.Time) error
		Revoked(ctx context.Context, tokenID string) (bool, error)
		Close() error
	}

	Config struct {
		Driver string
		// TTL should match the token validity window
		TTL   time.Duration
		Redis *RedisConfig
	}

	RedisConfig struct {
		Addr     string
		Username string
		Password string
		DB       int
		Prefix   string
	}
)

const (
	DriverNone   = "none"
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// New returns the denylist selected by cfg.Driver, a nil Denylist (and
// no error) is returned for DriverNone.
func New(ctx context.Context, cfg Config) (Denylist, error) {
	switch cfg.Driver {
	case "", DriverNone:
		return nil, nil
	case DriverMemory:
		return NewMemory(ctx, cfg.TTL)
	case DriverRedis:
		return NewRedis(ctx, cfg.Redis)
	}
	return nil, fmt.Errorf("denylist: unsupported driver %v", cfg.Driver)
}
