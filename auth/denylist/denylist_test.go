package denylist

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exercise(t *testing.T, d Denylist) {
	ctx := context.Background()
	revoked, err := d.Revoked(ctx, "token-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, d.Revoke(ctx, "token-1", time.Now().Add(time.Hour)))
	revoked, err = d.Revoked(ctx, "token-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = d.Revoked(ctx, "token-2")
	require.NoError(t, err)
	assert.False(t, revoked, "revoking one token must not affect others")

	// already expired, nothing to remember
	require.NoError(t, d.Revoke(ctx, "token-3", time.Now().Add(-time.Minute)))
	revoked, err = d.Revoked(ctx, "token-3")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d, err := New(ctx, Config{Driver: DriverMemory, TTL: time.Hour})
	require.NoError(t, err)
	defer d.Close()
	exercise(t, d)
}

func TestRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx := context.Background()
	d, err := New(ctx, Config{Driver: DriverRedis, Redis: &RedisConfig{Addr: mr.Addr()}})
	require.NoError(t, err)
	defer d.Close()
	exercise(t, d)

	require.NoError(t, d.Revoke(ctx, "short-lived", time.Now().Add(time.Minute)))
	assert.True(t, mr.Exists("todobox:revoked:short-lived"))
	mr.FastForward(2 * time.Minute)
	revoked, err := d.Revoked(ctx, "short-lived")
	require.NoError(t, err)
	assert.False(t, revoked, "key should expire together with the token")
}

func TestNewDrivers(t *testing.T) {
	ctx := context.Background()
	d, err := New(ctx, Config{})
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = New(ctx, Config{Driver: DriverNone})
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = New(ctx, Config{Driver: "memcached"})
	assert.Error(t, err)

	_, err = New(ctx, Config{Driver: DriverRedis})
	assert.Error(t, err)

	_, err = New(ctx, Config{Driver: DriverMemory})
	assert.Error(t, err)
}
