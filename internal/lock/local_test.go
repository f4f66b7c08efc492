package lock

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/fleetwatch/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalLockerExclusive(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 7, 4, 10, 0, 0, 0, time.UTC))
	l := NewLocalLocker(clk)
	ctx := context.Background()

	token, ok, err := l.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, token)

	_, ok, err = l.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// Other keys are independent.
	_, ok, err = l.TryLock(ctx, "other", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	// A stale token cannot release a lease it does not own.
	require.NoError(t, l.Release(ctx, "sweep", "not-the-token"))
	_, ok, _ = l.TryLock(ctx, "sweep", time.Minute)
	assert.False(t, ok)

	require.NoError(t, l.Release(ctx, "sweep", token))
	_, ok, err = l.TryLock(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalLockerExpires(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 7, 4, 10, 0, 0, 0, time.UTC))
	l := NewLocalLocker(clk)
	ctx := context.Background()

	_, ok, err := l.TryLock(ctx, "sweep", 30*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	clk.Advance(30 * time.Second)
	_, ok, err = l.TryLock(ctx, "sweep", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockerValidation(t *testing.T) {
	l := NewLocalLocker(nil)

	_, _, err := l.TryLock(context.Background(), "", time.Minute)
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, _, err = l.TryLock(context.Background(), "sweep", 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)

	var nilRedis *RedisLocker
	_, _, err = nilRedis.TryLock(context.Background(), "sweep", time.Minute)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.NoError(t, nilRedis.Release(context.Background(), "sweep", "token"))
}

func TestNewLockerFallsBackToLocal(t *testing.T) {
	l := NewLocker(Params{Clock: clock.RealClock{}, Log: zap.NewNop()})
	_, isLocal := l.(*LocalLocker)
	assert.True(t, isLocal)
}

func TestRedisLockerWrapsTransportErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	l := NewRedisLocker(client)

	_, ok, err := l.TryLock(context.Background(), "sweep", time.Minute)
	assert.False(t, ok)
	assert.ErrorContains(t, err, "redis setnx sweep")
	assert.ErrorContains(t, l.Release(context.Background(), "sweep", "token"), "redis release sweep")
	assert.NoError(t, l.Release(context.Background(), "sweep", ""))
}
