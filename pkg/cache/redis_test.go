package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisLockerUnreachableServer(t *testing.T) {
	locker := NewRedisLocker(unreachableClient(t), time.Second, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	unlock, err := locker.Lock(ctx, "deposit:dep-1")
	require.Error(t, err)
	require.Nil(t, unlock)
}

func TestRedisLockerNotConfigured(t *testing.T) {
	var locker *RedisLocker
	_, err := locker.Lock(context.Background(), "deposit:dep-1")
	require.Error(t, err)
}

func TestRedisLockerReleaseRunsOnceAndLogsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	locker := NewRedisLocker(unreachableClient(t), time.Second, zap.New(core))

	release := locker.releaser(lockKeyPrefix+"deposit:dep-1", "token-1")
	release()
	release()

	entries := logs.FilterMessage("failed to release lock").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "lock:deposit:dep-1", entries[0].ContextMap()["key"])
}
