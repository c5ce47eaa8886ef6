package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forecast-narrator/internal/common/config"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisClient) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := NewRedis(config.RedisConfig{Address: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisClient_Ping(t *testing.T) {
	_, client := newTestRedis(t)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestRedisClient_IncrWindow(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := client.IncrWindow(ctx, "ratelimit:test", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, time.Minute, mr.TTL("ratelimit:test"))

	mr.FastForward(time.Minute + time.Second)

	got, err := client.IncrWindow(ctx, "ratelimit:test", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got, "counter restarts once the window expires")
}

func TestRedisClient_Unavailable(t *testing.T) {
	mr, client := newTestRedis(t)
	mr.Close()

	_, err := client.IncrWindow(context.Background(), "ratelimit:test", time.Minute)
	assert.Error(t, err)
	assert.Error(t, client.Ping(context.Background()))
}

func TestRedisClient_IncrWindow_RestoresMissingTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	// counter left behind without an expiry
	require.NoError(t, mr.Set("ratelimit:stuck", "41"))

	got, err := client.IncrWindow(ctx, "ratelimit:stuck", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(42), got)
	assert.Equal(t, time.Minute, mr.TTL("ratelimit:stuck"))

	mr.FastForward(time.Minute + time.Second)

	got, err = client.IncrWindow(ctx, "ratelimit:stuck", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestRedisClient_IncrWindow_ExpireFailureIsRepaired(t *testing.T) {
	redisClient, redisMock := redismock.NewClientMock()
	client := &RedisClient{Client: redisClient}
	ctx := context.Background()
	key := "ratelimit:10.0.0.1"

	// first request: EXPIRE times out after INCR succeeded
	redisMock.ExpectIncr(key).SetVal(1)
	redisMock.ExpectTTL(key).SetVal(-1)
	redisMock.ExpectExpire(key, time.Minute).SetErr(errors.New("i/o timeout"))

	count, err := client.IncrWindow(ctx, key, time.Minute)
	require.Error(t, err)
	assert.Equal(t, int64(1), count)

	// next request sees the key without a TTL and sets it
	redisMock.ExpectIncr(key).SetVal(2)
	redisMock.ExpectTTL(key).SetVal(-1)
	redisMock.ExpectExpire(key, time.Minute).SetVal(true)

	count, err = client.IncrWindow(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// inside a live window no EXPIRE is sent
	redisMock.ExpectIncr(key).SetVal(3)
	redisMock.ExpectTTL(key).SetVal(45 * time.Second)

	count, err = client.IncrWindow(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	assert.NoError(t, redisMock.ExpectationsWereMet())
}
