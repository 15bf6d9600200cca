package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Softvence-Omega-Cyber-Monk/fahad-pervej-backend/pkg/config"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestFixedWindowAllowCountsWithinWindow(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCommands()
	start := time.Unix(1_700_000_000, 0)
	client := &Client{cmd: fake, now: fixedClock(start)}

	for i := int64(1); i <= 2; i++ {
		allowed, count, err := client.FixedWindowAllow(ctx, "order_create:user:1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, i, count)
	}
	require.Len(t, fake.expires, 1, "expiry is set once per window")
	assert.Equal(t, time.Minute, fake.expires[0].ttl)

	allowed, count, err := client.FixedWindowAllow(ctx, "order_create:user:1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, int64(3), count)
}

func TestFixedWindowAllowStartsFreshInNextWindow(t *testing.T) {
	ctx := context.Background()
	fake := newFakeCommands()
	now := time.Unix(1_700_000_000, 0)
	client := &Client{cmd: fake, now: func() time.Time { return now }}

	for i := 0; i < 3; i++ {
		_, _, err := client.FixedWindowAllow(ctx, "chat_message:user:1", 1, time.Minute)
		require.NoError(t, err)
	}

	now = now.Add(time.Minute)
	allowed, count, err := client.FixedWindowAllow(ctx, "chat_message:user:1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, int64(1), count)
	assert.Len(t, fake.expires, 2)
}

func TestFixedWindowAllowRejectsZeroWindow(t *testing.T) {
	client := &Client{cmd: newFakeCommands()}
	_, _, err := client.FixedWindowAllow(context.Background(), "scope", 1, 0)
	assert.Error(t, err)
}

func TestSetGetExistsDel(t *testing.T) {
	ctx := context.Background()
	client := &Client{cmd: newFakeCommands()}

	require.NoError(t, client.Set(ctx, "k", "v", time.Minute))
	got, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	ok, err := client.SetNX(ctx, "k", "other", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "SetNX must not overwrite")

	exists, err := client.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, client.Del(ctx, "k"))
	require.NoError(t, client.Del(ctx))
	_, err = client.Get(ctx, "k")
	assert.ErrorIs(t, err, redis.Nil)
	exists, err = client.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestZeroClientReportsNotInitialized(t *testing.T) {
	client := &Client{}
	ctx := context.Background()

	assert.ErrorIs(t, client.Ping(ctx), ErrNotInitialized)
	assert.ErrorIs(t, client.Set(ctx, "k", "v", 0), ErrNotInitialized)
	_, err := client.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, _, err = client.FixedWindowAllow(ctx, "s", 1, time.Second)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.NoError(t, client.Close())
}

func TestKeyFamilies(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "mv:idempotency:order_create:abc", client.IdempotencyKey("order_create", "abc"))
	assert.Equal(t, "mv:idempotency:order_create", client.IdempotencyKey("order_create", " "))
	assert.Equal(t, "mv:lock:cron-worker", client.LockKey("cron-worker"))
	assert.Equal(t, "mv:session:access:jti-1", client.AccessSessionKey("jti-1"))

	client.now = fixedClock(time.UnixMilli(125_000))
	assert.Equal(t, "mv:rate_limit:scope:2", client.windowKey("scope", time.Minute))
}

func TestBuildOptions(t *testing.T) {
	_, err := buildOptions(config.RedisConfig{})
	require.Error(t, err)

	opts, err := buildOptions(config.RedisConfig{Address: "localhost:6379", DB: 3, PoolSize: 7, DialTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, time.Second, opts.DialTimeout)

	opts, err = buildOptions(config.RedisConfig{URL: "redis://:secret@cache:6380/2", DB: 5, PoolSize: 4})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB, "db from the url wins")
	assert.Equal(t, 4, opts.PoolSize)

	_, err = buildOptions(config.RedisConfig{URL: "://bad"})
	assert.Error(t, err)
}

type expiry struct {
	key string
	ttl time.Duration
}

type fakeCommands struct {
	values   map[string]string
	counters map[string]int64
	expires  []expiry
	incrErr  error
}

func newFakeCommands() *fakeCommands {
	return &fakeCommands{values: map[string]string{}, counters: map[string]int64{}}
}

func (f *fakeCommands) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeCommands) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.values[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeCommands) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCommands) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, ok := f.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.values[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeCommands) Incr(_ context.Context, key string) *redis.IntCmd {
	if f.incrErr != nil {
		return redis.NewIntResult(0, f.incrErr)
	}
	f.counters[key]++
	return redis.NewIntResult(f.counters[key], nil)
}

func (f *fakeCommands) PExpire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.expires = append(f.expires, expiry{key: key, ttl: ttl})
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCommands) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(f.values, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestFixedWindowAllowWrapsStoreErrors(t *testing.T) {
	fake := newFakeCommands()
	fake.incrErr = errors.New("connection reset")
	client := &Client{cmd: fake}

	_, _, err := client.FixedWindowAllow(context.Background(), "scope", 1, time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mv:rate_limit:scope:")
}
