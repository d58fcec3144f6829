package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/jewelbid-backend/pkg/config"
)

// fakeCmdable evaluates the client's two scripts in memory.
type fakeCmdable struct {
	data    map[string]string
	counts  map[string]int64
	windows map[string]int64
}

func newFake() *fakeCmdable {
	return &fakeCmdable{data: map[string]string{}, counts: map[string]int64{}, windows: map[string]int64{}}
}

func (f *fakeCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCmdable) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (f *fakeCmdable) Eval(_ context.Context, script string, keys []string, args ...any) *redis.Cmd {
	switch script {
	case fixedWindowScript:
		f.counts[keys[0]]++
		if f.counts[keys[0]] == 1 {
			f.windows[keys[0]] = args[0].(int64)
		}
		return redis.NewCmdResult(f.counts[keys[0]], nil)
	case compareAndDeleteScript:
		if f.data[keys[0]] == args[0] {
			delete(f.data, keys[0])
			return redis.NewCmdResult(int64(1), nil)
		}
		return redis.NewCmdResult(int64(0), nil)
	}
	return redis.NewCmdResult(nil, fmt.Errorf("unexpected script"))
}

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	fake := newFake()
	client := &Client{store: fake}

	for i, want := range []bool{true, true, false} {
		allowed, count, err := client.FixedWindowAllow(ctx, "bids:user-1", 2, 30*time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, allowed)
		assert.Equal(t, int64(i+1), count)
	}
	assert.Equal(t, int64(30000), fake.windows["jb:rate_limit:bids:user-1"])
}

func TestCompareAndDeleteOnlyRemovesOwnValue(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newFake()}
	key := client.LockKey("cron-worker", "dev")

	ok, err := client.SetNX(ctx, key, "owner-a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = client.SetNX(ctx, key, "owner-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	deleted, err := client.CompareAndDelete(ctx, key, "owner-b")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = client.CompareAndDelete(ctx, key, "owner-a")
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = client.Get(ctx, key)
	assert.ErrorIs(t, err, redis.Nil)
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	assert.Error(t, client.Ping(context.Background()))
	_, _, err := client.FixedWindowAllow(context.Background(), "x", 1, time.Second)
	assert.Error(t, err)
	assert.NoError(t, client.Close())
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "jb:rate_limit:bids:user-1", client.RateLimitKey("bids:user-1"))
	assert.Equal(t, "jb:lock:cron-worker:prod", client.LockKey("cron-worker", "prod"))
	assert.Equal(t, "jb:lock:cron-worker", client.LockKey("cron-worker", " "))
	assert.Equal(t, "jb:idem:u1|POST|/api/v1/items/x/bids:k1", client.IdempotencyKey("u1|POST|/api/v1/items/x/bids", "k1"))
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	assert.Error(t, err)

	opts, err := optionsFromConfig(config.RedisConfig{
		URL:         "redis://localhost:6379/2",
		Password:    "secret",
		PoolSize:    7,
		DialTimeout: 3 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, 3*time.Second, opts.DialTimeout)
}
