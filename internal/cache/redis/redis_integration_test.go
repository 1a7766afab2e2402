//go:build integration
// +build integration

package redis

import (
	"context"
	"flag"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ssuji15/rvsim/internal/cache"
	rc "github.com/ssuji15/rvsim/internal/component/redis"
	"github.com/ssuji15/rvsim/internal/config"
	"github.com/ssuji15/rvsim/internal/testinfra"
	"github.com/ssuji15/rvsim/model"
	"github.com/stretchr/testify/require"
)

var redisEndpoint string

func TestMain(m *testing.M) {
	flag.Parse()

	if testing.Short() {
		fmt.Println("skipping integration tests")
		os.Exit(0)
	}

	ctx := context.Background()
	container, endpoint, err := testinfra.StartRedis(ctx)
	if err != nil {
		panic(err)
	}
	redisEndpoint = endpoint

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func newTestCache(t *testing.T) cache.Cache {
	t.Helper()
	rc.ResetRedisClient()
	c, err := NewRedisCache(context.Background(), &config.RedisConfig{URL: redisEndpoint, TTL: 2})
	require.NoError(t, err)
	return c
}

func TestNewRedisCache(t *testing.T) {
	tests := []struct {
		name      string
		endpoint  string
		expectErr bool
	}{
		{"reachable endpoint succeeds", "", false},
		{"unreachable endpoint fails", "127.0.0.1:1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc.ResetRedisClient()
			endpoint := tt.endpoint
			if endpoint == "" {
				endpoint = redisEndpoint
			}

			c, err := NewRedisCache(context.Background(), &config.RedisConfig{URL: endpoint, TTL: 2})
			if tt.expectErr {
				require.Error(t, err)
				require.Nil(t, c)
				return
			}
			require.NoError(t, err)
			require.Equal(t, 2, c.GetDefaultTTL())
		})
	}
}

func TestRedisCache_PutGet(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	sub := model.Submission{
		ID:        uuid.New(),
		UserID:    7,
		Status:    model.StatusCompleted,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	require.Error(t, c.Put(ctx, "", "value", c.GetDefaultTTL()))
	require.Error(t, c.Put(ctx, "nil_val", nil, c.GetDefaultTTL()))
	require.NoError(t, c.Put(ctx, "submission:1", sub, c.GetDefaultTTL()))

	var got model.Submission
	require.NoError(t, c.Get(ctx, "submission:1", &got))
	require.Equal(t, sub.ID, got.ID)
	require.Equal(t, sub.Status, got.Status)
	require.True(t, sub.CreatedAt.Equal(got.CreatedAt))

	var missing model.Submission
	require.ErrorIs(t, c.Get(ctx, "missing", &missing), cache.ErrCacheMiss)

	require.NoError(t, c.Delete(ctx, "submission:1"))
	require.ErrorIs(t, c.Get(ctx, "submission:1", &got), cache.ErrCacheMiss)
}

func TestRedisCache_TTL(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Put(ctx, "temp", "shortlived", 1))
	time.Sleep(2 * time.Second)

	var out string
	require.ErrorIs(t, c.Get(ctx, "temp", &out), cache.ErrCacheMiss)
}

func TestRedisCache_Shutdown(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Put(ctx, "key1", "value1", c.GetDefaultTTL()))
	c.ShutDown(ctx)

	var out string
	require.Error(t, c.Get(ctx, "key1", &out))
}
