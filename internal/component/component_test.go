package component

import (
	"context"
	"testing"

	"github.com/ssuji15/rvsim/internal/cache/freecache"
	"github.com/ssuji15/rvsim/internal/db/memory"
	"github.com/ssuji15/rvsim/internal/events"
	"github.com/ssuji15/rvsim/internal/storage/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCache(t *testing.T) {
	t.Setenv("FREECACHE_SIZE", "1048576")
	t.Setenv("FREECACHE_TTL", "30")

	c, err := GetCache(context.Background(), "freecache")
	require.NoError(t, err)
	assert.IsType(t, &freecache.FreeCache{}, c)
	assert.Equal(t, 30, c.GetDefaultTTL())

	_, err = GetCache(context.Background(), "memcached")
	assert.ErrorContains(t, err, `unknown cache type "memcached"`)
}

func TestGetCache_RedisNeedsConfig(t *testing.T) {
	t.Setenv("REDIS_TTL", "10")
	t.Setenv("REDIS_ENDPOINT", "")

	_, err := GetCache(context.Background(), "redis")
	assert.ErrorContains(t, err, "REDIS_ENDPOINT")
}

func TestGetResultStore(t *testing.T) {
	root := t.TempDir()

	s, err := GetResultStore(context.Background(), "local", root)
	require.NoError(t, err)
	require.IsType(t, &local.DirStore{}, s)

	t.Setenv("MINIO_ENDPOINT", "")
	_, err = GetResultStore(context.Background(), "minio", root)
	assert.ErrorContains(t, err, "MINIO_ENDPOINT")

	_, err = GetResultStore(context.Background(), "s3", root)
	assert.Error(t, err)
}

func TestGetRepository(t *testing.T) {
	repo, closeFn, err := GetRepository(context.Background(), "memory")
	require.NoError(t, err)
	assert.IsType(t, &memory.SubmissionRepository{}, repo)
	closeFn()

	t.Setenv("POSTGRES_URL", "")
	_, _, err = GetRepository(context.Background(), "postgres")
	assert.ErrorContains(t, err, "POSTGRES_URL")

	_, _, err = GetRepository(context.Background(), "sqlite")
	assert.Error(t, err)
}

func TestGetPublisher(t *testing.T) {
	for _, typ := range []string{"none", ""} {
		p, err := GetPublisher(typ)
		require.NoError(t, err)
		assert.Equal(t, events.Noop{}, p)
	}

	t.Setenv("JETSTREAM_URL", "")
	_, err := GetPublisher("jetstream")
	assert.ErrorContains(t, err, "JETSTREAM_URL")

	_, err = GetPublisher("kafka")
	assert.Error(t, err)
}
