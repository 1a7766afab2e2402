package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ssuji15/rvsim/internal/cache"
	rc "github.com/ssuji15/rvsim/internal/component/redis"
	"github.com/ssuji15/rvsim/internal/config"
	"github.com/ssuji15/rvsim/internal/job_tracer"
	"github.com/ssuji15/rvsim/internal/service/logger"
	"github.com/ssuji15/rvsim/internal/util"
	"github.com/vmihailenco/msgpack/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type RedisCache struct {
	client *redis.Client
	ttl    int
}

func NewRedisCache(ctx context.Context, cfg *config.RedisConfig) (cache.Cache, error) {
	client, err := rc.NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &RedisCache{
		client: client,
		ttl:    cfg.TTL,
	}, nil
}

func (r *RedisCache) Put(ctx context.Context, key string, value interface{}, ttl int) error {
	ctx, span := job_tracer.GetTracer().Start(ctx, "Redis/Put")
	defer span.End()

	if key == "" {
		err := fmt.Errorf("key cannot be empty")
		util.RecordSpanError(span, err)
		return err
	}
	span.AddEvent("redis.context",
		trace.WithAttributes(attribute.String("key", key)),
	)
	if value == nil {
		err := fmt.Errorf("value cannot be nil")
		util.RecordSpanError(span, err)
		return err
	}
	b, err := msgpack.Marshal(value)
	if err != nil {
		err := fmt.Errorf("failed to marshal value for key %s: %w", key, err)
		util.RecordSpanError(span, err)
		return err
	}
	if err := r.client.Set(ctx, key, b, time.Duration(ttl)*time.Second).Err(); err != nil {
		util.RecordSpanError(span, err)
		return err
	}
	return nil
}

// value must be non-nil pointer to destination type
func (r *RedisCache) Get(ctx context.Context, key string, value interface{}) error {
	ctx, span := job_tracer.GetTracer().Start(ctx, "Redis/Get")
	defer span.End()

	if key == "" {
		err := fmt.Errorf("key cannot be empty")
		util.RecordSpanError(span, err)
		return err
	}
	span.AddEvent("redis.context",
		trace.WithAttributes(attribute.String("key", key)),
	)

	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return cache.ErrCacheMiss
		}
		err := fmt.Errorf("failed to retrieve value for key %s: %w", key, err)
		util.RecordSpanError(span, err)
		return err
	}
	if err := msgpack.Unmarshal(val, value); err != nil {
		err := fmt.Errorf("failed to unmarshal value for key %s: %w", key, err)
		util.RecordSpanError(span, err)
		return err
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}
	return r.client.Del(ctx, key).Err()
}

func (r *RedisCache) GetDefaultTTL() int {
	return r.ttl
}

func (r *RedisCache) ShutDown(ctx context.Context) {
	if err := r.client.Close(); err != nil {
		logger.Log.Error().Err(err).Msg("unable to close redis connection")
	}
	rc.ResetRedisClient()
}
