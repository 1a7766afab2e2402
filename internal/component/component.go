package component

import (
	"context"
	"fmt"

	"github.com/ssuji15/rvsim/internal/cache"
	"github.com/ssuji15/rvsim/internal/cache/freecache"
	"github.com/ssuji15/rvsim/internal/cache/redis"
	"github.com/ssuji15/rvsim/internal/config"
	"github.com/ssuji15/rvsim/internal/db"
	"github.com/ssuji15/rvsim/internal/db/memory"
	"github.com/ssuji15/rvsim/internal/db/repository"
	"github.com/ssuji15/rvsim/internal/events"
	"github.com/ssuji15/rvsim/internal/events/jetstream"
	"github.com/ssuji15/rvsim/internal/storage"
	"github.com/ssuji15/rvsim/internal/storage/local"
	"github.com/ssuji15/rvsim/internal/storage/minio"
)

func GetCache(ctx context.Context, cacheType string) (cache.Cache, error) {
	switch cacheType {
	case "redis":
		cfg, err := config.GetRedisConfig()
		if err != nil {
			return nil, err
		}
		return redis.NewRedisCache(ctx, cfg)
	case "freecache":
		cfg, err := config.GetFreeCacheConfig()
		if err != nil {
			return nil, err
		}
		return freecache.NewFreeCache(cfg)
	default:
		return nil, fmt.Errorf("unknown cache type %q", cacheType)
	}
}

// GetResultStore returns the artifact store. The local store keeps results
// inside each submission's working directory under root.
func GetResultStore(ctx context.Context, storageType, root string) (storage.ResultStore, error) {
	switch storageType {
	case "minio":
		cfg, err := config.GetMinioConfig()
		if err != nil {
			return nil, err
		}
		return minio.NewMinioStore(ctx, cfg)
	case "local":
		return local.NewDirStore(root)
	default:
		return nil, fmt.Errorf("unknown storage type %q", storageType)
	}
}

// GetRepository returns the durable record store and a func releasing it.
func GetRepository(ctx context.Context, recordStoreType string) (repository.SubmissionRepository, func(), error) {
	switch recordStoreType {
	case "postgres":
		cfg, err := config.GetPostgresConfig()
		if err != nil {
			return nil, nil, err
		}
		d, err := db.New(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := d.ApplySchema(ctx); err != nil {
			d.Close()
			return nil, nil, err
		}
		return repository.NewSubmissionRepository(d), d.Close, nil
	case "memory":
		return memory.NewSubmissionRepository(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown record store type %q", recordStoreType)
	}
}

func GetPublisher(eventsType string) (events.Publisher, error) {
	switch eventsType {
	case "jetstream":
		cfg, err := config.GetNatsConfig()
		if err != nil {
			return nil, err
		}
		return jetstream.NewJetStreamPublisher(cfg)
	case "none", "":
		return events.Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown events type %q", eventsType)
	}
}
