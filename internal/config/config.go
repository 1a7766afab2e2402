package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type NatsConfig struct {
	URL         string
	STREAM_NAME string
}

type RedisConfig struct {
	TTL            int
	ClientPassword string
	URL            string
}

type FreeCacheConfig struct {
	SIZE_BYTES int
	TTL        int
}

type MinioConfig struct {
	URL                string
	SUBMISSIONS_BUCKET string
	ACCESS_KEY         string
	SECRET_KEY         string
	USE_SSL            bool
}

type PostgresConfig struct {
	URL string
}

type AuthConfig struct {
	GITHUB_CLIENT_ID     string
	GITHUB_CLIENT_SECRET string
	JWT_SECRET           string
	REDIRECT_URL         string
}

// PipelineConfig carries everything the submission pipeline needs at runtime.
type PipelineConfig struct {
	AS_BINARY          string
	LD_BINARY          string
	SIMULATOR_BINARY   string
	SUBMISSIONS_FOLDER string
	LOAD_ADDRESS       string
	TICKS_MAX          uint32
	CODESIZE_MAX       uint32
	QUEUE_CAPACITY     int
	COMPILE_TIMEOUT    time.Duration
	SIMULATE_TIMEOUT   time.Duration
	MAX_OUTPUT_BYTES   int
}

type Config struct {
	SERVICE_NAME      string
	LISTEN_ADDR       string
	STATIC_DIR        string
	LOG_LEVEL         string
	TRACE_URL         string
	CACHE_TYPE        string
	STORAGE_TYPE      string
	RECORD_STORE_TYPE string
	EVENTS_TYPE       string
}

func env(key string) string {
	v := os.Getenv(key)
	return v
}

func envOr(key, def string) string {
	if v := env(key); v != "" {
		return v
	}
	return def
}

func convertStringToInt(s string, key string) (int, error) {
	sInt, err := strconv.Atoi(s)
	if err != nil {
		return -1, fmt.Errorf("error initializing config with key: %s, err: %v", key, err)
	}
	return sInt, nil
}

func convertStringToUint32(s string, key string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("error initializing config with key: %s, err: %v", key, err)
	}
	return uint32(v), nil
}

func convertStringToDuration(s string, key string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("error initializing config with key: %s, err: %v", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("error initializing config with key: %s, err: duration must be positive", key)
	}
	return d, nil
}

func GetConfig() (*Config, error) {
	sn := env("SERVICE_NAME")
	if sn == "" {
		return nil, fmt.Errorf("KEY: SERVICE_NAME is empty")
	}
	return &Config{
		SERVICE_NAME:      sn,
		LISTEN_ADDR:       envOr("LISTEN_ADDR", ":3000"),
		STATIC_DIR:        envOr("STATIC_DIR", "static"),
		LOG_LEVEL:         envOr("LOG_LEVEL", "info"),
		TRACE_URL:         env("TRACE_URL"),
		CACHE_TYPE:        envOr("CACHE_TYPE", "freecache"),
		STORAGE_TYPE:      envOr("STORAGE_TYPE", "local"),
		RECORD_STORE_TYPE: envOr("RECORD_STORE_TYPE", "postgres"),
		EVENTS_TYPE:       envOr("EVENTS_TYPE", "none"),
	}, nil
}

func GetPipelineConfig() (*PipelineConfig, error) {
	tm := env("TICKS_MAX")
	if tm == "" {
		return nil, fmt.Errorf("KEY: TICKS_MAX is empty")
	}
	ticksMax, err := convertStringToUint32(tm, "TICKS_MAX")
	if err != nil {
		return nil, err
	}

	cm := env("CODESIZE_MAX")
	if cm == "" {
		return nil, fmt.Errorf("KEY: CODESIZE_MAX is empty")
	}
	codesizeMax, err := convertStringToUint32(cm, "CODESIZE_MAX")
	if err != nil {
		return nil, err
	}

	qc, err := convertStringToInt(envOr("QUEUE_CAPACITY", "100"), "QUEUE_CAPACITY")
	if err != nil {
		return nil, err
	}
	if qc <= 0 {
		return nil, fmt.Errorf("KEY: QUEUE_CAPACITY must be positive")
	}

	ct, err := convertStringToDuration(envOr("COMPILE_TIMEOUT", "5s"), "COMPILE_TIMEOUT")
	if err != nil {
		return nil, err
	}
	st, err := convertStringToDuration(envOr("SIMULATE_TIMEOUT", "10s"), "SIMULATE_TIMEOUT")
	if err != nil {
		return nil, err
	}

	mo, err := convertStringToInt(envOr("MAX_OUTPUT_BYTES", "8388608"), "MAX_OUTPUT_BYTES")
	if err != nil {
		return nil, err
	}
	if mo <= 0 {
		return nil, fmt.Errorf("KEY: MAX_OUTPUT_BYTES must be positive")
	}

	return &PipelineConfig{
		AS_BINARY:          envOr("AS_BINARY", "riscv64-elf-as"),
		LD_BINARY:          envOr("LD_BINARY", "riscv64-elf-ld"),
		SIMULATOR_BINARY:   envOr("SIMULATOR_BINARY", "simulator"),
		SUBMISSIONS_FOLDER: envOr("SUBMISSIONS_FOLDER", "submission"),
		LOAD_ADDRESS:       envOr("LOAD_ADDRESS", "0x80000000"),
		TICKS_MAX:          ticksMax,
		CODESIZE_MAX:       codesizeMax,
		QUEUE_CAPACITY:     qc,
		COMPILE_TIMEOUT:    ct,
		SIMULATE_TIMEOUT:   st,
		MAX_OUTPUT_BYTES:   mo,
	}, nil
}

func GetNatsConfig() (*NatsConfig, error) {
	url := env("JETSTREAM_URL")
	if url == "" {
		return nil, fmt.Errorf("KEY: JETSTREAM_URL is empty")
	}
	return &NatsConfig{
		URL:         url,
		STREAM_NAME: envOr("JETSTREAM_STREAM_NAME", "EVENTS"),
	}, nil
}

func GetRedisConfig() (*RedisConfig, error) {
	ttl, err := convertStringToInt(env("REDIS_TTL"), "REDIS_TTL")
	if err != nil {
		return nil, err
	}

	url := env("REDIS_ENDPOINT")
	if url == "" {
		return nil, fmt.Errorf("KEY: REDIS_ENDPOINT is empty")
	}

	return &RedisConfig{
		TTL:            ttl,
		ClientPassword: env("REDIS_CLIENT_PASSWORD"),
		URL:            url,
	}, nil
}

func GetFreeCacheConfig() (*FreeCacheConfig, error) {
	ttl, err := convertStringToInt(env("FREECACHE_TTL"), "FREECACHE_TTL")
	if err != nil {
		return nil, err
	}
	fs, err := convertStringToInt(env("FREECACHE_SIZE"), "FREECACHE_SIZE")
	if err != nil {
		return nil, err
	}
	return &FreeCacheConfig{
		TTL:        ttl,
		SIZE_BYTES: fs,
	}, nil
}

func GetPostgresConfig() (*PostgresConfig, error) {
	url := env("POSTGRES_URL")
	if url == "" {
		return nil, fmt.Errorf("KEY: POSTGRES_URL is empty")
	}
	return &PostgresConfig{
		URL: url,
	}, nil
}

func GetMinioConfig() (*MinioConfig, error) {
	url := env("MINIO_ENDPOINT")
	if url == "" {
		return nil, fmt.Errorf("KEY: MINIO_ENDPOINT is empty")
	}

	sb := env("MINIO_SUBMISSIONS_BUCKET")
	if sb == "" {
		return nil, fmt.Errorf("KEY: MINIO_SUBMISSIONS_BUCKET is empty")
	}

	ssl := env("MINIO_USE_SSL")
	if ssl != "true" && ssl != "false" {
		return nil, fmt.Errorf("KEY: MINIO_USE_SSL is invalid")
	}

	ak := env("MINIO_ACCESS_KEY")
	if ak == "" {
		return nil, fmt.Errorf("KEY: MINIO_ACCESS_KEY is empty")
	}

	sk := env("MINIO_SECRET_KEY")
	if sk == "" {
		return nil, fmt.Errorf("KEY: MINIO_SECRET_KEY is empty")
	}

	return &MinioConfig{
		URL:                url,
		SUBMISSIONS_BUCKET: sb,
		USE_SSL:            ssl == "true",
		ACCESS_KEY:         ak,
		SECRET_KEY:         sk,
	}, nil
}

func GetAuthConfig() (*AuthConfig, error) {
	ci := env("GITHUB_CLIENT_ID")
	if ci == "" {
		return nil, fmt.Errorf("KEY: GITHUB_CLIENT_ID is empty")
	}
	cs := env("GITHUB_CLIENT_SECRET")
	if cs == "" {
		return nil, fmt.Errorf("KEY: GITHUB_CLIENT_SECRET is empty")
	}
	js := env("JWT_SECRET")
	if js == "" {
		return nil, fmt.Errorf("KEY: JWT_SECRET is empty")
	}
	return &AuthConfig{
		GITHUB_CLIENT_ID:     ci,
		GITHUB_CLIENT_SECRET: cs,
		JWT_SECRET:           js,
		REDIRECT_URL:         env("OAUTH_REDIRECT_URL"),
	}, nil
}
