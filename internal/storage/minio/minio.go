package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/ssuji15/rvsim/internal/config"
	"github.com/ssuji15/rvsim/internal/job_tracer"
	"github.com/ssuji15/rvsim/internal/storage"
	"github.com/ssuji15/rvsim/internal/util"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MinioStore keeps result documents in an S3-compatible bucket under
// submissions/<id>/result.json.
type MinioStore struct {
	client    *minio.Client
	bucket    string
	transport *http.Transport
}

func NewMinioStore(ctx context.Context, cfg *config.MinioConfig) (*MinioStore, error) {
	transport := &http.Transport{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   50,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       120 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableCompression:    true,
	}

	cli, err := minio.New(cfg.URL, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.ACCESS_KEY, cfg.SECRET_KEY, ""),
		Secure:    cfg.USE_SSL,
		Transport: transport,
	})
	if err != nil {
		return nil, err
	}

	s := &MinioStore{client: cli, bucket: cfg.SUBMISSIONS_BUCKET, transport: transport}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *MinioStore) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", m.bucket, err)
	}
	return nil
}

// PutResult refuses to overwrite an existing object. The stat-then-put pair
// is not atomic; a single pipeline worker owns each id so it does not race.
func (m *MinioStore) PutResult(ctx context.Context, id string, data []byte) error {
	ctx, span := job_tracer.GetTracer().Start(ctx, "MinIO/PutResult")
	defer span.End()

	key := util.GetResultObjectKey(id)
	span.AddEvent("minio.context", trace.WithAttributes(attribute.String("key", key)))

	if _, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{}); err == nil {
		err := fmt.Errorf("%s: %w", id, storage.ErrAlreadyExists)
		util.RecordSpanError(span, err)
		return err
	} else if !isNotFound(err) {
		util.RecordSpanError(span, err)
		return err
	}

	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		util.RecordSpanError(span, err)
		return err
	}
	return nil
}

func (m *MinioStore) GetResult(ctx context.Context, id string) ([]byte, error) {
	ctx, span := job_tracer.GetTracer().Start(ctx, "MinIO/GetResult")
	defer span.End()

	object, err := m.client.GetObject(ctx, m.bucket, util.GetResultObjectKey(id), minio.GetObjectOptions{})
	if err != nil {
		util.RecordSpanError(span, err)
		return nil, err
	}
	defer object.Close()

	if _, err := object.Stat(); err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		util.RecordSpanError(span, err)
		return nil, err
	}

	data, err := io.ReadAll(object)
	if err != nil {
		util.RecordSpanError(span, err)
		return nil, err
	}
	return data, nil
}

func (m *MinioStore) ShutDown(ctx context.Context) {
	m.transport.CloseIdleConnections()
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound
}
