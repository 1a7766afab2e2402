//go:build integration
// +build integration

package minio

import (
	"context"
	"flag"
	"os"
	"testing"

	"github.com/ssuji15/rvsim/internal/config"
	"github.com/ssuji15/rvsim/internal/storage"
	"github.com/ssuji15/rvsim/internal/testinfra"
	"github.com/stretchr/testify/require"
)

var minioEndpoint string

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(0)
	}
	ctx := context.Background()
	container, endpoint, err := testinfra.StartMinio(ctx)
	if err != nil {
		panic(err)
	}
	minioEndpoint = endpoint
	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func testConfig(bucket string) *config.MinioConfig {
	return &config.MinioConfig{
		URL:                minioEndpoint,
		SUBMISSIONS_BUCKET: bucket,
		ACCESS_KEY:         testinfra.MinioUser,
		SECRET_KEY:         testinfra.MinioPassword,
	}
}

func TestNewMinioStore(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *config.MinioConfig
		expectErr bool
	}{
		{"creates missing bucket", testConfig("fresh-bucket"), false},
		{"existing bucket", testConfig("fresh-bucket"), false},
		{"bad credentials", &config.MinioConfig{URL: "", SUBMISSIONS_BUCKET: "x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewMinioStore(context.Background(), tt.cfg)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			s.ShutDown(context.Background())
		})
	}
}

func TestMinioStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s, err := NewMinioStore(ctx, testConfig("submissions"))
	require.NoError(t, err)
	defer s.ShutDown(ctx)

	_, err = s.GetResult(ctx, "job-1")
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.PutResult(ctx, "job-1", []byte(`{"id":"job-1"}`)))

	got, err := s.GetResult(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, `{"id":"job-1"}`, string(got))

	require.ErrorIs(t, s.PutResult(ctx, "job-1", []byte(`{}`)), storage.ErrAlreadyExists)
}
