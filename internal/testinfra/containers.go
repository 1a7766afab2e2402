//go:build integration
// +build integration

// Package testinfra starts the throwaway backing services used by the
// integration suites.
package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	MinioUser     = "minioadmin"
	MinioPassword = "minioadmin"
)

func start(ctx context.Context, req testcontainers.ContainerRequest, port string) (testcontainers.Container, string, error) {
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("start %s: %w", req.Image, err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, "", err
	}
	mapped, err := c.MappedPort(ctx, nat.Port(port))
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, "", err
	}
	return c, fmt.Sprintf("%s:%s", host, mapped.Port()), nil
}

// StartPostgres returns a running postgres container and its connection URL.
func StartPostgres(ctx context.Context) (testcontainers.Container, string, error) {
	c, hostPort, err := start(ctx, testcontainers.ContainerRequest{
		Image:        "postgres:18",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "rvsim",
			"POSTGRES_PASSWORD": "rvsim123",
			"POSTGRES_DB":       "rvsim",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}, "5432/tcp")
	if err != nil {
		return nil, "", err
	}
	return c, fmt.Sprintf("postgres://rvsim:rvsim123@%s/rvsim?sslmode=disable", hostPort), nil
}

// StartRedis returns a running redis container and its host:port.
func StartRedis(ctx context.Context) (testcontainers.Container, string, error) {
	return start(ctx, testcontainers.ContainerRequest{
		Image:        "redis:latest",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}, "6379/tcp")
}

// StartMinio returns a running minio container and its host:port.
func StartMinio(ctx context.Context) (testcontainers.Container, string, error) {
	return start(ctx, testcontainers.ContainerRequest{
		Image:        "minio/minio:latest",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     MinioUser,
			"MINIO_ROOT_PASSWORD": MinioPassword,
		},
		Cmd: []string{"server", "/data"},
		WaitingFor: wait.ForHTTP("/minio/health/ready").
			WithPort("9000").
			WithStartupTimeout(30 * time.Second),
	}, "9000/tcp")
}

// StartNats returns a running JetStream-enabled nats container and its URL.
func StartNats(ctx context.Context) (testcontainers.Container, string, error) {
	c, hostPort, err := start(ctx, testcontainers.ContainerRequest{
		Image:        "nats:latest",
		ExposedPorts: []string{"4222/tcp"},
		Cmd:          []string{"-js"},
		WaitingFor:   wait.ForListeningPort("4222/tcp"),
	}, "4222/tcp")
	if err != nil {
		return nil, "", err
	}
	return c, "nats://" + hostPort, nil
}
