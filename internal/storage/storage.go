package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("result not found")
	ErrAlreadyExists = errors.New("result already exists")
)

// ResultStore holds one result document per submission. PutResult succeeds at
// most once per id; GetResult returns ErrNotFound until it has.
type ResultStore interface {
	PutResult(ctx context.Context, id string, data []byte) error
	GetResult(ctx context.Context, id string) ([]byte, error)
	ShutDown(ctx context.Context)
}
